package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// discordEpoch is the first millisecond of 2015 in unix milliseconds.
const discordEpoch = 1420070400000

// StringToUint64 converts string to uint64
func StringToUint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uint64: %w", err)
	}
	return n, nil
}

// IsSnowflake reports whether s looks like a Discord id.
func IsSnowflake(s string) bool {
	if len(s) < 15 || len(s) > 20 {
		return false
	}
	_, err := StringToUint64(s)
	return err == nil
}

// SnowflakeTime returns the creation time encoded in a Discord id.
func SnowflakeTime(id string) (time.Time, error) {
	n, err := StringToUint64(id)
	if err != nil {
		return time.Time{}, err
	}
	ms := int64(n>>22) + discordEpoch
	return time.UnixMilli(ms), nil
}

// ParseMention extracts the user id from "<@id>", "<@!id>" or a bare id.
func ParseMention(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
		s = strings.TrimPrefix(s, "!")
	}
	if !IsSnowflake(s) {
		return "", false
	}
	return s, true
}
