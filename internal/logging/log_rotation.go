package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type LogRotation struct {
	maxSize int64
	maxAge  time.Duration
	now     func() time.Time
}

// NewLogRotation rotates files larger than maxSizeMB or older than maxAge.
// A zero limit disables that check.
func NewLogRotation(maxSizeMB int64, maxAge time.Duration) *LogRotation {
	return &LogRotation{
		maxSize: maxSizeMB * 1024 * 1024,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (lr *LogRotation) ShouldRotate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}

	if lr.maxSize > 0 && info.Size() >= lr.maxSize {
		return true
	}
	return lr.maxAge > 0 && lr.now().Sub(info.ModTime()) >= lr.maxAge
}

func (lr *LogRotation) Rotate(path string) (string, error) {
	timestamp := lr.now().Format("20060102-150405")
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]

	newPath := fmt.Sprintf("%s-%s%s", base, timestamp, ext)

	err := os.Rename(path, newPath)
	return newPath, err
}

// RotateIfNeeded rotates path when it is due and returns the rotated file
// name, or "" when nothing happened.
func (lr *LogRotation) RotateIfNeeded(path string) (string, error) {
	if !lr.ShouldRotate(path) {
		return "", nil
	}
	return lr.Rotate(path)
}
