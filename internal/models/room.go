package models

import (
	"fmt"
	"strings"
	"time"
)

type VisibilityClass uint8

const (
	Public VisibilityClass = iota
	Private
)

func (v VisibilityClass) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

func ParseVisibility(s string) (VisibilityClass, error) {
	switch strings.ToLower(s) {
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	}
	return 0, fmt.Errorf("unknown visibility class %q", s)
}

// EphemeralChannel is a room provisioned on demand. OwnerID is empty only
// before the provisioning member has been recorded.
type EphemeralChannel struct {
	ID         string
	GuildID    string
	ParentID   string
	Visibility VisibilityClass
	OwnerID    string
	CreatedAt  time.Time
}

type RoomKind uint8

const (
	RoomVoice RoomKind = iota
	RoomCategory
)

// RoomSpec describes a channel to create on the platform.
type RoomSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Kind       RoomKind
	Overwrites []Overwrite
}

// RoomInfo is the platform's current view of a channel.
type RoomInfo struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Kind       RoomKind
	UserLimit  int
	Overwrites []Overwrite
}

func (r RoomInfo) Locked() bool {
	o, _ := FindOverwrite(r.Overwrites, Everyone(r.GuildID))
	return o.Denies(CapConnect)
}

func (r RoomInfo) Hidden() bool {
	o, _ := FindOverwrite(r.Overwrites, Everyone(r.GuildID))
	return o.Denies(CapViewChannel)
}

const MaxRoomNameLength = 100

// RoomName derives a room's display name from its owner's display name.
func RoomName(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "Voice"
	}
	return TruncateName(name + "'s channel")
}

func TruncateName(name string) string {
	r := []rune(name)
	if len(r) > MaxRoomNameLength {
		return string(r[:MaxRoomNameLength])
	}
	return name
}
