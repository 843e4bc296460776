package models

import "time"

// MembershipEvent is a single voice membership change. FromChannelID is empty
// when the member connected from nowhere, ToChannelID is empty when the member
// disconnected.
type MembershipEvent struct {
	GuildID       string
	MemberID      string
	MemberName    string
	FromChannelID string
	ToChannelID   string
	Timestamp     time.Time
}

func (e MembershipEvent) Joined() bool {
	return e.ToChannelID != "" && e.ToChannelID != e.FromChannelID
}

func (e MembershipEvent) Left() bool {
	return e.FromChannelID != "" && e.FromChannelID != e.ToChannelID
}
