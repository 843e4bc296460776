package models

// RoomAction is one journaled command execution against an ephemeral room.
type RoomAction struct {
	ID        int64
	RequestID string
	GuildID   string
	ChannelID string
	ActorID   string
	Command   string
	TargetID  string
	Outcome   string // "ok" or the error kind
	Detail    string
	Timestamp int64
}
