package rooms

import (
	"context"
	"time"

	"go-voicemaster/internal/models"
)

// Platform is the chat platform API the rooms core drives. Every method may
// block on the network and must honour ctx.
type Platform interface {
	CreateRoom(ctx context.Context, spec models.RoomSpec) (string, error)
	// DeleteRoom returns ErrUnknownRoom (wrapped) if the room is already gone.
	DeleteRoom(ctx context.Context, roomID string) error
	GetRoom(ctx context.Context, roomID string) (models.RoomInfo, error)
	ListRooms(ctx context.Context, guildID, parentID string) ([]models.RoomInfo, error)
	// GetCurrentMembers reads the platform's current membership of a room.
	GetCurrentMembers(ctx context.Context, roomID string) ([]string, error)
	MoveMember(ctx context.Context, guildID, memberID, roomID string) error
	DisconnectMember(ctx context.Context, guildID, memberID string) error
	SetServerMute(ctx context.Context, guildID, memberID string, mute bool) error
	// SetOverwrite applies all deltas in one platform call, so observers
	// never see a subset of them applied.
	SetOverwrite(ctx context.Context, roomID string, deltas ...models.OverwriteDelta) error
	SetUserLimit(ctx context.Context, roomID string, limit int) error
	SetName(ctx context.Context, roomID, name string) error
}

// ConfigStore is the guild configuration store.
type ConfigStore interface {
	GetConfig(guildID string) (models.GuildVoiceConfig, bool)
	SetConfig(guildID string, cfg models.GuildVoiceConfig) error
	ClearConfig(guildID string) error
	ListConfigs() []models.GuildVoiceConfig
}

// Notifier tells members about failures they would otherwise not see.
type Notifier interface {
	ProvisionFailed(ctx context.Context, ev models.MembershipEvent, err error)
}

// Journal records executed commands.
type Journal interface {
	RecordAction(action models.RoomAction) error
}

type Metrics interface {
	RoomProvisioned(v models.VisibilityClass)
	ProvisionFailed()
	RoomReaped()
	ReapSkipped(reason string)
	CommandExecuted(command, outcome string)
	ExternalCall(op string, d time.Duration, err error)
}

type nopNotifier struct{}

func (nopNotifier) ProvisionFailed(context.Context, models.MembershipEvent, error) {}

type nopJournal struct{}

func (nopJournal) RecordAction(models.RoomAction) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RoomProvisioned(models.VisibilityClass)    {}
func (nopMetrics) ProvisionFailed()                          {}
func (nopMetrics) RoomReaped()                               {}
func (nopMetrics) ReapSkipped(string)                        {}
func (nopMetrics) CommandExecuted(string, string)            {}
func (nopMetrics) ExternalCall(string, time.Duration, error) {}
