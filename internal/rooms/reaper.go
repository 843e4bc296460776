package rooms

import (
	"context"
	"time"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"
	"go-voicemaster/pkg/util"

	"golang.org/x/sync/errgroup"
)

const (
	skipGrace    = "grace"
	skipOccupied = "occupied"
	skipBusy     = "busy"
	skipError    = "error"
)

// Reaper deletes ephemeral rooms once they are empty. Apart from a guild
// reset it is the only component that deletes rooms, and both do so under the
// room lock.
type Reaper struct {
	*env
	triggers *TriggerRegistry
}

// OnMembershipChanged considers the room a member just left.
func (r *Reaper) OnMembershipChanged(ctx context.Context, ev models.MembershipEvent) {
	if !ev.Left() {
		return
	}
	cfg, ok := r.Configs.GetConfig(ev.GuildID)
	if !ok {
		return
	}
	if !r.isManaged(ctx, cfg, ev.FromChannelID) {
		return
	}
	r.reap(ctx, ev.FromChannelID)
}

func (r *Reaper) isManaged(ctx context.Context, cfg models.GuildVoiceConfig, roomID string) bool {
	if r.triggers.IsTrigger(cfg, roomID) {
		return false
	}
	if _, ok := r.Owners.Get(roomID); ok {
		return true
	}

	var info models.RoomInfo
	err := r.call(ctx, "get room", func(ctx context.Context) error {
		var err error
		info, err = r.Platform.GetRoom(ctx, roomID)
		return err
	})
	if err != nil {
		if KindOf(err) != KindNotFound {
			logging.Warn("[REAPER] Could not inspect room %s: %v", roomID, err)
		}
		return false
	}
	return info.Kind == models.RoomVoice && r.triggers.IsManagedCategory(cfg, info.ParentID)
}

// reap deletes roomID if the platform reports it empty right now. It reports
// whether the room is gone afterwards.
func (r *Reaper) reap(ctx context.Context, roomID string) bool {
	unlock, err := r.lock(ctx, roomID)
	if err != nil {
		r.Metrics.ReapSkipped(skipBusy)
		return false
	}
	defer unlock()

	if created, ok := r.createdAt(roomID); ok && r.Now().Sub(created) < r.opts.ReapGrace {
		r.Metrics.ReapSkipped(skipGrace)
		return false
	}

	var members []string
	err = r.call(ctx, "read members", func(ctx context.Context) error {
		var err error
		members, err = r.Platform.GetCurrentMembers(ctx, roomID)
		return err
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			r.forget(roomID)
			return true
		}
		logging.Warn("[REAPER] Membership re-check of %s failed: %v", roomID, err)
		r.Metrics.ReapSkipped(skipError)
		return false
	}
	if len(members) > 0 {
		r.Metrics.ReapSkipped(skipOccupied)
		return false
	}

	err = r.call(ctx, "delete room", func(ctx context.Context) error {
		return r.Platform.DeleteRoom(ctx, roomID)
	})
	if err != nil && KindOf(err) != KindNotFound {
		logging.Warn("[REAPER] Delete of %s failed, will retry on next event: %v", roomID, err)
		r.Metrics.ReapSkipped(skipError)
		return false
	}

	r.forget(roomID)
	r.Metrics.RoomReaped()
	logging.Info("[REAPER] Deleted empty room %s", roomID)
	return true
}

// createdAt prefers the tracked creation time. A room the Provisioner has
// created but not tracked yet is dated by its id.
func (r *Reaper) createdAt(roomID string) (time.Time, bool) {
	if room, ok := r.Owners.Get(roomID); ok {
		return room.CreatedAt, true
	}
	t, err := util.SnowflakeTime(roomID)
	return t, err == nil
}

func (r *Reaper) forget(roomID string) {
	if err := r.Owners.ClearOwner(roomID); err != nil {
		logging.Warn("[REAPER] %v", err)
	}
}

// Sweep reconsiders every tracked room and every child of a managed category
// in all configured guilds. It backs up the event path against missed
// events.
func (r *Reaper) Sweep(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.SweepConcurrency)

	for _, cfg := range r.Configs.ListConfigs() {
		cfg := cfg
		g.Go(func() error {
			r.sweepGuild(ctx, cfg)
			return ctx.Err()
		})
	}
	return g.Wait()
}

func (r *Reaper) sweepGuild(ctx context.Context, cfg models.GuildVoiceConfig) {
	candidates := make(map[string]struct{})
	for _, room := range r.Owners.Rooms(cfg.GuildID) {
		candidates[room.ID] = struct{}{}
	}

	for _, category := range cfg.ManagedCategories() {
		var children []models.RoomInfo
		err := r.call(ctx, "list rooms", func(ctx context.Context) error {
			var err error
			children, err = r.Platform.ListRooms(ctx, cfg.GuildID, category)
			return err
		})
		if err != nil {
			logging.Warn("[REAPER] Listing category %s of guild %s failed: %v", category, cfg.GuildID, err)
			continue
		}
		for _, c := range children {
			if c.Kind == models.RoomVoice && !r.triggers.IsTrigger(cfg, c.ID) {
				candidates[c.ID] = struct{}{}
			}
		}
	}

	reaped := 0
	for id := range candidates {
		if ctx.Err() != nil {
			return
		}
		if r.reap(ctx, id) {
			reaped++
		}
	}
	if reaped > 0 {
		logging.Info("[REAPER] Sweep of guild %s reclaimed %d rooms", cfg.GuildID, reaped)
	}
}
