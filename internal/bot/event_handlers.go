package bot

import (
	"context"
	"sync"
	"time"

	"go-voicemaster/internal/config"
	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/metrics"
	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"
	"go-voicemaster/internal/state"

	"github.com/bwmarrin/discordgo"
)

// EventHandlers feeds gateway events into the rooms service. Every event is
// handled on its own goroutine so the gateway reader never blocks on the
// REST API.
type EventHandlers struct {
	Rooms   *rooms.Service
	Owners  *state.OwnerTracker
	Guilds  *config.GuildStore
	Metrics *metrics.Registry
	// Timeout bounds the whole handling of one event.
	Timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SetupEventHandlers configures Discord event handlers
func (s *Session) SetupEventHandlers(h *EventHandlers) {
	logging.Info("Setting up Discord event handlers...")
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Bot ready! Connected as %s to %d guilds", r.User.Username, len(r.Guilds))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildCreate) {
		_, configured := h.Guilds.GetConfig(g.ID)
		logging.Info("Loaded guild: %s (ID: %s, configured: %v, voice states: %d)", g.Name, g.ID, configured, len(g.VoiceStates))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		if sess.State.User != nil && v.UserID == sess.State.User.ID {
			return
		}
		if h.Metrics != nil {
			h.Metrics.VoiceEvents.Increment()
		}
		h.handleMembership(ToMembershipEvent(v), isBot(v.Member))
	})

	s.discord.AddHandler(func(sess *discordgo.Session, c *discordgo.ChannelDelete) {
		h.handleChannelDelete(c.Channel)
	})
}

func (h *EventHandlers) handleMembership(ev models.MembershipEvent, bot bool) {
	if ev.Joined() && !bot {
		h.run(func(ctx context.Context) {
			res, err := h.Rooms.Provisioner.OnMemberJoinedChannel(ctx, ev)
			if err != nil {
				logging.Warn("[EVENT] Provisioning for %s in guild %s failed: %v", ev.MemberID, ev.GuildID, err)
				return
			}
			if res != nil {
				h.updateGauge()
			}
		})
	}
	if ev.Left() {
		h.run(func(ctx context.Context) {
			h.Rooms.Reaper.OnMembershipChanged(ctx, ev)
			h.updateGauge()
		})
	}
}

func (h *EventHandlers) handleChannelDelete(ch *discordgo.Channel) {
	if ch == nil {
		return
	}
	if _, ok := h.Owners.Get(ch.ID); ok {
		if err := h.Owners.ClearOwner(ch.ID); err != nil {
			logging.Warn("[EVENT] %v", err)
		}
		logging.Info("[EVENT] Room %s deleted externally, owner record cleared", ch.ID)
		h.updateGauge()
		return
	}

	cfg, ok := h.Guilds.GetConfig(ch.GuildID)
	if !ok {
		return
	}
	for _, id := range cfg.AllCategories() {
		if id == ch.ID {
			logging.Warn("[EVENT] Managed category %s of guild %s was deleted; run setup again", ch.ID, ch.GuildID)
			return
		}
	}
	if h.Rooms.Triggers.IsTrigger(cfg, ch.ID) {
		logging.Warn("[EVENT] Trigger channel %s of guild %s was deleted; run setup again", ch.ID, ch.GuildID)
	}
}

func (h *EventHandlers) run(fn func(ctx context.Context)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(h.ctx, h.Timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (h *EventHandlers) updateGauge() {
	if h.Metrics != nil {
		h.Metrics.SetTrackedRooms(h.Owners.Len())
	}
}

// Drain cancels in-flight event handling and waits for it to finish, at most
// until ctx is done.
func (h *EventHandlers) Drain(ctx context.Context) {
	if h.cancel != nil {
		h.cancel()
	}
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("[EVENT] Gave up waiting for in-flight events")
	}
}

// ToMembershipEvent translates a gateway voice state update.
func ToMembershipEvent(v *discordgo.VoiceStateUpdate) models.MembershipEvent {
	ev := models.MembershipEvent{
		GuildID:     v.GuildID,
		MemberID:    v.UserID,
		ToChannelID: v.ChannelID,
		MemberName:  DisplayName(v.Member),
		Timestamp:   time.Now(),
	}
	if v.BeforeUpdate != nil {
		ev.FromChannelID = v.BeforeUpdate.ChannelID
	}
	return ev
}

// DisplayName prefers the guild nickname, then the global display name.
func DisplayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func isBot(m *discordgo.Member) bool {
	return m != nil && m.User != nil && m.User.Bot
}
