package commands

import (
	"context"
	"fmt"
	"time"

	"go-voicemaster/internal/bot"
	"go-voicemaster/internal/config"
	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/metrics"
	"go-voicemaster/internal/notifier"
	"go-voicemaster/internal/rooms"
	"go-voicemaster/internal/state"
	"go-voicemaster/internal/watchdog"

	"github.com/bwmarrin/discordgo"
)

// commandTimeout bounds one command including all its REST calls. Setup and
// reset touch several channels and get more.
const (
	commandTimeout = 30 * time.Second
	installTimeout = 2 * time.Minute
)

type Deps struct {
	Rooms    *rooms.Service
	Guilds   *config.GuildStore
	Owners   *state.OwnerTracker
	Metrics  *metrics.Registry
	Watchdog *watchdog.Watchdog
	// Prefix enables text commands when non-empty.
	Prefix string
	// GuildID registers slash commands in a single guild instead of globally.
	GuildID string
}

// Handler manages all command interactions
type Handler struct {
	session *bot.Session
	deps    Deps
}

// Initialize creates the command handler and registers the slash commands
func Initialize(session *bot.Session, deps Deps) (*Handler, error) {
	h := &Handler{
		session: session,
		deps:    deps,
	}

	session.AddHandler(h.handleInteraction)
	if deps.Prefix != "" {
		session.AddHandler(h.handleMessage)
	}

	commands := GetAllCommands()
	if err := session.RegisterCommands(deps.GuildID, commands); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	logging.Info("Command handler initialized with %d commands (prefix %q)", len(commands), deps.Prefix)
	return h, nil
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" || i.Member == nil {
		respondEmbed(s, i, notifier.ErrorEmbed("Commands only work inside a server."))
		return
	}

	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "vc":
		err = h.handleRoomCommand(s, i)
	case "vmsetup":
		err = h.handleSetup(s, i)
	case "vmreset":
		err = h.handleReset(s, i)
	case "ping":
		err = handlePing(s, i)
	case "stats":
		err = h.handleStats(s, i)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		logging.Error("Command error [%s]: %v", data.Name, err)
		respondError(s, i, err.Error())
	}
}

// voiceChannelOf returns the voice channel the member is connected to, or "".
func voiceChannelOf(s *discordgo.Session, guildID, userID string) string {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// replyFor turns an execution outcome into the embed shown to the issuer.
func replyFor(res rooms.Result, err error) *discordgo.MessageEmbed {
	if err != nil {
		return notifier.ErrorEmbed(capitalize(rooms.ReasonOf(err)))
	}
	if res.Info != nil {
		return notifier.RoomInfoEmbed(res.Info)
	}
	return notifier.SuccessEmbed(rooms.Describe(res))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r) + "."
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logging.Warn("Failed to respond to interaction %s: %v", i.ID, err)
	}
}

// respondError sends an ephemeral error message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	respondEmbed(s, i, notifier.ErrorEmbed("Error: "+message))
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
