package commands

import (
	"fmt"

	"go-voicemaster/internal/models"
	"go-voicemaster/internal/notifier"
	"go-voicemaster/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

func setupMessage(cfg models.GuildVoiceConfig) string {
	msg := "Voice master is ready. Join one of the trigger channels to get a room:"
	for _, t := range cfg.Triggers {
		msg += fmt.Sprintf("\n• <#%s> (%s)", t.ChannelID, t.Visibility)
	}
	return msg
}

func (h *Handler) runSetup(guildID string) *discordgo.MessageEmbed {
	ctx, cancel := commandContext(installTimeout)
	defer cancel()

	cfg, err := h.deps.Rooms.Installer.Setup(ctx, guildID)
	if err != nil {
		return notifier.ErrorEmbed(capitalize(rooms.ReasonOf(err)))
	}
	return notifier.SuccessEmbed(setupMessage(cfg))
}

func (h *Handler) runReset(guildID string) *discordgo.MessageEmbed {
	ctx, cancel := commandContext(installTimeout)
	defer cancel()

	if err := h.deps.Rooms.Installer.Reset(ctx, guildID); err != nil {
		return notifier.ErrorEmbed(capitalize(rooms.ReasonOf(err)))
	}
	h.updateGauge()
	return notifier.SuccessEmbed("Voice master channels and configuration removed.")
}

func (h *Handler) updateGauge() {
	if h.deps.Metrics != nil && h.deps.Owners != nil {
		h.deps.Metrics.SetTrackedRooms(h.deps.Owners.Len())
	}
}

func (h *Handler) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.installCommand(s, i, h.runSetup)
}

func (h *Handler) handleReset(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.installCommand(s, i, h.runReset)
}

func (h *Handler) installCommand(s *discordgo.Session, i *discordgo.InteractionCreate, run func(guildID string) *discordgo.MessageEmbed) error {
	allowed, err := interactionCanManage(s, i)
	if err != nil {
		return err
	}
	if !allowed {
		respondEmbed(s, i, notifier.ErrorEmbed(permissionDenied))
		return nil
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}
	return editResponse(s, i, run(i.GuildID))
}
