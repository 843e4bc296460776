package commands

import (
	"strconv"

	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

// requestFromOptions maps a /vc subcommand onto an executor request. Issuer
// and room are filled in by the caller.
func requestFromOptions(guildID string, opts []*discordgo.ApplicationCommandInteractionDataOption) rooms.Request {
	req := rooms.Request{GuildID: guildID}
	if len(opts) == 0 {
		return req
	}
	sub := opts[0]
	req.Command = models.Command(sub.Name)

	for _, o := range sub.Options {
		switch o.Type {
		case discordgo.ApplicationCommandOptionUser:
			req.TargetID = o.UserValue(nil).ID
		case discordgo.ApplicationCommandOptionInteger:
			req.Args = append(req.Args, strconv.FormatInt(o.IntValue(), 10))
		case discordgo.ApplicationCommandOptionString:
			req.Args = append(req.Args, o.StringValue())
		}
	}
	return req
}

func (h *Handler) handleRoomCommand(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	req := requestFromOptions(i.GuildID, i.ApplicationCommandData().Options)
	req.IssuerID = i.Member.User.ID
	req.RoomID = voiceChannelOf(s, i.GuildID, req.IssuerID)

	if err := deferResponse(s, i); err != nil {
		return err
	}

	ctx, cancel := commandContext(commandTimeout)
	defer cancel()

	res, err := h.deps.Rooms.Executor.Execute(ctx, req)
	return editResponse(s, i, replyFor(res, err))
}
