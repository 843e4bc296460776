package commands

import (
	"strings"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"
	"go-voicemaster/internal/notifier"
	"go-voicemaster/internal/rooms"
	"go-voicemaster/pkg/util"

	"github.com/bwmarrin/discordgo"
)

// TextCommand is a tokenized prefix command such as "!vc kick @user".
type TextCommand struct {
	Name string
	Args []string
}

// ParseText splits content into a command name and arguments. It reports
// false when content does not start with prefix or names no command.
func ParseText(prefix, content string) (TextCommand, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return TextCommand{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return TextCommand{}, false
	}
	return TextCommand{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// Request maps "vc <sub> [target] [args...]" onto an executor request.
// Commands acting on a member take the first argument as a mention or id.
func (t TextCommand) Request(guildID, issuerID, roomID string) rooms.Request {
	req := rooms.Request{GuildID: guildID, IssuerID: issuerID, RoomID: roomID}
	if len(t.Args) == 0 {
		return req
	}
	req.Command = models.Command(strings.ToLower(t.Args[0]))
	args := t.Args[1:]

	if req.Command.NeedsTarget() && len(args) > 0 {
		if id, ok := util.ParseMention(args[0]); ok {
			req.TargetID = id
			args = args[1:]
		}
	}
	req.Args = args
	return req
}

func (h *Handler) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	cmd, ok := ParseText(h.deps.Prefix, m.Content)
	if !ok {
		return
	}

	var embed *discordgo.MessageEmbed
	switch cmd.Name {
	case "vc":
		if len(cmd.Args) == 0 {
			embed = notifier.ErrorEmbed("Usage: " + h.deps.Prefix + "vc <" + commandList() + "> [arguments]")
			break
		}
		req := cmd.Request(m.GuildID, m.Author.ID, voiceChannelOf(s, m.GuildID, m.Author.ID))
		ctx, cancel := commandContext(commandTimeout)
		res, err := h.deps.Rooms.Executor.Execute(ctx, req)
		cancel()
		embed = replyFor(res, err)
	case "vmsetup", "vmreset":
		allowed, err := canManage(s, m.GuildID, m.ChannelID, m.Author.ID)
		if err != nil {
			logging.Error("Command error [%s]: %v", cmd.Name, err)
			embed = notifier.ErrorEmbed("Error: " + err.Error())
			break
		}
		if !allowed {
			embed = notifier.ErrorEmbed(permissionDenied)
			break
		}
		if cmd.Name == "vmsetup" {
			embed = h.runSetup(m.GuildID)
		} else {
			embed = h.runReset(m.GuildID)
		}
	default:
		return
	}

	if _, err := s.ChannelMessageSendEmbedReply(m.ChannelID, embed, m.Reference()); err != nil {
		logging.Warn("Failed to reply to %s in channel %s: %v", m.Author.ID, m.ChannelID, err)
	}
}

func commandList() string {
	names := make([]string, len(models.AllCommands))
	for i, c := range models.AllCommands {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}
