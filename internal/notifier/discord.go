package notifier

import (
	"context"
	"fmt"
	"time"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"
	"go-voicemaster/pkg/util"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorSuccess = 0x57F287
	ColorError   = 0xED4245
	ColorInfo    = 0x5865F2
)

func SuccessEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: "✅ " + description,
		Color:       ColorSuccess,
	}
}

func ErrorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: "❌ " + description,
		Color:       ColorError,
	}
}

// RoomInfoEmbed renders the summary of the info command.
func RoomInfoEmbed(s *rooms.RoomSummary) *discordgo.MessageEmbed {
	owner := "Unknown"
	if s.OwnerID != "" {
		owner = fmt.Sprintf("<@%s>", s.OwnerID)
	}
	limit := "None"
	if s.UserLimit > 0 {
		limit = fmt.Sprintf("%d", s.UserLimit)
	}
	created := "Unknown"
	if t, err := util.SnowflakeTime(s.RoomID); err == nil {
		created = fmt.Sprintf("<t:%d:R>", t.Unix())
	}

	return &discordgo.MessageEmbed{
		Title: "🔊 " + s.Name,
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Owner", Value: owner, Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", s.MemberCount), Inline: true},
			{Name: "User Limit", Value: limit, Inline: true},
			{Name: "Locked", Value: yesNo(s.Locked), Inline: true},
			{Name: "Hidden", Value: yesNo(s.Hidden), Inline: true},
			{Name: "Created", Value: created, Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Channel ID: " + s.RoomID},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// DMNotifier tells members by direct message when their room could not be
// set up.
type DMNotifier struct {
	session *discordgo.Session
}

func NewDMNotifier(session *discordgo.Session) *DMNotifier {
	return &DMNotifier{session: session}
}

var _ rooms.Notifier = (*DMNotifier)(nil)

func (n *DMNotifier) ProvisionFailed(ctx context.Context, ev models.MembershipEvent, err error) {
	if n.session == nil {
		return
	}
	embed := ErrorEmbed(fmt.Sprintf("Your voice channel could not be set up: %s. Rejoin the channel to try again.", rooms.ReasonOf(err)))

	// the provisioning context may already be done; the DM is independent of it
	go func() {
		dm, derr := n.session.UserChannelCreate(ev.MemberID)
		if derr != nil {
			logging.Debug("[NOTIFY] Cannot DM %s: %v", ev.MemberID, derr)
			return
		}
		if _, derr := n.session.ChannelMessageSendEmbed(dm.ID, embed); derr != nil {
			logging.Debug("[NOTIFY] DM to %s failed: %v", ev.MemberID, derr)
		}
	}()
}
