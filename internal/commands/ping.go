package commands

import (
	"fmt"
	"time"

	"go-voicemaster/internal/database"

	"github.com/bwmarrin/discordgo"
)

// qualityColor grades a round trip from green to red.
func qualityColor(avg time.Duration) int {
	switch {
	case avg < 50*time.Millisecond:
		return 0x57F287
	case avg < 150*time.Millisecond:
		return 0xFEE75C
	case avg < 300*time.Millisecond:
		return 0xFFA500
	default:
		return 0xED4245
	}
}

func ms(d time.Duration) string {
	return fmt.Sprintf("`%dms`", d.Milliseconds())
}

// handlePing reports gateway, REST and database round trips
func handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	startTime := time.Now()

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}

	apiStart := time.Now()
	_, err = s.Channel(i.ChannelID)
	apiLatency := time.Since(apiStart)
	apiValue := ms(apiLatency)
	if err != nil {
		apiValue = "`failed`"
	}

	dbValue := "`offline`"
	if db := database.GetDB(); db != nil {
		dbStart := time.Now()
		if err := db.Ping(); err == nil {
			dbValue = ms(time.Since(dbStart))
		}
	}

	wsLatency := s.HeartbeatLatency()
	embed := &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: qualityColor((wsLatency + apiLatency) / 2),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway", Value: ms(wsLatency), Inline: true},
			{Name: "REST", Value: apiValue, Inline: true},
			{Name: "Database", Value: dbValue, Inline: true},
			{Name: "Response", Value: ms(time.Since(startTime)), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}
