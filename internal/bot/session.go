package bot

import (
	"fmt"

	"go-voicemaster/internal/logging"

	"github.com/bwmarrin/discordgo"
)

type Session struct {
	discord *discordgo.Session
	token   string
	BotID   string
}

var globalSession *Session

// Intents is what the bot needs: guild channels, voice states for membership
// tracking and message content for prefix commands.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// Initialize creates and initializes the Discord session
func Initialize(token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	discordgo.Logger = discordLogger
	dg.LogLevel = discordgo.LogWarning
	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	dg.State.TrackVoice = true
	dg.State.TrackChannels = true

	globalSession = &Session{
		discord: dg,
		token:   token,
	}

	return nil
}

// discordLogger routes discordgo's own messages into the global logger.
func discordLogger(msgL, caller int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	switch msgL {
	case discordgo.LogError:
		logging.Error("[DISCORDGO] %s", msg)
	case discordgo.LogWarning:
		logging.Warn("[DISCORDGO] %s", msg)
	case discordgo.LogInformational:
		logging.Info("[DISCORDGO] %s", msg)
	default:
		logging.Debug("[DISCORDGO] %s", msg)
	}
}

// GetSession returns the global Discord session
func GetSession() *Session {
	return globalSession
}

// GetDiscord returns the underlying discordgo session
func (s *Session) GetDiscord() *discordgo.Session {
	return s.discord
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if s.discord.State.User != nil {
		s.BotID = s.discord.State.User.ID
		logging.Info("Bot ID: %s", s.BotID)
	}

	logging.Info("Discord bot connected successfully")
	return nil
}

// Close closes the Discord connection
func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// RegisterCommands replaces the bot's slash commands. An empty guildID
// registers them globally.
func (s *Session) RegisterCommands(guildID string, commands []*discordgo.ApplicationCommand) error {
	logging.Info("Registering %d slash commands...", len(commands))

	created, err := s.discord.ApplicationCommandBulkOverwrite(s.discord.State.User.ID, guildID, commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	for _, cmd := range created {
		logging.Info("Registered command: /%s", cmd.Name)
	}
	return nil
}

// AddHandler adds an event handler to the Discord session
func (s *Session) AddHandler(handler interface{}) {
	s.discord.AddHandler(handler)
}
