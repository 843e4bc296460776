package commands

import (
	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

var manageChannels int64 = discordgo.PermissionManageChannels

func userOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionUser,
		Required:    true,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        name,
		Description: description,
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Options:     options,
	}
}

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	minLimit := 0.0
	minName := 1

	return []*discordgo.ApplicationCommand{
		{
			Name:        "vc",
			Description: "Manage your voice room",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("lock", "Stop new members from joining your room"),
				subcommand("unlock", "Let everyone join your room again"),
				subcommand("hide", "Hide your room from the channel list"),
				subcommand("unhide", "Make your room visible again"),
				subcommand("kick", "Disconnect a member from your room",
					userOption("user", "Member to kick")),
				subcommand("ban", "Deny a member access to your room",
					userOption("user", "Member to ban")),
				subcommand("permit", "Allow a member to join your room",
					userOption("user", "Member to permit")),
				subcommand("limit", "Set the user limit of your room",
					&discordgo.ApplicationCommandOption{
						Name:        "count",
						Description: "Maximum members, 0 removes the limit",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Required:    true,
						MinValue:    &minLimit,
						MaxValue:    rooms.MaxUserLimit,
					}),
				subcommand("rename", "Rename your room",
					&discordgo.ApplicationCommandOption{
						Name:        "name",
						Description: "New room name",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
						MinLength:   &minName,
						MaxLength:   models.MaxRoomNameLength,
					}),
				subcommand("transfer", "Give ownership of your room to another member",
					userOption("user", "New owner")),
				subcommand("info", "Show information about the room you are in"),
				subcommand("unmute", "Remove your own server mute"),
			},
		},
		{
			Name:                     "vmsetup",
			Description:              "Create the voice master categories and trigger channels",
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:                     "vmreset",
			Description:              "Delete all voice master channels and configuration",
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:        "ping",
			Description: "Show bot latency",
		},
		{
			Name:        "stats",
			Description: "Show system and room statistics",
		},
	}
}
