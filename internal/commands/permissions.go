package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// canManage reports whether userID may install or remove the voice master
// setup: the guild owner, or anyone with Manage Channels or Administrator.
func canManage(s *discordgo.Session, guildID, channelID, userID string) (bool, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return false, fmt.Errorf("failed to get guild: %w", err)
		}
	}

	if userID == guild.OwnerID {
		return true, nil
	}

	permissions, err := s.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		permissions, err = s.UserChannelPermissions(userID, channelID)
		if err != nil {
			return false, fmt.Errorf("failed to get permissions: %w", err)
		}
	}

	return hasManage(permissions), nil
}

func hasManage(permissions int64) bool {
	return permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageChannels) != 0
}

// interactionCanManage prefers the permissions Discord resolved for the
// interaction.
func interactionCanManage(s *discordgo.Session, i *discordgo.InteractionCreate) (bool, error) {
	if i.Member.Permissions != 0 {
		return hasManage(i.Member.Permissions), nil
	}
	return canManage(s, i.GuildID, i.ChannelID, i.Member.User.ID)
}

const permissionDenied = "You need the Manage Channels permission to do this."
