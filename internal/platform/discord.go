package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-voicemaster/internal/dispatcher"
	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

// MemberActions moves, disconnects and mutes members. The fasthttp
// dispatcher implements it; without one the discordgo session is used.
type MemberActions interface {
	MoveMember(ctx context.Context, guildID, memberID, channelID string) error
	DisconnectMember(ctx context.Context, guildID, memberID string) error
	SetServerMute(ctx context.Context, guildID, memberID string, mute bool) error
}

// Discord implements rooms.Platform on a discordgo session. Voice membership
// is read from the session state the gateway keeps current.
type Discord struct {
	s       *discordgo.Session
	members MemberActions
}

func NewDiscord(s *discordgo.Session, members MemberActions) *Discord {
	return &Discord{s: s, members: members}
}

var _ rooms.Platform = (*Discord)(nil)

var capabilityBits = []struct {
	cap models.Capability
	bit int64
}{
	{models.CapConnect, discordgo.PermissionVoiceConnect},
	{models.CapViewChannel, discordgo.PermissionViewChannel},
	{models.CapManageChannels, discordgo.PermissionManageChannels},
	{models.CapMuteMembers, discordgo.PermissionVoiceMuteMembers},
}

func toBits(set models.CapabilitySet) int64 {
	var bits int64
	for _, c := range capabilityBits {
		if set.Has(c.cap) {
			bits |= c.bit
		}
	}
	return bits
}

func fromBits(bits int64) models.CapabilitySet {
	var set models.CapabilitySet
	for _, c := range capabilityBits {
		if bits&c.bit != 0 {
			set = set.Union(models.Caps(c.cap))
		}
	}
	return set
}

func toOverwrite(o models.Overwrite) *discordgo.PermissionOverwrite {
	t := discordgo.PermissionOverwriteTypeRole
	if o.Subject.Kind == models.SubjectMember {
		t = discordgo.PermissionOverwriteTypeMember
	}
	return &discordgo.PermissionOverwrite{ID: o.Subject.ID, Type: t, Allow: toBits(o.Allow), Deny: toBits(o.Deny)}
}

func fromOverwrite(po *discordgo.PermissionOverwrite) models.Overwrite {
	kind := models.SubjectRole
	if po.Type == discordgo.PermissionOverwriteTypeMember {
		kind = models.SubjectMember
	}
	return models.Overwrite{
		Subject: models.Subject{ID: po.ID, Kind: kind},
		Allow:   fromBits(po.Allow),
		Deny:    fromBits(po.Deny),
	}
}

func toRoomInfo(ch *discordgo.Channel) models.RoomInfo {
	kind := models.RoomVoice
	if ch.Type == discordgo.ChannelTypeGuildCategory {
		kind = models.RoomCategory
	}
	info := models.RoomInfo{
		ID:        ch.ID,
		GuildID:   ch.GuildID,
		ParentID:  ch.ParentID,
		Name:      ch.Name,
		Kind:      kind,
		UserLimit: ch.UserLimit,
	}
	for _, po := range ch.PermissionOverwrites {
		info.Overwrites = append(info.Overwrites, fromOverwrite(po))
	}
	return info
}

// mapError turns "Unknown Channel" answers into rooms.ErrUnknownRoom.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %v", rooms.ErrUnknownRoom, err)
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", rooms.ErrUnknownRoom, err)
		}
	}
	return err
}

func (d *Discord) CreateRoom(ctx context.Context, spec models.RoomSpec) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: spec.ParentID,
	}
	if spec.Kind == models.RoomCategory {
		data.Type = discordgo.ChannelTypeGuildCategory
		data.ParentID = ""
	}
	for _, o := range spec.Overwrites {
		data.PermissionOverwrites = append(data.PermissionOverwrites, toOverwrite(o))
	}

	ch, err := d.s.GuildChannelCreateComplex(spec.GuildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel %q: %w", spec.Name, mapError(err))
	}
	return ch.ID, nil
}

func (d *Discord) DeleteRoom(ctx context.Context, roomID string) error {
	if _, err := d.s.ChannelDelete(roomID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", roomID, mapError(err))
	}
	return nil
}

// channel always asks the API; overwrites in the state cache may lag behind
// our own edits.
func (d *Discord) channel(ctx context.Context, roomID string) (*discordgo.Channel, error) {
	ch, err := d.s.Channel(roomID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", roomID, mapError(err))
	}
	return ch, nil
}

func (d *Discord) GetRoom(ctx context.Context, roomID string) (models.RoomInfo, error) {
	ch, err := d.channel(ctx, roomID)
	if err != nil {
		return models.RoomInfo{}, err
	}
	return toRoomInfo(ch), nil
}

func (d *Discord) ListRooms(ctx context.Context, guildID, parentID string) ([]models.RoomInfo, error) {
	channels, err := d.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list channels of guild %s: %w", guildID, err)
	}
	var out []models.RoomInfo
	for _, ch := range channels {
		if ch.ParentID != parentID {
			continue
		}
		if ch.Type != discordgo.ChannelTypeGuildVoice && ch.Type != discordgo.ChannelTypeGuildStageVoice {
			continue
		}
		out = append(out, toRoomInfo(ch))
	}
	return out, nil
}

// GetCurrentMembers reads voice states from the gateway state, which is the
// most current membership view the bot has.
func (d *Discord) GetCurrentMembers(ctx context.Context, roomID string) ([]string, error) {
	guildID := ""
	if ch, err := d.s.State.Channel(roomID); err == nil {
		guildID = ch.GuildID
	} else {
		ch, err := d.channel(ctx, roomID)
		if err != nil {
			return nil, err
		}
		guildID = ch.GuildID
	}

	guild, err := d.s.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	d.s.State.RLock()
	defer d.s.State.RUnlock()
	var members []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == roomID {
			members = append(members, vs.UserID)
		}
	}
	return members, nil
}

func (d *Discord) MoveMember(ctx context.Context, guildID, memberID, roomID string) error {
	if d.members != nil {
		return d.members.MoveMember(ctx, guildID, memberID, roomID)
	}
	return d.s.GuildMemberMove(guildID, memberID, &roomID, discordgo.WithContext(ctx))
}

func (d *Discord) DisconnectMember(ctx context.Context, guildID, memberID string) error {
	if d.members != nil {
		err := d.members.DisconnectMember(ctx, guildID, memberID)
		if errors.Is(err, dispatcher.ErrNotConnected) {
			return nil
		}
		return err
	}
	return d.s.GuildMemberMove(guildID, memberID, nil, discordgo.WithContext(ctx))
}

func (d *Discord) SetServerMute(ctx context.Context, guildID, memberID string, mute bool) error {
	if d.members != nil {
		return d.members.SetServerMute(ctx, guildID, memberID, mute)
	}
	return d.s.GuildMemberMute(guildID, memberID, mute, discordgo.WithContext(ctx))
}

// SetOverwrite merges the deltas into the channel's current overwrites and
// writes the full list back in one edit. Permission bits outside the
// capability vocabulary are preserved.
func (d *Discord) SetOverwrite(ctx context.Context, roomID string, deltas ...models.OverwriteDelta) error {
	ch, err := d.channel(ctx, roomID)
	if err != nil {
		return err
	}

	overwrites := MergeOverwrites(ch.PermissionOverwrites, deltas...)
	_, err = d.s.ChannelEdit(roomID, &discordgo.ChannelEdit{PermissionOverwrites: overwrites}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit overwrites of %s: %w", roomID, mapError(err))
	}
	return nil
}

// MergeOverwrites applies deltas to a raw overwrite list without touching
// bits the deltas do not name.
func MergeOverwrites(current []*discordgo.PermissionOverwrite, deltas ...models.OverwriteDelta) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(current)+len(deltas))
	for _, po := range current {
		cp := *po
		out = append(out, &cp)
	}

	for _, delta := range deltas {
		var target *discordgo.PermissionOverwrite
		for _, po := range out {
			if po.ID == delta.Subject.ID {
				target = po
				break
			}
		}
		if target == nil {
			target = toOverwrite(models.Overwrite{Subject: delta.Subject})
			out = append(out, target)
		}
		touched := toBits(delta.Touched())
		target.Allow = target.Allow&^touched | toBits(delta.Allow)
		target.Deny = target.Deny&^touched | toBits(delta.Deny)
	}
	return out
}

// SetUserLimit goes through a raw request because the typed edit drops a
// zero limit.
func (d *Discord) SetUserLimit(ctx context.Context, roomID string, limit int) error {
	endpoint := discordgo.EndpointChannel(roomID)
	_, err := d.s.RequestWithBucketID(http.MethodPatch, endpoint, map[string]int{"user_limit": limit}, endpoint, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to set user limit of %s: %w", roomID, mapError(err))
	}
	return nil
}

func (d *Discord) SetName(ctx context.Context, roomID, name string) error {
	if _, err := d.s.ChannelEdit(roomID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to rename %s: %w", roomID, mapError(err))
	}
	return nil
}
