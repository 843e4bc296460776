package platform

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"

	"go-voicemaster/internal/models"
	"go-voicemaster/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

func TestMergeOverwritesPreservesForeignBits(t *testing.T) {
	current := []*discordgo.PermissionOverwrite{
		{ID: "guild", Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionSendMessages | discordgo.PermissionVoiceConnect},
		{ID: "alice", Type: discordgo.PermissionOverwriteTypeMember, Allow: toBits(models.OwnerGrant) | discordgo.PermissionVoiceStreamVideo},
	}

	out := MergeOverwrites(current,
		models.OverwriteDelta{Subject: models.Everyone("guild"), Deny: models.Caps(models.CapConnect)},
		models.OverwriteDelta{Subject: models.Member("alice"), Reset: models.OwnerGrant},
		models.OverwriteDelta{Subject: models.Member("bob"), Allow: models.OwnerGrant},
	)

	if len(out) != 3 {
		t.Fatalf("got %d overwrites", len(out))
	}
	everyone, alice, bob := out[0], out[1], out[2]

	if everyone.Allow != discordgo.PermissionSendMessages || everyone.Deny != discordgo.PermissionVoiceConnect {
		t.Errorf("everyone = allow %d deny %d", everyone.Allow, everyone.Deny)
	}
	if alice.Allow != discordgo.PermissionVoiceStreamVideo || alice.Deny != 0 {
		t.Errorf("alice = allow %d deny %d", alice.Allow, alice.Deny)
	}
	if bob.Type != discordgo.PermissionOverwriteTypeMember || bob.Allow != toBits(models.OwnerGrant) {
		t.Errorf("bob = %+v", bob)
	}

	// input untouched
	if current[0].Deny != 0 {
		t.Error("MergeOverwrites modified its input")
	}
}

func TestToRoomInfo(t *testing.T) {
	ch := &discordgo.Channel{
		ID:        "room",
		GuildID:   "guild",
		ParentID:  "cat",
		Name:      "Alice's channel",
		Type:      discordgo.ChannelTypeGuildVoice,
		UserLimit: 4,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: "guild", Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionVoiceConnect | discordgo.PermissionViewChannel},
		},
	}
	info := toRoomInfo(ch)
	if !info.Locked() || !info.Hidden() || info.UserLimit != 4 || info.Kind != models.RoomVoice {
		t.Fatalf("info = %+v", info)
	}
}

func TestMapError(t *testing.T) {
	unknown := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel}}
	if !errors.Is(mapError(unknown), rooms.ErrUnknownRoom) {
		t.Error("unknown channel not mapped")
	}
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !errors.Is(mapError(notFound), rooms.ErrUnknownRoom) {
		t.Error("404 not mapped")
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}, Message: &discordgo.APIErrorMessage{Code: 50013}}
	if errors.Is(mapError(forbidden), rooms.ErrUnknownRoom) {
		t.Error("403 mapped to unknown room")
	}
}

func TestGetCurrentMembersFromState(t *testing.T) {
	s := &discordgo.Session{State: discordgo.NewState()}
	err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild",
		Channels: []*discordgo.Channel{
			{ID: "room", GuildID: "guild", Type: discordgo.ChannelTypeGuildVoice},
			{ID: "other", GuildID: "guild", Type: discordgo.ChannelTypeGuildVoice},
		},
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild", UserID: "alice", ChannelID: "room"},
			{GuildID: "guild", UserID: "bob", ChannelID: "room"},
			{GuildID: "guild", UserID: "carol", ChannelID: "other"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := NewDiscord(s, nil)
	members, err := d.GetCurrentMembers(context.Background(), "room")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("members = %v", members)
	}
}
