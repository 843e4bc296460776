package notifier

import (
	"testing"

	"go-voicemaster/internal/rooms"
)

func TestRoomInfoEmbed(t *testing.T) {
	e := RoomInfoEmbed(&rooms.RoomSummary{RoomID: "r", Name: "Alice's channel", OwnerID: "1", MemberCount: 3, Locked: true})

	want := map[string]string{
		"Owner":      "<@1>",
		"Members":    "3",
		"User Limit": "None",
		"Locked":     "Yes",
		"Hidden":     "No",
	}
	for _, f := range e.Fields {
		if w, ok := want[f.Name]; ok && f.Value != w {
			t.Errorf("%s = %q, want %q", f.Name, f.Value, w)
		}
		delete(want, f.Name)
	}
	if len(want) != 0 {
		t.Errorf("missing fields %v", want)
	}
}

func TestRoomInfoEmbedUnknownOwner(t *testing.T) {
	e := RoomInfoEmbed(&rooms.RoomSummary{Name: "x", UserLimit: 5})
	if e.Fields[0].Value != "Unknown" || e.Fields[2].Value != "5" {
		t.Fatalf("fields = %+v %+v", e.Fields[0], e.Fields[2])
	}
}
