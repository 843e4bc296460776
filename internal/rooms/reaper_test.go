package rooms

import (
	"context"
	"strconv"
	"testing"
	"time"

	"go-voicemaster/internal/models"
)

func leave(member, from string) models.MembershipEvent {
	return models.MembershipEvent{GuildID: testGuild, MemberID: member, FromChannelID: from}
}

func TestReaperDeletesEmptyRoom(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	h.platform.join("alice", "")
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))

	if _, ok := h.platform.room(id); ok {
		t.Fatal("empty room was not deleted")
	}
	if _, ok := h.owners.Get(id); ok {
		t.Fatal("owner record survived deletion")
	}
}

func TestReaperKeepsOccupiedRoom(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("bob", id)

	h.platform.join("alice", "")
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))

	if _, ok := h.platform.room(id); !ok {
		t.Fatal("occupied room was deleted")
	}
	if owner, _ := h.owners.GetOwner(id); owner != "alice" {
		t.Fatalf("owner changed to %q after owner left", owner)
	}
}

func TestReaperRechecksLiveMembership(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	// the leave event is stale: bob joined before the reaper ran
	h.platform.join("alice", "")
	h.platform.join("bob", id)
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))

	if _, ok := h.platform.room(id); !ok {
		t.Fatal("room deleted although the platform reports a member")
	}
}

func TestReaperNeverTouchesTriggersOrForeignRooms(t *testing.T) {
	h := newHarness(t, Options{})
	h.platform.addRoom(models.RoomInfo{ID: "lounge", GuildID: testGuild, ParentID: "cat-general"})

	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("a", testPublicTrg))
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("a", "lounge"))
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("a", testPublicCat))

	if n := h.platform.count("delete"); n != 0 {
		t.Fatalf("delete called %d times", n)
	}
}

func TestReaperGraceWindow(t *testing.T) {
	h := newHarness(t, Options{ReapGrace: 30 * time.Second})
	h.platform.setFail("move", errBoom)
	res, _ := h.svc.Provisioner.OnMemberJoinedChannel(context.Background(), models.MembershipEvent{
		GuildID: testGuild, MemberID: "alice", ToChannelID: testPublicTrg,
	})

	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("x", res.Room.ID))
	if _, ok := h.platform.room(res.Room.ID); !ok {
		t.Fatal("room deleted inside grace window")
	}

	h.now = h.now.Add(time.Minute)
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("x", res.Room.ID))
	if _, ok := h.platform.room(res.Room.ID); ok {
		t.Fatal("room survived past grace window")
	}
}

// snowflakeAt returns a channel id minted at t.
func snowflakeAt(t time.Time) string {
	return strconv.FormatUint(uint64(t.UnixMilli()-1420070400000)<<22, 10)
}

func TestReaperGraceWindowUntrackedRoom(t *testing.T) {
	h := newHarness(t, Options{ReapGrace: time.Minute})
	// created but not tracked yet
	id := snowflakeAt(h.now.Add(-time.Second))
	h.platform.addRoom(models.RoomInfo{ID: id, GuildID: testGuild, ParentID: testPublicCat, Kind: models.RoomVoice})

	if err := h.svc.Reaper.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("x", id))
	if _, ok := h.platform.room(id); !ok {
		t.Fatal("new untracked room deleted inside grace window")
	}

	h.now = h.now.Add(2 * time.Minute)
	if err := h.svc.Reaper.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.platform.room(id); ok {
		t.Fatal("untracked room survived past grace window")
	}
}

func TestReaperRoomAlreadyGone(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("alice", "")

	if err := h.platform.DeleteRoom(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))

	if _, ok := h.owners.Get(id); ok {
		t.Fatal("record of an externally deleted room was kept")
	}
}

func TestReaperDeleteFailureKeepsRecord(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("alice", "")
	h.platform.setFail("delete", errBoom)

	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))
	if _, ok := h.owners.Get(id); !ok {
		t.Fatal("record dropped although delete failed")
	}

	h.platform.setFail("delete", nil)
	if err := h.svc.Reaper.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.platform.room(id); ok {
		t.Fatal("sweep did not retry the delete")
	}
}

func TestReaperSweep(t *testing.T) {
	h := newHarness(t, Options{})
	empty := h.ownedRoom(t, "alice", false)
	busy := h.ownedRoom(t, "bob", true)
	h.platform.join("alice", "")
	// left over from before a restart, never tracked
	h.platform.addRoom(models.RoomInfo{ID: "orphan", GuildID: testGuild, ParentID: testPrivateCat})
	h.platform.join("carol", testPublicTrg)

	if err := h.svc.Reaper.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	for _, id := range []string{empty, "orphan"} {
		if _, ok := h.platform.room(id); ok {
			t.Errorf("%s survived sweep", id)
		}
	}
	for _, id := range []string{busy, testPublicTrg, testPrivateTrg, testPublicCat, testMaster} {
		if _, ok := h.platform.room(id); !ok {
			t.Errorf("%s deleted by sweep", id)
		}
	}
}

func TestReaperSkipsBusyRoom(t *testing.T) {
	h := newHarness(t, Options{LockTimeout: 20 * time.Millisecond})
	id := h.ownedRoom(t, "alice", false)

	hold := make(chan struct{})
	h.platform.mu.Lock()
	h.platform.hold["overwrite"] = hold
	h.platform.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.Executor.Execute(context.Background(), Request{
			GuildID: testGuild, IssuerID: "alice", RoomID: id, Command: models.CmdLock,
		})
		done <- err
	}()
	for h.platform.count("overwrite") == 0 {
		time.Sleep(time.Millisecond)
	}

	h.platform.join("alice", "")
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))
	if _, ok := h.platform.room(id); !ok {
		t.Fatal("room deleted while a command held its lock")
	}

	close(hold)
	if err := <-done; err != nil {
		t.Fatalf("lock: %v", err)
	}
	h.svc.Reaper.OnMembershipChanged(context.Background(), leave("alice", id))
	if _, ok := h.platform.room(id); ok {
		t.Fatal("room not reaped after the lock was released")
	}
}
