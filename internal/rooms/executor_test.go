package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-voicemaster/internal/models"
)

func (h *harness) exec(t *testing.T, req Request) (Result, error) {
	t.Helper()
	if req.GuildID == "" {
		req.GuildID = testGuild
	}
	return h.svc.Executor.Execute(context.Background(), req)
}

func everyoneOverwrite(t *testing.T, h *harness, roomID string) models.Overwrite {
	t.Helper()
	info, ok := h.platform.room(roomID)
	if !ok {
		t.Fatalf("room %s missing", roomID)
	}
	o, _ := models.FindOverwrite(info.Overwrites, models.Everyone(testGuild))
	return o
}

func TestExecutorLockUnlockHide(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	steps := []struct {
		cmd    models.Command
		locked bool
		hidden bool
	}{
		{models.CmdLock, true, false},
		{models.CmdHide, true, true},
		{models.CmdUnlock, false, true},
		{models.CmdUnhide, false, false},
	}
	for _, s := range steps {
		if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: s.cmd}); err != nil {
			t.Fatalf("%s: %v", s.cmd, err)
		}
		info, _ := h.platform.room(id)
		if info.Locked() != s.locked || info.Hidden() != s.hidden {
			t.Fatalf("after %s: locked=%v hidden=%v", s.cmd, info.Locked(), info.Hidden())
		}
	}
	if o := everyoneOverwrite(t, h, id); !o.Allows(models.CapConnect) {
		t.Fatal("unlock must allow Connect explicitly")
	}
}

func TestExecutorAuthorization(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("bob", id)
	h.platform.addRoom(models.RoomInfo{ID: "lounge", GuildID: testGuild, ParentID: "cat-general"})

	tests := []struct {
		name string
		req  Request
		kind Kind
	}{
		{"not in voice", Request{IssuerID: "bob", Command: models.CmdLock}, KindNotInRoom},
		{"not owner", Request{IssuerID: "bob", RoomID: id, Command: models.CmdLock}, KindNotAuthorized},
		{"not owner transfer", Request{IssuerID: "bob", RoomID: id, Command: models.CmdTransfer, TargetID: "bob"}, KindNotAuthorized},
		{"unmanaged room", Request{IssuerID: "bob", RoomID: "lounge", Command: models.CmdLock}, KindNotAuthorized},
		{"unknown command", Request{IssuerID: "alice", RoomID: id, Command: "explode"}, KindInvalidArgument},
		{"kick without target", Request{IssuerID: "alice", RoomID: id, Command: models.CmdKick}, KindInvalidArgument},
		{"ban self", Request{IssuerID: "alice", RoomID: id, Command: models.CmdBan, TargetID: "alice"}, KindInvalidArgument},
		{"limit not a number", Request{IssuerID: "alice", RoomID: id, Command: models.CmdLimit, Args: []string{"many"}}, KindInvalidArgument},
		{"limit too high", Request{IssuerID: "alice", RoomID: id, Command: models.CmdLimit, Args: []string{"100"}}, KindInvalidArgument},
		{"limit negative", Request{IssuerID: "alice", RoomID: id, Command: models.CmdLimit, Args: []string{"-1"}}, KindInvalidArgument},
		{"rename empty", Request{IssuerID: "alice", RoomID: id, Command: models.CmdRename, Args: []string{"  "}}, KindInvalidArgument},
		{"kick absent member", Request{IssuerID: "alice", RoomID: id, Command: models.CmdKick, TargetID: "carol"}, KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.platform.count("overwrite")
			_, err := h.exec(t, tt.req)
			wantKind(t, err, tt.kind)
			if ReasonOf(err) == "" {
				t.Error("rejection carries no reason")
			}
			if h.platform.count("overwrite") != before {
				t.Error("rejected command changed permissions")
			}
		})
	}
	if owner, _ := h.owners.GetOwner(id); owner != "alice" {
		t.Fatalf("owner = %q after rejected commands", owner)
	}
}

func TestExecutorCommandNameCase(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	for _, name := range []string{"Lock", "LOCK", " lock "} {
		res, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.Command(name)})
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if res.Command != models.CmdLock {
			t.Errorf("%q ran as %q", name, res.Command)
		}
		if o := everyoneOverwrite(t, h, id); !o.Denies(models.CapConnect) {
			t.Fatalf("%q did not lock the room", name)
		}
		if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdUnlock}); err != nil {
			t.Fatal(err)
		}
	}

	h.journal.mu.Lock()
	first := h.journal.actions[0]
	h.journal.mu.Unlock()
	if first.Command != string(models.CmdLock) {
		t.Errorf("journaled command %q", first.Command)
	}

	_, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: "dance"})
	wantKind(t, err, KindInvalidArgument)
}

func TestExecutorCallTimeoutReleasesLock(t *testing.T) {
	h := newHarness(t, Options{APITimeout: 20 * time.Millisecond})
	id := h.ownedRoom(t, "alice", false)

	hold := make(chan struct{})
	h.platform.mu.Lock()
	h.platform.hold["overwrite"] = hold
	h.platform.mu.Unlock()

	_, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLock})
	wantKind(t, err, KindExternalCallFailed)

	h.platform.mu.Lock()
	delete(h.platform.hold, "overwrite")
	h.platform.mu.Unlock()
	close(hold)

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLock}); err != nil {
		t.Fatalf("room still locked after a timed out call: %v", err)
	}
	if o := everyoneOverwrite(t, h, id); !o.Denies(models.CapConnect) {
		t.Fatal("lock not applied on retry")
	}
}

func TestExecutorErrorsMatchSentinels(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	_, err := h.exec(t, Request{IssuerID: "bob", RoomID: id, Command: models.CmdHide})
	if !errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrNotInRoom) {
		t.Fatalf("sentinel matching broken for %v", err)
	}
}

func TestExecutorKickAndBan(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("bob", id)
	h.platform.join("carol", id)

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdKick, TargetID: "bob"}); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if h.platform.memberRoom("bob") != "" {
		t.Fatal("bob still connected after kick")
	}

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdBan, TargetID: "carol"}); err != nil {
		t.Fatalf("ban: %v", err)
	}
	info, _ := h.platform.room(id)
	o, _ := models.FindOverwrite(info.Overwrites, models.Member("carol"))
	if !o.Denies(models.CapConnect) {
		t.Fatal("ban did not deny Connect")
	}
	if h.platform.memberRoom("carol") != "" {
		t.Fatal("banned member still connected")
	}

	// an absent target can still be banned
	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdBan, TargetID: "dave"}); err != nil {
		t.Fatalf("ban absent: %v", err)
	}
}

func TestExecutorBanDisconnectIsBestEffort(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	h.platform.join("bob", id)
	h.platform.setFail("disconnect", errBoom)

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdBan, TargetID: "bob"}); err != nil {
		t.Fatalf("ban: %v", err)
	}
}

func TestExecutorPermitLimitRename(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", true)

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdPermit, TargetID: "bob"}); err != nil {
		t.Fatalf("permit: %v", err)
	}
	res, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLimit, Args: []string{"5"}})
	if err != nil || res.Limit != 5 {
		t.Fatalf("limit: %+v %v", res, err)
	}
	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdRename, Args: []string{"study", "hall"}}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	info, _ := h.platform.room(id)
	o, _ := models.FindOverwrite(info.Overwrites, models.Member("bob"))
	if !o.Allows(models.CapConnect) {
		t.Error("permit did not allow Connect")
	}
	if info.UserLimit != 5 || info.Name != "study hall" {
		t.Errorf("room = %+v", info)
	}

	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLimit, Args: []string{"0"}}); err != nil {
		t.Fatalf("limit 0: %v", err)
	}
	if info, _ := h.platform.room(id); info.UserLimit != 0 {
		t.Error("limit 0 did not clear the user limit")
	}
}

func TestExecutorTransfer(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", true)

	overwrites := h.platform.count("overwrite")
	if _, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdTransfer, TargetID: "bob"}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := h.platform.count("overwrite") - overwrites; got != 1 {
		t.Fatalf("transfer used %d overwrite calls, want 1", got)
	}
	if owner, _ := h.owners.GetOwner(id); owner != "bob" {
		t.Fatalf("owner = %q, want bob", owner)
	}

	info, _ := h.platform.room(id)
	old, _ := models.FindOverwrite(info.Overwrites, models.Member("alice"))
	if !old.Allow.Empty() || !old.Deny.Empty() {
		t.Errorf("previous owner keeps %+v", old)
	}
	next, _ := models.FindOverwrite(info.Overwrites, models.Member("bob"))
	if next.Allow != models.OwnerGrant {
		t.Errorf("new owner holds %s", next.Allow)
	}

	_, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLock})
	wantKind(t, err, KindNotAuthorized)
	if _, err := h.exec(t, Request{IssuerID: "bob", RoomID: id, Command: models.CmdLock}); err != nil {
		t.Fatalf("new owner lock: %v", err)
	}
}

func TestExecutorTransferFailureKeepsOwner(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", true)
	h.platform.setFail("overwrite", errBoom)

	_, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdTransfer, TargetID: "bob"})
	wantKind(t, err, KindExternalCallFailed)
	if owner, _ := h.owners.GetOwner(id); owner != "alice" {
		t.Fatalf("owner = %q after failed transfer", owner)
	}
}

func TestExecutorInfo(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", true)
	h.platform.join("bob", id)

	res, err := h.exec(t, Request{IssuerID: "bob", RoomID: id, Command: models.CmdInfo})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if res.Info == nil {
		t.Fatal("no summary")
	}
	if res.Info.OwnerID != "alice" || res.Info.MemberCount != 2 || !res.Info.Locked || res.Info.Hidden {
		t.Fatalf("summary = %+v", res.Info)
	}
}

func TestExecutorUnmute(t *testing.T) {
	h := newHarness(t, Options{})

	if _, err := h.exec(t, Request{IssuerID: "bob", Command: models.CmdUnmute}); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	h.platform.mu.Lock()
	muted, seen := h.platform.muted["bob"]
	h.platform.mu.Unlock()
	if !seen || muted {
		t.Fatal("bob was not unmuted")
	}

	_, err := h.exec(t, Request{IssuerID: "bob", Command: models.CmdUnmute, TargetID: "carol"})
	wantKind(t, err, KindInvalidArgument)

	h.platform.setFail("mute", errBoom)
	_, err = h.exec(t, Request{IssuerID: "bob", Command: models.CmdUnmute})
	wantKind(t, err, KindExternalCallFailed)
}

func TestExecutorVanishedRoom(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)
	if err := h.platform.DeleteRoom(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	_, err := h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLock})
	wantKind(t, err, KindNotFound)
}

func TestExecutorJournalsEveryRequest(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.ownedRoom(t, "alice", false)

	h.exec(t, Request{IssuerID: "alice", RoomID: id, Command: models.CmdLock})
	h.exec(t, Request{IssuerID: "bob", RoomID: id, Command: models.CmdLock, RequestID: "fixed"})

	h.journal.mu.Lock()
	defer h.journal.mu.Unlock()
	if len(h.journal.actions) != 2 {
		t.Fatalf("journal has %d entries", len(h.journal.actions))
	}
	first, second := h.journal.actions[0], h.journal.actions[1]
	if first.RequestID == "" || first.Outcome != "ok" {
		t.Errorf("first = %+v", first)
	}
	if second.RequestID != "fixed" || second.Outcome != KindNotAuthorized.String() || second.Detail == "" {
		t.Errorf("second = %+v", second)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(Result{Command: models.CmdLimit}); got != "Room user limit removed." {
		t.Errorf("limit 0: %q", got)
	}
	if got := Describe(Result{Command: models.CmdKick, TargetID: "42"}); got != "<@42> has been kicked from your room." {
		t.Errorf("kick: %q", got)
	}
}
