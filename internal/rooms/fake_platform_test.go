package rooms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-voicemaster/internal/models"
	"go-voicemaster/internal/state"
)

type fakeRoom struct {
	info    models.RoomInfo
	members []string
}

// fakePlatform keeps channels and voice membership in memory. Calls block
// while hold is set, until release is closed or ctx ends.
type fakePlatform struct {
	mu     sync.Mutex
	nextID int
	rooms  map[string]*fakeRoom
	voice  map[string]string // member -> room
	muted  map[string]bool
	fail   map[string]error
	calls  map[string]int
	hold   map[string]chan struct{}
	events []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		rooms: make(map[string]*fakeRoom),
		voice: make(map[string]string),
		muted: make(map[string]bool),
		fail:  make(map[string]error),
		calls: make(map[string]int),
		hold:  make(map[string]chan struct{}),
	}
}

func (f *fakePlatform) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	f.events = append(f.events, op)
	err := f.fail[op]
	hold := f.hold[op]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakePlatform) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakePlatform) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePlatform) addRoom(info models.RoomInfo, members ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[info.ID] = &fakeRoom{info: info}
	for _, m := range members {
		f.voice[m] = info.ID
	}
}

func (f *fakePlatform) join(member, roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if roomID == "" {
		delete(f.voice, member)
		return
	}
	f.voice[member] = roomID
}

func (f *fakePlatform) room(id string) (models.RoomInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return models.RoomInfo{}, false
	}
	return r.info, true
}

func (f *fakePlatform) memberRoom(member string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[member]
}

func (f *fakePlatform) CreateRoom(ctx context.Context, spec models.RoomSpec) (string, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("room-%d", f.nextID)
	f.rooms[id] = &fakeRoom{info: models.RoomInfo{
		ID:         id,
		GuildID:    spec.GuildID,
		ParentID:   spec.ParentID,
		Name:       spec.Name,
		Kind:       spec.Kind,
		Overwrites: append([]models.Overwrite(nil), spec.Overwrites...),
	}}
	return id, nil
}

func (f *fakePlatform) DeleteRoom(ctx context.Context, roomID string) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[roomID]; !ok {
		return fmt.Errorf("delete %s: %w", roomID, ErrUnknownRoom)
	}
	delete(f.rooms, roomID)
	for m, r := range f.voice {
		if r == roomID {
			delete(f.voice, m)
		}
	}
	return nil
}

func (f *fakePlatform) GetRoom(ctx context.Context, roomID string) (models.RoomInfo, error) {
	if err := f.enter(ctx, "get"); err != nil {
		return models.RoomInfo{}, err
	}
	info, ok := f.room(roomID)
	if !ok {
		return models.RoomInfo{}, ErrUnknownRoom
	}
	return info, nil
}

func (f *fakePlatform) ListRooms(ctx context.Context, guildID, parentID string) ([]models.RoomInfo, error) {
	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoomInfo
	for _, r := range f.rooms {
		if r.info.GuildID == guildID && r.info.ParentID == parentID {
			out = append(out, r.info)
		}
	}
	return out, nil
}

func (f *fakePlatform) GetCurrentMembers(ctx context.Context, roomID string) ([]string, error) {
	if err := f.enter(ctx, "members"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[roomID]; !ok {
		return nil, ErrUnknownRoom
	}
	var out []string
	for m, r := range f.voice {
		if r == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakePlatform) MoveMember(ctx context.Context, guildID, memberID, roomID string) error {
	if err := f.enter(ctx, "move"); err != nil {
		return err
	}
	f.join(memberID, roomID)
	return nil
}

func (f *fakePlatform) DisconnectMember(ctx context.Context, guildID, memberID string) error {
	if err := f.enter(ctx, "disconnect"); err != nil {
		return err
	}
	f.join(memberID, "")
	return nil
}

func (f *fakePlatform) SetServerMute(ctx context.Context, guildID, memberID string, mute bool) error {
	if err := f.enter(ctx, "mute"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted[memberID] = mute
	return nil
}

func (f *fakePlatform) SetOverwrite(ctx context.Context, roomID string, deltas ...models.OverwriteDelta) error {
	if err := f.enter(ctx, "overwrite"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	r.info.Overwrites = models.ApplyDeltas(r.info.Overwrites, deltas...)
	return nil
}

func (f *fakePlatform) SetUserLimit(ctx context.Context, roomID string, limit int) error {
	if err := f.enter(ctx, "limit"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	r.info.UserLimit = limit
	return nil
}

func (f *fakePlatform) SetName(ctx context.Context, roomID, name string) error {
	if err := f.enter(ctx, "rename"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	r.info.Name = name
	return nil
}

type memConfigs struct {
	mu   sync.Mutex
	cfgs map[string]models.GuildVoiceConfig
}

func newMemConfigs(cfgs ...models.GuildVoiceConfig) *memConfigs {
	m := &memConfigs{cfgs: make(map[string]models.GuildVoiceConfig)}
	for _, c := range cfgs {
		m.cfgs[c.GuildID] = c
	}
	return m
}

func (m *memConfigs) GetConfig(guildID string) (models.GuildVoiceConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cfgs[guildID]
	return c, ok
}

func (m *memConfigs) SetConfig(guildID string, cfg models.GuildVoiceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfgs[guildID] = cfg
	return nil
}

func (m *memConfigs) ClearConfig(guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cfgs, guildID)
	return nil
}

func (m *memConfigs) ListConfigs() []models.GuildVoiceConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GuildVoiceConfig, 0, len(m.cfgs))
	for _, c := range m.cfgs {
		out = append(out, c)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	failed []error
}

func (n *recordingNotifier) ProvisionFailed(_ context.Context, _ models.MembershipEvent, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failed)
}

type recordingJournal struct {
	mu      sync.Mutex
	actions []models.RoomAction
}

func (j *recordingJournal) RecordAction(a models.RoomAction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, a)
	return nil
}

const (
	testGuild      = "guild-1"
	testMaster     = "cat-master"
	testPublicCat  = "cat-public"
	testPrivateCat = "cat-private"
	testPublicTrg  = "trg-public"
	testPrivateTrg = "trg-private"
)

func testConfig() models.GuildVoiceConfig {
	return models.GuildVoiceConfig{
		GuildID:           testGuild,
		MasterCategoryID:  testMaster,
		PublicCategoryID:  testPublicCat,
		PrivateCategoryID: testPrivateCat,
		Triggers: []models.TriggerChannel{
			{ChannelID: testPublicTrg, Visibility: models.Public, CategoryID: testPublicCat},
			{ChannelID: testPrivateTrg, Visibility: models.Private, CategoryID: testPrivateCat},
		},
	}
}

type harness struct {
	svc      *Service
	platform *fakePlatform
	configs  *memConfigs
	owners   *state.OwnerTracker
	notifier *recordingNotifier
	journal  *recordingJournal
	now      time.Time
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		platform: newFakePlatform(),
		configs:  newMemConfigs(testConfig()),
		owners:   state.NewOwnerTracker(nil),
		notifier: &recordingNotifier{},
		journal:  &recordingJournal{},
		now:      time.Unix(1700000000, 0),
	}
	h.platform.addRoom(models.RoomInfo{ID: testMaster, GuildID: testGuild, Kind: models.RoomCategory})
	h.platform.addRoom(models.RoomInfo{ID: testPublicCat, GuildID: testGuild, Kind: models.RoomCategory})
	h.platform.addRoom(models.RoomInfo{ID: testPrivateCat, GuildID: testGuild, Kind: models.RoomCategory})
	h.platform.addRoom(models.RoomInfo{ID: testPublicTrg, GuildID: testGuild, ParentID: testMaster})
	h.platform.addRoom(models.RoomInfo{ID: testPrivateTrg, GuildID: testGuild, ParentID: testMaster})

	h.svc = NewService(Deps{
		Platform: h.platform,
		Configs:  h.configs,
		Owners:   h.owners,
		Notifier: h.notifier,
		Journal:  h.journal,
		Now:      func() time.Time { return h.now },
	}, opts)
	return h
}

// ownedRoom provisions a room for owner through the public or private trigger
// and returns its id.
func (h *harness) ownedRoom(t *testing.T, owner string, private bool) string {
	t.Helper()
	trigger := testPublicTrg
	if private {
		trigger = testPrivateTrg
	}
	h.platform.join(owner, trigger)
	res, err := h.svc.Provisioner.OnMemberJoinedChannel(context.Background(), models.MembershipEvent{
		GuildID:     testGuild,
		MemberID:    owner,
		MemberName:  owner,
		ToChannelID: trigger,
	})
	if err != nil {
		t.Fatalf("provision for %s: %v", owner, err)
	}
	return res.Room.ID
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

var errBoom = errors.New("boom")
