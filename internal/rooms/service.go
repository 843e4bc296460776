package rooms

import (
	"context"
	"time"

	"go-voicemaster/internal/state"
)

type Deps struct {
	Platform Platform
	Configs  ConfigStore
	Owners   *state.OwnerTracker
	Locks    *state.RoomLocks
	Notifier Notifier
	Journal  Journal
	Metrics  Metrics
	Now      func() time.Time
}

type Options struct {
	// APITimeout bounds every single platform call.
	APITimeout time.Duration
	// LockTimeout bounds waiting for another operation on the same room.
	LockTimeout time.Duration
	// ReapGrace keeps a freshly provisioned room alive while the move of its
	// owner may not be visible yet.
	ReapGrace        time.Duration
	SweepConcurrency int
}

func DefaultOptions() Options {
	return Options{
		APITimeout:       5 * time.Second,
		LockTimeout:      10 * time.Second,
		ReapGrace:        15 * time.Second,
		SweepConcurrency: 4,
	}
}

// Service bundles the rooms components around one set of collaborators.
type Service struct {
	Triggers    *TriggerRegistry
	Provisioner *Provisioner
	Reaper      *Reaper
	Executor    *Executor
	Installer   *Installer
}

func NewService(d Deps, o Options) *Service {
	e := newEnv(d, o)
	triggers := NewTriggerRegistry(d.Configs)
	return &Service{
		Triggers:    triggers,
		Provisioner: &Provisioner{env: e, triggers: triggers},
		Reaper:      &Reaper{env: e, triggers: triggers},
		Executor:    &Executor{env: e},
		Installer:   &Installer{env: e},
	}
}

// env is what every component shares.
type env struct {
	Deps
	opts Options
}

func newEnv(d Deps, o Options) *env {
	def := DefaultOptions()
	if o.APITimeout <= 0 {
		o.APITimeout = def.APITimeout
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = def.LockTimeout
	}
	if o.ReapGrace < 0 {
		o.ReapGrace = 0
	}
	if o.SweepConcurrency <= 0 {
		o.SweepConcurrency = def.SweepConcurrency
	}
	if d.Owners == nil {
		d.Owners = state.NewOwnerTracker(nil)
	}
	if d.Locks == nil {
		d.Locks = state.NewRoomLocks()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Journal == nil {
		d.Journal = nopJournal{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &env{Deps: d, opts: o}
}

// call runs one platform call under the per-call timeout and classifies its
// failure.
func (e *env) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.APITimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	e.Metrics.ExternalCall(op, time.Since(start), err)
	if err != nil {
		return externalError(op, err)
	}
	return nil
}

// lock acquires the per-room lock, waiting at most LockTimeout.
func (e *env) lock(ctx context.Context, roomID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.LockTimeout)
	defer cancel()

	unlock, err := e.Locks.Lock(ctx, roomID)
	if err != nil {
		return nil, &Error{Kind: KindExternalCallFailed, Reason: "the room is busy, try again", Err: err}
	}
	return unlock, nil
}
