package bootstrap

import (
	"fmt"
	"os"

	"go-voicemaster/internal/config"
	"go-voicemaster/internal/database"
	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/state"
)

type Bootstrap struct {
	Config      *config.Config
	Components  *Components
	initialized bool
}

func New(cfg *config.Config) *Bootstrap {
	return &Bootstrap{
		Config:      cfg,
		Components:  &Components{},
		initialized: false,
	}
}

func (b *Bootstrap) Initialize() error {
	if err := b.initializeLogging(); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	if err := b.initializeDatabase(); err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}

	if err := b.initializeState(); err != nil {
		return fmt.Errorf("state init failed: %w", err)
	}

	if err := Wire(b); err != nil {
		return fmt.Errorf("component wiring failed: %w", err)
	}

	b.initialized = true
	logging.Info("Bootstrap complete")
	return nil
}

func (b *Bootstrap) initializeLogging() error {
	level, err := logging.ParseLevel(b.Config.Logging.Level)
	if err != nil {
		return err
	}

	opts := logging.Options{
		Level:   level,
		Path:    b.Config.Logging.File,
		Console: os.Stdout,
	}
	if opts.Path != "" {
		opts.Rotation = logging.NewLogRotation(b.Config.Logging.MaxSizeMB, b.Config.Logging.MaxAge)
	}
	return logging.InitGlobalLogger(opts)
}

func (b *Bootstrap) initializeDatabase() error {
	if err := database.Initialize(b.Config.Database.Path); err != nil {
		return err
	}
	if !database.IsConnected() {
		return fmt.Errorf("database connection not available")
	}
	logging.Info("[DATABASE] Opened %s", b.Config.Database.Path)
	return nil
}

// initializeState builds the in-memory stores on top of the database and
// fills them from it.
func (b *Bootstrap) initializeState() error {
	db := database.GetDB()
	c := b.Components

	c.DB = db
	c.Guilds = config.InitGuildStore(db)
	c.Owners = state.NewOwnerTracker(db)
	c.Locks = state.NewRoomLocks()

	return db.SyncToMemory(c.Guilds, c.Owners)
}

func (b *Bootstrap) Start() error {
	if !b.initialized {
		return fmt.Errorf("bootstrap not initialized")
	}

	return StartAll(b.Components)
}

func (b *Bootstrap) Shutdown() error {
	return Shutdown(b.Components)
}
