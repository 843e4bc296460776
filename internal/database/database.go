package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Open opens (creating if needed) the SQLite database at dbPath and migrates
// its schema.
func Open(dbPath string) (*Database, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

// Initialize opens the global database instance
func Initialize(dbPath string) error {
	d, err := Open(dbPath)
	if err != nil {
		return err
	}
	globalDB = d
	return nil
}

// GetDB returns the global database instance
func GetDB() *Database {
	return globalDB
}

// IsConnected checks if database connection is alive
func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.Ping() == nil
}

// Close closes the global database connection
func Close() error {
	if globalDB != nil {
		return globalDB.Close()
	}
	return nil
}

func (d *Database) Ping() error {
	return d.db.Ping()
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_voice_config (
		guild_id TEXT PRIMARY KEY,
		master_category_id TEXT NOT NULL DEFAULT '',
		public_category_id TEXT NOT NULL DEFAULT '',
		private_category_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS trigger_channels (
		channel_id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		visibility TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_trigger_channels_guild ON trigger_channels(guild_id);

	CREATE TABLE IF NOT EXISTS ephemeral_rooms (
		channel_id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ephemeral_rooms_guild ON ephemeral_rooms(guild_id);

	CREATE TABLE IF NOT EXISTS room_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL,
		command TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_room_actions_guild ON room_actions(guild_id);
	CREATE INDEX IF NOT EXISTS idx_room_actions_timestamp ON room_actions(timestamp);
	`

	_, err := d.db.Exec(schema)
	return err
}
