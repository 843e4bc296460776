package database

import (
	"fmt"

	"go-voicemaster/internal/config"
	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/state"
)

// SyncToMemory loads guild configurations and room owner records into the
// in-memory stores. Rooms of guilds that are no longer configured are
// dropped on the way.
func (d *Database) SyncToMemory(guilds *config.GuildStore, owners *state.OwnerTracker) error {
	n, err := guilds.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync guild configs: %w", err)
	}
	stale, err := d.ForgetStaleRooms(guilds)
	if err != nil {
		return fmt.Errorf("failed to drop stale rooms: %w", err)
	}
	if stale > 0 {
		logging.Info("[DATABASE] Dropped %d rooms of unconfigured guilds", stale)
	}
	if err := owners.Load(); err != nil {
		return fmt.Errorf("failed to sync room owners: %w", err)
	}
	logging.Info("[DATABASE] Loaded %d guild configs and %d rooms", n, owners.Len())
	return nil
}

// ForgetStaleRooms drops owner records whose guild is no longer configured.
func (d *Database) ForgetStaleRooms(guilds *config.GuildStore) (int, error) {
	rooms, err := d.LoadRooms()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range rooms {
		if _, ok := guilds.GetConfig(r.GuildID); ok {
			continue
		}
		if err := d.DeleteRoom(r.ID); err != nil {
			return removed, fmt.Errorf("failed to delete room %s: %w", r.ID, err)
		}
		removed++
	}
	return removed, nil
}
