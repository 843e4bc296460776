package database

import (
	"fmt"
	"time"

	"go-voicemaster/internal/models"
)

// UpsertRoom stores the owner record of an ephemeral room.
func (d *Database) UpsertRoom(room models.EphemeralChannel) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO ephemeral_rooms (channel_id, guild_id, parent_id, visibility, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		room.ID, room.GuildID, room.ParentID, room.Visibility.String(), room.OwnerID, room.CreatedAt.Unix(),
	)
	return err
}

func (d *Database) DeleteRoom(channelID string) error {
	_, err := d.db.Exec(`DELETE FROM ephemeral_rooms WHERE channel_id = ?`, channelID)
	return err
}

func (d *Database) LoadRooms() ([]models.EphemeralChannel, error) {
	rows, err := d.db.Query(
		`SELECT channel_id, guild_id, parent_id, visibility, owner_id, created_at FROM ephemeral_rooms`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.EphemeralChannel
	for rows.Next() {
		var r models.EphemeralChannel
		var visibility string
		var created int64
		if err := rows.Scan(&r.ID, &r.GuildID, &r.ParentID, &visibility, &r.OwnerID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if r.Visibility, err = models.ParseVisibility(visibility); err != nil {
			return nil, fmt.Errorf("room %s: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(created, 0)
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// CountRooms returns the number of recorded rooms per guild.
func (d *Database) CountRooms() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT guild_id, COUNT(*) FROM ephemeral_rooms GROUP BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var guildID string
		var n int
		if err := rows.Scan(&guildID, &n); err != nil {
			return nil, err
		}
		counts[guildID] = n
	}
	return counts, rows.Err()
}
