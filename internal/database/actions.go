package database

import (
	"time"

	"go-voicemaster/internal/models"
)

// RecordAction appends an executed command to the action journal.
func (d *Database) RecordAction(a models.RoomAction) error {
	if a.Timestamp == 0 {
		a.Timestamp = time.Now().Unix()
	}
	_, err := d.db.Exec(
		`INSERT INTO room_actions (request_id, guild_id, channel_id, actor_id, command, target_id, outcome, detail, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RequestID, a.GuildID, a.ChannelID, a.ActorID, a.Command, a.TargetID, a.Outcome, a.Detail, a.Timestamp,
	)
	return err
}

// GetRecentActions retrieves the newest journal entries of a guild
func (d *Database) GetRecentActions(guildID string, limit int) ([]*models.RoomAction, error) {
	rows, err := d.db.Query(
		`SELECT id, request_id, guild_id, channel_id, actor_id, command, target_id, outcome, detail, timestamp
		 FROM room_actions WHERE guild_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*models.RoomAction
	for rows.Next() {
		var a models.RoomAction
		if err := rows.Scan(&a.ID, &a.RequestID, &a.GuildID, &a.ChannelID, &a.ActorID, &a.Command, &a.TargetID, &a.Outcome, &a.Detail, &a.Timestamp); err != nil {
			return nil, err
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

// PruneActions deletes journal entries older than before and reports how
// many were removed.
func (d *Database) PruneActions(before time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM room_actions WHERE timestamp < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
