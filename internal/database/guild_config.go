package database

import (
	"database/sql"
	"fmt"
	"time"

	"go-voicemaster/internal/models"
)

// SaveGuildConfig replaces the stored configuration of cfg.GuildID,
// including its trigger channels.
func (d *Database) SaveGuildConfig(cfg models.GuildVoiceConfig) error {
	now := time.Now().Unix()
	if cfg.CreatedAt == 0 {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO guild_voice_config (guild_id, master_category_id, public_category_id, private_category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET
			master_category_id = excluded.master_category_id,
			public_category_id = excluded.public_category_id,
			private_category_id = excluded.private_category_id,
			updated_at = excluded.updated_at`,
		cfg.GuildID, cfg.MasterCategoryID, cfg.PublicCategoryID, cfg.PrivateCategoryID, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM trigger_channels WHERE guild_id = ?`, cfg.GuildID); err != nil {
		return fmt.Errorf("failed to clear triggers: %w", err)
	}
	for i, t := range cfg.Triggers {
		_, err := tx.Exec(
			`INSERT INTO trigger_channels (channel_id, guild_id, visibility, category_id, position) VALUES (?, ?, ?, ?, ?)`,
			t.ChannelID, cfg.GuildID, t.Visibility.String(), t.CategoryID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trigger %s: %w", t.ChannelID, err)
		}
	}

	return tx.Commit()
}

// GetGuildConfig returns the stored configuration, or nil if the guild was
// never set up.
func (d *Database) GetGuildConfig(guildID string) (*models.GuildVoiceConfig, error) {
	var cfg models.GuildVoiceConfig
	err := d.db.QueryRow(
		`SELECT guild_id, master_category_id, public_category_id, private_category_id, created_at, updated_at
		 FROM guild_voice_config WHERE guild_id = ?`,
		guildID,
	).Scan(&cfg.GuildID, &cfg.MasterCategoryID, &cfg.PublicCategoryID, &cfg.PrivateCategoryID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	triggers, err := d.triggers(`WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	cfg.Triggers = triggers[guildID]
	return &cfg, nil
}

// DeleteGuildConfig removes a guild's configuration and triggers.
func (d *Database) DeleteGuildConfig(guildID string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trigger_channels WHERE guild_id = ?`, guildID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM guild_voice_config WHERE guild_id = ?`, guildID); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadGuildConfigs returns every stored configuration.
func (d *Database) LoadGuildConfigs() ([]models.GuildVoiceConfig, error) {
	rows, err := d.db.Query(
		`SELECT guild_id, master_category_id, public_category_id, private_category_id, created_at, updated_at
		 FROM guild_voice_config`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query guild configs: %w", err)
	}
	defer rows.Close()

	var cfgs []models.GuildVoiceConfig
	for rows.Next() {
		var cfg models.GuildVoiceConfig
		if err := rows.Scan(&cfg.GuildID, &cfg.MasterCategoryID, &cfg.PublicCategoryID, &cfg.PrivateCategoryID, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guild config: %w", err)
		}
		cfgs = append(cfgs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	triggers, err := d.triggers("")
	if err != nil {
		return nil, err
	}
	for i := range cfgs {
		cfgs[i].Triggers = triggers[cfgs[i].GuildID]
	}
	return cfgs, nil
}

func (d *Database) triggers(where string, args ...interface{}) (map[string][]models.TriggerChannel, error) {
	rows, err := d.db.Query(
		`SELECT guild_id, channel_id, visibility, category_id FROM trigger_channels `+where+` ORDER BY guild_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.TriggerChannel)
	for rows.Next() {
		var guildID, visibility string
		var t models.TriggerChannel
		if err := rows.Scan(&guildID, &t.ChannelID, &visibility, &t.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		if t.Visibility, err = models.ParseVisibility(visibility); err != nil {
			return nil, fmt.Errorf("trigger %s: %w", t.ChannelID, err)
		}
		out[guildID] = append(out[guildID], t)
	}
	return out, rows.Err()
}
