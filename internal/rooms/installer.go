package rooms

import (
	"context"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"
)

const (
	MasterCategoryName  = "Voice Master"
	PublicCategoryName  = "Public VC"
	PrivateCategoryName = "Private VC"
	PublicTriggerName   = "Join to Make Public"
	PrivateTriggerName  = "Join to Make Private"
)

// Installer creates and removes a guild's managed categories and triggers.
type Installer struct {
	*env
}

// lockGuild serializes Setup and Reset of one guild.
func (i *Installer) lockGuild(ctx context.Context, guildID string) (func(), error) {
	unlock, err := i.lock(ctx, "setup:"+guildID)
	if err != nil {
		return nil, &Error{Kind: KindExternalCallFailed, Reason: "another setup or reset is in progress, try again", Err: err}
	}
	return unlock, nil
}

// Setup creates the categories and trigger channels of guildID and stores
// their ids. On failure every channel created so far is removed again.
func (i *Installer) Setup(ctx context.Context, guildID string) (models.GuildVoiceConfig, error) {
	unlock, err := i.lockGuild(ctx, guildID)
	if err != nil {
		return models.GuildVoiceConfig{}, err
	}
	defer unlock()

	if _, ok := i.Configs.GetConfig(guildID); ok {
		return models.GuildVoiceConfig{}, newError(KindInvalidArgument, "voice master is already set up here, reset it first")
	}

	var created []string
	create := func(spec models.RoomSpec) (string, error) {
		var id string
		err := i.call(ctx, "create channel", func(ctx context.Context) error {
			var err error
			id, err = i.Platform.CreateRoom(ctx, spec)
			return err
		})
		if err == nil {
			created = append(created, id)
		}
		return id, err
	}
	rollback := func() {
		// children were created after their parents
		for n := len(created) - 1; n >= 0; n-- {
			id := created[n]
			_ = i.call(context.Background(), "delete channel", func(ctx context.Context) error {
				return i.Platform.DeleteRoom(ctx, id)
			})
		}
	}

	cfg := models.GuildVoiceConfig{GuildID: guildID}
	category := func(name string) models.RoomSpec {
		return models.RoomSpec{GuildID: guildID, Name: name, Kind: models.RoomCategory}
	}

	if cfg.MasterCategoryID, err = create(category(MasterCategoryName)); err != nil {
		return models.GuildVoiceConfig{}, err
	}
	if cfg.PublicCategoryID, err = create(category(PublicCategoryName)); err != nil {
		rollback()
		return models.GuildVoiceConfig{}, err
	}
	if cfg.PrivateCategoryID, err = create(category(PrivateCategoryName)); err != nil {
		rollback()
		return models.GuildVoiceConfig{}, err
	}

	triggers := []struct {
		name string
		vis  models.VisibilityClass
		cat  string
	}{
		{PublicTriggerName, models.Public, cfg.PublicCategoryID},
		{PrivateTriggerName, models.Private, cfg.PrivateCategoryID},
	}
	for _, t := range triggers {
		id, err := create(models.RoomSpec{
			GuildID:  guildID,
			Name:     t.name,
			ParentID: cfg.MasterCategoryID,
			Kind:     models.RoomVoice,
		})
		if err != nil {
			rollback()
			return models.GuildVoiceConfig{}, err
		}
		cfg.Triggers = append(cfg.Triggers, models.TriggerChannel{ChannelID: id, Visibility: t.vis, CategoryID: t.cat})
	}

	now := i.Now().Unix()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	if err := i.Configs.SetConfig(guildID, cfg); err != nil {
		rollback()
		return models.GuildVoiceConfig{}, &Error{Kind: KindExternalCallFailed, Reason: "saving the configuration failed", Err: err}
	}

	logging.Info("[SETUP] Guild %s set up (master %s, public %s, private %s)",
		guildID, cfg.MasterCategoryID, cfg.PublicCategoryID, cfg.PrivateCategoryID)
	return cfg, nil
}

// Reset removes everything Setup created along with all ephemeral rooms.
// Channel deletion is best effort; the configuration is always cleared. Each
// channel is deleted under its room lock, a room that stays busy is left in
// place.
func (i *Installer) Reset(ctx context.Context, guildID string) error {
	unlock, err := i.lockGuild(ctx, guildID)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, ok := i.Configs.GetConfig(guildID)
	if !ok {
		return newError(KindNotFound, "voice master is not set up here")
	}

	remove := func(id string) {
		unlockRoom, err := i.lock(ctx, id)
		if err != nil {
			logging.Warn("[SETUP] Channel %s of guild %s is busy, not deleted: %v", id, guildID, err)
			return
		}
		defer unlockRoom()

		err = i.call(ctx, "delete channel", func(ctx context.Context) error {
			return i.Platform.DeleteRoom(ctx, id)
		})
		if err != nil && KindOf(err) != KindNotFound {
			logging.Warn("[SETUP] Could not delete channel %s of guild %s: %v", id, guildID, err)
		}
	}

	deleted := make(map[string]bool)
	for _, category := range cfg.AllCategories() {
		var children []models.RoomInfo
		err := i.call(ctx, "list rooms", func(ctx context.Context) error {
			var err error
			children, err = i.Platform.ListRooms(ctx, guildID, category)
			return err
		})
		if err != nil {
			logging.Warn("[SETUP] Listing category %s of guild %s failed: %v", category, guildID, err)
		}
		for _, c := range children {
			remove(c.ID)
			deleted[c.ID] = true
		}
	}
	for _, t := range cfg.Triggers {
		if !deleted[t.ChannelID] {
			remove(t.ChannelID)
		}
	}
	for _, room := range i.Owners.Rooms(guildID) {
		if !deleted[room.ID] {
			remove(room.ID)
		}
		if err := i.Owners.ClearOwner(room.ID); err != nil {
			logging.Warn("[SETUP] %v", err)
		}
	}
	for _, category := range cfg.AllCategories() {
		remove(category)
	}

	if err := i.Configs.ClearConfig(guildID); err != nil {
		return &Error{Kind: KindExternalCallFailed, Reason: "clearing the configuration failed", Err: err}
	}
	logging.Info("[SETUP] Guild %s reset", guildID)
	return nil
}
