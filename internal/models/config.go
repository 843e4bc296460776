package models

// TriggerChannel is a fixed entry point. Joining it provisions a room of
// Visibility under CategoryID.
type TriggerChannel struct {
	ChannelID  string
	Visibility VisibilityClass
	CategoryID string
}

// GuildVoiceConfig is everything the bot knows about a guild's setup. All
// references are stable channel ids resolved at setup time.
type GuildVoiceConfig struct {
	GuildID           string
	MasterCategoryID  string
	PublicCategoryID  string
	PrivateCategoryID string
	Triggers          []TriggerChannel
	CreatedAt         int64
	UpdatedAt         int64
}

// CategoryFor returns the target category of a visibility class.
func (c GuildVoiceConfig) CategoryFor(v VisibilityClass) string {
	if v == Private {
		return c.PrivateCategoryID
	}
	return c.PublicCategoryID
}

// ManagedCategories are the categories whose children are ephemeral rooms.
func (c GuildVoiceConfig) ManagedCategories() []string {
	var ids []string
	for _, id := range []string{c.PublicCategoryID, c.PrivateCategoryID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllCategories includes the master category holding the triggers.
func (c GuildVoiceConfig) AllCategories() []string {
	ids := c.ManagedCategories()
	if c.MasterCategoryID != "" {
		ids = append([]string{c.MasterCategoryID}, ids...)
	}
	return ids
}
