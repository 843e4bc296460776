package rooms

import "go-voicemaster/internal/models"

// ProvisionPolicy is what a matched trigger asks the Provisioner to build.
type ProvisionPolicy struct {
	Trigger    models.TriggerChannel
	Visibility models.VisibilityClass
	CategoryID string
}

// TriggerRegistry classifies channels against a guild's configuration. All
// matching is by channel id.
type TriggerRegistry struct {
	configs ConfigStore
}

func NewTriggerRegistry(configs ConfigStore) *TriggerRegistry {
	return &TriggerRegistry{configs: configs}
}

// Classify looks up the guild's configuration and matches the event's target
// channel against its triggers.
func (r *TriggerRegistry) Classify(ev models.MembershipEvent) (ProvisionPolicy, bool) {
	if ev.ToChannelID == "" {
		return ProvisionPolicy{}, false
	}
	cfg, ok := r.configs.GetConfig(ev.GuildID)
	if !ok {
		return ProvisionPolicy{}, false
	}
	return r.Match(cfg, ev.ToChannelID)
}

func (r *TriggerRegistry) Match(cfg models.GuildVoiceConfig, channelID string) (ProvisionPolicy, bool) {
	for _, t := range cfg.Triggers {
		if t.ChannelID != channelID {
			continue
		}
		category := t.CategoryID
		if category == "" {
			category = cfg.CategoryFor(t.Visibility)
		}
		if category == "" {
			return ProvisionPolicy{}, false
		}
		return ProvisionPolicy{Trigger: t, Visibility: t.Visibility, CategoryID: category}, true
	}
	return ProvisionPolicy{}, false
}

func (r *TriggerRegistry) IsTrigger(cfg models.GuildVoiceConfig, channelID string) bool {
	for _, t := range cfg.Triggers {
		if t.ChannelID == channelID {
			return true
		}
	}
	return false
}

// IsManagedCategory reports whether children of categoryID are ephemeral
// rooms.
func (r *TriggerRegistry) IsManagedCategory(cfg models.GuildVoiceConfig, categoryID string) bool {
	if categoryID == "" {
		return false
	}
	for _, id := range cfg.ManagedCategories() {
		if id == categoryID {
			return true
		}
	}
	for _, t := range cfg.Triggers {
		if t.CategoryID == categoryID {
			return true
		}
	}
	return false
}
