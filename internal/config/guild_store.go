package config

import (
	"fmt"
	"sync"

	"go-voicemaster/internal/models"
)

// GuildPersister is the durable side of the GuildStore.
type GuildPersister interface {
	SaveGuildConfig(cfg models.GuildVoiceConfig) error
	DeleteGuildConfig(guildID string) error
	LoadGuildConfigs() ([]models.GuildVoiceConfig, error)
}

// GuildStore serves guild voice configurations from memory and writes every
// change through to the persister before it becomes visible.
type GuildStore struct {
	mu      sync.RWMutex
	guilds  map[string]models.GuildVoiceConfig
	persist GuildPersister
}

var GlobalGuilds *GuildStore

func NewGuildStore(persist GuildPersister) *GuildStore {
	return &GuildStore{
		guilds:  make(map[string]models.GuildVoiceConfig),
		persist: persist,
	}
}

func InitGuildStore(persist GuildPersister) *GuildStore {
	GlobalGuilds = NewGuildStore(persist)
	return GlobalGuilds
}

// Sync replaces the in-memory configurations with the persisted ones.
func (s *GuildStore) Sync() (int, error) {
	if s.persist == nil {
		return 0, nil
	}
	cfgs, err := s.persist.LoadGuildConfigs()
	if err != nil {
		return 0, fmt.Errorf("failed to load guild configs: %w", err)
	}

	guilds := make(map[string]models.GuildVoiceConfig, len(cfgs))
	for _, c := range cfgs {
		guilds[c.GuildID] = c
	}

	s.mu.Lock()
	s.guilds = guilds
	s.mu.Unlock()
	return len(guilds), nil
}

func (s *GuildStore) GetConfig(guildID string) (models.GuildVoiceConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.guilds[guildID]
	if !ok {
		return models.GuildVoiceConfig{}, false
	}
	return cloneConfig(cfg), true
}

func (s *GuildStore) SetConfig(guildID string, cfg models.GuildVoiceConfig) error {
	cfg.GuildID = guildID
	cfg = cloneConfig(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persist != nil {
		if err := s.persist.SaveGuildConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config of guild %s: %w", guildID, err)
		}
	}
	s.guilds[guildID] = cfg
	return nil
}

func (s *GuildStore) ClearConfig(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persist != nil {
		if err := s.persist.DeleteGuildConfig(guildID); err != nil {
			return fmt.Errorf("failed to delete config of guild %s: %w", guildID, err)
		}
	}
	delete(s.guilds, guildID)
	return nil
}

func (s *GuildStore) ListConfigs() []models.GuildVoiceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GuildVoiceConfig, 0, len(s.guilds))
	for _, c := range s.guilds {
		out = append(out, cloneConfig(c))
	}
	return out
}

func (s *GuildStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guilds)
}

func cloneConfig(c models.GuildVoiceConfig) models.GuildVoiceConfig {
	c.Triggers = append([]models.TriggerChannel(nil), c.Triggers...)
	return c
}
