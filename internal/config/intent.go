package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/askfolio/chat-backend/internal/entity"
)

// IntentConfigs is the exhaustive intent → retrieval-config table.
// Validation rejects a table missing any recognized intent, so request-time
// lookups never fall through silently.
type IntentConfigs map[entity.Intent]entity.IntentConfig

// Resolve returns the config for the given intent. The table is validated
// exhaustive at startup; the general entry backs unrecognized labels anyway.
func (c IntentConfigs) Resolve(intent entity.Intent) entity.IntentConfig {
	if cfg, ok := c[intent]; ok {
		return cfg
	}
	return c[entity.IntentGeneral]
}

// Validate checks that every recognized intent has an entry with sane bounds.
func (c IntentConfigs) Validate() error {
	for _, intent := range entity.Intents() {
		cfg, ok := c[intent]
		if !ok {
			return fmt.Errorf("intent %q has no retrieval config entry", intent)
		}
		if cfg.K < 1 {
			return fmt.Errorf("intent %q: k must be positive, got %d", intent, cfg.K)
		}
		if cfg.Threshold < 0 || cfg.Threshold > 1 {
			return fmt.Errorf("intent %q: threshold must be in [0,1], got %f", intent, cfg.Threshold)
		}
	}
	return nil
}

func defaultIntentConfigs() IntentConfigs {
	return IntentConfigs{
		entity.IntentQuickAnswer:        {Categories: []string{"profile", "skills", "projects", "experience"}, K: 3, Threshold: 0.3},
		entity.IntentProjectDeepdive:    {Categories: []string{"projects"}, K: 3, Threshold: 0.25},
		entity.IntentExperienceDeepdive: {Categories: []string{"experience"}, K: 3, Threshold: 0.25},
		entity.IntentCodeWalkthrough:    {Categories: []string{"code_snippets", "projects"}, K: 3, Threshold: 0.3},
		entity.IntentSkillAssessment:    {Categories: []string{"skills", "assessments"}, K: 3, Threshold: 0.25},
		entity.IntentComparison:         {Categories: []string{"projects", "experience", "skills"}, K: 4, Threshold: 0.3},
		entity.IntentTour:               {Categories: []string{"profile", "skills", "projects", "experience"}, K: 3, Threshold: 0.35},
		entity.IntentGeneral:            {Categories: nil, K: 3, Threshold: 0.35},
	}
}

func loadIntentConfigs(cfg *Config) error {
	configPath := filepath.Join("internal", "config", "intent_config.json")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("Warning: intent config file not found at %s, using defaults\n", configPath)
		cfg.IntentConfigs = defaultIntentConfigs()
		return cfg.IntentConfigs.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read intent config file: %w", err)
	}

	var table map[string]entity.IntentConfig
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse intent config JSON: %w", err)
	}

	configs := make(IntentConfigs, len(table))
	for label, ic := range table {
		intent, ok := entity.ParseIntent(label)
		if !ok {
			return fmt.Errorf("intent config contains unknown intent %q", label)
		}
		configs[intent] = ic
	}

	if err := configs.Validate(); err != nil {
		return err
	}

	cfg.IntentConfigs = configs

	fmt.Printf("Loaded %d intent configs from %s\n", len(configs), configPath)
	return nil
}
