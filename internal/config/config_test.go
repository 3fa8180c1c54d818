package config

import (
	"testing"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIntentConfigs_Valid(t *testing.T) {
	configs := defaultIntentConfigs()
	require.NoError(t, configs.Validate())

	// Every recognized intent has an entry
	for _, intent := range entity.Intents() {
		_, ok := configs[intent]
		assert.True(t, ok, "missing entry for %s", intent)
	}
}

func TestIntentConfigs_Validate(t *testing.T) {
	t.Run("missing intent", func(t *testing.T) {
		configs := defaultIntentConfigs()
		delete(configs, entity.IntentTour)

		err := configs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no retrieval config entry")
	})

	t.Run("non-positive k", func(t *testing.T) {
		configs := defaultIntentConfigs()
		configs[entity.IntentGeneral] = entity.IntentConfig{K: 0, Threshold: 0.3}

		err := configs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "k must be positive")
	})

	t.Run("threshold out of range", func(t *testing.T) {
		configs := defaultIntentConfigs()
		configs[entity.IntentGeneral] = entity.IntentConfig{K: 3, Threshold: 1.5}

		err := configs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold must be in [0,1]")
	})
}

func TestIntentConfigs_Resolve(t *testing.T) {
	configs := defaultIntentConfigs()

	projectCfg := configs.Resolve(entity.IntentProjectDeepdive)
	assert.Equal(t, []string{"projects"}, projectCfg.Categories)

	// Unknown intents fall back to the general entry
	fallback := configs.Resolve(entity.Intent("nonsense"))
	assert.Equal(t, configs[entity.IntentGeneral], fallback)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Pipeline: PipelineConfig{
				MaxConcurrentRequests: 3,
				CacheMaxSize:          100,
				SemanticWeight:        0.7,
				LexicalWeight:         0.3,
			},
			RateLimitPerMinute: 10,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateConfig(valid()))
	})

	t.Run("non-positive concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.MaxConcurrentRequests = 0
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("negative token budget", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.MaxTokensContext = -1
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("negative hybrid weight", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.LexicalWeight = -0.1
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("rate limit out of bounds", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimitPerMinute = 0
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("db bounds only checked when database configured", func(t *testing.T) {
		cfg := valid()
		cfg.DBMaxConns = 0
		assert.NoError(t, validateConfig(cfg))

		cfg.DatabaseURL = "postgres://localhost/chat"
		assert.Error(t, validateConfig(cfg))
	})
}
