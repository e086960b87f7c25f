package ai

import (
	"testing"

	"github.com/poiesic/libris/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("unknown provider fails fast", func(t *testing.T) {
		cfg := NewConfig(WithProvider("cohere"))
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUnknownProvider)

		category, ok := core.CategoryOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CategoryConfiguration, category)
	})

	t.Run("openai requires host and model", func(t *testing.T) {
		cfg := NewConfig(WithProvider(ProviderOpenAI), WithHost(""))
		assert.Error(t, cfg.Validate())

		cfg = NewConfig(WithProvider(ProviderOpenAI), WithModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("dummy needs no host", func(t *testing.T) {
		cfg := NewConfig(WithProvider(ProviderDummy), WithHost(""), WithModel(""), WithDimensions(384))
		assert.NoError(t, cfg.Validate())
	})

	t.Run("dimensions must be positive", func(t *testing.T) {
		cfg := NewConfig(WithDimensions(0))
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestPartitionFor(t *testing.T) {
	assert.Equal(t, "chunks_openai", PartitionFor(ProviderOpenAI))
	assert.Equal(t, "chunks_ollama", PartitionFor(ProviderOllama))
	assert.Equal(t, "chunks_dummy", PartitionFor(ProviderDummy))
}
