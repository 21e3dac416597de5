package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://localhost:11434"),
		WithToken("secret"),
		WithEmbeddingModel("embeddinggemma"),
		WithChatModel("qwen2.5:3b"),
		WithTemperature(0.2),
	)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host, "Validate normalizes the /v1 suffix")
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 0.2, cfg.Temperature)
}

func TestConfigNormalize(t *testing.T) {
	cfg := NewConfig(WithHost("http://localhost:8080/"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:8080/v1", cfg.Host)

	cfg = NewConfig(WithHost("http://localhost:8080/v1"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:8080/v1", cfg.Host)
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig(WithHost(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithEmbeddingModel(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithChatModel(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithTemperature(3))
	assert.Error(t, cfg.Validate())
}
