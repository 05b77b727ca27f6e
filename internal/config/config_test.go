package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	// An empty value reads as unset.
	for _, key := range []string{"PORT", "OPENAI_MODEL", "ANTHROPIC_MODEL", "RESPONDER_DELAY", "EXPIRY_AFTER_HOURS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "3001", cfg.ServerPort)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Empty(t, cfg.AnthropicModel, "empty model defers to the provider client's default")
	assert.Equal(t, 2*time.Second, cfg.ResponderDelay)
	assert.Equal(t, 24, cfg.ExpiryAfterHours)
}

func TestLoadReadsProviderModels(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022")

	cfg := Load()
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAIModel)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.AnthropicModel)
}
