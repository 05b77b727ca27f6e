package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSelectsProvider(t *testing.T) {
	openai, err := NewClient(ProviderOpenAI, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "openai", openai.Name())

	anthropic, err := NewClient(ProviderAnthropic, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", anthropic.Name())

	// Unknown providers fall back to OpenAI.
	fallback, err := NewClient(Provider("something-else"), "test-key")
	require.NoError(t, err)
	assert.Equal(t, "openai", fallback.Name())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, "")
	assert.Error(t, err)

	_, err = NewClient(ProviderAnthropic, "")
	assert.Error(t, err)
}
