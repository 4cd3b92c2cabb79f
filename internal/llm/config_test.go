package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{Models: map[ModelTier]string{TierLite: "fallback-model"}}
	assert.Equal(t, "fallback-model", config.GetModel(TierAdvanced))

	empty := &Config{Models: map[ModelTier]string{}}
	assert.Equal(t, "", empty.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	base := DefaultConfig()
	custom := base.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "custom-model", custom.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-pro", base.GetModel(TierAdvanced), "original unchanged")
	assert.Equal(t, base.Temperature, custom.Temperature)
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, TierStandard, tier)

	tier, err = ParseTier("lite")
	require.NoError(t, err)
	assert.Equal(t, TierLite, tier)

	_, err = ParseTier("huge")
	assert.Error(t, err)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), nil, "")
	assert.ErrorContains(t, err, "API key is required")

	_, err = NewClient(t.Context(), &Config{Provider: "openai"}, "key")
	assert.ErrorContains(t, err, "unsupported LLM provider")
}
