package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JEFF_AI_PROVIDER", "")
	t.Setenv("JEFF_AI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EXPO_PUBLIC_GOOGLE_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("JEFF_SERVER_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, DefaultTimeout, cfg.AI.Timeout)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.Chat.RollbackOnFailure)
	assert.Equal(t, "jeff", cfg.Chat.PersonaID)
}

func TestLoadGoogleKeyFallback(t *testing.T) {
	t.Setenv("JEFF_AI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EXPO_PUBLIC_GOOGLE_API_KEY", "expo-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "expo-key", cfg.AI.APIKey)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "expo-key", cfg.AI.Credential())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JEFF_AI_PROVIDER", "openai")
	t.Setenv("JEFF_AI_API_KEY", "sk-test")
	t.Setenv("JEFF_AI_TIMEOUT", "5")
	t.Setenv("JEFF_AI_TEMPERATURE", "0.4")
	t.Setenv("JEFF_AI_MAX_TOKENS", "256")
	t.Setenv("JEFF_CHAT_ROLLBACK_ON_FAILURE", "true")
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Temperature, 1e-9)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 256, *cfg.AI.MaxTokens)
	assert.True(t, cfg.Chat.RollbackOnFailure)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"JEFF_AI_PROVIDER":              "bard",
		"JEFF_AI_TIMEOUT":               "soon",
		"JEFF_AI_TOP_P":                 "high",
		"JEFF_CHAT_ROLLBACK_ON_FAILURE": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), value)
		})
	}
}

func TestArkCredentialFromAccessKeys(t *testing.T) {
	cfg := AIConfig{Provider: ProviderArk, AccessKey: "ak", SecretKey: "sk"}
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "ak", cfg.Credential())
}
