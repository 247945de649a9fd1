package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

// Provider names accepted by ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// Config aggregates every configurable part of the backend.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chat   ChatConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	return LoadFrom(NewViper())
}

// NewViper returns a viper instance wired to the JEFF_* environment and the
// legacy provider-specific credential variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("jeff")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.addr", "JEFF_SERVER_ADDR", "PORT")
	return v
}

// LoadFrom reads configuration through v, which may also carry a config file
// and bound command-line flags.
func LoadFrom(v *viper.Viper) (*Config, error) {
	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chat: chat}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := strings.TrimSpace(v.GetString("server.addr"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are used as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid server address %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the remote model provider.
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled reports whether a usable credential is present.
func (c AIConfig) Enabled() bool {
	if c.Provider == ProviderArk {
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	}
	return c.APIKey != ""
}

// Credential returns the key handed to session managers. For ark deployments
// signed with an AK/SK pair the access key stands in for the credential.
func (c AIConfig) Credential() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.Provider == ProviderArk && c.AccessKey != "" && c.SecretKey != "" {
		return c.AccessKey
	}
	return ""
}

// NewChatModel builds an ark chat model for the eino-backed provider.
func (c AIConfig) NewChatModel(ctx context.Context, apiKey, modelName string) (model.ChatModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("ark model (endpoint id) is required")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		Model:       modelName,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature32(),
		TopP:        c.TopP32(),
	}
	if c.APIKey == "" && c.AccessKey != "" && c.SecretKey != "" {
		cfg.AccessKey = c.AccessKey
		cfg.SecretKey = c.SecretKey
	} else {
		cfg.APIKey = apiKey
	}
	if c.Timeout > 0 {
		timeout := c.Timeout
		cfg.Timeout = &timeout
	}
	// one attempt per message; the session manager owns the deadline
	retries := 0
	cfg.RetryTimes = &retries

	return ark.NewChatModel(ctx, cfg)
}

// Temperature32 narrows Temperature for SDKs that take float32.
func (c AIConfig) Temperature32() *float32 {
	return narrow(c.Temperature)
}

// TopP32 narrows TopP for SDKs that take float32.
func (c AIConfig) TopP32() *float32 {
	return narrow(c.TopP)
}

func narrow(val *float64) *float32 {
	if val == nil {
		return nil
	}
	f := float32(*val)
	return &f
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderArk:
		return ""
	default:
		return "gemini-2.0-flash"
	}
}

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	provider := strings.ToLower(getOrDefault(v, "ai.provider", ProviderGemini))
	switch provider {
	case ProviderGemini, ProviderArk, ProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("invalid ai.provider value %q", provider)
	}

	temperature, err := parseOptionalFloat(v, "ai.temperature")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloat(v, "ai.top_p")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalInt(v, "ai.max_tokens")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDuration(v, "ai.timeout", DefaultTimeout)
	if err != nil {
		return AIConfig{}, err
	}

	apiKey := strings.TrimSpace(v.GetString("ai.api_key"))
	if apiKey == "" {
		apiKey = providerKeyFromEnv(v, provider)
	}

	return AIConfig{
		Provider:    provider,
		APIKey:      apiKey,
		AccessKey:   firstNonEmpty(v.GetString("ai.access_key"), envValue(v, "ARK_ACCESS_KEY")),
		SecretKey:   firstNonEmpty(v.GetString("ai.secret_key"), envValue(v, "ARK_SECRET_KEY")),
		Model:       getOrDefault(v, "ai.model", DefaultModel(provider)),
		BaseURL:     strings.TrimSpace(v.GetString("ai.base_url")),
		Region:      getOrDefault(v, "ai.region", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}, nil
}

// ChatConfig holds session manager policy.
type ChatConfig struct {
	RollbackOnFailure bool
	PersonaID         string
}

func loadChatConfig(v *viper.Viper) (ChatConfig, error) {
	rollback, err := parseBool(v, "chat.rollback_on_failure", false)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		RollbackOnFailure: rollback,
		PersonaID:         getOrDefault(v, "chat.persona", "jeff"),
	}, nil
}

// providerKeyFromEnv falls back to the credential variables each provider's
// own tooling uses.
func providerKeyFromEnv(v *viper.Viper, provider string) string {
	switch provider {
	case ProviderArk:
		return envValue(v, "ARK_API_KEY")
	case ProviderOpenAI:
		return envValue(v, "OPENAI_API_KEY")
	default:
		return firstNonEmpty(envValue(v, "GOOGLE_API_KEY"), envValue(v, "GEMINI_API_KEY"), envValue(v, "EXPO_PUBLIC_GOOGLE_API_KEY"))
	}
}

// envValue reads an unprefixed environment variable through v.
func envValue(v *viper.Viper, name string) string {
	key := "env." + strings.ToLower(name)
	_ = v.BindEnv(key, name)
	return strings.TrimSpace(v.GetString(key))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func getOrDefault(v *viper.Viper, key, defaultValue string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v *viper.Viper, key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDuration accepts Go durations ("45s") and bare integers as seconds.
func parseDuration(v *viper.Viper, key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
	}
	return d, nil
}
