// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package config loads and persists the Rune configuration file
// (~/.rune/config.json) with environment variable overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	runeerr "github.com/rune-dev/rune/pkg/errors"
	"github.com/spf13/viper"
)

// State gates the capture and recall pipelines.
const (
	StateActive  = "active"
	StateDormant = "dormant"
)

// Known provider names. "auto" is a configuration-time token resolved by
// ResolveProvider before any client is constructed.
const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
)

// Config is the top-level Rune configuration.
type Config struct {
	State     string          `mapstructure:"state" json:"state"`
	Vault     VaultConfig     `mapstructure:"vault" json:"vault"`
	EnVector  EnVectorConfig  `mapstructure:"envector" json:"envector"`
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm" json:"llm"`
	Scribe    ScribeConfig    `mapstructure:"scribe" json:"scribe"`
	Retriever RetrieverConfig `mapstructure:"retriever" json:"retriever"`

	// envSourced tracks LLM secret fields that came from the environment so
	// Save never persists them to disk.
	envSourced map[string]bool `mapstructure:"-" json:"-"`
}

// VaultConfig holds the Rune-Vault endpoint and bearer token.
type VaultConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Token    string `mapstructure:"token" json:"token"`
}

// EnVectorConfig holds the encrypted vector store session parameters.
type EnVectorConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	APIKey   string `mapstructure:"api_key" json:"api_key"`
	Index    string `mapstructure:"index" json:"index"`
}

// EmbeddingConfig selects the embedding backend. The endpoint is any
// OpenAI-compatible /v1/embeddings server; dimension is fixed per
// installation.
type EmbeddingConfig struct {
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	APIKey    string `mapstructure:"api_key" json:"api_key"`
	Model     string `mapstructure:"model" json:"model"`
	Dimension int    `mapstructure:"dimension" json:"dimension"`
}

// LLMConfig holds per-provider credentials and model selection shared by
// the capture and recall pipelines.
type LLMConfig struct {
	Provider      string `mapstructure:"provider" json:"provider"`
	Tier2Provider string `mapstructure:"tier2_provider" json:"tier2_provider"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model" json:"anthropic_model"`

	OpenAIAPIKey     string `mapstructure:"openai_api_key" json:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model" json:"openai_model"`
	OpenAITier2Model string `mapstructure:"openai_tier2_model" json:"openai_tier2_model"`

	GoogleAPIKey     string `mapstructure:"google_api_key" json:"google_api_key"`
	GoogleModel      string `mapstructure:"google_model" json:"google_model"`
	GoogleTier2Model string `mapstructure:"google_tier2_model" json:"google_tier2_model"`

	Tier2Model string `mapstructure:"tier2_model" json:"tier2_model"`
}

// ScribeConfig controls the three-tier capture cascade.
type ScribeConfig struct {
	Tier2Enabled         bool    `mapstructure:"tier2_enabled" json:"tier2_enabled"`
	SimilarityThreshold  float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
	DuplicateThreshold   float64 `mapstructure:"duplicate_threshold" json:"duplicate_threshold"`
	AutoCaptureThreshold float64 `mapstructure:"auto_capture_threshold" json:"auto_capture_threshold"`
	CacheSize            int     `mapstructure:"cache_size" json:"cache_size"`
}

// RetrieverConfig controls the recall pipeline.
type RetrieverConfig struct {
	TopK                int     `mapstructure:"topk" json:"topk"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" json:"confidence_threshold"`
}

// Dir returns the Rune configuration directory (~/.rune).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rune"
	}
	return filepath.Join(home, ".rune")
}

// Path returns the canonical config file path.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// LogsDir returns the logs directory next to the config file.
func LogsDir() string {
	return filepath.Join(Dir(), "logs")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("state", StateDormant)
	v.SetDefault("envector.endpoint", "localhost:50050")
	v.SetDefault("envector.index", "")
	v.SetDefault("embedding.endpoint", "http://localhost:8091/v1")
	v.SetDefault("embedding.model", "paraphrase-multilingual-MiniLM-L12-v2")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.tier2_provider", ProviderAnthropic)
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.tier2_model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.google_model", "gemini-2.0-flash-exp")
	v.SetDefault("scribe.tier2_enabled", true)
	v.SetDefault("scribe.similarity_threshold", 0.35)
	v.SetDefault("scribe.duplicate_threshold", 0.95)
	v.SetDefault("scribe.auto_capture_threshold", 0.8)
	v.SetDefault("scribe.cache_size", 64)
	v.SetDefault("retriever.topk", 5)
	v.SetDefault("retriever.confidence_threshold", 0.5)
}

// Load reads configuration from path (or the canonical location when path
// is empty) and applies environment variable overrides. A missing file is
// not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, runeerr.Wrapf(err, runeerr.CodeConfigParseInvalidFormat, "parsing config %s", path)
			}
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, runeerr.Wrapf(err, runeerr.CodeConfigLoadReadFailure, "reading config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeConfigParseInvalidFormat, "unmarshalling config")
	}

	cfg.envSourced = make(map[string]bool)
	cfg.applyEnv()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, runeerr.Wrapf(joinErrs(errs), runeerr.CodeConfigValidateInvalidValue, "validating config")
	}

	return &cfg, nil
}

// applyEnv overlays environment variables onto the loaded values. LLM
// secrets sourced here are tracked so Save writes them back as empty
// strings.
func (c *Config) applyEnv() {
	overlay := func(env string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}
	secret := func(env, field string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
			c.envSourced[field] = true
		}
	}

	overlay("RUNEVAULT_ENDPOINT", &c.Vault.Endpoint)
	overlay("RUNEVAULT_TOKEN", &c.Vault.Token)
	overlay("ENVECTOR_ENDPOINT", &c.EnVector.Endpoint)
	overlay("ENVECTOR_API_KEY", &c.EnVector.APIKey)
	overlay("RUNE_LLM_PROVIDER", &c.LLM.Provider)
	overlay("RUNE_TIER2_LLM_PROVIDER", &c.LLM.Tier2Provider)
	overlay("RUNE_STATE", &c.State)

	secret("ANTHROPIC_API_KEY", "anthropic_api_key", &c.LLM.AnthropicAPIKey)
	secret("OPENAI_API_KEY", "openai_api_key", &c.LLM.OpenAIAPIKey)
	secret("GOOGLE_API_KEY", "google_api_key", &c.LLM.GoogleAPIKey)
	if os.Getenv("GOOGLE_API_KEY") == "" {
		secret("GEMINI_API_KEY", "google_api_key", &c.LLM.GoogleAPIKey)
	}
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.State != StateActive && c.State != StateDormant {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: state must be one of [active, dormant], got %q", c.State))
	}

	validProviders := map[string]bool{
		ProviderAuto: true, ProviderAnthropic: true, ProviderOpenAI: true, ProviderGoogle: true,
	}
	if !validProviders[c.LLM.Provider] {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: llm.provider must be one of [auto, anthropic, openai, google], got %q", c.LLM.Provider))
	}
	if c.LLM.Tier2Provider != "" && !validProviders[c.LLM.Tier2Provider] {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: llm.tier2_provider must be one of [auto, anthropic, openai, google], got %q", c.LLM.Tier2Provider))
	}

	if c.Scribe.SimilarityThreshold < 0 || c.Scribe.SimilarityThreshold > 1 {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: scribe.similarity_threshold must be in [0,1], got %g", c.Scribe.SimilarityThreshold))
	}
	if c.Scribe.DuplicateThreshold < 0 || c.Scribe.DuplicateThreshold > 1 {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: scribe.duplicate_threshold must be in [0,1], got %g", c.Scribe.DuplicateThreshold))
	}
	if c.Scribe.CacheSize <= 0 {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: scribe.cache_size must be greater than 0, got %d", c.Scribe.CacheSize))
	}
	if c.Retriever.TopK < 1 || c.Retriever.TopK > 10 {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: retriever.topk must be in [1,10], got %d", c.Retriever.TopK))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimension must be greater than 0, got %d", c.Embedding.Dimension))
	}

	if c.State == StateActive {
		errs = append(errs, c.validateActive()...)
	}

	return errs
}

// validateActive enforces the invariant that the active state requires a
// reachable trust boundary: Vault, enVector, and at least one LLM key.
func (c *Config) validateActive() []error {
	var errs []error

	if c.Vault.Endpoint == "" || c.Vault.Token == "" {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: state=active requires vault.endpoint and vault.token"))
	}
	if c.EnVector.Endpoint == "" {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: state=active requires envector.endpoint"))
	}
	if !c.HasAnyLLMKey() {
		errs = append(errs, runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue,
			"config: state=active requires at least one LLM provider API key"))
	}

	return errs
}

// HasAnyLLMKey reports whether any provider credential is configured.
func (c *Config) HasAnyLLMKey() bool {
	return c.LLM.AnthropicAPIKey != "" || c.LLM.OpenAIAPIKey != "" || c.LLM.GoogleAPIKey != ""
}

// ResolveProvider maps the "auto" token to the first provider with a
// configured key, in anthropic > openai > google order. A concrete
// provider name passes through unchanged.
func (c *Config) ResolveProvider(name string) (string, error) {
	if name != ProviderAuto {
		return name, nil
	}

	switch {
	case c.LLM.AnthropicAPIKey != "":
		return ProviderAnthropic, nil
	case c.LLM.OpenAIAPIKey != "":
		return ProviderOpenAI, nil
	case c.LLM.GoogleAPIKey != "":
		return ProviderGoogle, nil
	}

	return "", runeerr.New(runeerr.CodeConfigValidateInvalidValue,
		"config: llm provider is \"auto\" but no provider API key is configured")
}

// APIKeyFor returns the credential for a concrete provider name.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.LLM.AnthropicAPIKey
	case ProviderOpenAI:
		return c.LLM.OpenAIAPIKey
	case ProviderGoogle:
		return c.LLM.GoogleAPIKey
	}
	return ""
}

// ModelFor returns the primary model for a concrete provider name.
func (c *Config) ModelFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return c.LLM.AnthropicModel
	case ProviderOpenAI:
		return c.LLM.OpenAIModel
	case ProviderGoogle:
		return c.LLM.GoogleModel
	}
	return ""
}

// Tier2ModelFor returns the policy-filter model for a concrete provider,
// falling back to the provider's primary model when unset.
func (c *Config) Tier2ModelFor(provider string) string {
	switch provider {
	case ProviderAnthropic:
		if c.LLM.Tier2Model != "" {
			return c.LLM.Tier2Model
		}
	case ProviderOpenAI:
		if c.LLM.OpenAITier2Model != "" {
			return c.LLM.OpenAITier2Model
		}
	case ProviderGoogle:
		if c.LLM.GoogleTier2Model != "" {
			return c.LLM.GoogleTier2Model
		}
	}
	return c.ModelFor(provider)
}

// Save writes the configuration to path with user-only permissions.
// Secret fields that came from the environment are written as empty
// strings so they never reach disk.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return runeerr.Wrapf(err, runeerr.CodeConfigSaveWriteFailure, "creating config directory")
	}

	out := *c
	if c.envSourced["anthropic_api_key"] {
		out.LLM.AnthropicAPIKey = ""
	}
	if c.envSourced["openai_api_key"] {
		out.LLM.OpenAIAPIKey = ""
	}
	if c.envSourced["google_api_key"] {
		out.LLM.GoogleAPIKey = ""
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return runeerr.Wrapf(err, runeerr.CodeConfigSaveWriteFailure, "encoding config")
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return runeerr.Wrapf(err, runeerr.CodeConfigSaveWriteFailure, "writing config %s", path)
	}

	return nil
}

// IsActive reports whether the pipeline state gate is open.
func (c *Config) IsActive() bool {
	return c.State == StateActive
}

func joinErrs(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return runeerr.Errorf(runeerr.CodeConfigValidateInvalidValue, "%s", strings.Join(msgs, "; "))
}
