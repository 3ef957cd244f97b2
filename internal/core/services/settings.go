package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedCacheSize = "embedding.cache_size"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyVectorBackend  = "vector_index.backend"
	keyVectorPath     = "vector_index.path"
	keyVectorURL      = "vector_index.url"
	keyVectorAPIKey   = "vector_index.api_key"
	keyVectorColl     = "vector_index.collection"
	keyVectorRetain   = "vector_index.retain"
	keyTopK           = "pipeline.top_k"
	keyMinChunkLength = "pipeline.min_chunk_length"
	keyChunkStrategy  = "pipeline.chunk_strategy"
	keyChunkPattern   = "pipeline.chunk_pattern"
	keyConcurrency    = "pipeline.concurrency"
	keyFailurePolicy  = "pipeline.failure_policy"
	keyMaxQuestions   = "pipeline.max_questions"
	keyTemperature    = "pipeline.temperature"
	keyMaxTokens      = "pipeline.max_tokens"
	keyRetryAttempts  = "retry.max_attempts"
	keyRetryBaseDelay = "retry.base_delay_ms"
	keyRetryMaxDelay  = "retry.max_delay_ms"
	keyRateLimitRPS   = "rate_limit.requests_per_second"
	keyRateLimitBurst = "rate_limit.burst"
	keyServerAddr     = "server.addr"
	keyServerToken    = "server.bearer_token"
	keyFetchTimeout   = "fetch.timeout_seconds"
	keyFetchMaxBytes  = "fetch.max_bytes"
)

// Environment overrides. Provider API keys use AIProvider.APIKeyEnv.
//
//nolint:gosec // G101: These are environment variable names.
const (
	EnvEmbeddingProvider = "DOCQA_EMBEDDING_PROVIDER"
	EnvLLMProvider       = "DOCQA_LLM_PROVIDER"
	EnvQdrantAPIKey      = "QDRANT_API_KEY"
	EnvBearerToken       = "BEARER_TOKEN"
	EnvAddr              = "DOCQA_ADDR"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKinds lists every key Set accepts and how its value is parsed.
var settingKinds = map[string]settingKind{
	keyEmbedProvider:  kindString,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyEmbedDims:      kindInt,
	keyEmbedCacheSize: kindInt,
	keyLLMProvider:    kindString,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyLLMAPIKey:      kindString,
	keyVectorBackend:  kindString,
	keyVectorPath:     kindString,
	keyVectorURL:      kindString,
	keyVectorAPIKey:   kindString,
	keyVectorColl:     kindString,
	keyVectorRetain:   kindBool,
	keyTopK:           kindInt,
	keyMinChunkLength: kindInt,
	keyChunkStrategy:  kindString,
	keyChunkPattern:   kindString,
	keyConcurrency:    kindInt,
	keyFailurePolicy:  kindString,
	keyMaxQuestions:   kindInt,
	keyTemperature:    kindFloat,
	keyMaxTokens:      kindInt,
	keyRetryAttempts:  kindInt,
	keyRetryBaseDelay: kindInt,
	keyRetryMaxDelay:  kindInt,
	keyRateLimitRPS:   kindFloat,
	keyRateLimitBurst: kindInt,
	keyServerAddr:     kindString,
	keyServerToken:    kindString,
	keyFetchTimeout:   kindInt,
	keyFetchMaxBytes:  kindInt,
}

// SettingKeys returns every configurable key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether a key holds a credential that should be masked on display.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key") || key == keyServerToken
}

// SettingsService resolves application settings from defaults, the config
// file and the environment, in increasing precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// aiValidator is optional and only used by Check.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	s.getenv = getenv
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, EnvEmbeddingProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, EnvLLMProvider, defaults.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   embedProvider,
			Model:      s.getModel(keyEmbedModel, embedProvider, defaults.Embedding.Provider, domain.DefaultEmbeddingModels()),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.getAPIKey(keyEmbedAPIKey, embedProvider),
			Dimensions: s.configStore.GetInt(keyEmbedDims),
			CacheSize:  s.configStore.GetInt(keyEmbedCacheSize),
		},
		LLM: domain.LLMSettings{
			Provider: llmProvider,
			Model:    s.getModel(keyLLMModel, llmProvider, defaults.LLM.Provider, domain.DefaultLLMModels()),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.getAPIKey(keyLLMAPIKey, llmProvider),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    s.getBackend(defaults.VectorIndex.Backend),
			Path:       s.configStore.GetString(keyVectorPath),
			URL:        s.configStore.GetString(keyVectorURL),
			APIKey:     s.getEnvString(EnvQdrantAPIKey, s.configStore.GetString(keyVectorAPIKey)),
			Collection: s.getString(keyVectorColl, defaults.VectorIndex.Collection),
			Retain:     s.getBool(keyVectorRetain, defaults.VectorIndex.Retain),
		},
		Pipeline: domain.PipelineSettings{
			TopK:           s.getInt(keyTopK, defaults.Pipeline.TopK),
			MinChunkLength: s.getInt(keyMinChunkLength, defaults.Pipeline.MinChunkLength),
			ChunkStrategy:  s.getString(keyChunkStrategy, defaults.Pipeline.ChunkStrategy),
			ChunkPattern:   s.configStore.GetString(keyChunkPattern),
			Concurrency:    s.getInt(keyConcurrency, defaults.Pipeline.Concurrency),
			FailurePolicy:  s.getFailurePolicy(defaults.Pipeline.FailurePolicy),
			MaxQuestions:   s.getInt(keyMaxQuestions, defaults.Pipeline.MaxQuestions),
			Temperature:    s.getFloat(keyTemperature, defaults.Pipeline.Temperature),
			MaxTokens:      s.getInt(keyMaxTokens, defaults.Pipeline.MaxTokens),
		},
		Retry: domain.RetrySettings{
			MaxAttempts: s.getInt(keyRetryAttempts, defaults.Retry.MaxAttempts),
			BaseDelay:   s.getMillis(keyRetryBaseDelay, defaults.Retry.BaseDelay),
			MaxDelay:    s.getMillis(keyRetryMaxDelay, defaults.Retry.MaxDelay),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.configStore.GetFloat(keyRateLimitRPS),
			Burst:             s.configStore.GetInt(keyRateLimitBurst),
		},
		Server: domain.ServerSettings{
			Addr:        s.getEnvString(EnvAddr, s.getString(keyServerAddr, defaults.Server.Addr)),
			BearerToken: s.getEnvString(EnvBearerToken, s.configStore.GetString(keyServerToken)),
		},
		Fetch: domain.FetchSettings{
			Timeout:  s.getSeconds(keyFetchTimeout, defaults.Fetch.Timeout),
			MaxBytes: int64(s.getInt(keyFetchMaxBytes, int(defaults.Fetch.MaxBytes))),
		},
	}

	return settings, nil
}

// Set parses value for key, validates it and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}
	if err := validateSetting(key, parsed); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetValue returns the resolved value of a single key as a string.
func (s *SettingsService) GetValue(key string) (string, error) {
	if _, ok := settingKinds[key]; !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	return settingValue(settings, key), nil
}

// Validate checks that settings are usable for answering questions.
// Every problem found is reported.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	var problems []error

	emb := settings.Embedding
	switch {
	case !emb.Provider.IsValid():
		problems = append(problems, fmt.Errorf("embedding provider %q is not supported", emb.Provider))
	case !emb.Provider.SupportsEmbeddings():
		problems = append(problems, fmt.Errorf("provider %s does not support embeddings", emb.Provider))
	case !emb.IsConfigured():
		problems = append(problems, fmt.Errorf("embedding provider %s requires an API key (%s)",
			emb.Provider, emb.Provider.APIKeyEnv()))
	}

	llm := settings.LLM
	switch {
	case !llm.Provider.IsValid():
		problems = append(problems, fmt.Errorf("llm provider %q is not supported", llm.Provider))
	case !llm.IsConfigured():
		problems = append(problems, fmt.Errorf("llm provider %s requires an API key (%s)",
			llm.Provider, llm.Provider.APIKeyEnv()))
	}

	vi := settings.VectorIndex
	if !vi.Backend.IsValid() {
		problems = append(problems, fmt.Errorf("vector index backend %q is not supported", vi.Backend))
	}
	if vi.Backend == domain.VectorBackendQdrant && vi.URL == "" {
		problems = append(problems, errors.New("qdrant backend requires vector_index.url"))
	}

	p := settings.Pipeline
	if p.TopK <= 0 {
		problems = append(problems, errors.New("pipeline.top_k must be positive"))
	}
	if p.MinChunkLength < 0 {
		problems = append(problems, errors.New("pipeline.min_chunk_length must not be negative"))
	}
	if p.Concurrency <= 0 {
		problems = append(problems, errors.New("pipeline.concurrency must be positive"))
	}
	if !p.FailurePolicy.IsValid() {
		problems = append(problems, fmt.Errorf("pipeline.failure_policy %q is not one of %s, %s",
			p.FailurePolicy, domain.FailFast, domain.PerQuestion))
	}
	if p.MaxQuestions <= 0 {
		problems = append(problems, errors.New("pipeline.max_questions must be positive"))
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		problems = append(problems, errors.New("pipeline.temperature must be between 0 and 2"))
	}
	if p.MaxTokens <= 0 {
		problems = append(problems, errors.New("pipeline.max_tokens must be positive"))
	}
	if settings.Retry.MaxAttempts <= 0 {
		problems = append(problems, errors.New("retry.max_attempts must be at least 1"))
	}
	if settings.RateLimit.RequestsPerSecond < 0 {
		problems = append(problems, errors.New("rate_limit.requests_per_second must not be negative"))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(problems...))
}

// Check pings the configured providers and opens the vector index.
func (s *SettingsService) Check(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if err := s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}
	if err := s.aiValidator.ValidateLLM(ctx, &settings.LLM); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	if err := s.aiValidator.ValidateVectorIndex(ctx, &settings.VectorIndex); err != nil {
		errs = append(errs, fmt.Errorf("vector index: %w", err))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not true or false", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

func validateSetting(key string, value any) error {
	switch key {
	case keyEmbedProvider:
		p := domain.AIProvider(value.(string))
		if !p.IsValid() || !p.SupportsEmbeddings() {
			return fmt.Errorf("%q cannot serve embeddings", p)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(value.(string)); !p.IsValid() {
			return fmt.Errorf("unknown provider %q", p)
		}
	case keyVectorBackend:
		if b := domain.VectorBackend(value.(string)); !b.IsValid() {
			return fmt.Errorf("unknown backend %q", b)
		}
	case keyFailurePolicy:
		if p := domain.FailurePolicy(value.(string)); !p.IsValid() {
			return fmt.Errorf("unknown policy %q", p)
		}
	case keyTopK, keyConcurrency, keyMaxQuestions, keyMaxTokens, keyRetryAttempts, keyFetchTimeout:
		if value.(int) <= 0 {
			return errors.New("must be positive")
		}
	case keyMinChunkLength, keyEmbedDims, keyEmbedCacheSize, keyRetryBaseDelay, keyRetryMaxDelay,
		keyRateLimitBurst, keyFetchMaxBytes:
		if value.(int) < 0 {
			return errors.New("must not be negative")
		}
	case keyTemperature:
		if t := value.(float64); t < 0 || t > 2 {
			return errors.New("must be between 0 and 2")
		}
	case keyRateLimitRPS:
		if value.(float64) < 0 {
			return errors.New("must not be negative")
		}
	}
	return nil
}

// settingValue renders one resolved setting.
//
//nolint:gocyclo // flat key switch
func settingValue(s *domain.AppSettings, key string) string {
	switch key {
	case keyEmbedProvider:
		return s.Embedding.Provider.String()
	case keyEmbedModel:
		return s.Embedding.Model
	case keyEmbedBaseURL:
		return s.Embedding.BaseURL
	case keyEmbedAPIKey:
		return s.Embedding.APIKey
	case keyEmbedDims:
		return strconv.Itoa(s.Embedding.Dimensions)
	case keyEmbedCacheSize:
		return strconv.Itoa(s.Embedding.CacheSize)
	case keyLLMProvider:
		return s.LLM.Provider.String()
	case keyLLMModel:
		return s.LLM.Model
	case keyLLMBaseURL:
		return s.LLM.BaseURL
	case keyLLMAPIKey:
		return s.LLM.APIKey
	case keyVectorBackend:
		return s.VectorIndex.Backend.String()
	case keyVectorPath:
		return s.VectorIndex.Path
	case keyVectorURL:
		return s.VectorIndex.URL
	case keyVectorAPIKey:
		return s.VectorIndex.APIKey
	case keyVectorColl:
		return s.VectorIndex.Collection
	case keyVectorRetain:
		return strconv.FormatBool(s.VectorIndex.Retain)
	case keyTopK:
		return strconv.Itoa(s.Pipeline.TopK)
	case keyMinChunkLength:
		return strconv.Itoa(s.Pipeline.MinChunkLength)
	case keyChunkStrategy:
		return s.Pipeline.ChunkStrategy
	case keyChunkPattern:
		return s.Pipeline.ChunkPattern
	case keyConcurrency:
		return strconv.Itoa(s.Pipeline.Concurrency)
	case keyFailurePolicy:
		return s.Pipeline.FailurePolicy.String()
	case keyMaxQuestions:
		return strconv.Itoa(s.Pipeline.MaxQuestions)
	case keyTemperature:
		return strconv.FormatFloat(s.Pipeline.Temperature, 'g', -1, 64)
	case keyMaxTokens:
		return strconv.Itoa(s.Pipeline.MaxTokens)
	case keyRetryAttempts:
		return strconv.Itoa(s.Retry.MaxAttempts)
	case keyRetryBaseDelay:
		return strconv.FormatInt(s.Retry.BaseDelay.Milliseconds(), 10)
	case keyRetryMaxDelay:
		return strconv.FormatInt(s.Retry.MaxDelay.Milliseconds(), 10)
	case keyRateLimitRPS:
		return strconv.FormatFloat(s.RateLimit.RequestsPerSecond, 'g', -1, 64)
	case keyRateLimitBurst:
		return strconv.Itoa(s.RateLimit.Burst)
	case keyServerAddr:
		return s.Server.Addr
	case keyServerToken:
		return s.Server.BearerToken
	case keyFetchTimeout:
		return strconv.Itoa(int(s.Fetch.Timeout / time.Second))
	case keyFetchMaxBytes:
		return strconv.FormatInt(s.Fetch.MaxBytes, 10)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getEnvString(env, fallback string) string {
	if v := strings.TrimSpace(s.getenv(env)); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if ms := s.configStore.GetInt(key); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if secs := s.configStore.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key, env string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getEnvString(env, s.configStore.GetString(key))
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// getModel returns the configured model, or the provider's default model
// when none is set or the provider was switched away from the default.
func (s *SettingsService) getModel(
	key string, provider, defaultProvider domain.AIProvider, defaults map[domain.AIProvider]string,
) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	if model, ok := defaults[provider]; ok {
		return model
	}
	return defaults[defaultProvider]
}

// getAPIKey prefers the provider's environment variable over the config file.
func (s *SettingsService) getAPIKey(key string, provider domain.AIProvider) string {
	if env := provider.APIKeyEnv(); env != "" {
		if v := strings.TrimSpace(s.getenv(env)); v != "" {
			return v
		}
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getFailurePolicy(defaultVal domain.FailurePolicy) domain.FailurePolicy {
	val := s.configStore.GetString(keyFailurePolicy)
	if val == "" {
		return defaultVal
	}
	policy := domain.FailurePolicy(val)
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}
