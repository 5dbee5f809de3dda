package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrConfiguration 表示启动所需的配置缺失或非法，进程不应继续启动。
var ErrConfiguration = errors.New("invalid configuration")

const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: store}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址、请求超时与 CORS 来源。
func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8000")

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("%w: invalid PORT value: %q", ErrConfiguration, port)
	default:
		addr = ":" + port
	}

	timeout, err := parseSecondsEnv("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:           addr,
		RequestTimeout: timeout,
		AllowedOrigins: parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
	SystemPrompt string
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI))

	var apiKey, baseURL, region string
	switch provider {
	case ProviderOpenAI:
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		baseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
		if apiKey == "" {
			return AIConfig{}, fmt.Errorf("%w: OPENAI_API_KEY not found in environment variables", ErrConfiguration)
		}
	case ProviderArk:
		apiKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		baseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		if apiKey == "" {
			return AIConfig{}, fmt.Errorf("%w: ARK_API_KEY not found in environment variables", ErrConfiguration)
		}
	default:
		return AIConfig{}, fmt.Errorf("%w: unsupported LLM_PROVIDER %q", ErrConfiguration, provider)
	}

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseSecondsEnv("LLM_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:     provider,
		APIKey:       apiKey,
		Model:        getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:      baseURL,
		Region:       region,
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Timeout:      timeout,
		SystemPrompt: strings.TrimSpace(os.Getenv("SYSTEM_PROMPT")),
	}, nil
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if c.APIKey == "" || c.Model == "" {
		return nil, fmt.Errorf("%w: model credentials or model name missing", ErrConfiguration)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	switch c.Provider {
	case ProviderArk:
		timeout := c.Timeout
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
			Timeout:     &timeout,
		})
	case ProviderOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
			Timeout:     c.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrConfiguration, c.Provider)
	}
}

// StoreConfig 描述会话存储后端配置。
type StoreConfig struct {
	Backend     string
	RedisURL    string
	DatabaseURL string
	HistoryTTL  time.Duration
	Timeout     time.Duration
}

// Durable 表示所选后端是否需要外部数据库连接。
func (c StoreConfig) Durable() bool {
	return c.Backend == StoreRedis || c.Backend == StorePostgres
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("CHAT_STORE", StoreMemory))

	cfg := StoreConfig{
		Backend:     backend,
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}

	switch backend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return StoreConfig{}, fmt.Errorf("%w: REDIS_URL is required when CHAT_STORE=redis", ErrConfiguration)
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("%w: DATABASE_URL is required when CHAT_STORE=postgres", ErrConfiguration)
		}
	default:
		return StoreConfig{}, fmt.Errorf("%w: unsupported CHAT_STORE %q", ErrConfiguration, backend)
	}

	ttl, err := parseSecondsEnv("CHAT_HISTORY_TTL", 0)
	if err != nil {
		return StoreConfig{}, err
	}
	cfg.HistoryTTL = ttl

	timeout, err := parseSecondsEnv("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}
	cfg.Timeout = timeout

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// parseSecondsEnv 解析以秒为单位的非负整数时长。
func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return defaultValue, nil
	}
	if *seconds < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", ErrConfiguration, key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s value %q: %v", ErrConfiguration, key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s value %q: %v", ErrConfiguration, key, value, err)
	}
	return &val, nil
}
