package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	Keys        KeyFile
	Credentials CredentialConfig
	Database    DatabaseConfig
	Providers   ProviderConfig
	LLM         LLMConfig
	HTTP        HTTPConfig
}

type AppConfig struct {
	Env  string
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

// CredentialConfig user credential store backend
type CredentialConfig struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type DatabaseConfig struct {
	URL string
}

// ProviderConfig outbound adapter settings
type ProviderConfig struct {
	Timeout         time.Duration
	FixtureMode     bool
	SocialRate      float64
	SocialPlatforms []string
	CrawlLimit      int
}

// LLMConfig correlation-report provider settings
type LLMConfig struct {
	Endpoint    string
	Model       string
	Referer     string
	Title       string
	Temperature float64
	MaxTokens   int
}

type HTTPConfig struct {
	CORSOrigins []string
	RateLimit   int
}

// KeyFile API keys file
type KeyFile struct {
	ShodanAPIKey     string `json:"shodan_api_key"`
	VirusTotalAPIKey string `json:"virustotal_api_key"`
	OpenRouterAPIKey string `json:"openrouter_api_key"`
}

// Secrets keys indexed by provider id
func (k KeyFile) Secrets() map[models.ProviderID]string {
	return map[models.ProviderID]string{
		models.ProviderShodan:     k.ShodanAPIKey,
		models.ProviderVirusTotal: k.VirusTotalAPIKey,
		models.ProviderOpenRouter: k.OpenRouterAPIKey,
	}
}

// SetSecret sets the key of a provider. Returns false for providers without a key field.
func (k *KeyFile) SetSecret(p models.ProviderID, secret string) bool {
	switch p {
	case models.ProviderShodan:
		k.ShodanAPIKey = secret
	case models.ProviderVirusTotal:
		k.VirusTotalAPIKey = secret
	case models.ProviderOpenRouter:
		k.OpenRouterAPIKey = secret
	default:
		return false
	}
	return true
}

// Load reads environment variables, an optional config.yaml and the key file.
// Environment values win over the key file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/spyosint")

	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)

	fileKeys, err := LoadKeyFile()
	if err != nil {
		slog.Warn("Ignoring key file", "error", err)
	} else {
		cfg.Keys = MergeKeys(fileKeys, cfg.Keys)
	}

	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	for _, key := range []string{
		"APP_ENV", "APP_HOST", "APP_PORT", "LOG_LEVEL",
		"VIRUSTOTAL_API_KEY", "SHODAN_API_KEY", "OPENROUTER_API_KEY",
		"OPENROUTER_MODEL", "OPENROUTER_ENDPOINT",
		"CREDENTIAL_BACKEND", "CREDENTIAL_FILE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"DATABASE_URL",
		"PROVIDER_TIMEOUT", "FIXTURE_MODE", "SOCIAL_RATE", "SOCIAL_PLATFORMS", "CRAWL_LIMIT",
		"CORS_ORIGINS", "RATE_LIMIT",
	} {
		v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("OPENROUTER_ENDPOINT", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet")

	v.SetDefault("CREDENTIAL_BACKEND", "file")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PROVIDER_TIMEOUT", 15*time.Second)
	v.SetDefault("FIXTURE_MODE", false)
	v.SetDefault("SOCIAL_RATE", 2.0)
	v.SetDefault("SOCIAL_PLATFORMS", "twitter,facebook,instagram,linkedin,github,reddit")
	v.SetDefault("CRAWL_LIMIT", 3)

	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,https://*")
	v.SetDefault("RATE_LIMIT", 100)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Host: v.GetString("APP_HOST"),
			Port: v.GetInt("APP_PORT"),
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		Keys: KeyFile{
			ShodanAPIKey:     v.GetString("SHODAN_API_KEY"),
			VirusTotalAPIKey: v.GetString("VIRUSTOTAL_API_KEY"),
			OpenRouterAPIKey: v.GetString("OPENROUTER_API_KEY"),
		},
		Credentials: CredentialConfig{
			Backend:       v.GetString("CREDENTIAL_BACKEND"),
			Path:          v.GetString("CREDENTIAL_FILE"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Database: DatabaseConfig{URL: v.GetString("DATABASE_URL")},
		Providers: ProviderConfig{
			Timeout:         v.GetDuration("PROVIDER_TIMEOUT"),
			FixtureMode:     v.GetBool("FIXTURE_MODE"),
			SocialRate:      v.GetFloat64("SOCIAL_RATE"),
			SocialPlatforms: splitList(v.GetString("SOCIAL_PLATFORMS")),
			CrawlLimit:      v.GetInt("CRAWL_LIMIT"),
		},
		LLM: LLMConfig{
			Endpoint:    v.GetString("OPENROUTER_ENDPOINT"),
			Model:       v.GetString("OPENROUTER_MODEL"),
			Referer:     "https://spyosint.vercel.app",
			Title:       "SpyOSINT Dashboard",
			Temperature: 0.3,
			MaxTokens:   4000,
		},
		HTTP: HTTPConfig{
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
			RateLimit:   v.GetInt("RATE_LIMIT"),
		},
	}
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Addr listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// SetupLogger builds the process logger and installs it as slog default
func SetupLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// LoadKeyFile loads the API key file.
// Lookup order: ./config.json, then ~/.spyosint.json
func LoadKeyFile() (*KeyFile, error) {
	keys := &KeyFile{}

	var candidates []string
	if currentDir, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(currentDir, "config.json"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".spyosint.json"))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, keys); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return keys, nil
	}

	return keys, nil
}

// SaveKeyFile writes the key file (default ./config.json)
func SaveKeyFile(keys *KeyFile, path string) error {
	if path == "" {
		currentDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(currentDir, "config.json")
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeKeys overlays non-empty override values on the file keys
func MergeKeys(file *KeyFile, override KeyFile) KeyFile {
	merged := *file
	if override.ShodanAPIKey != "" {
		merged.ShodanAPIKey = override.ShodanAPIKey
	}
	if override.VirusTotalAPIKey != "" {
		merged.VirusTotalAPIKey = override.VirusTotalAPIKey
	}
	if override.OpenRouterAPIKey != "" {
		merged.OpenRouterAPIKey = override.OpenRouterAPIKey
	}
	return merged
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
