package config

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	AI       AIConfig       `yaml:"ai"`
	Local    LocalConfig    `yaml:"local"`
	Evidence EvidenceConfig `yaml:"evidence"`
	News     NewsConfig     `yaml:"news"`
	Cooldown CooldownConfig `yaml:"cooldown"`
	Vault    VaultConfig    `yaml:"vault"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AIConfig controls the cloud cascade.
type AIConfig struct {
	DefaultAPIKey         string   `yaml:"default_api_key"`
	Models                []string `yaml:"models"`
	DiagnosticModel       string   `yaml:"diagnostic_model"`
	CascadeTimeoutSeconds int      `yaml:"cascade_timeout_seconds"`
	CallTimeoutSeconds    int      `yaml:"call_timeout_seconds"`
	AssetBaseURL          string   `yaml:"asset_base_url"`
}

// LocalConfig points at an Ollama-compatible /api/generate endpoint.
type LocalConfig struct {
	Host                 string `yaml:"host"`
	Model                string `yaml:"model"`
	SocialModel          string `yaml:"social_model"`
	ReportTimeoutSeconds int    `yaml:"report_timeout_seconds"`
	PackTimeoutSeconds   int    `yaml:"pack_timeout_seconds"`
}

type EvidenceConfig struct {
	APIKey         string `yaml:"api_key"`
	Endpoint       string `yaml:"endpoint"`
	MaxResults     int    `yaml:"max_results"`
	MaxBlockChars  int    `yaml:"max_block_chars"`
	ImageProxy     string `yaml:"image_proxy"`
	DiscoverImages bool   `yaml:"discover_images"`
}

type NewsConfig struct {
	APIKey              string       `yaml:"api_key"`
	Endpoint            string       `yaml:"endpoint"`
	Language            string       `yaml:"language"`
	Country             string       `yaml:"country"`
	Feeds               []FeedConfig `yaml:"feeds"`
	RefreshMinutes      int          `yaml:"refresh_minutes"`
	SimilarityThreshold float64      `yaml:"similarity_threshold"`
	NGramSize           int          `yaml:"ngram_size"`
	RetentionDays       int          `yaml:"retention_days"`
}

// FeedConfig is an RSS/Atom feed, or a site page whose feed is discovered.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// CooldownConfig selects where recently failed credentials are remembered.
// Backend is "memory", "redis" or "off".
type CooldownConfig struct {
	Backend    string `yaml:"backend"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	RedisURL   string `yaml:"redis_url"`
}

type VaultConfig struct {
	Secret string `yaml:"secret"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 600,
		},
		Database: DatabaseConfig{
			Path: "./onda.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		AI: AIConfig{
			Models: []string{
				"gemini-1.5-pro-latest",
				"gemini-1.5-pro",
				"gemini-pro",
				"gemini-1.5-flash",
				"gemini-2.0-flash-exp",
			},
			DiagnosticModel:       "gemini-2.5-flash",
			CascadeTimeoutSeconds: 180,
			CallTimeoutSeconds:    60,
			AssetBaseURL:          "http://localhost:3000",
		},
		Local: LocalConfig{
			Host:                 "http://localhost:11434",
			Model:                "llama3",
			SocialModel:          "mistral",
			ReportTimeoutSeconds: 90,
			PackTimeoutSeconds:   120,
		},
		Evidence: EvidenceConfig{
			Endpoint:       "https://api.tavily.com/search",
			MaxResults:     10,
			MaxBlockChars:  12000,
			ImageProxy:     "https://images.weserv.nl/",
			DiscoverImages: true,
		},
		News: NewsConfig{
			Endpoint:            "https://newsdata.io/api/1/news",
			Language:            "es",
			Country:             "co",
			RefreshMinutes:      30,
			SimilarityThreshold: 0.6,
			NGramSize:           3,
			RetentionDays:       14,
		},
		Cooldown: CooldownConfig{
			Backend:    "memory",
			TTLSeconds: 120,
		},
	}
}

// Load reads a YAML config file and merges it over defaults, then applies
// environment overrides. If the file does not exist, defaults are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
		slog.Info("No config file found, using defaults", "path", path)
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

// applyEnv overlays secrets and endpoints from the environment. Blank values are ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, name string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&cfg.AI.DefaultAPIKey, "GOOGLE_GENERATIVE_AI_API_KEY")
	set(&cfg.AI.AssetBaseURL, "NEXT_PUBLIC_APP_URL")
	set(&cfg.Evidence.APIKey, "TAVILY_API_KEY")
	set(&cfg.Local.Host, "OLLAMA_HOST")
	set(&cfg.Local.Model, "MODEL_NAME")
	set(&cfg.News.APIKey, "NEWSDATA_API_KEY")
	set(&cfg.Vault.Secret, "ONDA_VAULT_SECRET")
	set(&cfg.Database.Path, "ONDA_DB_PATH")
	if v, ok := lookup("REDIS_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.Cooldown.RedisURL = strings.TrimSpace(v)
		cfg.Cooldown.Backend = "redis"
	}
}
