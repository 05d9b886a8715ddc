package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ghostbuild/internal/build"
	"ghostbuild/internal/logging"
)

// DefaultPath is read when GHOSTBUILD_CONFIG is unset
const DefaultPath = "ghostbuild.yaml"

// envPaths are searched in order for a .env file
var envPaths = []string{".env", "../.env", "../../.env"}

// Config holds all application configuration.
type Config struct {
	Engine build.Config `yaml:"engine"`

	Defaults struct {
		Mode   string `yaml:"mode"`
		Tier   string `yaml:"tier"`
		Window string `yaml:"window"`
		Lang   string `yaml:"lang"`
	} `yaml:"defaults"`

	Storage struct {
		DSN         string `yaml:"dsn"`
		AuthToken   string `yaml:"auth_token"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"storage"`

	Stats struct {
		ManifestURL string `yaml:"manifest_url"`
		SyncCron    string `yaml:"sync_cron"`
	} `yaml:"stats"`

	ItemMap struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"itemmap"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Batch struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"batch"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	Log logging.Config `yaml:"log"`
}

// LoadEnvFile loads the first .env found on the search list and returns its
// path, or "" when there is none. Existing variables are not overwritten.
func LoadEnvFile() string {
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GHOSTBUILD_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.PostgresURL = v
	}
	if v := os.Getenv("TURSO_DATABASE_URL"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("TURSO_AUTH_TOKEN"); v != "" {
		c.Storage.AuthToken = v
	}
	if v := os.Getenv("STATS_MANIFEST_URL"); v != "" {
		c.Stats.ManifestURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("GHOSTBUILD_TOPK"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GHOSTBUILD_TOPK %q: %w", v, err)
		}
		c.Engine.TopK = k
	}
	if v := os.Getenv("GHOSTBUILD_COVER"); v != "" {
		cover, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid GHOSTBUILD_COVER %q: %w", v, err)
		}
		c.Engine.Cover = cover
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Engine.TopK == 0 {
		c.Engine.TopK = build.DefaultTopK
	}
	if c.Engine.Cover == 0 {
		c.Engine.Cover = build.DefaultCover
	}
	if c.Engine.Boots == "" {
		c.Engine.Boots = build.DefaultBoots
	}
	if c.Defaults.Mode == "" {
		c.Defaults.Mode = "aram"
	}
	if c.Defaults.Tier == "" {
		c.Defaults.Tier = "d2_plus"
	}
	if c.Defaults.Window == "" {
		c.Defaults.Window = "7d"
	}
	if c.Defaults.Lang == "" {
		c.Defaults.Lang = "zh_TW"
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = "data/ghostbuild.db"
	}
	if c.Stats.SyncCron == "" {
		c.Stats.SyncCron = "0 0 6 * * *"
	}
	if c.ItemMap.BaseURL == "" {
		c.ItemMap.BaseURL = "https://ddragon.leagueoflegends.com"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 4
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "data/processed"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks value ranges and that the sync schedule parses.
func (c *Config) Validate() error {
	if c.Engine.TopK < 1 {
		return fmt.Errorf("engine.top_k must be at least 1, got %d", c.Engine.TopK)
	}
	if c.Engine.Cover <= 0 || c.Engine.Cover > 1 {
		return fmt.Errorf("engine.cover must be in (0, 1], got %v", c.Engine.Cover)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if _, err := CronParser.Parse(c.Stats.SyncCron); err != nil {
		return fmt.Errorf("stats.sync_cron %q: %w", c.Stats.SyncCron, err)
	}
	return nil
}

// CronParser accepts six-field specs with a leading seconds field
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
