package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "SHIELD_CONFIG"
	logLevelEnv       = "SHIELD_LOG_LEVEL"
	concurrencyEnv    = "SHIELD_CONCURRENCY"
	storeDriverEnv    = "SHIELD_STORE"
	redisAddrEnv      = "REDIS_ADDR"
	badgerPathEnv     = "SHIELD_BADGER_PATH"
	sqlitePathEnv     = "SHIELD_SQLITE_PATH"
	reportDirEnv      = "SHIELD_REPORT_DIR"
	serverAddrEnv     = "SHIELD_ADDR"
	analysisKeyEnv    = "GEMINI_KEY"
	analysisModelEnv  = "SHIELD_MODEL"
	analysisURLEnv    = "SHIELD_ANALYSIS_ENDPOINT"
	searchKeyEnv      = "API_KEY"
	searchEngineIDEnv = "SEARCH_ENGINE_ID"
)

// Store drivers.
const (
	StoreHybrid = "hybrid"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Config holds every setting the pipeline and its collaborators need.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Domains   DomainConfig    `yaml:"domains"`
	Clickbait ClickbaitConfig `yaml:"clickbait"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Search    SearchConfig    `yaml:"search"`
	Trends    TrendsConfig    `yaml:"trends"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Store     StoreConfig     `yaml:"store"`
	Report    ReportConfig    `yaml:"report"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DomainConfig lists hosts per credibility bucket.
type DomainConfig struct {
	Trusted  []string `yaml:"trusted"`
	Denied   []string `yaml:"denied"`
	Platform []string `yaml:"platform"`
}

type ClickbaitConfig struct {
	Triggers []string `yaml:"triggers"`
}

// AnalysisConfig describes the external text-analysis service.
type AnalysisConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Enabled reports whether enough is configured to call the service.
func (a AnalysisConfig) Enabled() bool {
	return a.APIKey != "" && a.Endpoint != "" && a.Model != ""
}

type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	EngineID string `yaml:"engineId"`
}

type TrendsConfig struct {
	FeedURL  string   `yaml:"feedUrl"`
	Fallback []string `yaml:"fallback"`
}

type PipelineConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	RedisAddr  string `yaml:"redisAddr"`
	BadgerPath string `yaml:"badgerPath"`
	SQLitePath string `yaml:"sqlitePath"`
}

type ReportConfig struct {
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env (if present), then the YAML file at path (or $SHIELD_CONFIG),
// then applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline concurrency must be positive, got %d", c.Pipeline.Concurrency)
	}
	switch c.Store.Driver {
	case StoreHybrid:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the %s store", StoreHybrid)
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the %s store", StoreSQLite)
		}
	case StoreNone:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Log.Level, logLevelEnv)
	setString(&c.Store.Driver, storeDriverEnv)
	setString(&c.Store.RedisAddr, redisAddrEnv)
	setString(&c.Store.BadgerPath, badgerPathEnv)
	setString(&c.Store.SQLitePath, sqlitePathEnv)
	setString(&c.Report.Dir, reportDirEnv)
	setString(&c.Server.Addr, serverAddrEnv)
	setString(&c.Analysis.APIKey, analysisKeyEnv)
	setString(&c.Analysis.Model, analysisModelEnv)
	setString(&c.Analysis.Endpoint, analysisURLEnv)
	setString(&c.Search.APIKey, searchKeyEnv)
	setString(&c.Search.EngineID, searchEngineIDEnv)

	if v := os.Getenv(concurrencyEnv); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Pipeline.Concurrency = n
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Domains: DomainConfig{
			Trusted: []string{
				"bbc.com", "reuters.com", "pravda.com.ua", "nv.ua",
				"liga.net", "suspilne.media", "radiosvoboda.org", "bank.gov.ua", "minfin.com.ua",
			},
			Denied: []string{
				"ria.ru", "tass.ru", "rt.com", "bankofkazan.ru", "sberbank.ru",
				"nationalbank.kz", "primbank.ru", "cbr.ru",
			},
			Platform: []string{
				"facebook.com", "twitter.com", "t.me", "youtube.com",
				"blogspot.com", "livejournal.com", "teletype.in",
			},
		},
		Clickbait: ClickbaitConfig{
			Triggers: []string{
				"шок", "сенсация", "скандал", "узнай", "вы не поверите",
				"раскрыты", "секрет", "только у нас", "подробности",
			},
		},
		Analysis: AnalysisConfig{
			Endpoint:     "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions",
			Model:        "gemini-2.5-flash",
			SystemPrompt: "You are a media literacy analyst who detects manipulation in news texts.",
			Timeout:      60 * time.Second,
		},
		Search: SearchConfig{
			Endpoint: "https://www.googleapis.com/customsearch/v1",
		},
		Trends: TrendsConfig{
			FeedURL:  "https://news.google.com/rss?hl=ru&gl=UA&ceid=UA:ru",
			Fallback: []string{"Война в Украине", "Курс доллара", "Ситуация на фронте"},
		},
		Pipeline: PipelineConfig{Concurrency: 3},
		Store: StoreConfig{
			Driver:     StoreHybrid,
			RedisAddr:  "localhost:6379",
			BadgerPath: "./badger-data",
			SQLitePath: "./data.db",
		},
		Report: ReportConfig{Dir: "."},
		Server: ServerConfig{Addr: ":8080"},
	}
}
