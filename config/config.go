package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kova98/redditlookup/enums"
)

const (
	EnvDevelopment = "DEV"
	EnvProduction  = "PROD"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

type AppConfig struct {
	PostgresURL        string
	DBDriver           string // "postgres" or "sqlite"
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string
	RedditBaseURL      string
	ProxyURL           string
	KeywordsFile       string
	SubredditsFile     string
	SearchTimeFilter   string
	MatchMode          enums.MatchMode
	InsertMode         enums.InsertMode
	RequestDelay       time.Duration
	MetricsAddr        string
	AppEnv             string // EnvDevelopment or EnvProduction
	LogLevel           slog.Level
	LogFormat          string
}

var Config AppConfig

func LoadConfig() {
	cfg := AppConfig{}

	cfg.AppEnv = os.Getenv("APP_ENV")
	cfg.PostgresURL = loadRequired("POSTGRES_URL")
	cfg.DBDriver = loadOptional("DB_DRIVER", "postgres")
	cfg.RedditClientID = os.Getenv("REDDIT_CLIENT_ID")
	cfg.RedditClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	cfg.RedditUsername = os.Getenv("REDDIT_USERNAME")
	cfg.RedditPassword = os.Getenv("REDDIT_PASSWORD")
	cfg.RedditUserAgent = loadOptional("REDDIT_USER_AGENT", "redditlookup/0.1")
	cfg.RedditBaseURL = os.Getenv("REDDIT_BASE_URL")
	cfg.ProxyURL = os.Getenv("PROXY_URL")
	cfg.KeywordsFile = loadOptional("KEYWORDS_FILE", "config/keywords.yml")
	cfg.SubredditsFile = loadOptional("SUBREDDITS_FILE", "config/subreddits.yml")
	cfg.SearchTimeFilter = loadOptional("SEARCH_TIME_FILTER", "year")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.LogFormat = loadOptional("LOG_FORMAT", LogFormatJSON)

	cfg.MatchMode = enums.ParseMatchMode(loadOptional("MATCH_MODE", string(enums.MatchModeBroad)))
	if cfg.MatchMode == enums.MatchModeInvalid {
		slog.Error("Invalid MATCH_MODE, using broad", "value", os.Getenv("MATCH_MODE"))
		cfg.MatchMode = enums.MatchModeBroad
	}

	cfg.InsertMode = enums.ParseInsertMode(loadOptional("INSERT_MODE", string(enums.InsertModeRow)))
	if cfg.InsertMode == enums.InsertModeInvalid {
		slog.Error("Invalid INSERT_MODE, using row", "value", os.Getenv("INSERT_MODE"))
		cfg.InsertMode = enums.InsertModeRow
	}

	delayMs, err := strconv.Atoi(loadOptional("REQUEST_DELAY_MS", "1000"))
	if err != nil || delayMs < 0 {
		slog.Error("Invalid REQUEST_DELAY_MS", "error", err)
		delayMs = 1000
	}
	cfg.RequestDelay = time.Duration(delayMs) * time.Millisecond

	lvlString := loadOptional("LOG_LEVEL", "INFO")
	cfg.LogLevel, err = parseLogLevel(lvlString)
	if err != nil {
		slog.Error("Invalid LOG_LEVEL", "error", err)
		cfg.LogLevel = slog.LevelInfo
	}

	Config = cfg
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	var err = level.UnmarshalText([]byte(s))
	return level, err
}

func loadRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("Required env var not set", "key", key)
		os.Exit(1)
	}
	return value
}

func loadOptional(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (c AppConfig) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

type keywordsFile struct {
	Keywords []string `yaml:"keywords"`
}

type subredditsFile struct {
	Subreddits []string `yaml:"subreddits"`
}

// LoadKeywords reads the search keywords from a YAML file with a top level
// "keywords" list.
func LoadKeywords(path string) ([]string, error) {
	var f keywordsFile
	if err := loadYAML(path, &f); err != nil {
		return nil, err
	}
	return f.Keywords, nil
}

// LoadSubreddits reads subreddit names from a YAML file with a top level
// "subreddits" list.
func LoadSubreddits(path string) ([]string, error) {
	var f subredditsFile
	if err := loadYAML(path, &f); err != nil {
		return nil, err
	}
	return f.Subreddits, nil
}

func loadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
