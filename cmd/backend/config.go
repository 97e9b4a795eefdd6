package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Session    SessionConfig
	Storage    StorageConfig
	Log        LogConfig
	Browser    BrowserConfig
	Automation AutomationConfig
	LLM        LLMConfig
	Intent     IntentConfig
	Auth       AuthConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicURL is the address widgets use to reach this server.
	PublicURL string
	// AllowedOrigin is the dashboard origin allowed by CORS on the
	// operator API.
	AllowedOrigin string
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// SessionConfig holds widget visitor session configuration.
type SessionConfig struct {
	Secret          string
	Duration        time.Duration
	CleanupInterval time.Duration
}

// StorageConfig holds screenshot storage configuration.
type StorageConfig struct {
	Type             string // "local" or "s3"
	BaseDir          string // For local: "./uploads"
	S3Bucket         string
	S3Region         string
	S3PresignExpiry  time.Duration
	ScreenshotMaxAge time.Duration
	SweepInterval    time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// BrowserConfig holds headless browser configuration.
type BrowserConfig struct {
	BinPath              string
	Headless             bool
	MaxSessions          int64
	LaunchAttempts       int
	NavigationTimeout    time.Duration
	DevNavigationTimeout time.Duration
	Settle               time.Duration
	DevSettle            time.Duration
	UserAgent            string
}

// AutomationConfig holds page analysis configuration.
type AutomationConfig struct {
	QuickHosts         []string
	QuickTimeout       time.Duration
	CacheSize          int
	CacheTTL           time.Duration
	ScreenshotWidth    int
	ScreenshotHeight   int
	ScreenshotQuality  int
	ScreenshotFullPage bool
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	Region         string
	Timeout        time.Duration
	Referer        string
	Title          string
	HistoryWindow  int
	VisionMaxWidth int
}

// IntentConfig points at an optional rule table replacing the built-in one.
type IntentConfig struct {
	RulesFile string
}

// AuthConfig holds the operator API key check.
type AuthConfig struct {
	// APIKeyHash is the bcrypt hash of the bootstrap operator key. Generate
	// it with the hash-key command.
	APIKeyHash string
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// LoadConfig loads configuration from a .env file, the config file and
// environment variables, in increasing priority.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	config.Server.PublicURL = strings.TrimRight(v.GetString("server.public_url"), "/")
	config.Server.AllowedOrigin = v.GetString("server.allowed_origin")

	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Session.Secret = v.GetString("session.secret")
	config.Session.Duration = v.GetDuration("session.duration")
	config.Session.CleanupInterval = v.GetDuration("session.cleanup_interval")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")
	config.Storage.ScreenshotMaxAge = v.GetDuration("storage.screenshot_max_age")
	config.Storage.SweepInterval = v.GetDuration("storage.sweep_interval")

	config.Log.Level = v.GetString("log.level")

	config.Browser.BinPath = v.GetString("browser.bin_path")
	config.Browser.Headless = v.GetBool("browser.headless")
	config.Browser.MaxSessions = v.GetInt64("browser.max_sessions")
	config.Browser.LaunchAttempts = v.GetInt("browser.launch_attempts")
	config.Browser.NavigationTimeout = v.GetDuration("browser.navigation_timeout")
	config.Browser.DevNavigationTimeout = v.GetDuration("browser.dev_navigation_timeout")
	config.Browser.Settle = v.GetDuration("browser.settle")
	config.Browser.DevSettle = v.GetDuration("browser.dev_settle")
	config.Browser.UserAgent = v.GetString("browser.user_agent")

	config.Automation.QuickHosts = v.GetStringSlice("automation.quick_hosts")
	config.Automation.QuickTimeout = v.GetDuration("automation.quick_timeout")
	config.Automation.CacheSize = v.GetInt("automation.cache_size")
	config.Automation.CacheTTL = v.GetDuration("automation.cache_ttl")
	config.Automation.ScreenshotWidth = v.GetInt("automation.screenshot_width")
	config.Automation.ScreenshotHeight = v.GetInt("automation.screenshot_height")
	config.Automation.ScreenshotQuality = v.GetInt("automation.screenshot_quality")
	config.Automation.ScreenshotFullPage = v.GetBool("automation.screenshot_full_page")

	config.LLM.Provider = v.GetString("llm.provider")
	config.LLM.APIKey = v.GetString("llm.api_key")
	config.LLM.Model = v.GetString("llm.model")
	config.LLM.BaseURL = v.GetString("llm.base_url")
	config.LLM.Region = v.GetString("llm.region")
	config.LLM.Timeout = v.GetDuration("llm.timeout")
	config.LLM.Referer = v.GetString("llm.referer")
	config.LLM.Title = v.GetString("llm.title")
	config.LLM.HistoryWindow = v.GetInt("llm.history_window")
	config.LLM.VisionMaxWidth = v.GetInt("llm.vision_max_width")

	config.Intent.RulesFile = v.GetString("intent.rules_file")

	config.Auth.APIKeyHash = v.GetString("auth.api_key_hash")

	config.Metrics.Enabled = v.GetBool("metrics.enabled")
	config.Metrics.Namespace = v.GetString("metrics.namespace")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.public_url", "http://localhost:5001")
	v.SetDefault("server.allowed_origin", "http://localhost:3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "pageagent")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("session.secret", "change-this-secret-in-production-min-32-chars")
	v.SetDefault("session.duration", "24h")
	v.SetDefault("session.cleanup_interval", "5m")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./uploads")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")
	v.SetDefault("storage.screenshot_max_age", "24h")
	v.SetDefault("storage.sweep_interval", "1h")

	v.SetDefault("log.level", "info")

	v.SetDefault("browser.bin_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.max_sessions", 4)
	v.SetDefault("browser.launch_attempts", 3)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.dev_navigation_timeout", "60s")
	v.SetDefault("browser.settle", "3s")
	v.SetDefault("browser.dev_settle", "10s")
	v.SetDefault("browser.user_agent", "")

	v.SetDefault("automation.quick_hosts", []string{"localhost:3000"})
	v.SetDefault("automation.quick_timeout", "5s")
	v.SetDefault("automation.cache_size", 64)
	v.SetDefault("automation.cache_ttl", "5m")
	v.SetDefault("automation.screenshot_width", 1200)
	v.SetDefault("automation.screenshot_height", 800)
	v.SetDefault("automation.screenshot_quality", 80)
	v.SetDefault("automation.screenshot_full_page", true)

	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.region", "us-east-1")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.referer", "http://localhost:3000")
	v.SetDefault("llm.title", "")
	v.SetDefault("llm.history_window", 8)
	v.SetDefault("llm.vision_max_width", 1024)

	v.SetDefault("intent.rules_file", "")

	v.SetDefault("auth.api_key_hash", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "pageagent")
}
