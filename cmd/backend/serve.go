package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/apitoken"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/chat"
	"github.com/hairizuanbinnoorazman/pageagent/cmd/backend/handlers"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/database"
	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/intent"
	"github.com/hairizuanbinnoorazman/pageagent/llm"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
	"github.com/hairizuanbinnoorazman/pageagent/session"
	"github.com/hairizuanbinnoorazman/pageagent/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func databaseConfig(cfg *Config) database.Config {
	return database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
}

// engine holds the page analysis and chat services shared by serve and mcp.
type engine struct {
	automation *automation.Service
	chat       *chat.Service
	sweeper    *storage.Sweeper
}

// buildEngine wires the browser, automation, intent and chat layers. db may
// be nil, in which case the chat service is not built.
func buildEngine(cfg *Config, db *gorm.DB, m *metrics.Metrics, log logger.Logger) (*engine, error) {
	store, err := storage.New(storage.Config{
		Type:          cfg.Storage.Type,
		BaseDir:       cfg.Storage.BaseDir,
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	browserCfg := browser.DefaultConfig()
	browserCfg.BinPath = cfg.Browser.BinPath
	browserCfg.Headless = cfg.Browser.Headless
	browserCfg.MaxSessions = cfg.Browser.MaxSessions
	browserCfg.LaunchAttempts = cfg.Browser.LaunchAttempts
	browserCfg.NavigationTimeout = cfg.Browser.NavigationTimeout
	browserCfg.DevNavigationTimeout = cfg.Browser.DevNavigationTimeout
	browserCfg.Settle = cfg.Browser.Settle
	browserCfg.DevSettle = cfg.Browser.DevSettle
	if cfg.Browser.UserAgent != "" {
		browserCfg.UserAgent = cfg.Browser.UserAgent
	}
	bm := browser.NewManager(browserCfg, nil, m, log)

	automationCfg := automation.DefaultConfig()
	automationCfg.QuickHosts = cfg.Automation.QuickHosts
	automationCfg.QuickTimeout = cfg.Automation.QuickTimeout
	automationCfg.CacheSize = cfg.Automation.CacheSize
	automationCfg.CacheTTL = cfg.Automation.CacheTTL
	automationCfg.Screenshot = automation.ScreenshotOptions{
		Width:    cfg.Automation.ScreenshotWidth,
		Height:   cfg.Automation.ScreenshotHeight,
		FullPage: cfg.Automation.ScreenshotFullPage,
		Quality:  cfg.Automation.ScreenshotQuality,
	}

	automationService, err := automation.New(
		automationCfg,
		bm,
		resolver.New(resolver.Config{}, m, log),
		executor.New(executor.DefaultConfig(), m, log),
		store,
		m,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize automation: %w", err)
	}

	e := &engine{
		automation: automationService,
		sweeper:    automationService.ScreenshotSweeper(cfg.Storage.ScreenshotMaxAge),
	}
	if db == nil {
		return e, nil
	}

	rules, err := loadIntentRules(cfg.Intent.RulesFile)
	if err != nil {
		return nil, err
	}
	detector, err := intent.NewDetector(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent detector: %w", err)
	}
	intents := intent.NewEngine(detector, automationService, m, log)

	completer, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Region:   cfg.LLM.Region,
		Timeout:  cfg.LLM.Timeout,
		Referer:  cfg.LLM.Referer,
		Title:    cfg.LLM.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	}

	e.chat = chat.New(
		chat.Config{
			HistoryWindow:  cfg.LLM.HistoryWindow,
			VisionMaxWidth: cfg.LLM.VisionMaxWidth,
			Referer:        cfg.LLM.Referer,
		},
		agent.NewMySQLStore(db, log),
		conversation.NewMySQLStore(db, log),
		completer,
		automationService,
		intents,
		m,
		log,
	)
	return e, nil
}

func loadIntentRules(path string) (*intent.Rules, error) {
	if path == "" {
		return intent.DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent rules: %w", err)
	}
	rules, err := intent.LoadRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load intent rules from %s: %w", path, err)
	}
	return rules, nil
}

// newMetrics registers the collectors on a fresh registry. Both results are
// nil when metrics are disabled.
func newMetrics(cfg *Config) (*metrics.Metrics, http.Handler, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(cfg.Metrics.Namespace, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// sessionSecret falls back to a random key, which invalidates visitor tokens
// on restart.
func sessionSecret(configured string) string {
	if configured != "" {
		return configured
	}
	return hex.EncodeToString(securecookie.GenerateRandomKey(32))
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, err := database.Connect(databaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	m, metricsHandler, err := newMetrics(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(cfg, db, m, log)
	if err != nil {
		return err
	}

	if path, ok := browser.LookPath(); ok {
		log.Info(ctx, "browser binary found", map[string]interface{}{"path": path})
	} else if cfg.Browser.BinPath == "" {
		log.Warn(ctx, "no browser binary found, rod will download one on first launch", nil)
	}

	// Initialize stores
	agentStore := agent.NewMySQLStore(db, log)
	conversationStore := conversation.NewMySQLStore(db, log)
	tokenStore := apitoken.NewMySQLStore(db, log)

	// Initialize session manager
	if cfg.Session.Secret == "" {
		log.Warn(ctx, "session secret not set, visitor sessions will not survive a restart", nil)
	}
	sessionManager := session.NewManager(cfg.Session.Duration, sessionSecret(cfg.Session.Secret), log)
	sessionManager.StartCleanup(cfg.Session.CleanupInterval)
	defer sessionManager.StopCleanup()

	e.sweeper.StartCleanup(cfg.Storage.SweepInterval)
	defer e.sweeper.StopCleanup()

	if cfg.Auth.APIKeyHash == "" {
		log.Warn(ctx, "no operator api key configured, only operator tokens are accepted", nil)
	}

	handler := newRouter(routeDeps{
		Analysis:       handlers.NewAnalysisHandler(e.automation, e.chat, log),
		Agents:         handlers.NewAgentHandler(agentStore, conversationStore, e.automation, cfg.Server.PublicURL, log),
		Widget:         handlers.NewWidgetHandler(e.chat, sessionManager, log),
		Tokens:         handlers.NewAPITokenHandler(tokenStore, log),
		TokenStore:     tokenStore,
		APIKeyHash:     cfg.Auth.APIKeyHash,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		MetricsHandler: metricsHandler,
		Version:        Version,
		Logger:         log,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address":    addr,
			"public_url": cfg.Server.PublicURL,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
