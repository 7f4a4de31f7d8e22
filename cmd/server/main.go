package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/studypipe/studypipe/internal/api"
	"github.com/studypipe/studypipe/internal/config"
	"github.com/studypipe/studypipe/internal/db"
	"github.com/studypipe/studypipe/internal/middleware"
	"github.com/studypipe/studypipe/internal/services"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	consentStore, surveyStore, closeStore, err := openStores(cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	consents := services.NewConsentService(consentStore)
	surveys := services.NewSurveyService(surveyStore)

	mux := http.NewServeMux()
	api.NewRouter(consents, surveys, logger).Register(mux)
	if cfg.StaticDir != "" {
		mux.Handle("/", api.SPAHandler(cfg.StaticDir))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	var handler http.Handler = mux
	handler = middleware.MaxBody(cfg.MaxBodyBytes, handler)
	handler = limiter.Wrap(handler)
	handler = middleware.CORS(cfg.CORSOrigins, handler)
	handler = middleware.NoStoreAPI(handler)
	handler = middleware.SecureHeaders(handler)
	handler = middleware.RequestLog(logger, handler)

	logger.Info("server listening", zap.String("addr", cfg.Addr), zap.String("driver", cfg.DBDriver))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func openStores(cfg config.Config) (services.ConsentStore, services.SurveyStore, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		store := db.NewMemoryStore()
		return store, store, func() {}, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(cfg.SQLitePath))
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.RunMigrations(sqlDB, cfg.MigrationsDir); err != nil {
			_ = sqlDB.Close()
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		store, err := db.NewSQLiteStore(sqlDB)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, store, func() { _ = sqlDB.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
