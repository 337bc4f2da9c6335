package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/data/db"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	apphttp "github.com/yungbote/finsights-backend/internal/http"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/artifacts"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
	"github.com/yungbote/finsights-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      *config.Config
	Clock    *types.Clock
	Metrics  *observability.Metrics
	Repos    Repos
	Services Services

	events       bus.Bus
	artifacts    artifacts.Store
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Env, cfg.Otel)
	metrics := observability.Init(log)

	clock, err := wireClock(cfg.Clock)
	if err != nil {
		log.Sync()
		return nil, err
	}

	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open db: %w", err)
	}

	events, err := bus.New(cfg.Redis, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init status bus: %w", err)
	}
	artifactStore, err := artifacts.New(ctx, cfg.Artifacts, log)
	if err != nil {
		_ = events.Close()
		log.Sync()
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, clock, metrics, reposet, events, artifactStore)
	handlerset := wireHandlers(theDB, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clock:        clock,
		Metrics:      metrics,
		Repos:        reposet,
		Services:     serviceset,
		events:       events,
		artifacts:    artifactStore,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return errors.New("app not initialized")
	}
	a.Metrics.StartDocumentStatusCollector(ctx, a.Log, a.DB)
	if err := a.startStatusForwarder(ctx); err != nil {
		a.Log.Warn("status bus subscribe failed; gauge falls back to periodic refresh", "error", err)
	}

	srv := apphttp.NewServer(a.Router, a.Cfg.HTTP)
	a.Log.Info("http server listening", "addr", srv.Addr())
	return srv.Run(ctx, a.Cfg.HTTP.ShutdownTimeout.Duration)
}

// startStatusForwarder follows transitions committed by every replica so the
// per-status gauge moves between collector refreshes.
func (a *App) startStatusForwarder(ctx context.Context) error {
	if a.Metrics == nil || a.events == nil {
		return nil
	}
	return a.events.StartForwarder(ctx, func(ev bus.StatusEvent) {
		a.Metrics.ObserveStatusEvent(string(ev.From), string(ev.To))
		a.Log.Debug("status event", "transcript_uuid", ev.TranscriptUUID, "from", ev.From, "to", ev.To, "kind", ev.Kind)
	})
}

// Close releases everything New opened. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.Log.Warn("status bus close failed", "error", err)
		}
		a.events = nil
	}
	if a.artifacts != nil {
		if err := a.artifacts.Close(); err != nil {
			a.Log.Warn("artifact store close failed", "error", err)
		}
		a.artifacts = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		a.DB = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
