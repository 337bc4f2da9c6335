package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/data/aggregates"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/artifacts"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
	"github.com/yungbote/finsights-backend/internal/realtime/bus"
	"github.com/yungbote/finsights-backend/internal/services"
)

type Services struct {
	Store     types.Store
	Documents services.DocumentService
	Retention services.RetentionService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg *config.Config,
	clock *types.Clock,
	metrics *observability.Metrics,
	reposet Repos,
	events bus.Bus,
	artifactStore artifacts.Store,
) Services {
	log.Info("Wiring services...")

	store := aggregates.NewDocumentStore(aggregates.DocumentStoreDeps{
		Base: aggregates.BaseDeps{
			DB:          db,
			Log:         log,
			Hooks:       aggregates.NewObservabilityHooks(metrics),
			LockTimeout: cfg.DB.LockTimeout.Duration,
		},
		Documents:   reposet.Documents,
		Transitions: reposet.Transitions,
		Clock:       clock,
	})

	return Services{
		Store: store,
		Documents: services.NewDocumentService(services.DocumentServiceDeps{
			Store:   store,
			Events:  events,
			Metrics: metrics,
			Log:     log,
		}),
		Retention: services.NewRetentionService(services.RetentionServiceDeps{
			Store:       store,
			Artifacts:   artifactStore,
			Clock:       clock,
			Log:         log,
			BatchSize:   cfg.Retention.BatchSize,
			Concurrency: cfg.Retention.Concurrency,
		}),
	}
}
