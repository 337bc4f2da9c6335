package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/http"
	httpH "github.com/yungbote/finsights-backend/internal/http/handlers"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
}

func wireHandlers(db *gorm.DB, services Services) Handlers {
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(pinger),
		Document: httpH.NewDocumentHandler(services.Documents),
	}
}

func wireRouter(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	log.Info("Wiring router...")
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		Metrics:         metrics,
		HealthHandler:   handlers.Health,
		DocumentHandler: handlers.Document,
	})
}
