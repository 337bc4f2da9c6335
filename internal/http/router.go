package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/finsights-backend/internal/http/handlers"
	httpMW "github.com/yungbote/finsights-backend/internal/http/middleware"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	// MaxRequestBytes bounds request bodies; zero disables the limit.
	MaxRequestBytes int64
	Metrics         *observability.Metrics

	DocumentHandler *httpH.DocumentHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.MaxRequestBytes > 0 {
		r.Use(httpMW.LimitBody(cfg.MaxRequestBytes))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Documents
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.CreateDocument)
			api.GET("/documents", cfg.DocumentHandler.ListDocuments)
			api.GET("/documents/stats", cfg.DocumentHandler.Stats)
			api.GET("/documents/by-hash/:sha256", cfg.DocumentHandler.FindByHash)
			api.GET("/documents/:uuid", cfg.DocumentHandler.GetDocument)
			api.GET("/documents/:uuid/history", cfg.DocumentHandler.History)
			api.POST("/documents/:uuid/transition", cfg.DocumentHandler.Transition)
			api.POST("/documents/:uuid/insights", cfg.DocumentHandler.RecordInsights)
		}
	}

	return r
}
