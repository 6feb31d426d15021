package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"aimy-copilot/internal/ai"
	"aimy-copilot/internal/bootstrap"
	"aimy-copilot/internal/cache"
	"aimy-copilot/internal/client"
	"aimy-copilot/internal/copilot"
	"aimy-copilot/internal/ingest"
	"aimy-copilot/internal/platform/rabbitmq"
	"aimy-copilot/internal/rag"
	"aimy-copilot/internal/repository"
	"aimy-copilot/internal/safety"
	"aimy-copilot/internal/transport/http/handler"
	"aimy-copilot/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	ingestSvc := ingest.NewService(docRepo, app.Index, app.Log)

	guard := safety.NewGuard(safety.DefaultRuleSet(app.Config.Safety.MaxMessageLength))
	classifier := copilot.NewClassifier(app.LLM, app.Log)

	providerCfg := client.Config{
		BaseURL: app.Config.Providers.BaseURL,
		APIKey:  app.Config.Providers.APIKey,
		Timeout: time.Duration(app.Config.Providers.TimeoutSeconds) * time.Second,
	}
	aicore := ai.NewAICoreClient(ai.AICoreConfig{
		BaseURL: app.Config.AICore.BaseURL,
		APIKey:  app.Config.AICore.APIKey,
		Timeout: time.Duration(app.Config.AICore.TimeoutSeconds) * time.Second,
	})
	gatherer := copilot.NewContextGatherer(
		client.NewPortfolioClient(providerCfg),
		client.NewAssetClient(providerCfg),
		client.NewInsightsClient(aicore, app.Log),
		time.Duration(app.Config.Copilot.GatherTimeoutSeconds)*time.Second,
		app.Log,
	)

	retriever := rag.NewHybridRetriever(app.Index, docRepo, rag.DefaultConfig(), app.Log)
	auditPublisher := rabbitmq.NewAuditPublisher(app.MQConn, app.Config.RabbitMQ.AuditPersistQueue)
	orchestrator := copilot.NewOrchestrator(
		guard, classifier, gatherer, retriever, app.LLM, auditPublisher, app.Log)

	copilotHandler := handler.NewCopilotHandler(orchestrator)
	documentHandler := handler.NewDocumentHandler(ingestSvc)

	rateLimiter := cache.NewRateLimiter(app.Redis, app.Config.Copilot.RateLimitPerMinute, time.Minute)

	v1 := router.Group("/api/v1")
	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	chatGroup := authed.Group("/copilot")
	chatGroup.POST("/chat", middleware.RateLimit(rateLimiter, app.Log), copilotHandler.Chat)

	docGroup := authed.Group("/documents")
	docGroup.POST("", documentHandler.Create)
	docGroup.POST("/upload", documentHandler.UploadPDF)
	docGroup.GET("", documentHandler.List)
	docGroup.GET("/:id", documentHandler.Get)
	docGroup.PUT("/:id", documentHandler.Update)
	docGroup.DELETE("/:id", documentHandler.Delete)

	return router
}
