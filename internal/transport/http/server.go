package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/ai"
	appsvc "pdfchat/internal/app"
	"pdfchat/internal/bootstrap"
	"pdfchat/internal/cache"
	"pdfchat/internal/prompt"
	rabbitmqClient "pdfchat/internal/platform/rabbitmq"
	"pdfchat/internal/repository"
	"pdfchat/internal/transport/http/handler"
	"pdfchat/internal/transport/http/middleware"
	"pdfchat/internal/vectorstore"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	turnRepo := repository.NewTurnRepository(app.MySQL)

	aiClient := ai.NewClient(ai.Config{
		BaseURL:        app.Config.LLM.BaseURL,
		APIKey:         app.Config.LLM.APIKey,
		Model:          app.Config.LLM.Model,
		EmbeddingModel: app.Config.LLM.EmbeddingModel,
	})
	index := vectorstore.NewQdrantIndex(app.Qdrant, app.Config.Qdrant.Collection, app.Config.Qdrant.VectorSize)
	publisher := rabbitmqClient.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	builder := prompt.NewBuilder(app.Config.LLM.MaxContextTokens, app.Config.LLM.MaxHistoryTurns)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	docService := appsvc.NewDocumentService(
		docRepo,
		chunkRepo,
		aiClient,
		index,
		app.Config.Upload.Dir,
		app.Config.MaxFileSizeBytes(),
		app.Config.RAG.ChunkSize,
		app.Config.RAG.ChunkOverlap,
	)
	chatService := appsvc.NewChatService(
		turnRepo,
		publisher,
		historyCache,
		aiClient,
		index,
		aiClient,
		builder,
		app.Config.RAG.TopK,
		app.Config.LLM.MaxHistoryTurns,
	)

	authHandler := handler.NewAuthHandler(authService)
	docHandler := handler.NewDocumentHandler(docService, chatService)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	secured := v1.Group("")
	secured.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	secured.POST("/documents", docHandler.Upload)
	secured.GET("/documents", docHandler.List)
	secured.DELETE("/documents/:file_id", docHandler.Delete)
	secured.DELETE("/data", docHandler.ClearData)

	secured.POST("/chat", chatHandler.Ask)
	secured.POST("/chat/stream", chatHandler.StreamAsk)
	secured.GET("/chat/history", chatHandler.GetHistory)
	secured.DELETE("/chat/history", chatHandler.ClearHistory)

	return router
}
