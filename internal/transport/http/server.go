package http

import (
	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/bootstrap"
	"spacebio-rag/internal/transport/http/handler"
	"spacebio-rag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.AuthService)
	ragHandler := handler.NewRAGHandler(app.RAGService)
	libraryHandler := handler.NewLibraryHandler(app.LibraryService)
	indexHandler := handler.NewIndexHandler(app.IndexService)
	requireAuth := middleware.AuthJWT(app.AuthService)

	router.GET("/", healthHandler.Root)
	router.GET("/ping", healthHandler.Ping)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/stats", requireAuth, libraryHandler.Stats)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	api := v1.Group("")
	api.Use(requireAuth)
	api.GET("/search", ragHandler.Search)
	api.POST("/ask", ragHandler.Ask)
	api.POST("/ask-simple", ragHandler.AskSimple)
	api.POST("/context", ragHandler.Context)
	api.POST("/mindmap", ragHandler.MindMap)
	api.POST("/story", ragHandler.Story)
	api.POST("/storytelling", ragHandler.Story)
	api.GET("/library", libraryHandler.List)
	api.GET("/stats", libraryHandler.Stats)

	api.POST("/index/reload", indexHandler.Reload)
	api.GET("/ingest/runs", indexHandler.ListRuns)
	api.POST("/ingest/runs", indexHandler.CreateRun)

	return router
}
