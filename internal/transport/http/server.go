package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"barplexity/internal/ai"
	appsvc "barplexity/internal/app"
	"barplexity/internal/auth"
	"barplexity/internal/bootstrap"
	"barplexity/internal/cache"
	"barplexity/internal/repository"
	"barplexity/internal/transport/http/handler"
	"barplexity/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	chatRepo := repository.NewChatRepository(app.MySQL)

	authSessions := auth.NewSessionStore(
		app.Redis,
		time.Duration(app.Config.Auth.SessionTTLMinute)*time.Minute,
	)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	geminiClient := ai.NewGeminiClient(ai.GeminiConfig{
		BaseURL:    app.Config.LLM.BaseURL,
		APIKey:     app.Config.LLM.APIKey,
		Model:      app.Config.LLM.Model,
		MaxRetries: app.Config.LLM.MaxRetries,
		Timeout:    time.Duration(app.Config.LLM.TimeoutSeconds) * time.Second,
	})

	authService := appsvc.NewAuthService(
		userRepo,
		authSessions,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
		app.Log,
	)
	chatService := appsvc.NewChatService(sessionRepo, chatRepo, geminiClient, historyCache, app.Log)
	adminService := appsvc.NewAdminService(userRepo, authSessions, app.Log)

	authHandler := handler.NewAuthHandler(
		authService,
		app.Config.Auth.JWTExpireMinute*60,
		app.Config.Auth.CookieSecure,
	)
	chatHandler := handler.NewChatHandler(chatService)
	adminHandler := handler.NewAdminHandler(adminService)

	requireAuth := middleware.RequireAuth(app.Config.Auth.JWTSecret, authSessions)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", requireAuth, authHandler.Logout)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(requireAuth)
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/history", chatHandler.GetHistory)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(requireAuth, middleware.RequireAdmin())
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.POST("/users/:id/block", adminHandler.BlockUser)
	adminGroup.POST("/users/:id/ban", adminHandler.BanUser)
	adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)

	return router
}
