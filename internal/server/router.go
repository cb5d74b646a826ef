package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/compasshq/compass-backend/internal/handlers"
	"github.com/compasshq/compass-backend/internal/middleware"
	"github.com/compasshq/compass-backend/internal/platform/envutil"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Healthcheck *handlers.HealthcheckHandler
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Chat        *handlers.ChatHandler
	Memory      *handlers.MemoryHandler
	Goal        *handlers.GoalHandler
	Interview   *handlers.InterviewHandler
	Material    *handlers.MaterialHandler
}

func NewRouter(h Handlers, authmw *middleware.AuthMiddleware) *gin.Engine {
	if envutil.String("GIN_MODE", "release") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(envutil.String("OTEL_SERVICE_NAME", "compass-backend")))

	corsCfg := cors.DefaultConfig()
	origins := envutil.String("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	corsCfg.AllowOrigins = strings.Split(origins, ",")
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.AllowCredentials = true
	r.Use(cors.New(corsCfg))

	r.GET("/healthcheck", h.Healthcheck.Healthcheck)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", authmw.RequireAuth(), h.Auth.Logout)
	}

	api := r.Group("/api", authmw.RequireAuth())
	{
		api.GET("/user/status", h.User.Status)

		api.POST("/chat/stream", h.Chat.StreamChat)
		api.GET("/chats", h.Chat.ListChats)
		api.POST("/chats", h.Chat.CreateChat)
		api.PUT("/chats/:id", h.Chat.RenameChat)
		api.DELETE("/chats/:id", h.Chat.DeleteChat)
		api.GET("/chats/:id/messages", h.Chat.GetMessages)
		api.POST("/chats/generate-title", h.Chat.GenerateTitle)
		api.POST("/messages", h.Chat.SaveMessage)

		api.GET("/memories", h.Memory.ListMemories)
		api.DELETE("/memories/:id", h.Memory.DeleteMemory)

		api.GET("/goals", h.Goal.ListGoals)
		api.POST("/goals", h.Goal.CreateGoal)
		api.DELETE("/goals/:id", h.Goal.DeleteGoal)
		api.PUT("/goals/:id/status", h.Goal.UpdateStatus)

		api.POST("/initial-call/chat", h.Interview.Chat)
		api.POST("/initial-call/initialize", h.Interview.Initialize)

		api.GET("/materials/books", h.Material.ListBooks)
		api.GET("/materials/videos", h.Material.ListVideos)
		api.GET("/materials/feedback", h.Material.ListFeedback)
		api.POST("/materials/feedback", h.Material.SubmitFeedback)

		api.GET("/books/:id/summaries", h.Material.GetChapterSummaries)
		api.POST("/books/:id/summaries", h.Material.GenerateChapterSummaries)
		api.POST("/books/:id/discuss", h.Material.DiscussChapter)
	}

	return r
}
