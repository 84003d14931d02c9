package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/domain/auth"
	"github.com/FACorreiaa/fogline/internal/app/domain/chat"
	"github.com/FACorreiaa/fogline/internal/app/domain/claims"
	"github.com/FACorreiaa/fogline/internal/app/domain/connections"
	"github.com/FACorreiaa/fogline/internal/app/domain/supplypaths"
	"github.com/FACorreiaa/fogline/internal/app/domain/visibility"
	"github.com/FACorreiaa/fogline/internal/app/middleware"
	"github.com/FACorreiaa/fogline/internal/pkg/config"
	"github.com/FACorreiaa/fogline/internal/server"
)

// defaultBlockedPhrases seeds the chat moderator. Replaceable per deployment
// once moderation lists move to configuration.
var defaultBlockedPhrases = []string{
	"free crypto",
	"seed phrase",
	"wire transfer",
}

// SetupRouter wires repositories, services and handlers onto the gin engine.
// It also returns the decay worker so main can run it on its own schedule.
func SetupRouter(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*gin.Engine, *supplypaths.DecayWorker) {
	authRepo := auth.NewRepositoryImpl(pool, logger)
	claimRepo := claims.NewRepositoryImpl(pool, logger)
	connRepo := connections.NewRepositoryImpl(pool, logger)
	pathRepo := supplypaths.NewRepositoryImpl(pool, logger)
	visRepo := visibility.NewRepositoryImpl(pool, logger)
	chatRepo := chat.NewRepositoryImpl(pool, logger)

	hub := chat.NewHub(logger)
	moderator := chat.NewModerator(defaultBlockedPhrases)

	authService := auth.NewService(authRepo, cfg.Auth, logger)
	claimService := claims.NewService(claimRepo, logger)
	connService := connections.NewService(connRepo, logger)
	pathService := supplypaths.NewService(pathRepo, claimRepo, connRepo, logger)
	visService := visibility.NewService(visRepo, claimRepo, cfg.Visibility, logger)
	chatService := chat.NewService(chatRepo, connRepo, hub, moderator, logger)

	authHandler := auth.NewHandler(authService, logger)
	claimHandler := claims.NewHandler(claimService, logger)
	connHandler := connections.NewHandler(connService, logger)
	pathHandler := supplypaths.NewHandler(pathService, logger)
	visHandler := visibility.NewHandler(visService, logger)
	chatHandler := chat.NewHandler(chatService, hub, logger)

	r := server.NewRouter(logger)

	api := r.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))

	authed.GET("/users/me", authHandler.Me)
	authed.PATCH("/users/me", authHandler.UpdateMe)

	authed.POST("/claims", claimHandler.CreateClaim)
	authed.GET("/claims/me", claimHandler.GetMyClaim)
	authed.GET("/claims/near", claimHandler.FindNear)

	authed.POST("/connections", connHandler.RequestConnection)
	authed.POST("/connections/:id/approve", connHandler.ApproveConnection)
	authed.GET("/connections", connHandler.ListConnections)

	authed.POST("/supply-paths/touch", pathHandler.TouchPath)
	authed.GET("/supply-paths", pathHandler.ActivePaths)

	authed.GET("/visibility", visHandler.GetVisible)
	authed.GET("/fog", visHandler.GetFog)

	authed.POST("/chat/rooms", chatHandler.CreateRoom)
	authed.GET("/chat/rooms", chatHandler.ListRooms)
	authed.POST("/chat/messages", chatHandler.SendMessage)
	authed.GET("/chat/rooms/:id/messages", chatHandler.History)
	authed.GET("/chat/rooms/:id/ws", chatHandler.JoinRoom)
	authed.GET("/chat/top-rooms", chatHandler.TopRooms)

	decayWorker := supplypaths.NewDecayWorker(pathRepo, cfg.Decay.Interval, logger)

	return r, decayWorker
}
