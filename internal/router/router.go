package router

import (
	"time"

	"calldesk/config"
	"calldesk/internal/domain"
	"calldesk/internal/handler"
	"calldesk/internal/middleware"
	"calldesk/internal/repository"
	"calldesk/internal/service"
	"calldesk/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))

	agentRepo := repository.NewAgentRepository(db)
	breakRepo := repository.NewBreakRepository(db)

	statusHub := ws.NewStatusHub()

	authSvc := service.NewAuthService(cfg, agentRepo)

	authHandler := handler.NewAuthHandler(authSvc)
	breakHandler := handler.NewBreakHandler(breakRepo, agentRepo, statusHub, cfg.Presence.SnapshotCacheTTL)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMw, authHandler.Logout)
		}

		agents := api.Group("/agents")
		agents.Use(authMw)
		{
			agents.POST("/breaks", breakHandler.Create)
			agents.PUT("/breaks/close", breakHandler.Close)
			agents.GET("/breaks", adminMw, breakHandler.Ledger)
			agents.GET("/current-status", breakHandler.CurrentStatus)
		}

		api.GET("/ws/status", ws.UpgradeStatusWS(&cfg.JWT, statusHub))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
