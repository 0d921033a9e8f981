package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/config"
	"github.com/hltapp/hlt-server/controllers"
	"github.com/hltapp/hlt-server/middleware"
	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

// SetupRouter wires routes, middlewares, and controllers over the given store.
func SetupRouter(kv store.Store) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	ledger := services.NewLedger(kv)
	accounts := services.NewAccounts(kv)
	checkins := services.NewCheckIns(kv, ledger)
	boards := services.NewLeaderboards(kv, ledger)
	groups := services.NewGroups(kv)
	admin := services.NewAdmin(kv, accounts, ledger)

	authController := controllers.NewAuthController(accounts, ledger)
	checkinController := controllers.NewCheckinController(checkins)
	leaderboardController := controllers.NewLeaderboardController(boards)
	groupController := controllers.NewGroupController(groups)
	adminController := controllers.NewAdminController(admin)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/checkin", checkinController.Submit)
	protected.PUT("/checkin", checkinController.Edit)
	protected.GET("/checkin/status", checkinController.Status)
	protected.GET("/profile", checkinController.Profile)

	protected.GET("/leaderboard", leaderboardController.Global)

	protected.POST("/groups", groupController.Create)
	protected.GET("/groups", groupController.ListMine)
	protected.GET("/groups/:groupId", groupController.Get)
	protected.PUT("/groups/:groupId", groupController.Update)
	protected.GET("/groups/:groupId/leaderboard", leaderboardController.Group)
	protected.POST("/groups/:groupId/invite", groupController.Invite)
	protected.DELETE("/groups/:groupId/members/:userId", groupController.RemoveMember)
	protected.POST("/groups/:groupId/ban/:userId", groupController.Ban)
	protected.POST("/groups/:groupId/unban/:userId", groupController.Unban)

	protected.GET("/invites", groupController.ListInvites)
	protected.POST("/invites/:inviteId/respond", groupController.Respond)

	adminGroup := protected.Group("/admin")
	adminGroup.GET("/users", adminController.ListUsers)
	adminGroup.PUT("/users/:userId", adminController.UpdateUser)
	adminGroup.DELETE("/users/:userId", adminController.DeleteUser)
	adminGroup.POST("/users/:userId/roles", adminController.GrantRole)
	adminGroup.DELETE("/users/:userId/roles/:role", adminController.RevokeRole)
	adminGroup.GET("/groups", adminController.ListGroups)
	adminGroup.DELETE("/groups/:groupId", adminController.DeleteGroup)
	adminGroup.GET("/checkins", adminController.ListCheckIns)
	adminGroup.GET("/leaderboard", adminController.UnifiedLeaderboard)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
