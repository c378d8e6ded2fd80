package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/modules/gateway/gateway"
	"github.com/voxroom/core/internal/modules/gift"
	"github.com/voxroom/core/internal/modules/message"
	"github.com/voxroom/core/internal/modules/room"
	"github.com/voxroom/core/internal/modules/wallet"
	pkgredis "github.com/voxroom/core/internal/pkg/redis"
	"github.com/voxroom/core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(rc.Raw()))

	// WebSocket gateway
	root := r.Group("")
	gateway.RegisterRoutes(root, a.hub)

	api := r.Group("/api/v1")
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"timestamp": time.Since(processStart).Milliseconds()})
	})
	api.GET("/server-time", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"serverTs": time.Now().UTC().Format(time.RFC3339Nano)})
	})

	// Authenticated REST surface. Sends and acks ride the socket; REST covers
	// reads plus the gift path for clients without a live connection.
	authed := api.Group("")
	authed.Use(authMW)

	room.NewHandler(a.rooms, a.presence).RegisterRoutes(authed)
	wallet.NewHandler(a.wallets).RegisterRoutes(authed)
	gift.NewHandler(a.gifts).RegisterRoutes(authed)
	message.NewHandler(a.messages).RegisterRoutes(authed)

	authed.GET("/cron", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	authed.POST("/cron/:name/run", func(c *gin.Context) {
		// The job outlives the request, so it cannot run on the request context.
		if err := a.sched.Run(context.Background(), c.Param("name")); err != nil {
			response.NotFound(c)
			return
		}
		response.OK(c, gin.H{"name": c.Param("name")})
	})
}

var processStart = time.Now()
