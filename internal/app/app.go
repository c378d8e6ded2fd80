package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/config"
	"github.com/voxroom/core/internal/database"
	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/modules/gateway/gateway"
	"github.com/voxroom/core/internal/modules/gift"
	"github.com/voxroom/core/internal/modules/message"
	"github.com/voxroom/core/internal/modules/presence"
	"github.com/voxroom/core/internal/modules/room"
	"github.com/voxroom/core/internal/modules/wallet"
	pkgcron "github.com/voxroom/core/internal/pkg/cron"
	"github.com/voxroom/core/internal/pkg/idempotent"
	jwtpkg "github.com/voxroom/core/internal/pkg/jwt"
	pkgredis "github.com/voxroom/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	hub    *gateway.Hub
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	rooms    *room.Service
	presence *presence.Service
	wallets  *wallet.Service
	gifts    *gift.Service
	messages *message.Service
}

// New initializes the application: config → DB → Redis → services → gateway.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	app := &App{cfg: cfg, router: router, db: db, logger: logger}
	app.buildServices(rc)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	go app.hub.Run(ctx)

	app.sched = pkgcron.New()
	app.registerCronJobs()
	go app.sched.Start(ctx)

	app.registerRoutes(rc)
	return app, nil
}

// buildServices wires the domain layer. The hub implements the broadcaster
// the services publish through, so it is constructed last and the services
// receive it via a late-bound forwarder.
func (a *App) buildServices(rc *pkgredis.Client) {
	cfg := a.cfg
	bc := &hubForwarder{}

	a.rooms = room.NewService(a.db)
	a.wallets = wallet.NewService(a.db)

	presenceStore := presence.NewRedisStore(rc, config.PresenceTTL)
	a.presence = presence.NewService(presenceStore, a.rooms, bc, a.logger,
		time.Duration(cfg.Gateway.DuplicateJoinSec)*time.Second)

	idemStore := idempotent.NewRedisStore(rc, config.IdempotencyTTL)
	a.gifts = gift.NewService(a.db, idemStore, a.rooms, bc, a.logger, gift.SplitConfig{
		ReceiverPercent: cfg.Gift.ReceiverPercent,
		OwnerPercent:    cfg.Gift.OwnerPercent,
		PlatformPercent: cfg.Gift.PlatformPercent,
	}, config.PlatformWalletOwner)

	a.messages = message.NewService(a.db, a.rooms, bc)

	a.hub = gateway.NewHub(gateway.HubDeps{
		Redis:  rc,
		Logger: a.logger,
		Verify: func(token string) (*middleware.Identity, error) {
			return middleware.VerifyIdentity(a.db, token)
		},
		Presence:         a.presence,
		Messages:         a.messages,
		Gifts:            a.gifts,
		HeartbeatTimeout: time.Duration(cfg.Gateway.HeartbeatTimeoutSec) * time.Second,
	})
	bc.hub = a.hub
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
