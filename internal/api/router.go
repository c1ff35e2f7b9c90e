package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/lifecount/internal/config"
	"github.com/wfunc/lifecount/internal/game"
	"github.com/wfunc/lifecount/internal/middleware"
	ws "github.com/wfunc/lifecount/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine      *gin.Engine
	db          *gorm.DB
	gameService *game.Service
	gameHandler *GameHandler
	wsHandler   *WebSocketHandler
	log         *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, hub *ws.Hub, log *zap.Logger) *Router {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	// 创建对局服务并挂接广播
	gameService := game.NewService(db, &cfg.Game, log)
	gameService.SetBroadcaster(hub)

	// WebSocket消息走同一个对局服务
	hub.SetMessageHandler(ws.NewGameHandler(gameService, hub, log))

	router := &Router{
		engine:      engine,
		db:          db,
		gameService: gameService,
		gameHandler: NewGameHandler(gameService, log),
		wsHandler:   NewWebSocketHandler(hub, &cfg.WebSocket, log),
		log:         log,
	}

	router.setupRoutes(cfg)

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(cfg *config.Config) {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// WebSocket入口
	r.engine.GET(cfg.WebSocket.Path, r.wsHandler.GameWebSocket)

	// API路由组
	api := r.engine.Group("/api")
	{
		games := api.Group("/games")
		{
			games.POST("", r.gameHandler.CreateGame)
			games.GET("/:code", r.gameHandler.FetchGame)
			games.POST("/:code/reset", r.gameHandler.ResetGame)
			games.POST("/:code/actions", r.gameHandler.SubmitAction)
			games.GET("/:code/actions", r.gameHandler.ListHistory)
			games.GET("/:code/rebuild", r.gameHandler.Rebuild)
			games.GET("/:code/sync", r.gameHandler.Sync)
		}
	}
}

// GameService 暴露对局服务
func (r *Router) GameService() *game.Service {
	return r.gameService
}

// Engine 获取Gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	dbOK := err == nil && sqlDB.Ping() == nil

	c.JSON(200, gin.H{
		"status":   "ok",
		"database": dbOK,
	})
}
