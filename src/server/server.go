package server

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"time"

	"broker-gateway/src/interfaces"
	"broker-gateway/src/logger"
	"broker-gateway/src/models"

	"github.com/gin-gonic/gin"
)

//go:embed monitor.html
var monitorPage []byte

// -----------------------------------------------------------------------------
// GatewayServer
// -----------------------------------------------------------------------------

type GatewayServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	broker  interfaces.IBrokerClient
	hub     *Hub
	emitter *Emitter
	limiter *RateLimiter
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewGatewayServer(cfg *models.MConfig, log *logger.Logger, broker interfaces.IBrokerClient) *GatewayServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := NewHub(logger.NewLogger("Hub"))

	s := &GatewayServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.New(),
		broker:  broker,
		hub:     hub,
		emitter: NewEmitter(hub, logger.NewLogger("Emitter")),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.corsMiddleware())
	s.engine.Use(s.requestLogMiddleware())

	if cfg.Security.APIKey != "" && cfg.Security.APIKeyHeader != "" {
		s.engine.Use(s.apiKeyMiddleware())
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerMinute)
		s.engine.Use(RateLimitMiddleware(s.limiter))
	}

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *GatewayServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if s.originAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+s.Config.Security.APIKeyHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.Config.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%.3fs)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// -----------------------------------------------------------------------------

// apiKeyMiddleware rejects requests missing the configured API key. Health
// and the monitor page stay open so probes and humans can reach them.
func (s *GatewayServer) apiKeyMiddleware() gin.HandlerFunc {
	exempt := map[string]struct{}{
		"/health":  {},
		"/monitor": {},
	}

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		key := c.Request.Header.Get(s.Config.Security.APIKeyHeader)
		if key != s.Config.Security.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *GatewayServer) setupRoutes() {
	// Health and session
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/tickle", s.getTickle)
	s.engine.POST("/iserver/auth/status", s.postAuthStatus)
	s.engine.POST("/iserver/reauthenticate", s.postReauthenticate)
	s.engine.POST("/logout", s.postLogout)

	// Accounts
	s.engine.GET("/portfolio/accounts", s.getPortfolioAccounts)
	s.engine.GET("/iserver/accounts", s.getBrokerageAccounts)
	s.engine.GET("/portfolio/:account_id/summary", s.getPortfolioSummary)
	s.engine.GET("/portfolio/:account_id/ledger", s.getLedger)

	// Portfolio
	s.engine.GET("/portfolio/:account_id/positions", s.getAllPositions)
	s.engine.GET("/portfolio/:account_id/positions/:page", s.getPositions)
	s.engine.GET("/accounts/:account_id/positions/:conid", s.getPositionByConid)

	// Market data
	s.engine.POST("/iserver/marketdata/snapshot", s.postMarketdataSnapshot)
	s.engine.GET("/iserver/marketdata/history", s.getMarketdataHistory)
	s.engine.GET("/market/hours", s.getMarketHours)

	// Contracts
	s.engine.POST("/iserver/secdef/search", s.postSearchContracts)
	s.engine.GET("/trsrv/secdef", s.getSecurityDefinition)

	// Orders
	s.engine.GET("/iserver/account/:account_id/summary", s.getAccountSummary)
	s.engine.GET("/iserver/account/orders", s.getLiveOrders)
	s.engine.POST("/iserver/account/:account_id/orders", s.postPlaceOrder)
	s.engine.GET("/iserver/account/trades", s.getTrades)

	// Push feed and streaming
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/stream/market-data/:conid", s.handleStream)
	s.engine.GET("/monitor", s.getMonitorPage)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *GatewayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.hub.Run()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) Stop() error {
	s.hub.Stop()
	return nil
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *GatewayServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

// Hub exposes the subscriber registry so callers can register push
// connections created outside the HTTP layer.
func (s *GatewayServer) Hub() *Hub {
	return s.hub
}

// -----------------------------------------------------------------------------

// Emitter exposes the event emitter for actions performed outside the route
// layer (e.g. the startup broadcast).
func (s *GatewayServer) Emitter() *Emitter {
	return s.emitter
}
