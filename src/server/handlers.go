package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"broker-gateway/src/broker"
	"broker-gateway/src/helpers"
	"broker-gateway/src/logger"
	"broker-gateway/src/models"
	"broker-gateway/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// respond finishes a data route: upstream errors are mapped through, success
// is broadcast to the push feed and returned to the caller.
func (s *GatewayServer) respond(c *gin.Context, data interface{}, err error, request interface{}) {
	if err != nil {
		s.brokerError(c, err)
		return
	}

	if request != nil {
		s.emitter.EmitWithRequest(c.FullPath(), data, request)
	} else {
		s.emitter.Emit(c.FullPath(), data)
	}

	c.JSON(http.StatusOK, data)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) brokerError(c *gin.Context, err error) {
	var be *broker.Error
	if errors.As(err, &be) {
		c.JSON(be.StatusCode, gin.H{"error": "broker api error", "detail": be.Body})
		return
	}

	s.Logger.Error("Unexpected error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// -----------------------------------------------------------------------------
// Startup
// -----------------------------------------------------------------------------

// Bootstrap auto-selects an account when none is configured, primes the
// brokerage session and announces the service on the push feed.
func (s *GatewayServer) Bootstrap(ctx context.Context) error {
	accounts, err := s.broker.PortfolioAccounts(ctx)
	if err != nil {
		return fmt.Errorf("could not list portfolio accounts: %w", err)
	}

	if s.broker.AccountID() == "" {
		if list, ok := accounts.([]interface{}); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]interface{}); ok {
				if id, ok := first["accountId"].(string); ok && id != "" {
					s.broker.SetAccountID(id)
					s.Logger.Info("Auto-selected account: %s", id)
				}
			}
		}
	}

	// IBKR requires the brokerage accounts call before market data works
	if _, err := s.broker.BrokerageAccounts(ctx); err != nil {
		s.Logger.Warning("Could not prime brokerage session: %v", err)
	}

	s.emitter.Emit("startup", accounts)
	return nil
}

// -----------------------------------------------------------------------------
// Health and session
// -----------------------------------------------------------------------------

func (s *GatewayServer) getHealth(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := s.broker.CheckHealth(ctx)

	var authStatus interface{}
	if auth, err := s.broker.AuthStatus(ctx); err == nil {
		authStatus = auth
	} else {
		s.Logger.Warning("Could not get auth status: %v", err)
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	payload := gin.H{
		"status":         status,
		"gateway":        healthy,
		"authentication": authStatus,
		"account_id":     s.broker.AccountID(),
		"connections":    s.hub.Count(),
		"runtime":        helpers.GetRuntimeStats(),
	}

	s.emitter.Emit(c.FullPath(), payload)
	c.JSON(http.StatusOK, payload)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getTickle(c *gin.Context) {
	data, err := s.broker.Tickle(c.Request.Context())
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) postAuthStatus(c *gin.Context) {
	data, err := s.broker.AuthStatus(c.Request.Context())
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) postReauthenticate(c *gin.Context) {
	data, err := s.broker.Reauthenticate(c.Request.Context())
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) postLogout(c *gin.Context) {
	data, err := s.broker.Logout(c.Request.Context())
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (s *GatewayServer) getPortfolioAccounts(c *gin.Context) {
	data, err := s.broker.PortfolioAccounts(c.Request.Context())
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) getBrokerageAccounts(c *gin.Context) {
	data, err := s.broker.BrokerageAccounts(c.Request.Context())
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) getPortfolioSummary(c *gin.Context) {
	data, err := s.broker.PortfolioSummary(c.Request.Context(), c.Param("account_id"))
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) getAccountSummary(c *gin.Context) {
	data, err := s.broker.AccountSummary(c.Request.Context(), c.Param("account_id"))
	s.respond(c, data, err, nil)
}

func (s *GatewayServer) getLedger(c *gin.Context) {
	data, err := s.broker.Ledger(c.Request.Context(), c.Param("account_id"))
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------
// Portfolio
// -----------------------------------------------------------------------------

func (s *GatewayServer) getAllPositions(c *gin.Context) {
	data, err := s.broker.Positions(c.Request.Context(), c.Param("account_id"), 0, models.MPositionQuery{})
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getPositions(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	query := models.MPositionQuery{
		Model:     c.Query("model"),
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
		Period:    c.Query("period"),
	}

	data, err := s.broker.Positions(c.Request.Context(), c.Param("account_id"), page, query)
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getPositionByConid(c *gin.Context) {
	data, err := s.broker.PositionsByConid(c.Request.Context(), c.Param("account_id"), c.Param("conid"))
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------
// Market data
// -----------------------------------------------------------------------------

func (s *GatewayServer) postMarketdataSnapshot(c *gin.Context) {
	var req models.MMarketDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Conids) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum 100 contracts per request"})
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = []string{"31", "84", "86"} // last, bid, ask
	}

	conids := make([]string, 0, len(req.Conids))
	for _, id := range req.Conids {
		conids = append(conids, strconv.Itoa(id))
	}

	data, err := s.broker.MarketdataSnapshot(c.Request.Context(), conids, fields)
	s.respond(c, data, err, req)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getMarketdataHistory(c *gin.Context) {
	conid := c.Query("conid")
	bar := c.Query("bar")
	if conid == "" || bar == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conid and bar are required"})
		return
	}

	startTime := c.Query("start_time")
	if startTime != "" {
		if _, err := time.Parse("20060102-15:04:05", startTime); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_time format. Use YYYYMMDD-HH:mm:SS"})
			return
		}
	}

	query := models.MHistoryQuery{
		Conid:      conid,
		Bar:        bar,
		Exchange:   c.Query("exchange"),
		Period:     c.DefaultQuery("period", "1w"),
		OutsideRTH: c.Query("outside_rth") == "true",
		StartTime:  startTime,
	}

	data, err := s.broker.MarketdataHistory(c.Request.Context(), query)
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getMarketHours(c *gin.Context) {
	mic := c.DefaultQuery("mic", "xnys")
	hours := utils.NewMarketHours(mic)

	now := time.Now().UTC()
	c.JSON(http.StatusOK, gin.H{
		"mic":         mic,
		"fallback":    hours.Fallback,
		"trading_day": hours.IsTradingDay(now),
		"open":        hours.IsOpen(now),
		"time":        now.Format(time.RFC3339),
	})
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

func (s *GatewayServer) postSearchContracts(c *gin.Context) {
	var req models.MStockSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := s.broker.SearchContracts(c.Request.Context(), req.Symbol, req.Name, req.SecType)
	s.respond(c, data, err, req)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getSecurityDefinition(c *gin.Context) {
	conids := c.Query("conids")
	if conids == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conids is required"})
		return
	}

	data, err := s.broker.SecurityDefinition(c.Request.Context(), strings.Split(conids, ","))
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

func (s *GatewayServer) getLiveOrders(c *gin.Context) {
	var filters []string
	if raw := c.Query("filters"); raw != "" {
		filters = strings.Split(raw, ",")
	}

	data, err := s.broker.LiveOrders(c.Request.Context(), filters, c.Query("force") == "true", c.Query("account_id"))
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) postPlaceOrder(c *gin.Context) {
	var order models.MOrderRequest
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := s.broker.PlaceOrder(c.Request.Context(), c.Param("account_id"), order)
	s.respond(c, data, err, order)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getTrades(c *gin.Context) {
	data, err := s.broker.Trades(c.Request.Context(), c.Query("days"), c.Query("account_id"))
	s.respond(c, data, err, nil)
}

// -----------------------------------------------------------------------------
// Monitor page
// -----------------------------------------------------------------------------

func (s *GatewayServer) getMonitorPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", monitorPage)
}

// -----------------------------------------------------------------------------
// WebSocket push feed
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *GatewayServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s.hub, conn)
	s.hub.Add(client)

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// SSE market-data stream
// -----------------------------------------------------------------------------

func (s *GatewayServer) handleStream(c *gin.Context) {
	conid := c.Param("conid")
	fields := strings.Split(c.DefaultQuery("fields", "31,84,86"), ",")
	ctx := c.Request.Context()

	// Prime the brokerage session; market data returns nothing without it
	if _, err := s.broker.BrokerageAccounts(ctx); err != nil {
		s.Logger.Warning("Could not prime brokerage session for stream: %v", err)
	}

	fetch := func(ctx context.Context) (interface{}, error) {
		data, err := s.broker.MarketdataSnapshot(ctx, []string{conid}, fields)
		if err != nil {
			return nil, err
		}
		if list, ok := data.([]interface{}); ok && len(list) > 0 {
			return list[0], nil
		}
		return data, nil
	}

	interval := time.Duration(s.Config.Stream.UpdateIntervalSeconds) * time.Second
	backoff := time.Duration(s.Config.Stream.ErrorBackoffSeconds) * time.Second

	session := NewStreamSession(conid, fetch, interval, backoff, logger.NewLogger("Stream"))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	frames := make(chan models.MStreamFrame, 1)
	go session.Run(ctx, frames)

	for frame := range frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
	}
}
