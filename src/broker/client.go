package broker

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"broker-gateway/src/logger"
	"broker-gateway/src/models"
	"broker-gateway/src/utils"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error is returned for non-2xx gateway responses so that the route layer can
// mirror the upstream status code.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker api error (status %d): %s", e.StatusCode, e.Body)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client talks to the IBKR Client Portal gateway over HTTPS. All calls are
// pass-through: payloads are decoded JSON, never interpreted.
type Client struct {
	Config models.MGatewayConfig
	Logger *logger.Logger

	httpClient *http.Client
	retryDelay time.Duration

	accountID string
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewClient(cfg models.MGatewayConfig, log *logger.Logger) *Client {
	transport := &http.Transport{}
	if cfg.SkipTLSVerify {
		// The Client Portal gateway ships with a self-signed certificate
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retryDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Client{
		Config: cfg,
		Logger: log,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
		},
		retryDelay: retryDelay,
		accountID:  cfg.AccountID,
	}
}

// -----------------------------------------------------------------------------

func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *Client) SetAccountID(id string) {
	c.mu.Lock()
	c.accountID = id
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Transport
// -----------------------------------------------------------------------------

// do performs one gateway round trip with retries. The retry wrapper
// propagates the last failure unchanged.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}) (interface{}, error) {
	return utils.Retry(ctx, c.Config.MaxRetries, c.retryDelay, func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, params, body)
	})
}

// -----------------------------------------------------------------------------

func (c *Client) roundTrip(ctx context.Context, method, path string, params url.Values, body interface{}) (interface{}, error) {
	endpoint := strings.TrimRight(c.Config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Info("Request failed: %s %s: %v", method, path, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Logger.Info("Bad status %d for %s %s", resp.StatusCode, method, path)
		return nil, &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return decoded, nil
}

// -----------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, params url.Values) (interface{}, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (interface{}, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// CheckHealth pings the gateway; a failing tickle means the session is gone.
func (c *Client) CheckHealth(ctx context.Context) bool {
	_, err := c.Tickle(ctx)
	return err == nil
}

func (c *Client) Tickle(ctx context.Context) (interface{}, error) {
	return c.post(ctx, "/tickle", nil)
}

func (c *Client) AuthStatus(ctx context.Context) (interface{}, error) {
	return c.post(ctx, "/iserver/auth/status", nil)
}

func (c *Client) Reauthenticate(ctx context.Context) (interface{}, error) {
	return c.post(ctx, "/iserver/reauthenticate", nil)
}

func (c *Client) Logout(ctx context.Context) (interface{}, error) {
	return c.post(ctx, "/logout", nil)
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (c *Client) PortfolioAccounts(ctx context.Context) (interface{}, error) {
	return c.get(ctx, "/portfolio/accounts", nil)
}

func (c *Client) BrokerageAccounts(ctx context.Context) (interface{}, error) {
	return c.get(ctx, "/iserver/accounts", nil)
}

func (c *Client) AccountSummary(ctx context.Context, accountID string) (interface{}, error) {
	return c.get(ctx, "/iserver/account/"+accountID+"/summary", nil)
}

func (c *Client) PortfolioSummary(ctx context.Context, accountID string) (interface{}, error) {
	return c.get(ctx, "/portfolio/"+accountID+"/summary", nil)
}

func (c *Client) Ledger(ctx context.Context, accountID string) (interface{}, error) {
	return c.get(ctx, "/portfolio/"+accountID+"/ledger", nil)
}

// -----------------------------------------------------------------------------
// Portfolio
// -----------------------------------------------------------------------------

func (c *Client) Positions(ctx context.Context, accountID string, page int, q models.MPositionQuery) (interface{}, error) {
	params := url.Values{}
	if q.Model != "" {
		params.Set("model", q.Model)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Direction != "" {
		params.Set("direction", q.Direction)
	}
	if q.Period != "" {
		params.Set("period", q.Period)
	}
	return c.get(ctx, fmt.Sprintf("/portfolio/%s/positions/%d", accountID, page), params)
}

func (c *Client) PositionsByConid(ctx context.Context, accountID, conid string) (interface{}, error) {
	return c.get(ctx, fmt.Sprintf("/portfolio/%s/position/%s", accountID, conid), nil)
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

func (c *Client) LiveOrders(ctx context.Context, filters []string, force bool, accountID string) (interface{}, error) {
	params := url.Values{}
	if len(filters) > 0 {
		params.Set("filters", strings.Join(filters, ","))
	}
	if force {
		params.Set("force", "true")
	}
	if accountID != "" {
		params.Set("accountId", accountID)
	}
	return c.get(ctx, "/iserver/account/orders", params)
}

func (c *Client) PlaceOrder(ctx context.Context, accountID string, order models.MOrderRequest) (interface{}, error) {
	if order.Tif == "" {
		order.Tif = "DAY"
	}
	body := map[string]interface{}{
		"orders": []models.MOrderRequest{order},
	}
	return c.post(ctx, "/iserver/account/"+accountID+"/orders", body)
}

func (c *Client) Trades(ctx context.Context, days, accountID string) (interface{}, error) {
	params := url.Values{}
	if days != "" {
		params.Set("days", days)
	}
	if accountID != "" {
		params.Set("accountId", accountID)
	}
	return c.get(ctx, "/iserver/account/trades", params)
}

// -----------------------------------------------------------------------------
// Market data and contracts
// -----------------------------------------------------------------------------

func (c *Client) MarketdataSnapshot(ctx context.Context, conids []string, fields []string) (interface{}, error) {
	params := url.Values{}
	params.Set("conids", strings.Join(conids, ","))
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	return c.get(ctx, "/iserver/marketdata/snapshot", params)
}

func (c *Client) MarketdataHistory(ctx context.Context, q models.MHistoryQuery) (interface{}, error) {
	params := url.Values{}
	params.Set("conid", q.Conid)
	params.Set("bar", q.Bar)
	if q.Exchange != "" {
		params.Set("exchange", q.Exchange)
	}
	if q.Period != "" {
		params.Set("period", q.Period)
	}
	params.Set("outsideRth", strconv.FormatBool(q.OutsideRTH))
	if q.StartTime != "" {
		params.Set("startTime", q.StartTime)
	}
	return c.get(ctx, "/iserver/marketdata/history", params)
}

func (c *Client) SearchContracts(ctx context.Context, symbol string, byName bool, secType string) (interface{}, error) {
	if secType == "" {
		secType = "STK"
	}
	body := map[string]interface{}{
		"symbol":  symbol,
		"name":    byName,
		"secType": secType,
	}
	return c.post(ctx, "/iserver/secdef/search", body)
}

func (c *Client) SecurityDefinition(ctx context.Context, conids []string) (interface{}, error) {
	params := url.Values{}
	params.Set("conids", strings.Join(conids, ","))
	return c.get(ctx, "/trsrv/secdef", params)
}
