package interfaces

import (
	"context"

	"broker-gateway/src/models"
)

// IBrokerClient is the brokerage gateway collaborator. Every method fetches
// one data slice (or submits one action) and may fail; payload shapes are
// passed through uninterpreted.
type IBrokerClient interface {
	// Session
	CheckHealth(ctx context.Context) bool
	Tickle(ctx context.Context) (interface{}, error)
	AuthStatus(ctx context.Context) (interface{}, error)
	Reauthenticate(ctx context.Context) (interface{}, error)
	Logout(ctx context.Context) (interface{}, error)

	// Accounts
	AccountID() string
	SetAccountID(id string)
	PortfolioAccounts(ctx context.Context) (interface{}, error)
	BrokerageAccounts(ctx context.Context) (interface{}, error)
	AccountSummary(ctx context.Context, accountID string) (interface{}, error)
	PortfolioSummary(ctx context.Context, accountID string) (interface{}, error)
	Ledger(ctx context.Context, accountID string) (interface{}, error)

	// Portfolio
	Positions(ctx context.Context, accountID string, page int, q models.MPositionQuery) (interface{}, error)
	PositionsByConid(ctx context.Context, accountID, conid string) (interface{}, error)

	// Orders
	LiveOrders(ctx context.Context, filters []string, force bool, accountID string) (interface{}, error)
	PlaceOrder(ctx context.Context, accountID string, order models.MOrderRequest) (interface{}, error)
	Trades(ctx context.Context, days, accountID string) (interface{}, error)

	// Market data and contracts
	MarketdataSnapshot(ctx context.Context, conids []string, fields []string) (interface{}, error)
	MarketdataHistory(ctx context.Context, q models.MHistoryQuery) (interface{}, error)
	SearchContracts(ctx context.Context, symbol string, byName bool, secType string) (interface{}, error)
	SecurityDefinition(ctx context.Context, conids []string) (interface{}, error)
}
