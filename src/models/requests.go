package models

// MOrderRequest matches the IBKR order payload shape. Prices are pointers so
// that absent fields stay absent on the wire.
type MOrderRequest struct {
	Conid     int      `json:"conid" binding:"required"`
	OrderType string   `json:"orderType" binding:"required"`
	Side      string   `json:"side" binding:"required,oneof=BUY SELL"`
	Quantity  float64  `json:"quantity" binding:"required,gt=0"`
	Price     *float64 `json:"price,omitempty"`
	AuxPrice  *float64 `json:"auxPrice,omitempty"`
	Tif       string   `json:"tif,omitempty"`
}

type MMarketDataRequest struct {
	Conids []int    `json:"conids" binding:"required,min=1"`
	Fields []string `json:"fields"`
}

type MStockSearchRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Name    bool   `json:"name"`
	SecType string `json:"secType"`
}

// MPositionQuery carries the optional filters of the paged positions endpoint.
type MPositionQuery struct {
	Model     string
	Sort      string
	Direction string
	Period    string
}

// MHistoryQuery carries the parameters of the market-data history endpoint.
type MHistoryQuery struct {
	Conid      string
	Bar        string
	Exchange   string
	Period     string
	OutsideRTH bool
	StartTime  string
}
