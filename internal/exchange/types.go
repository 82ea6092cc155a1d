package exchange

import (
	"encoding/json"
	"fmt"
	"time"
)

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	TypeMarket OrderType = "market"
	TypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusOpen      OrderStatus = "open"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
)

type Order struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  float64
	Price     float64
	HasPrice  bool
	Status    OrderStatus
	CreatedAt time.Time
}

// MarketData is a 24h quote snapshot for one symbol. It is never mutated
// after creation.
type MarketData struct {
	Symbol    string
	Price     float64
	Volume24h float64
	Change24h float64
	High24h   float64
	Low24h    float64
	Timestamp time.Time
}

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

type Position struct {
	Symbol        string
	Side          PositionSide
	Size          float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
	Margin        float64
}

// AccountInfo is the per-cycle account snapshot. Read-only within a
// cycle.
type AccountInfo struct {
	Balance          float64
	AvailableBalance float64
	TotalPnL         float64
	TotalMargin      float64
	Positions        []Position
}

// APIError carries an exchange-reported failure or a non-2xx transport
// response. The client never returns a partially populated success value
// alongside one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("exchange api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("exchange api: %s", e.Message)
}

// Wire payloads.

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type tickerWire struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	Change24h float64 `json:"change_24h"`
	High24h   float64 `json:"high_24h"`
	Low24h    float64 `json:"low_24h"`
	Timestamp int64   `json:"timestamp"`
}

type positionWire struct {
	Symbol        string  `json:"symbol"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
	MarginUsed    float64 `json:"margin_used"`
}

type accountWire struct {
	Balance          float64        `json:"balance"`
	AvailableBalance float64        `json:"available_balance"`
	Positions        []positionWire `json:"positions"`
}

type orderRequestWire struct {
	ClientOrderID string  `json:"client_order_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price,omitempty"`
}

type orderResponseWire struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type cancelResponseWire struct {
	Cancelled bool `json:"cancelled"`
}
