package domain

import "fmt"

// Side is the direction of a simulated order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes market and limit simulation requests.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// allowedDelays are the valid timing delays (seconds) for a simulation
// request. The delay is advisory analysis metadata; it does not defer the
// simulation itself.
var allowedDelays = map[int]bool{0: true, 5: true, 10: true, 30: true}

// OrderRequest describes a hypothetical order to price against the current
// book. It is constructed by the caller (typically the simulate endpoint) and
// must pass Validate before being handed to the simulator; the simulator
// assumes pre-validated input.
type OrderRequest struct {
	Venue        Venue     `json:"venue"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Type         OrderType `json:"type"`
	LimitPrice   float64   `json:"limit_price,omitempty"`
	Quantity     float64   `json:"quantity"`
	DelaySeconds int       `json:"delay_seconds"`
}

// Validate checks the request's structural constraints. All failures wrap
// ErrInvalidOrder so callers can classify them with errors.Is.
func (r OrderRequest) Validate() error {
	if r.Venue == "" {
		return fmt.Errorf("%w: venue must not be empty", ErrInvalidOrder)
	}
	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol must not be empty", ErrInvalidOrder)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("%w: side must be %q or %q, got %q", ErrInvalidOrder, SideBuy, SideSell, r.Side)
	}
	if r.Type != OrderTypeMarket && r.Type != OrderTypeLimit {
		return fmt.Errorf("%w: type must be %q or %q, got %q", ErrInvalidOrder, OrderTypeMarket, OrderTypeLimit, r.Type)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %g", ErrInvalidOrder, r.Quantity)
	}
	if r.Type == OrderTypeLimit && r.LimitPrice <= 0 {
		return fmt.Errorf("%w: limit orders require limit_price > 0", ErrInvalidOrder)
	}
	if r.Type == OrderTypeMarket && r.LimitPrice != 0 {
		return fmt.Errorf("%w: market orders must not set limit_price", ErrInvalidOrder)
	}
	if !allowedDelays[r.DelaySeconds] {
		return fmt.Errorf("%w: delay_seconds must be one of 0, 5, 10, 30, got %d", ErrInvalidOrder, r.DelaySeconds)
	}
	return nil
}

// ImpactResult is the outcome of pricing an OrderRequest against one
// BookSnapshot. It is a pure derived value with no identity; it is recomputed
// on every request and never stored.
type ImpactResult struct {
	EstimatedFillPercent float64 `json:"estimated_fill_percent"`
	MarketImpactPercent  float64 `json:"market_impact_percent"`
	SlippagePercent      float64 `json:"slippage_percent"`
	AveragePrice         float64 `json:"average_price"`
	WorstPrice           float64 `json:"worst_price"`
}
