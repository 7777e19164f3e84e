package domain

import "time"

// MaxDepth is the maximum number of price levels kept per book side. Venue
// adapters clip deeper messages to this bound during normalization.
const MaxDepth = 15

// Venue identifies a supported exchange.
type Venue string

const (
	VenueOKX     Venue = "okx"
	VenueBybit   Venue = "bybit"
	VenueDeribit Venue = "deribit"
)

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookSnapshot is a full normalized snapshot of bids and asks for one
// (venue, symbol) pair. Bids are sorted descending by price, asks ascending,
// best price first on both sides, at most MaxDepth levels per side.
//
// A snapshot replaces the previous one for the same pair wholesale; it is
// never merged with earlier state. Timestamp is the venue-reported time of
// the message the snapshot was built from.
type BookSnapshot struct {
	Venue     Venue        `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the highest bid price. ok is false when the bid side is
// empty, which downstream consumers must treat as "unknown" rather than zero.
func (s BookSnapshot) BestBid() (price float64, ok bool) {
	if len(s.Bids) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

// BestAsk returns the lowest ask price. ok is false when the ask side is empty.
func (s BookSnapshot) BestAsk() (price float64, ok bool) {
	if len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

// MidPrice returns the bid/ask midpoint. ok is false when either side is
// empty and no midpoint exists.
func (s BookSnapshot) MidPrice() (mid float64, ok bool) {
	bid, bidOK := s.BestBid()
	ask, askOK := s.BestAsk()
	if !bidOK || !askOK {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns the ask-bid spread. ok is false when either side is empty.
func (s BookSnapshot) Spread() (spread float64, ok bool) {
	bid, bidOK := s.BestBid()
	ask, askOK := s.BestAsk()
	if !bidOK || !askOK {
		return 0, false
	}
	return ask - bid, true
}
