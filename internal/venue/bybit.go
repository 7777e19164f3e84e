package venue

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

const (
	bybitEndpoint = "wss://stream.bybit.com/v5/public/spot"

	// bybitBookDepth is the depth tier requested in the topic string. The
	// normalizer still clips to domain.MaxDepth regardless.
	bybitBookDepth = 50
)

// bybitAdapter speaks the Bybit v5 public spot websocket: topic-string
// subscriptions, book frames under "data" with "b"/"a" sides.
type bybitAdapter struct{}

func (a *bybitAdapter) Venue() domain.Venue { return domain.VenueBybit }

func (a *bybitAdapter) Endpoint() string { return bybitEndpoint }

func (a *bybitAdapter) SubscriptionPayload(symbol string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"op":   "subscribe",
		"args": []string{fmt.Sprintf("orderbook.%d.%s", bybitBookDepth, symbol)},
	})
	if err != nil {
		return nil, fmt.Errorf("bybit: marshal subscribe payload: %w", err)
	}
	return payload, nil
}

// bybitBookMsg is the outer frame for Bybit book data. Operation acks carry
// "op"/"success" and no "data" object.
type bybitBookMsg struct {
	Topic string    `json:"topic"`
	Op    string    `json:"op"`
	Ts    flexFloat `json:"ts"`
	Data  *struct {
		Symbol string          `json:"s"`
		Bids   json.RawMessage `json:"b"`
		Asks   json.RawMessage `json:"a"`
	} `json:"data"`
}

func (a *bybitAdapter) Parse(raw []byte) *domain.BookSnapshot {
	var msg bybitBookMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Op != "" || msg.Data == nil {
		return nil
	}
	if msg.Data.Bids == nil || msg.Data.Asks == nil {
		return nil
	}

	bids, ok := parseSide(msg.Data.Bids, true)
	if !ok {
		return nil
	}
	asks, ok := parseSide(msg.Data.Asks, false)
	if !ok {
		return nil
	}

	return &domain.BookSnapshot{
		Venue:     domain.VenueBybit,
		Symbol:    msg.Data.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: msToTime(msg.Ts),
	}
}
