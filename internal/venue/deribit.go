package venue

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

const deribitEndpoint = "wss://www.deribit.com/ws/api/v2"

// deribitAdapter speaks Deribit's JSON-RPC 2.0 websocket: subscriptions via
// public/subscribe, book frames as "subscription" notifications with the
// payload nested under params.data.
type deribitAdapter struct{}

func (a *deribitAdapter) Venue() domain.Venue { return domain.VenueDeribit }

func (a *deribitAdapter) Endpoint() string { return deribitEndpoint }

func (a *deribitAdapter) SubscriptionPayload(symbol string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "public/subscribe",
		"params": map[string]any{
			"channels": []string{fmt.Sprintf("book.%s.100ms", symbol)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("deribit: marshal subscribe payload: %w", err)
	}
	return payload, nil
}

// deribitBookMsg is the outer JSON-RPC frame. RPC responses carry "id" and
// "result"; only "subscription" notifications carry book data.
type deribitBookMsg struct {
	Method string `json:"method"`
	Params *struct {
		Channel string `json:"channel"`
		Data    *struct {
			Bids       json.RawMessage `json:"bids"`
			Asks       json.RawMessage `json:"asks"`
			Timestamp  flexFloat       `json:"timestamp"`
			Instrument string          `json:"instrument_name"`
		} `json:"data"`
	} `json:"params"`
}

func (a *deribitAdapter) Parse(raw []byte) *domain.BookSnapshot {
	var msg deribitBookMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Method != "subscription" || msg.Params == nil || msg.Params.Data == nil {
		return nil
	}

	data := msg.Params.Data
	if data.Bids == nil || data.Asks == nil {
		return nil
	}

	bids, ok := parseSide(data.Bids, true)
	if !ok {
		return nil
	}
	asks, ok := parseSide(data.Asks, false)
	if !ok {
		return nil
	}

	return &domain.BookSnapshot{
		Venue:     domain.VenueDeribit,
		Symbol:    data.Instrument,
		Bids:      bids,
		Asks:      asks,
		Timestamp: msToTime(data.Timestamp),
	}
}
