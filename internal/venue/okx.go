package venue

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

const okxEndpoint = "wss://ws.okx.com:8443/ws/v5/public"

// okxAdapter speaks the OKX v5 public websocket: one "books" channel
// subscription per instrument, book frames under a "data" array.
type okxAdapter struct{}

func (a *okxAdapter) Venue() domain.Venue { return domain.VenueOKX }

func (a *okxAdapter) Endpoint() string { return okxEndpoint }

// okxSubArg is one entry of the subscribe envelope's "args" array.
type okxSubArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

func (a *okxAdapter) SubscriptionPayload(symbol string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"op":   "subscribe",
		"args": []okxSubArg{{Channel: "books", InstID: symbol}},
	})
	if err != nil {
		return nil, fmt.Errorf("okx: marshal subscribe payload: %w", err)
	}
	return payload, nil
}

// okxBookMsg is the outer frame for OKX book data. Event frames (subscribe
// acks, errors) carry "event" and no "data".
type okxBookMsg struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		Bids   json.RawMessage `json:"bids"`
		Asks   json.RawMessage `json:"asks"`
		Ts     flexFloat       `json:"ts"`
		InstID string          `json:"instId"`
	} `json:"data"`
}

func (a *okxAdapter) Parse(raw []byte) *domain.BookSnapshot {
	var msg okxBookMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Event != "" || len(msg.Data) == 0 {
		return nil
	}

	item := msg.Data[0]
	if item.Bids == nil || item.Asks == nil {
		return nil
	}

	bids, ok := parseSide(item.Bids, true)
	if !ok {
		return nil
	}
	asks, ok := parseSide(item.Asks, false)
	if !ok {
		return nil
	}

	symbol := item.InstID
	if symbol == "" {
		symbol = msg.Arg.InstID
	}

	return &domain.BookSnapshot{
		Venue:     domain.VenueOKX,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: msToTime(item.Ts),
	}
}
