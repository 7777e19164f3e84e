package venue

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

func TestLookup(t *testing.T) {
	for _, v := range []domain.Venue{domain.VenueOKX, domain.VenueBybit, domain.VenueDeribit} {
		a, err := Lookup(v)
		require.NoError(t, err)
		assert.Equal(t, v, a.Venue())
		assert.True(t, strings.HasPrefix(a.Endpoint(), "wss://"))
	}

	_, err := Lookup("binance")
	require.ErrorIs(t, err, domain.ErrUnsupportedVenue)
}

func TestSupported(t *testing.T) {
	assert.Equal(t,
		[]domain.Venue{domain.VenueBybit, domain.VenueDeribit, domain.VenueOKX},
		Supported(),
	)
}

func TestSubscriptionPayloads(t *testing.T) {
	t.Run("okx", func(t *testing.T) {
		a, _ := Lookup(domain.VenueOKX)
		raw, err := a.SubscriptionPayload("BTC-USDT")
		require.NoError(t, err)

		var msg struct {
			Op   string `json:"op"`
			Args []struct {
				Channel string `json:"channel"`
				InstID  string `json:"instId"`
			} `json:"args"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "subscribe", msg.Op)
		require.Len(t, msg.Args, 1)
		assert.Equal(t, "books", msg.Args[0].Channel)
		assert.Equal(t, "BTC-USDT", msg.Args[0].InstID)
	})

	t.Run("bybit", func(t *testing.T) {
		a, _ := Lookup(domain.VenueBybit)
		raw, err := a.SubscriptionPayload("BTCUSDT")
		require.NoError(t, err)

		var msg struct {
			Op   string   `json:"op"`
			Args []string `json:"args"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "subscribe", msg.Op)
		assert.Equal(t, []string{"orderbook.50.BTCUSDT"}, msg.Args)
	})

	t.Run("deribit", func(t *testing.T) {
		a, _ := Lookup(domain.VenueDeribit)
		raw, err := a.SubscriptionPayload("BTC-PERPETUAL")
		require.NoError(t, err)

		var msg struct {
			Jsonrpc string `json:"jsonrpc"`
			Method  string `json:"method"`
			Params  struct {
				Channels []string `json:"channels"`
			} `json:"params"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "2.0", msg.Jsonrpc)
		assert.Equal(t, "public/subscribe", msg.Method)
		assert.Equal(t, []string{"book.BTC-PERPETUAL.100ms"}, msg.Params.Channels)
	})
}

const okxBookFrame = `{
	"arg": {"channel": "books", "instId": "BTC-USDT"},
	"data": [{
		"bids": [["100.5","2"], ["101","1"], ["99","4"]],
		"asks": [["102","3"], ["101.5","0.5"]],
		"ts": "1700000000000",
		"instId": "BTC-USDT"
	}]
}`

func TestOKXParse(t *testing.T) {
	a, _ := Lookup(domain.VenueOKX)

	snap := a.Parse([]byte(okxBookFrame))
	require.NotNil(t, snap)

	assert.Equal(t, domain.VenueOKX, snap.Venue)
	assert.Equal(t, "BTC-USDT", snap.Symbol)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), snap.Timestamp)

	// Bids resorted descending even though the frame was unsorted.
	require.Len(t, snap.Bids, 3)
	assert.Equal(t, []domain.PriceLevel{
		{Price: 101, Size: 1},
		{Price: 100.5, Size: 2},
		{Price: 99, Size: 4},
	}, snap.Bids)

	require.Len(t, snap.Asks, 2)
	assert.Equal(t, []domain.PriceLevel{
		{Price: 101.5, Size: 0.5},
		{Price: 102, Size: 3},
	}, snap.Asks)
}

func TestBybitParse(t *testing.T) {
	a, _ := Lookup(domain.VenueBybit)

	// Bybit sends ts as a number and prices as strings.
	raw := []byte(`{
		"topic": "orderbook.50.BTCUSDT",
		"type": "snapshot",
		"ts": 1700000000123,
		"data": {
			"s": "BTCUSDT",
			"b": [["99","1"], ["99.5","2"]],
			"a": [["100","2"], ["100.5","1"]]
		}
	}`)

	snap := a.Parse(raw)
	require.NotNil(t, snap)
	assert.Equal(t, domain.VenueBybit, snap.Venue)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), snap.Timestamp)
	assert.Equal(t, 99.5, snap.Bids[0].Price)
	assert.Equal(t, 100.0, snap.Asks[0].Price)
}

func TestDeribitParse(t *testing.T) {
	a, _ := Lookup(domain.VenueDeribit)

	// Deribit sends prices as plain JSON numbers.
	raw := []byte(`{
		"jsonrpc": "2.0",
		"method": "subscription",
		"params": {
			"channel": "book.BTC-PERPETUAL.100ms",
			"data": {
				"timestamp": 1700000000456,
				"instrument_name": "BTC-PERPETUAL",
				"bids": [[100.5, 2], [100, 1]],
				"asks": [[101, 1], [101.5, 3]]
			}
		}
	}`)

	snap := a.Parse(raw)
	require.NotNil(t, snap)
	assert.Equal(t, domain.VenueDeribit, snap.Venue)
	assert.Equal(t, "BTC-PERPETUAL", snap.Symbol)
	assert.Equal(t, time.UnixMilli(1700000000456).UTC(), snap.Timestamp)
	assert.Equal(t, 100.5, snap.Bids[0].Price)
	assert.Equal(t, 101.0, snap.Asks[0].Price)
}

func TestParseIgnoresNonBookFrames(t *testing.T) {
	tests := []struct {
		name  string
		venue domain.Venue
		raw   string
	}{
		{"okx subscribe ack", domain.VenueOKX, `{"event":"subscribe","arg":{"channel":"books","instId":"BTC-USDT"}}`},
		{"okx error event", domain.VenueOKX, `{"event":"error","code":"60012","msg":"invalid request"}`},
		{"bybit op ack", domain.VenueBybit, `{"success":true,"op":"subscribe","conn_id":"abc"}`},
		{"bybit pong", domain.VenueBybit, `{"op":"pong"}`},
		{"deribit rpc result", domain.VenueDeribit, `{"jsonrpc":"2.0","id":1,"result":["book.BTC-PERPETUAL.100ms"]}`},
		{"deribit heartbeat", domain.VenueDeribit, `{"jsonrpc":"2.0","method":"heartbeat","params":{"type":"test_request"}}`},
		{"not json", domain.VenueOKX, `ping`},
		{"empty object", domain.VenueBybit, `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Lookup(tc.venue)
			require.NoError(t, err)
			assert.Nil(t, a.Parse([]byte(tc.raw)))
		})
	}
}

func TestParseRejectsIncompleteBooks(t *testing.T) {
	tests := []struct {
		name  string
		venue domain.Venue
		raw   string
	}{
		{"okx missing asks", domain.VenueOKX, `{"arg":{"channel":"books","instId":"X"},"data":[{"bids":[["100","1"]],"ts":"1"}]}`},
		{"okx missing bids", domain.VenueOKX, `{"arg":{"channel":"books","instId":"X"},"data":[{"asks":[["100","1"]],"ts":"1"}]}`},
		{"okx garbage level", domain.VenueOKX, `{"arg":{},"data":[{"bids":[["abc","1"]],"asks":[],"ts":"1"}]}`},
		{"okx short level", domain.VenueOKX, `{"arg":{},"data":[{"bids":[["100"]],"asks":[],"ts":"1"}]}`},
		{"okx zero price", domain.VenueOKX, `{"arg":{},"data":[{"bids":[["0","1"]],"asks":[],"ts":"1"}]}`},
		{"bybit missing asks", domain.VenueBybit, `{"topic":"orderbook.50.X","ts":1,"data":{"s":"X","b":[["100","1"]]}}`},
		{"deribit missing bids", domain.VenueDeribit, `{"jsonrpc":"2.0","method":"subscription","params":{"data":{"timestamp":1,"instrument_name":"X","asks":[[100,1]]}}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Lookup(tc.venue)
			require.NoError(t, err)
			assert.Nil(t, a.Parse([]byte(tc.raw)))
		})
	}
}

func TestParseKeepsEmptySides(t *testing.T) {
	a, _ := Lookup(domain.VenueOKX)
	raw := `{"arg":{"channel":"books","instId":"X"},"data":[{"bids":[],"asks":[["100","1"]],"ts":"1","instId":"X"}]}`

	snap := a.Parse([]byte(raw))
	require.NotNil(t, snap)
	assert.Empty(t, snap.Bids)
	require.Len(t, snap.Asks, 1)
}

func TestParseClipsToMaxDepth(t *testing.T) {
	var bids, asks []string
	for i := 0; i < 40; i++ {
		bids = append(bids, fmt.Sprintf(`["%d","1"]`, 1000-i))
		asks = append(asks, fmt.Sprintf(`["%d","1"]`, 1001+i))
	}
	raw := fmt.Sprintf(
		`{"arg":{"channel":"books","instId":"X"},"data":[{"bids":[%s],"asks":[%s],"ts":"1","instId":"X"}]}`,
		strings.Join(bids, ","), strings.Join(asks, ","),
	)

	a, _ := Lookup(domain.VenueOKX)
	snap := a.Parse([]byte(raw))
	require.NotNil(t, snap)

	assert.Len(t, snap.Bids, domain.MaxDepth)
	assert.Len(t, snap.Asks, domain.MaxDepth)

	// Clipping keeps the best levels.
	assert.Equal(t, 1000.0, snap.Bids[0].Price)
	assert.Equal(t, 1001.0, snap.Asks[0].Price)
}

func TestParseSortInvariant(t *testing.T) {
	a, _ := Lookup(domain.VenueOKX)
	snap := a.Parse([]byte(okxBookFrame))
	require.NotNil(t, snap)

	for i := 1; i < len(snap.Bids); i++ {
		assert.GreaterOrEqual(t, snap.Bids[i-1].Price, snap.Bids[i].Price)
	}
	for i := 1; i < len(snap.Asks); i++ {
		assert.LessOrEqual(t, snap.Asks[i-1].Price, snap.Asks[i].Price)
	}
}

func TestParseDropsDuplicatePrices(t *testing.T) {
	a, _ := Lookup(domain.VenueOKX)
	raw := `{"arg":{},"data":[{"bids":[["100","1"],["100","2"],["99","3"]],"asks":[],"ts":"1","instId":"X"}]}`

	snap := a.Parse([]byte(raw))
	require.NotNil(t, snap)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	assert.Equal(t, 99.0, snap.Bids[1].Price)
}

func TestParseIsIdempotent(t *testing.T) {
	for _, v := range Supported() {
		a, err := Lookup(v)
		require.NoError(t, err)

		var raw string
		switch v {
		case domain.VenueOKX:
			raw = okxBookFrame
		case domain.VenueBybit:
			raw = `{"topic":"orderbook.50.X","ts":1,"data":{"s":"X","b":[["99","1"]],"a":[["100","2"]]}}`
		case domain.VenueDeribit:
			raw = `{"jsonrpc":"2.0","method":"subscription","params":{"data":{"timestamp":1,"instrument_name":"X","bids":[[99,1]],"asks":[[100,2]]}}}`
		}

		first := a.Parse([]byte(raw))
		second := a.Parse([]byte(raw))
		require.NotNil(t, first, v)
		assert.Equal(t, first, second, v)
	}
}
