// Package venue holds one protocol adapter per supported exchange. An adapter
// carries the static wire knowledge for its venue (endpoint, subscribe
// envelope, book payload shape) and normalizes raw frames into
// domain.BookSnapshot values; it owns no network code of its own.
package venue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

// Adapter is the per-venue capability surface consumed by the feed manager.
//
// Parse returns nil for frames that carry no book payload (heartbeats,
// subscribe acks) and for structurally incomplete book messages; it never
// returns a partially populated snapshot. Adapters are stateless: parsing the
// same frame twice yields equal snapshots.
type Adapter interface {
	Venue() domain.Venue
	Endpoint() string
	SubscriptionPayload(symbol string) ([]byte, error)
	Parse(raw []byte) *domain.BookSnapshot
}

var registry = map[domain.Venue]Adapter{
	domain.VenueOKX:     &okxAdapter{},
	domain.VenueBybit:   &bybitAdapter{},
	domain.VenueDeribit: &deribitAdapter{},
}

// Lookup returns the adapter for a venue, or domain.ErrUnsupportedVenue.
func Lookup(v domain.Venue) (Adapter, error) {
	a, ok := registry[v]
	if !ok {
		return nil, fmt.Errorf("venue: %q: %w", v, domain.ErrUnsupportedVenue)
	}
	return a, nil
}

// Supported lists all registered venues in stable order.
func Supported() []domain.Venue {
	venues := make([]domain.Venue, 0, len(registry))
	for v := range registry {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })
	return venues
}

// flexFloat unmarshals from a JSON number or a numeric string, since venues
// disagree on how prices and sizes are encoded.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// msToTime converts a venue-reported epoch-milliseconds value.
func msToTime(ms flexFloat) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// parseSide decodes one raw side ([[price, size, ...], ...]) and normalizes
// it: coerce to float64, reject garbage entries, sort best-first, drop
// duplicate prices, clip to domain.MaxDepth. ok is false when the side cannot
// be decoded consistently, in which case the whole message must be rejected.
//
// An empty side decodes to an empty (non-nil) slice; downstream treats it as
// "no depth", not as an error.
func parseSide(raw json.RawMessage, descending bool) (levels []domain.PriceLevel, ok bool) {
	var pairs [][]flexFloat
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, false
	}

	levels = make([]domain.PriceLevel, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			return nil, false
		}
		price, size := float64(p[0]), float64(p[1])
		if price <= 0 || size < 0 {
			return nil, false
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}

	// Venues often deliver sides pre-sorted, but that is never assumed.
	sort.SliceStable(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})

	deduped := levels[:0]
	for _, lvl := range levels {
		if n := len(deduped); n > 0 && deduped[n-1].Price == lvl.Price {
			continue
		}
		deduped = append(deduped, lvl)
	}
	levels = deduped

	if len(levels) > domain.MaxDepth {
		levels = levels[:domain.MaxDepth]
	}
	return levels, true
}
