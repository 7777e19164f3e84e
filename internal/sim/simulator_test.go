package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

func levels(pairs ...[2]float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domain.PriceLevel{Price: p[0], Size: p[1]})
	}
	return out
}

func buy(qty float64) domain.OrderRequest {
	return domain.OrderRequest{
		Venue:    domain.VenueOKX,
		Symbol:   "BTC-USDT",
		Side:     domain.SideBuy,
		Type:     domain.OrderTypeMarket,
		Quantity: qty,
	}
}

func TestSimulatePartialDepthConsumption(t *testing.T) {
	snap := domain.BookSnapshot{
		Asks: levels([2]float64{100, 1}, [2]float64{101, 2}),
	}

	res := Simulate(snap, buy(2))

	assert.InDelta(t, 100, res.EstimatedFillPercent, 1e-9)
	assert.InDelta(t, 100.5, res.AveragePrice, 1e-9)
	assert.InDelta(t, 0.5, res.SlippagePercent, 1e-9)
	assert.InDelta(t, 100.0/1.5, res.MarketImpactPercent, 1e-9) // 2 of 3 units
	assert.Equal(t, 101.0, res.WorstPrice)
}

func TestSimulateStarvation(t *testing.T) {
	snap := domain.BookSnapshot{
		Asks: levels([2]float64{100, 1}),
	}

	res := Simulate(snap, buy(5))

	assert.InDelta(t, 20, res.EstimatedFillPercent, 1e-9)
	assert.Equal(t, 100.0, res.WorstPrice)
	assert.InDelta(t, 100, res.AveragePrice, 1e-9)
	assert.InDelta(t, 0, res.SlippagePercent, 1e-9)
	assert.InDelta(t, 100, res.MarketImpactPercent, 1e-9)
}

func TestSimulateFillConservation(t *testing.T) {
	snap := domain.BookSnapshot{
		Asks: levels([2]float64{100, 1}, [2]float64{100.5, 2.5}, [2]float64{101, 4}),
	}

	// Exactly the total opposing depth must fill completely.
	res := Simulate(snap, buy(7.5))
	assert.InDelta(t, 100, res.EstimatedFillPercent, 1e-9)
	assert.InDelta(t, 100, res.MarketImpactPercent, 1e-9)
	assert.Equal(t, 101.0, res.WorstPrice)
}

func TestSimulateEmptyOpposingSide(t *testing.T) {
	snap := domain.BookSnapshot{
		Bids: levels([2]float64{99, 10}),
		Asks: nil,
	}

	res := Simulate(snap, buy(3))

	assert.Zero(t, res.EstimatedFillPercent)
	assert.Zero(t, res.MarketImpactPercent)
	assert.Zero(t, res.SlippagePercent)
	assert.Zero(t, res.AveragePrice)
	assert.Zero(t, res.WorstPrice)
}

func TestSimulateSellWalksBids(t *testing.T) {
	snap := domain.BookSnapshot{
		Bids: levels([2]float64{100, 1}, [2]float64{99, 2}),
		Asks: levels([2]float64{101, 5}),
	}

	req := buy(2)
	req.Side = domain.SideSell
	res := Simulate(snap, req)

	assert.InDelta(t, 100, res.EstimatedFillPercent, 1e-9)
	assert.InDelta(t, 99.5, res.AveragePrice, 1e-9)
	assert.InDelta(t, 0.5, res.SlippagePercent, 1e-9)
	assert.Equal(t, 99.0, res.WorstPrice)
	assert.InDelta(t, 100.0*2/3, res.MarketImpactPercent, 1e-9)
}

// Limit orders are priced as a full market sweep: the walk deliberately does
// not stop at the limit price.
func TestSimulateLimitSweepsFullDepth(t *testing.T) {
	snap := domain.BookSnapshot{
		Asks: levels([2]float64{100, 1}, [2]float64{105, 5}),
	}

	req := buy(3)
	req.Type = domain.OrderTypeLimit
	req.LimitPrice = 100
	res := Simulate(snap, req)

	// Fills past the limit price.
	assert.InDelta(t, 100, res.EstimatedFillPercent, 1e-9)
	assert.Equal(t, 105.0, res.WorstPrice)
}

func TestSimulateIsPure(t *testing.T) {
	snap := domain.BookSnapshot{
		Bids: levels([2]float64{99, 1}),
		Asks: levels([2]float64{100, 1}, [2]float64{101, 2}),
	}
	req := buy(2)

	first := Simulate(snap, req)
	second := Simulate(snap, req)
	require.Equal(t, first, second)

	// The snapshot must be untouched by the walk.
	assert.Equal(t, levels([2]float64{100, 1}, [2]float64{101, 2}), snap.Asks)
	assert.Equal(t, levels([2]float64{99, 1}), snap.Bids)
}
