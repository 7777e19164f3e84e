// Package sim prices hypothetical orders against a normalized book snapshot.
// Simulation is a pure computation: no I/O, no randomness, no retained state,
// safe to call concurrently.
package sim

import "github.com/alanyoungcy/bookscope/internal/domain"

// Simulate walks the opposing side of the book best-price-first and computes
// fill, slippage, and market-impact metrics for the request. A buy consumes
// asks (ascending), a sell consumes bids (descending).
//
// The request is assumed to have passed OrderRequest.Validate; Simulate does
// no input validation of its own.
//
// Limit orders are priced as a full market sweep: the walk does not stop at
// the requested limit price. This worst-case approximation is deliberate and
// callers must not rely on a limit-price cutoff.
func Simulate(snap domain.BookSnapshot, req domain.OrderRequest) domain.ImpactResult {
	opposing := snap.Asks
	if req.Side == domain.SideSell {
		opposing = snap.Bids
	}

	var (
		remaining  = req.Quantity
		filled     float64
		cost       float64
		worstPrice float64
	)

	for _, lvl := range opposing {
		if remaining <= 0 {
			break
		}
		take := remaining
		if lvl.Size < take {
			take = lvl.Size
		}
		if take <= 0 {
			continue
		}
		cost += take * lvl.Price
		filled += take
		remaining -= take
		worstPrice = lvl.Price
	}

	res := domain.ImpactResult{WorstPrice: worstPrice}

	if req.Quantity > 0 {
		res.EstimatedFillPercent = 100 * filled / req.Quantity
	}
	if filled > 0 {
		res.AveragePrice = cost / filled
	}

	var bestPrice float64
	if len(opposing) > 0 {
		bestPrice = opposing[0].Price
	}
	if filled > 0 && bestPrice > 0 {
		diff := res.AveragePrice - bestPrice
		if diff < 0 {
			diff = -diff
		}
		res.SlippagePercent = 100 * diff / bestPrice
	}

	var totalDepth float64
	for _, lvl := range opposing {
		totalDepth += lvl.Size
	}
	if totalDepth > 0 {
		res.MarketImpactPercent = 100 * filled / totalDepth
	}

	return res
}
