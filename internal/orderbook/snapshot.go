// Package orderbook reconstructs a full order book from an exchange's
// incremental WebSocket deltas. It hosts one merger implementation per
// family described in SPEC_FULL.md §5.5: Binance (REST-snapshot
// bootstrap), Okex (checksum-verified partial/update), Bitmex
// (id-keyed insert/update/delete), and Huobi (parallel-WS snapshot for
// the spot/derivatives "pro" venue, server-pushed snapshot+version for
// the "dm" venue).
package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Row is one price level: a price and the total size resting there.
type Row struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Snapshot is a full order book side pair, asks ascending by price and
// bids descending by price — the shape every merger converges on
// regardless of how its exchange frames deltas on the wire.
type Snapshot struct {
	Asks []Row
	Bids []Row
}

// mergeSide applies one [price, size] update to a sorted side of the
// book, following uxapi.exchanges.binance.BinanceOrderBookMerger.
// merge_asks_bids: a parallel sorted price index is binary-searched;
// an exact match with zero size deletes the level, an exact match with
// non-zero size replaces it, and a miss with non-zero size inserts a
// new level at the right spot. Bids pass negate=true so both sides use
// the same ascending binary search while Rows keep the real price.
func mergeSide(rows []Row, priceIndex []decimal.Decimal, price, size decimal.Decimal, negate bool) ([]Row, []decimal.Decimal) {
	key := price
	if negate {
		key = price.Neg()
	}
	i := sort.Search(len(priceIndex), func(i int) bool { return priceIndex[i].GreaterThanOrEqual(key) })
	switch {
	case i < len(priceIndex) && priceIndex[i].Equal(key):
		if size.IsZero() {
			rows = append(rows[:i], rows[i+1:]...)
			priceIndex = append(priceIndex[:i], priceIndex[i+1:]...)
		} else {
			rows[i] = Row{Price: price, Size: size}
		}
	default:
		if !size.IsZero() {
			rows = append(rows, Row{})
			copy(rows[i+1:], rows[i:])
			rows[i] = Row{Price: price, Size: size}

			priceIndex = append(priceIndex, decimal.Zero)
			copy(priceIndex[i+1:], priceIndex[i:])
			priceIndex[i] = key
		}
	}
	return rows, priceIndex
}

func priceIndexOf(rows []Row, negate bool) []decimal.Decimal {
	idx := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		if negate {
			idx[i] = r.Price.Neg()
		} else {
			idx[i] = r.Price
		}
	}
	return idx
}
