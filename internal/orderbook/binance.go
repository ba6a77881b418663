package orderbook

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/awaitables"
)

// BinanceDelta is one incremental depth update, carrying both the spot
// (U/u) and futures (pu) continuity fields described in Binance's
// docs; HasPrevFinalUpdateID distinguishes a futures delta (which
// carries pu) from a spot delta (which doesn't).
type BinanceDelta struct {
	FirstUpdateID        int64
	FinalUpdateID        int64
	PrevFinalUpdateID    int64
	HasPrevFinalUpdateID bool
	Bids                 [][2]decimal.Decimal
	Asks                 [][2]decimal.Decimal
}

// BinanceSnapshotFetcher fetches the REST order book snapshot used to
// bootstrap the merger, returning the snapshot and its lastUpdateId.
type BinanceSnapshotFetcher func(symbol string) (Snapshot, int64, error)

type binanceSnapshotResult struct {
	snapshot     Snapshot
	lastUpdateID int64
}

// BinanceMerger ports uxapi.exchanges.binance.BinanceOrderBookMerger:
// deltas are buffered until a REST snapshot finishes loading in the
// background, then stale cached deltas (those at or before the
// snapshot's lastUpdateId) are discarded before replay.
type BinanceMerger struct {
	symbol  string
	fetch   BinanceSnapshotFetcher
	breaker *gobreaker.CircuitBreaker[binanceSnapshotResult]

	mu              sync.Mutex
	hasSnapshot     bool
	hasLastUpdateID bool
	lastUpdateID    int64
	askPrices       []decimal.Decimal
	bidPrices       []decimal.Decimal
	snapshot        Snapshot
	cache           []BinanceDelta
	future          *awaitables.Future
}

// NewBinanceMerger builds a merger for one symbol. fetch is wrapped in
// a circuit breaker so a misbehaving REST endpoint degrades to
// apperror.CodeCircuitOpen instead of being hammered while deltas pile
// up in cache.
func NewBinanceMerger(symbol string, fetch BinanceSnapshotFetcher) *BinanceMerger {
	return &BinanceMerger{
		symbol:  symbol,
		fetch:   fetch,
		breaker: gobreaker.NewCircuitBreaker[binanceSnapshotResult](gobreaker.Settings{Name: "binance-snapshot:" + symbol}),
	}
}

// Merge applies one delta. ok is false while the merger is still
// waiting on its initial REST snapshot (the delta has been cached, not
// discarded, and will be replayed once the snapshot arrives).
func (m *BinanceMerger) Merge(delta BinanceDelta) (snapshot Snapshot, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasSnapshot {
		if err := m.apply(delta); err != nil {
			return Snapshot{}, false, err
		}
		return m.snapshot, true, nil
	}

	m.cache = append(m.cache, delta)
	if m.future == nil {
		m.future = awaitables.RunInExecutor(func() (any, error) {
			return m.breaker.Execute(func() (binanceSnapshotResult, error) {
				snap, lastID, ferr := m.fetch(m.symbol)
				if ferr != nil {
					return binanceSnapshotResult{}, ferr
				}
				return binanceSnapshotResult{snapshot: snap, lastUpdateID: lastID}, nil
			})
		})
	}
	if !m.future.Done() {
		return Snapshot{}, false, nil
	}

	value, ferr := m.future.Result()
	m.future = nil
	if ferr != nil {
		return Snapshot{}, false, apperror.External(apperror.CodeOrderbookFetchFailed, m.symbol, ferr)
	}
	res := value.(binanceSnapshotResult)

	i := sort.Search(len(m.cache), func(i int) bool { return m.cache[i].FinalUpdateID > res.lastUpdateID })
	m.cache = m.cache[i:]
	m.onSnapshot(res.snapshot)

	replay := m.cache
	m.cache = nil
	for _, d := range replay {
		if err := m.apply(d); err != nil {
			return Snapshot{}, false, err
		}
	}
	return m.snapshot, true, nil
}

func (m *BinanceMerger) onSnapshot(snap Snapshot) {
	m.snapshot = snap
	m.hasSnapshot = true
	m.hasLastUpdateID = false
	m.askPrices = priceIndexOf(snap.Asks, false)
	m.bidPrices = priceIndexOf(snap.Bids, true)
}

func (m *BinanceMerger) apply(delta BinanceDelta) error {
	if m.hasLastUpdateID {
		if delta.HasPrevFinalUpdateID {
			if delta.PrevFinalUpdateID != m.lastUpdateID {
				return apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
			}
		} else if delta.FirstUpdateID != m.lastUpdateID+1 {
			return apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
		}
	}
	m.lastUpdateID = delta.FinalUpdateID
	m.hasLastUpdateID = true

	for _, u := range delta.Asks {
		m.snapshot.Asks, m.askPrices = mergeSide(m.snapshot.Asks, m.askPrices, u[0], u[1], false)
	}
	for _, u := range delta.Bids {
		m.snapshot.Bids, m.bidPrices = mergeSide(m.snapshot.Bids, m.bidPrices, u[0], u[1], true)
	}
	return nil
}
