package orderbook

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/awaitables"
)

// mergeHuobiSide ports _HuobiOrderBookMerger.merge_asks_bids — the
// same binary-search replace/insert/delete primitive as Binance/Okex,
// just operating on already-numeric [price, size] pairs since Huobi's
// JSON frames carry floats, not strings.
func mergeHuobiSide(rows []Row, priceIndex []decimal.Decimal, updates [][2]decimal.Decimal, negate bool) ([]Row, []decimal.Decimal) {
	for _, u := range updates {
		rows, priceIndex = mergeSide(rows, priceIndex, u[0], u[1], negate)
	}
	return rows, priceIndex
}

// HuobiDelta is one incremental depth update for Huobipro full-depth
// (market.<symbol>.mbp.150) channels.
type HuobiDelta struct {
	Channel    string
	PrevSeqNum int64
	SeqNum     int64
	Bids       [][2]decimal.Decimal
	Asks       [][2]decimal.Decimal
}

// HuobiSnapshot is the parsed "rep" reply to a HuobiWSReq snapshot
// request.
type HuobiSnapshot struct {
	SeqNum int64
	Bids   [][2]decimal.Decimal
	Asks   [][2]decimal.Decimal
}

// HuobiSnapshotFetcher issues (or reuses) a parallel request-WebSocket
// round trip for channel and returns a Future resolving to a
// HuobiSnapshot.
type HuobiSnapshotFetcher func(channel string) *awaitables.Future

// HuobiproMerger ports uxapi.exchanges.huobi.HuobiproOrderBookMerger:
// deltas are buffered while a snapshot is requested over a second,
// parallel WebSocket; once the snapshot arrives its seqNum is matched
// against the cached deltas' prevSeqNum by binary search, deltas
// before the match are discarded, and replay starts with the match.
type HuobiproMerger struct {
	symbol string
	fetch  HuobiSnapshotFetcher

	mu          sync.Mutex
	hasSnapshot bool
	channel     string
	seqNum      int64
	askPrices   []decimal.Decimal
	bidPrices   []decimal.Decimal
	snapshot    Snapshot
	cache       []HuobiDelta
	future      *awaitables.Future
}

// NewHuobiproMerger builds a merger for one symbol/channel.
func NewHuobiproMerger(symbol string, fetch HuobiSnapshotFetcher) *HuobiproMerger {
	return &HuobiproMerger{symbol: symbol, fetch: fetch}
}

// Bootstrapped reports whether the initial snapshot has been applied;
// callers use the false-to-true transition to know when it is safe to
// tear down the parallel request WebSocket.
func (m *HuobiproMerger) Bootstrapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasSnapshot
}

// Merge applies one delta, returning ok=false while still waiting on
// the snapshot request (or on a stale/mismatched snapshot, which is
// discarded so the next call issues a fresh request).
func (m *HuobiproMerger) Merge(delta HuobiDelta) (snapshot Snapshot, ok bool, err error) {
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
		m.channel = delta.Channel
		m.future = m.fetch(m.channel)
	}
	if !m.future.Done() {
		return Snapshot{}, false, nil
	}

	value, ferr := m.future.Result()
	m.future = nil
	if ferr != nil {
		return Snapshot{}, false, apperror.External(apperror.CodeOrderbookFetchFailed, m.symbol, ferr)
	}
	snap := value.(HuobiSnapshot)

	seqnums := make([]int64, len(m.cache))
	for i, d := range m.cache {
		seqnums[i] = d.PrevSeqNum
	}
	i := sort.Search(len(seqnums), func(i int) bool { return seqnums[i] >= snap.SeqNum })
	if i == len(seqnums) || seqnums[i] != snap.SeqNum {
		// no cached delta continues from this snapshot; discard it
		// and let the next Merge call request a fresh one.
		return Snapshot{}, false, nil
	}

	replay := m.cache[i:]
	m.cache = nil
	m.onSnapshot(snap)
	for _, d := range replay {
		if err := m.apply(d); err != nil {
			return Snapshot{}, false, err
		}
	}
	return m.snapshot, true, nil
}

func (m *HuobiproMerger) onSnapshot(snap HuobiSnapshot) {
	m.snapshot = Snapshot{
		Asks: make([]Row, len(snap.Asks)),
		Bids: make([]Row, len(snap.Bids)),
	}
	for i, u := range snap.Asks {
		m.snapshot.Asks[i] = Row{Price: u[0], Size: u[1]}
	}
	for i, u := range snap.Bids {
		m.snapshot.Bids[i] = Row{Price: u[0], Size: u[1]}
	}
	m.askPrices = priceIndexOf(m.snapshot.Asks, false)
	m.bidPrices = priceIndexOf(m.snapshot.Bids, true)
	m.seqNum = snap.SeqNum
	m.hasSnapshot = true
}

func (m *HuobiproMerger) apply(delta HuobiDelta) error {
	if m.seqNum != delta.PrevSeqNum {
		return apperror.Validation(apperror.CodeSeqNum, m.symbol)
	}
	m.seqNum = delta.SeqNum
	m.snapshot.Asks, m.askPrices = mergeHuobiSide(m.snapshot.Asks, m.askPrices, delta.Asks, false)
	m.snapshot.Bids, m.bidPrices = mergeHuobiSide(m.snapshot.Bids, m.bidPrices, delta.Bids, true)
	return nil
}

// HuobidmDelta is one server-pushed frame for Huobidm full-depth
// channels: the exchange itself distinguishes an initial snapshot
// (Event == "snapshot") from a delta (Event == "update"), so there is
// no separate bootstrap round trip like Huobipro's.
type HuobidmDelta struct {
	Event   string // "snapshot" or "update"
	Version int64
	Bids    [][2]decimal.Decimal
	Asks    [][2]decimal.Decimal
}

// HuobidmMerger ports uxapi.exchanges.huobi.HuobidmOrderBookMerger:
// strict version-must-increase-by-exactly-one continuity, enforced on
// every update frame.
type HuobidmMerger struct {
	symbol      string
	hasSnapshot bool
	version     int64
	askPrices   []decimal.Decimal
	bidPrices   []decimal.Decimal
	snapshot    Snapshot
}

// NewHuobidmMerger builds a merger for one symbol (used only for
// error context).
func NewHuobidmMerger(symbol string) *HuobidmMerger {
	return &HuobidmMerger{symbol: symbol}
}

// Merge applies one frame and returns the resulting snapshot.
func (m *HuobidmMerger) Merge(delta HuobidmDelta) (Snapshot, error) {
	switch delta.Event {
	case "snapshot":
		m.onSnapshot(delta)
	case "update":
		if !m.hasSnapshot {
			return Snapshot{}, apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
		}
		if m.version+1 != delta.Version {
			return Snapshot{}, apperror.Validation(apperror.CodeVersion, m.symbol)
		}
		m.version = delta.Version
		m.snapshot.Asks, m.askPrices = mergeHuobiSide(m.snapshot.Asks, m.askPrices, delta.Asks, false)
		m.snapshot.Bids, m.bidPrices = mergeHuobiSide(m.snapshot.Bids, m.bidPrices, delta.Bids, true)
	default:
		return Snapshot{}, apperror.Validation(apperror.CodeProtocol, delta.Event)
	}
	return m.snapshot, nil
}

func (m *HuobidmMerger) onSnapshot(delta HuobidmDelta) {
	m.snapshot = Snapshot{
		Asks: make([]Row, len(delta.Asks)),
		Bids: make([]Row, len(delta.Bids)),
	}
	for i, u := range delta.Asks {
		m.snapshot.Asks[i] = Row{Price: u[0], Size: u[1]}
	}
	for i, u := range delta.Bids {
		m.snapshot.Bids[i] = Row{Price: u[0], Size: u[1]}
	}
	m.askPrices = priceIndexOf(m.snapshot.Asks, false)
	m.bidPrices = priceIndexOf(m.snapshot.Bids, true)
	m.version = delta.Version
	m.hasSnapshot = true
}
