package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
)

// BitmexSide distinguishes the two sides of a Bitmex order book entry.
type BitmexSide int

const (
	BitmexSell BitmexSide = iota
	BitmexBuy
)

// BitmexEntry is one row of a Bitmex orderBookL2-style frame.
type BitmexEntry struct {
	ID    int64
	Side  BitmexSide
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BitmexFrame is one already-unwrapped table frame.
type BitmexFrame struct {
	Action string // "partial", "update", "delete", "insert"
	Data   []BitmexEntry
}

// BitmexMerger ports uxapi.exchanges.bitmex.BitmexOrderBookMerger: rows
// are kept in an id-keyed map and only re-sorted after a delete or
// insert — a plain size-only "update" mutates a row in place without
// touching its position, since its price (and therefore its sort key)
// never changes.
type BitmexMerger struct {
	symbol  string
	hasData bool
	byID    map[int64]BitmexEntry
	sorted  []BitmexEntry
	posByID map[int64]int
}

// NewBitmexMerger builds a merger for one symbol (used only for error
// context).
func NewBitmexMerger(symbol string) *BitmexMerger {
	return &BitmexMerger{symbol: symbol, byID: make(map[int64]BitmexEntry)}
}

// Merge applies one frame and returns the resulting snapshot.
func (m *BitmexMerger) Merge(frame BitmexFrame) (Snapshot, error) {
	switch frame.Action {
	case "partial":
		m.onSnapshot(frame)
	case "update":
		if !m.hasData {
			return Snapshot{}, apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
		}
		for _, e := range frame.Data {
			cur, ok := m.byID[e.ID]
			if !ok {
				return Snapshot{}, apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
			}
			cur.Size = e.Size
			m.byID[e.ID] = cur
			if pos, ok := m.posByID[e.ID]; ok {
				m.sorted[pos].Size = e.Size
			}
		}
	case "delete":
		if !m.hasData {
			return Snapshot{}, apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
		}
		for _, e := range frame.Data {
			delete(m.byID, e.ID)
		}
		m.resort()
	case "insert":
		if !m.hasData {
			return Snapshot{}, apperror.Validation(apperror.CodeInvalidPatch, m.symbol)
		}
		for _, e := range frame.Data {
			m.byID[e.ID] = e
		}
		m.resort()
	default:
		return Snapshot{}, apperror.Validation(apperror.CodeProtocol, frame.Action)
	}
	return m.toSnapshot(), nil
}

func (m *BitmexMerger) onSnapshot(frame BitmexFrame) {
	m.byID = make(map[int64]BitmexEntry, len(frame.Data))
	for _, e := range frame.Data {
		m.byID[e.ID] = e
	}
	m.hasData = true
	m.resort()
}

// resort ports BitmexOrderBookMerger.update_snapshot's sort key:
// (side, price) ascending, with Buy-side price negated so higher bids
// sort first just like lower asks do.
func (m *BitmexMerger) resort() {
	rows := make([]BitmexEntry, 0, len(m.byID))
	for _, e := range m.byID {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool {
		ki, kj := bitmexSortKey(rows[i]), bitmexSortKey(rows[j])
		if rows[i].Side != rows[j].Side {
			return rows[i].Side < rows[j].Side
		}
		return ki.LessThan(kj)
	})
	m.sorted = rows
	m.posByID = make(map[int64]int, len(rows))
	for i, e := range rows {
		m.posByID[e.ID] = i
	}
}

func bitmexSortKey(e BitmexEntry) decimal.Decimal {
	if e.Side == BitmexBuy {
		return e.Price.Neg()
	}
	return e.Price
}

func (m *BitmexMerger) toSnapshot() Snapshot {
	snap := Snapshot{}
	for _, e := range m.sorted {
		row := Row{Price: e.Price, Size: e.Size}
		if e.Side == BitmexSell {
			snap.Asks = append(snap.Asks, row)
		} else {
			snap.Bids = append(snap.Bids, row)
		}
	}
	return snap
}
