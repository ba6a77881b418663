package orderbook

import (
	"hash/crc32"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
)

// OkexRowUpdate is one [price, size] pair as it arrives over the wire
// (kept as the original strings, since the checksum is computed over
// the literal wire text, not a reformatted decimal).
type OkexRowUpdate struct {
	Price string
	Size  string
}

// OkexFrame is one already-unwrapped depth frame: the adapter is
// responsible for picking the relevant element out of Okex's envelope
// ("data" array, last element for "partial") before calling Merge.
type OkexFrame struct {
	Action   string // "partial" or "update"
	Bids     []OkexRowUpdate
	Asks     []OkexRowUpdate
	Checksum int32
}

type okexRow struct {
	price    decimal.Decimal
	size     decimal.Decimal
	rawPrice string
	rawSize  string
}

// OkexMerger ports uxapi.exchanges.okex.OkexOrderBookMerger: a single
// "partial" frame seeds the book, subsequent "update" frames apply
// deltas, and every frame (partial or update) is checksum-validated
// against the exchange-supplied CRC32 before being surfaced.
type OkexMerger struct {
	symbol string
	asks   []okexRow
	bids   []okexRow
}

// NewOkexMerger builds a merger for one symbol (used only for error
// context).
func NewOkexMerger(symbol string) *OkexMerger {
	return &OkexMerger{symbol: symbol}
}

// Merge applies one frame and returns the resulting snapshot, or an
// apperror.CodeChecksum/CodeProtocol error.
func (m *OkexMerger) Merge(frame OkexFrame) (Snapshot, error) {
	switch frame.Action {
	case "partial":
		m.onSnapshot(frame)
	case "update":
		if err := m.applyUpdate(frame); err != nil {
			return Snapshot{}, err
		}
	default:
		return Snapshot{}, apperror.Validation(apperror.CodeProtocol, frame.Action)
	}

	if err := m.validateChecksum(frame.Checksum); err != nil {
		return Snapshot{}, err
	}
	return m.toSnapshot(), nil
}

func (m *OkexMerger) onSnapshot(frame OkexFrame) {
	m.asks = toOkexRows(frame.Asks, false)
	m.bids = toOkexRows(frame.Bids, true)
}

func (m *OkexMerger) applyUpdate(frame OkexFrame) error {
	m.asks = mergeOkexSide(m.asks, frame.Asks, false)
	m.bids = mergeOkexSide(m.bids, frame.Bids, true)
	return nil
}

func toOkexRows(updates []OkexRowUpdate, negate bool) []okexRow {
	rows := make([]okexRow, 0, len(updates))
	for _, u := range updates {
		price, _ := decimal.NewFromString(u.Price)
		size, _ := decimal.NewFromString(u.Size)
		rows = append(rows, okexRow{price: price, size: size, rawPrice: u.Price, rawSize: u.Size})
	}
	sort.Slice(rows, func(i, j int) bool {
		if negate {
			return rows[i].price.GreaterThan(rows[j].price)
		}
		return rows[i].price.LessThan(rows[j].price)
	})
	return rows
}

// mergeOkexSide ports merge_asks_bids, operating on okexRow so the
// original wire strings survive into the checksum computation.
func mergeOkexSide(rows []okexRow, updates []OkexRowUpdate, negate bool) []okexRow {
	for _, u := range updates {
		price, _ := decimal.NewFromString(u.Price)
		size, _ := decimal.NewFromString(u.Size)
		key := price
		if negate {
			key = price.Neg()
		}
		i := sort.Search(len(rows), func(i int) bool {
			k := rows[i].price
			if negate {
				k = k.Neg()
			}
			return k.GreaterThanOrEqual(key)
		})
		switch {
		case i < len(rows) && rowKey(rows[i], negate).Equal(key):
			if size.IsZero() {
				rows = append(rows[:i], rows[i+1:]...)
			} else {
				rows[i] = okexRow{price: price, size: size, rawPrice: u.Price, rawSize: u.Size}
			}
		default:
			if !size.IsZero() {
				rows = append(rows, okexRow{})
				copy(rows[i+1:], rows[i:])
				rows[i] = okexRow{price: price, size: size, rawPrice: u.Price, rawSize: u.Size}
			}
		}
	}
	return rows
}

func rowKey(r okexRow, negate bool) decimal.Decimal {
	if negate {
		return r.price.Neg()
	}
	return r.price
}

// validateChecksum ports OkexOrderBookMerger.validate: the top 25 rows
// of each side are interleaved bid,ask,bid,ask,... (omitting whichever
// side has fewer than 25 rows once it runs out, matching Python's
// zip_longest + filter(None, ...)) and CRC32'd.
func (m *OkexMerger) validateChecksum(want int32) error {
	bids := m.bids
	if len(bids) > 25 {
		bids = bids[:25]
	}
	asks := m.asks
	if len(asks) > 25 {
		asks = asks[:25]
	}
	n := len(bids)
	if len(asks) > n {
		n = len(asks)
	}

	var parts []string
	for i := 0; i < n; i++ {
		if i < len(bids) {
			parts = append(parts, bids[i].rawPrice, bids[i].rawSize)
		}
		if i < len(asks) {
			parts = append(parts, asks[i].rawPrice, asks[i].rawSize)
		}
	}
	text := strings.Join(parts, ":")
	got := int32(crc32.ChecksumIEEE([]byte(text)))
	if got != want {
		return apperror.Validation(apperror.CodeChecksum, m.symbol)
	}
	return nil
}

func (m *OkexMerger) toSnapshot() Snapshot {
	snap := Snapshot{
		Asks: make([]Row, len(m.asks)),
		Bids: make([]Row, len(m.bids)),
	}
	for i, r := range m.asks {
		snap.Asks[i] = Row{Price: r.price, Size: r.size}
	}
	for i, r := range m.bids {
		snap.Bids[i] = Row{Price: r.price, Size: r.size}
	}
	return snap
}
