package orderbook

import (
	"hash/crc32"
	"strings"
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
)

// okexChecksum replicates OkexMerger.validateChecksum's CRC32 construction
// for a test frame: interleave bid,ask,bid,ask,... (top 25 each side) and
// CRC32 the ":"-joined wire strings.
func okexChecksum(bids, asks []OkexRowUpdate) int32 {
	if len(bids) > 25 {
		bids = bids[:25]
	}
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
			parts = append(parts, bids[i].Price, bids[i].Size)
		}
		if i < len(asks) {
			parts = append(parts, asks[i].Price, asks[i].Size)
		}
	}
	return int32(crc32.ChecksumIEEE([]byte(strings.Join(parts, ":"))))
}

func TestOkexMerger_PartialThenUpdate(t *testing.T) {
	m := NewOkexMerger("BTC-USDT")
	bids := []OkexRowUpdate{{Price: "99", Size: "1"}}
	asks := []OkexRowUpdate{{Price: "100", Size: "1"}}
	partial := OkexFrame{Action: "partial", Bids: bids, Asks: asks, Checksum: okexChecksum(bids, asks)}

	snap, err := m.Merge(partial)
	if err != nil {
		t.Fatalf("partial merge: %v", err)
	}
	if len(snap.Asks) != 1 || !snap.Asks[0].Size.Equal(dec("1")) {
		t.Fatalf("unexpected snapshot after partial: %+v", snap.Asks)
	}

	updateBids := []OkexRowUpdate{{Price: "99", Size: "1"}}
	updateAsks := []OkexRowUpdate{{Price: "100", Size: "0"}, {Price: "101", Size: "2"}}
	resultAsks := []OkexRowUpdate{{Price: "101", Size: "2"}}
	update := OkexFrame{Action: "update", Bids: updateBids, Asks: updateAsks, Checksum: okexChecksum(updateBids, resultAsks)}

	snap, err = m.Merge(update)
	if err != nil {
		t.Fatalf("update merge: %v", err)
	}
	for _, a := range snap.Asks {
		if a.Price.Equal(dec("100")) {
			t.Fatalf("size-zero row should have been removed: %+v", snap.Asks)
		}
	}
}

func TestOkexMerger_ChecksumMismatch(t *testing.T) {
	m := NewOkexMerger("BTC-USDT")
	partial := OkexFrame{
		Action:   "partial",
		Bids:     []OkexRowUpdate{{Price: "99", Size: "1"}},
		Asks:     []OkexRowUpdate{{Price: "100", Size: "1"}},
		Checksum: 12345, // deliberately wrong
	}
	_, err := m.Merge(partial)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeChecksum {
		t.Fatalf("expected CodeChecksum, got %v", err)
	}
}

func TestOkexMerger_UnknownAction(t *testing.T) {
	m := NewOkexMerger("BTC-USDT")
	_, err := m.Merge(OkexFrame{Action: "bogus"})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol for unknown action, got %v", err)
	}
}
