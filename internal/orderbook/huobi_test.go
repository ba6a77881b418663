package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/awaitables"
)

func TestHuobiproMerger_BootstrapAndApply(t *testing.T) {
	fetch := func(channel string) *awaitables.Future {
		return awaitables.RunInExecutor(func() (any, error) {
			return HuobiSnapshot{
				SeqNum: 10,
				Asks:   [][2]decimal.Decimal{pair("100", "1")},
			}, nil
		})
	}
	m := NewHuobiproMerger("btcusdt", fetch)

	delta := HuobiDelta{PrevSeqNum: 10, SeqNum: 11, Asks: [][2]decimal.Decimal{pair("100", "2")}}
	got := waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(delta) })

	if len(got.Asks) != 1 || !got.Asks[0].Size.Equal(dec("2")) {
		t.Fatalf("expected ask size 2 after replay, got %+v", got.Asks)
	}
	if !m.Bootstrapped() {
		t.Fatal("expected merger to report bootstrapped after successful snapshot match")
	}
}

func TestHuobiproMerger_SeqNumGap(t *testing.T) {
	fetch := func(channel string) *awaitables.Future {
		return awaitables.RunInExecutor(func() (any, error) {
			return HuobiSnapshot{SeqNum: 10}, nil
		})
	}
	m := NewHuobiproMerger("btcusdt", fetch)
	first := HuobiDelta{PrevSeqNum: 10, SeqNum: 11}
	waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(first) })

	gapped := HuobiDelta{PrevSeqNum: 50, SeqNum: 51}
	_, _, err := m.Merge(gapped)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeSeqNum {
		t.Fatalf("expected CodeSeqNum on prevSeqNum mismatch, got %v", err)
	}
}

func TestHuobidmMerger_SnapshotThenUpdate(t *testing.T) {
	m := NewHuobidmMerger("BTC-USD")
	snap, err := m.Merge(HuobidmDelta{Event: "snapshot", Version: 1, Asks: [][2]decimal.Decimal{pair("100", "1")}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Asks) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap.Asks)
	}

	snap, err = m.Merge(HuobidmDelta{Event: "update", Version: 2, Asks: [][2]decimal.Decimal{pair("100", "3")}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !snap.Asks[0].Size.Equal(dec("3")) {
		t.Fatalf("expected updated size 3, got %+v", snap.Asks)
	}
}

func TestHuobidmMerger_RejectsUpdateBeforeSnapshot(t *testing.T) {
	m := NewHuobidmMerger("BTC-USD")
	_, err := m.Merge(HuobidmDelta{Event: "update", Version: 2})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidPatch {
		t.Fatalf("expected CodeInvalidPatch for update before snapshot, got %v", err)
	}
}

func TestHuobidmMerger_VersionGap(t *testing.T) {
	m := NewHuobidmMerger("BTC-USD")
	if _, err := m.Merge(HuobidmDelta{Event: "snapshot", Version: 1}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	_, err := m.Merge(HuobidmDelta{Event: "update", Version: 5})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeVersion {
		t.Fatalf("expected CodeVersion on version gap, got %v", err)
	}
}

func TestHuobidmMerger_UnknownEvent(t *testing.T) {
	m := NewHuobidmMerger("BTC-USD")
	_, err := m.Merge(HuobidmDelta{Event: "bogus"})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol for unknown event, got %v", err)
	}
}
