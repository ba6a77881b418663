package orderbook

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(price, size string) Row {
	return Row{Price: dec(price), Size: dec(size)}
}

func pair(price, size string) [2]decimal.Decimal {
	return [2]decimal.Decimal{dec(price), dec(size)}
}

func waitForSnapshot(t *testing.T, merge func() (Snapshot, bool, error)) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok, err := merge()
		if err != nil {
			t.Fatalf("merge: %v", err)
		}
		if ok {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for snapshot bootstrap")
	return Snapshot{}
}

func TestBinanceMerger_BootstrapAndApply(t *testing.T) {
	snap := Snapshot{
		Asks: []Row{row("100", "1")},
		Bids: []Row{row("99", "1")},
	}
	fetch := func(symbol string) (Snapshot, int64, error) {
		return snap, 10, nil
	}
	m := NewBinanceMerger("BTCUSDT", fetch)

	delta := BinanceDelta{FirstUpdateID: 11, FinalUpdateID: 11, Asks: [][2]decimal.Decimal{pair("100", "2")}}
	got := waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(delta) })

	if len(got.Asks) != 1 || !got.Asks[0].Size.Equal(dec("2")) {
		t.Fatalf("expected ask size 2 after replay, got %+v", got.Asks)
	}
}

func TestBinanceMerger_DiscardsDeltasBeforeSnapshot(t *testing.T) {
	fetch := func(symbol string) (Snapshot, int64, error) {
		return Snapshot{Asks: []Row{row("100", "1")}}, 20, nil
	}
	m := NewBinanceMerger("BTCUSDT", fetch)

	stale := BinanceDelta{FirstUpdateID: 5, FinalUpdateID: 5, Asks: [][2]decimal.Decimal{pair("50", "9")}}
	fresh := BinanceDelta{FirstUpdateID: 21, FinalUpdateID: 21, Asks: [][2]decimal.Decimal{pair("101", "3")}}

	if _, ok, err := m.Merge(stale); err != nil || ok {
		t.Fatalf("expected stale delta to just be cached, got ok=%v err=%v", ok, err)
	}
	got := waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(fresh) })

	for _, a := range got.Asks {
		if a.Price.Equal(dec("50")) {
			t.Fatalf("stale delta below snapshot lastUpdateId should have been discarded: %+v", got.Asks)
		}
	}
}

func TestBinanceMerger_GapDetection(t *testing.T) {
	fetch := func(symbol string) (Snapshot, int64, error) {
		return Snapshot{Asks: []Row{row("100", "1")}}, 10, nil
	}
	m := NewBinanceMerger("BTCUSDT", fetch)
	first := BinanceDelta{FirstUpdateID: 11, FinalUpdateID: 11}
	waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(first) })

	gapped := BinanceDelta{FirstUpdateID: 50, FinalUpdateID: 50}
	_, _, err := m.Merge(gapped)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidPatch {
		t.Fatalf("expected CodeInvalidPatch on update-id gap, got %v", err)
	}
}

func TestBinanceMerger_FuturesPrevFinalUpdateID(t *testing.T) {
	fetch := func(symbol string) (Snapshot, int64, error) {
		return Snapshot{}, 5, nil
	}
	m := NewBinanceMerger("BTCUSD_PERP", fetch)
	first := BinanceDelta{FirstUpdateID: 6, FinalUpdateID: 6, HasPrevFinalUpdateID: true, PrevFinalUpdateID: 0}
	waitForSnapshot(t, func() (Snapshot, bool, error) { return m.Merge(first) })

	mismatched := BinanceDelta{FinalUpdateID: 8, HasPrevFinalUpdateID: true, PrevFinalUpdateID: 99}
	_, _, err := m.Merge(mismatched)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidPatch {
		t.Fatalf("expected CodeInvalidPatch on pu mismatch, got %v", err)
	}
}
