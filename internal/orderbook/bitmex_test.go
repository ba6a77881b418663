package orderbook

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
)

func TestBitmexMerger_PartialThenInsertUpdateDelete(t *testing.T) {
	m := NewBitmexMerger("XBTUSD")

	partial := BitmexFrame{Action: "partial", Data: []BitmexEntry{
		{ID: 1, Side: BitmexSell, Price: dec("100"), Size: dec("5")},
		{ID: 2, Side: BitmexBuy, Price: dec("99"), Size: dec("3")},
	}}
	snap, err := m.Merge(partial)
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	if len(snap.Asks) != 1 || len(snap.Bids) != 1 {
		t.Fatalf("unexpected snapshot after partial: %+v", snap)
	}

	insert := BitmexFrame{Action: "insert", Data: []BitmexEntry{
		{ID: 3, Side: BitmexSell, Price: dec("101"), Size: dec("2")},
	}}
	snap, err = m.Merge(insert)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(snap.Asks) != 2 {
		t.Fatalf("expected 2 asks after insert, got %+v", snap.Asks)
	}

	update := BitmexFrame{Action: "update", Data: []BitmexEntry{
		{ID: 1, Side: BitmexSell, Size: dec("7")},
	}}
	snap, err = m.Merge(update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	found := false
	for _, a := range snap.Asks {
		if a.Price.Equal(dec("100")) && a.Size.Equal(dec("7")) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected updated size 7 at price 100, got %+v", snap.Asks)
	}

	del := BitmexFrame{Action: "delete", Data: []BitmexEntry{{ID: 3, Side: BitmexSell}}}
	snap, err = m.Merge(del)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(snap.Asks) != 1 {
		t.Fatalf("expected 1 ask after delete, got %+v", snap.Asks)
	}
}

func TestBitmexMerger_RejectsUpdateOnEmptyBook(t *testing.T) {
	m := NewBitmexMerger("XBTUSD")
	_, err := m.Merge(BitmexFrame{Action: "update", Data: []BitmexEntry{{ID: 1, Side: BitmexSell, Size: dec("1")}}})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidPatch {
		t.Fatalf("expected CodeInvalidPatch on empty book update, got %v", err)
	}
}

func TestBitmexMerger_RejectsUpdateOnUnknownID(t *testing.T) {
	m := NewBitmexMerger("XBTUSD")
	if _, err := m.Merge(BitmexFrame{Action: "partial", Data: []BitmexEntry{
		{ID: 1, Side: BitmexSell, Price: dec("100"), Size: dec("5")},
	}}); err != nil {
		t.Fatalf("partial: %v", err)
	}
	_, err := m.Merge(BitmexFrame{Action: "update", Data: []BitmexEntry{{ID: 999, Side: BitmexSell, Size: dec("1")}}})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidPatch {
		t.Fatalf("expected CodeInvalidPatch for unknown id update, got %v", err)
	}
}

func TestBitmexMerger_UnknownAction(t *testing.T) {
	m := NewBitmexMerger("XBTUSD")
	_, err := m.Merge(BitmexFrame{Action: "bogus"})
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol for unknown action, got %v", err)
	}
}
