package listiter

import "testing"

func TestList_IterateInOrder(t *testing.T) {
	l := New([]int{1, 2, 3})
	var got []int
	for l.HasNext() {
		v, _ := l.Next()
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestList_Prepend(t *testing.T) {
	l := New([]int{2, 3})
	v, _ := l.Next() // cursor now past 2
	if v != 2 {
		t.Fatalf("expected 2, got %v", v)
	}
	l.Prepend(1)
	if l.Slice()[0] != 1 {
		t.Fatalf("expected 1 at front, got %v", l.Slice())
	}
	// cursor should still resume at the element after 2 (i.e. 3), not repeat 2 or 1.
	next, ok := l.Next()
	if !ok || next != 3 {
		t.Fatalf("expected to resume at 3, got %v, %v", next, ok)
	}
}

func TestList_RemoveLastReturned(t *testing.T) {
	l := New([]int{1, 2, 3})
	l.Next() // 1
	l.Next() // 2
	if err := l.Remove(nil); err != nil {
		t.Fatalf("unexpected error removing last returned: %v", err)
	}
	if l.Len() != 2 || l.Slice()[0] != 1 || l.Slice()[1] != 3 {
		t.Fatalf("expected [1 3], got %v", l.Slice())
	}
}

func TestList_RemoveWithNoPreviousElement(t *testing.T) {
	l := New([]int{1, 2})
	if err := l.Remove(nil); err != ErrNoPreviousElement {
		t.Fatalf("expected ErrNoPreviousElement, got %v", err)
	}
}

func TestList_RemoveByMatch(t *testing.T) {
	l := New([]int{1, 2, 3})
	if err := l.Remove(func(v int) bool { return v == 2 }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 2 || l.Slice()[1] != 3 {
		t.Fatalf("expected [1 3], got %v", l.Slice())
	}
}

func TestList_AddDuringIteration(t *testing.T) {
	l := New([]int{1, 3})
	v, _ := l.Next() // 1
	if v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}
	l.Add(2) // inserted right after cursor, visited this same pass
	next, _ := l.Next()
	if next != 2 {
		t.Fatalf("expected 2 to be visited next, got %v", next)
	}
	next, _ = l.Next()
	if next != 3 {
		t.Fatalf("expected 3 after that, got %v", next)
	}
}

func TestList_RewindAfterEmptyStaysExhausted(t *testing.T) {
	l := New[int](nil)
	if l.HasNext() {
		t.Fatal("expected empty list to report HasNext=false")
	}
}
