package pipeline

import "testing"

func TestPipeline_RunAppliesStagesInOrder(t *testing.T) {
	p := New(
		func(v any) (any, bool) { return v.(int) + 1, true },
		func(v any) (any, bool) { return v.(int) * 2, true },
	)
	got, ok := p.Run(1)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got.(int) != 4 {
		t.Fatalf("expected (1+1)*2=4, got %v", got)
	}
}

func TestPipeline_StopsEarlyOnFalse(t *testing.T) {
	var ranSecondStage bool
	p := New(
		func(v any) (any, bool) { return nil, false },
		func(v any) (any, bool) { ranSecondStage = true; return v, true },
	)
	_, ok := p.Run("x")
	if ok {
		t.Fatal("expected ok=false when a stage halts the pipeline")
	}
	if ranSecondStage {
		t.Fatal("expected pipeline to stop before the second stage")
	}
}

func TestPipeline_Append(t *testing.T) {
	p := New()
	p.Append(func(v any) (any, bool) { return v.(string) + "!", true })
	got, ok := p.Run("hi")
	if !ok || got.(string) != "hi!" {
		t.Fatalf("unexpected result: %v, %v", got, ok)
	}
}
