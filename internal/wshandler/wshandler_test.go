package wshandler

import (
	"context"
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/market"
)

// stubHooks implements Hooks with no-op bodies; tests override only
// the methods they need by embedding and shadowing.
type stubHooks struct{}

func (stubHooks) Decode(data []byte) (any, error)                    { return string(data), nil }
func (stubHooks) LoginRequired() bool                                { return false }
func (stubHooks) Credentials() (map[string]string, error)            { return nil, nil }
func (stubHooks) Keepalive(ctx context.Context, h *Handler) error    { <-ctx.Done(); return ctx.Err() }
func (stubHooks) OnKeepaliveMessage(h *Handler, msg any) (any, bool) { return msg, false }
func (stubHooks) LoginCommand(credentials map[string]string) (any, error) {
	return nil, nil
}
func (stubHooks) OnLoginMessage(h *Handler, msg any) (any, bool)          { return msg, false }
func (stubHooks) ConvertTopic(topic market.Topic) (any, error)            { return topic.Datatype, nil }
func (stubHooks) SubscribeCommands(wireTopics []any) ([]any, error)       { return nil, nil }
func (stubHooks) OnSubscribeMessage(h *Handler, msg any) (any, bool)      { return msg, false }
func (stubHooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	return "", nil
}
func (stubHooks) NeedsSubscribe() bool { return false }

func TestPreProcess_ChainStopsOnFirstMatch(t *testing.T) {
	h := New(nil, nil, stubHooks{})
	var secondRan bool
	h.pre.Append(func(msg any) (any, bool) { return nil, true })
	h.pre.Append(func(msg any) (any, bool) { secondRan = true; return msg, false })

	out, stop := h.preProcess("raw")
	if !stop {
		t.Fatal("expected the first processor's stop=true to halt the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output on stop, got %v", out)
	}
	if secondRan {
		t.Fatal("expected the second processor not to run once the first stops the chain")
	}
}

func TestPreProcess_PassesThroughTransformedValue(t *testing.T) {
	h := New(nil, nil, stubHooks{})
	h.pre.Append(func(msg any) (any, bool) { return msg.(int) + 1, false })
	h.pre.Append(func(msg any) (any, bool) { return msg.(int) * 2, false })

	out, stop := h.preProcess(1)
	if stop {
		t.Fatal("expected stop=false when no processor halts the chain")
	}
	if out.(int) != 4 {
		t.Fatalf("expected (1+1)*2=4, got %v", out)
	}
}

func TestOnLoggedIn_RetiresLoginProcessorAndSkipsSubscribe(t *testing.T) {
	h := New(nil, nil, stubHooks{}) // NeedsSubscribe() returns false
	h.pre.Append(func(msg any) (any, bool) { return msg, false })
	h.pre.Rewind()
	h.pre.Next() // simulate preProcess having just visited the login processor

	if err := h.OnLoggedIn(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.pre.Len() != 0 {
		t.Fatalf("expected login processor to be retired, chain length is %d", h.pre.Len())
	}
}

func TestOnSubscribed_RetiresProcessorOnceAllTopicsAck(t *testing.T) {
	h := New(nil, nil, stubHooks{})
	h.pre.Append(func(msg any) (any, bool) { return msg, false })
	h.pending = map[string]struct{}{"a": {}, "b": {}}
	h.pre.Rewind()
	h.pre.Next() // simulate preProcess having just visited the subscribe processor

	h.OnSubscribed("a")
	if h.pre.Len() != 1 {
		t.Fatal("expected the subscribe processor to stay while a topic is still pending")
	}

	h.OnSubscribed("b")
	if h.pre.Len() != 0 {
		t.Fatalf("expected the subscribe processor to retire once all topics ack, length is %d", h.pre.Len())
	}
	if h.pending != nil {
		t.Fatal("expected pending map to be cleared")
	}
}

func TestTopicKey_StringerAndFallback(t *testing.T) {
	if got := topicKey(market.Topic{Datatype: "trade", ExtraInfo: "BTC/USDT"}); got != "trade:BTC/USDT" {
		t.Fatalf("expected a Stringer's String() output, got %q", got)
	}
	if got := topicKey("plain"); got != "plain" {
		t.Fatalf("expected fallback formatting of a string, got %q", got)
	}
}

func TestFail_SurfacesOnErrCh(t *testing.T) {
	h := New(nil, nil, stubHooks{})
	want := apperror.Validation(apperror.CodeProtocol, "boom")
	h.Fail(want)

	select {
	case got := <-h.errCh:
		if got != want {
			t.Fatalf("expected %v on errCh, got %v", want, got)
		}
	default:
		t.Fatal("expected Fail to deliver onto errCh without blocking")
	}
}

func TestFail_FirstCallWinsWithoutBlocking(t *testing.T) {
	h := New(nil, nil, stubHooks{})
	first := apperror.Validation(apperror.CodeProtocol, "first")
	second := apperror.Validation(apperror.CodeAuth, "second")

	h.Fail(first)
	h.Fail(second) // errCh is already full; must not block or panic

	if got := <-h.errCh; got != first {
		t.Fatalf("expected the first Fail to win, got %v", got)
	}
}

func TestPreProcess_ProcessorCallingFailStillStopsChain(t *testing.T) {
	// Mirrors a permanent processor (e.g. an exchange's error/close
	// detector) that reports a fatal condition: it must still return
	// stop=true so the bad frame never reaches the collector, with the
	// fatal error surfacing separately through errCh.
	h := New(nil, nil, stubHooks{})
	fatal := apperror.Unauthorized(apperror.CodeAuth, "login rejected")
	h.pre.Append(func(msg any) (any, bool) {
		h.Fail(fatal)
		return nil, true
	})

	out, stop := h.preProcess(map[string]any{"success": false})
	if !stop {
		t.Fatal("expected the failing processor to still stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output on a fatal frame, got %v", out)
	}
	if got := <-h.errCh; got != fatal {
		t.Fatalf("expected the fatal error on errCh, got %v", got)
	}
}
