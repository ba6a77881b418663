// Package wshandler implements the generic WebSocket connection
// lifecycle shared by every exchange adapter, ported from
// uxapi.wshandler.WSHandler: connect, an optional keepalive task, an
// optional login handshake, a subscribe handshake, then a stream of
// decoded messages — each phase retiring itself from an ordered
// pre-processor chain once its handshake message arrives.
//
// Where the original raced a single-threaded recv() coroutine against
// its keepalive/login/subscribe tasks inside one asyncio event loop,
// this port lets internal/wsconn own the physical read loop (it
// already runs as its own supervised goroutine with reconnect/backoff)
// and keeps internal/awaitables purely for the side tasks — keepalive,
// login, subscribe — whose failure still aborts the run exactly as an
// unhandled task exception would have aborted asyncio.wait.
package wshandler

import (
	"context"
	"fmt"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/awaitables"
	"github.com/fd1az/uxfeed/internal/listiter"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wsconn"
)

// Processor is one link of the pre-processor chain: it transforms msg
// (or inspects it for a handshake reply) and reports whether
// processing of this message should stop here — mirroring a Python
// pre-processor raising StopIteration to signal "frame consumed".
// A processor that detects a non-recoverable condition (a server
// error/close frame, a rejected login, a negative subscribe ack) is a
// different case — mirroring a Python pre-processor raising anything
// other than StopIteration, which aborts run() instead of just
// retiring the frame. Processors report that case by calling
// Handler.Fail and then still returning stop=true, since the bad
// frame itself is never meant to reach the collector either way.
type Processor func(msg any) (out any, stop bool)

// Hooks is what an internal/exchange/<name> package supplies to
// specialize the generic state machine. Every method is the Go
// counterpart of the like-named WSHandler method/override in
// uxapi.wshandler and the exchange's own uxapi.exchanges.<name>
// subclass.
type Hooks interface {
	// Decode turns one raw wire frame into the value pre-processors and
	// the caller's collector will see.
	Decode(data []byte) (any, error)

	// LoginRequired reports whether this connection needs uxapi's
	// login_required property to be true (private topics).
	LoginRequired() bool
	// Credentials fetches the exchange API key/secret this connection
	// needs to sign a login command.
	Credentials() (map[string]string, error)

	// Keepalive runs for the life of the connection, sending whatever
	// ping/pong or heartbeat traffic the exchange requires. It should
	// return promptly when ctx is canceled.
	Keepalive(ctx context.Context, h *Handler) error
	// OnKeepaliveMessage inspects an incoming message for a pong/ack;
	// unrelated messages should be passed through unchanged. Since this
	// processor is prepended once and never retired, it is also where
	// an exchange checks for a server-sent error/close frame that can
	// arrive at any point in the connection's life — on a match it
	// must call h.Fail with the appropriate apperror.CodeProtocol.
	OnKeepaliveMessage(h *Handler, msg any) (any, bool)

	// LoginCommand builds the wire command to send once for the login
	// handshake.
	LoginCommand(credentials map[string]string) (any, error)
	// OnLoginMessage inspects an incoming message for the login ack; on
	// success it must call h.OnLoggedIn(ctx). On an explicit rejection
	// it must call h.Fail with apperror.CodeAuth instead of silently
	// discarding the frame.
	OnLoginMessage(h *Handler, msg any) (any, bool)

	// ConvertTopic maps one canonical Topic to the exchange's wire
	// representation (channel name, stream name, ...).
	ConvertTopic(topic market.Topic) (any, error)
	// SubscribeCommands builds the wire command(s) needed to subscribe
	// to the given (already-converted) topics.
	SubscribeCommands(wireTopics []any) ([]any, error)
	// OnSubscribeMessage inspects an incoming message for a subscribe
	// ack; on a positive match it must call h.OnSubscribed(wireTopic).
	// On a negative ack it must call h.Fail with apperror.CodeSubscribe
	// instead of forwarding the ack to the collector as if it were
	// market data.
	OnSubscribeMessage(h *Handler, msg any) (any, bool)

	// ResolveURL returns the URL to dial. Most exchanges return the
	// fixed market-stream URL built at construction time; Binance
	// overrides this to fetch a listen key (private streams) or to
	// build the combined "?streams=..." query string (market streams),
	// mirroring BinanceWSHandler.connect's full override of the base
	// connect().
	ResolveURL(ctx context.Context, topics []market.Topic) (string, error)
	// NeedsSubscribe reports whether a post-connect subscribe handshake
	// is required at all. Binance's combined market-stream endpoint
	// encodes subscription in the URL itself, so its market-data hooks
	// return false here and the generic subscribe task never runs.
	NeedsSubscribe() bool
}

// Handler drives one exchange connection's lifecycle: connect,
// prepare (keepalive/login/subscribe), then stream decoded messages
// to a collector until ctx is canceled or a side task fails.
type Handler struct {
	conn   *wsconn.Client
	topics []market.Topic
	hooks  Hooks

	aw      *awaitables.Awaitables
	pre     *listiter.List[Processor]
	pending map[string]struct{}
	errCh   chan error
}

// New builds a Handler over an already-configured (not yet connected)
// wsconn.Client.
func New(conn *wsconn.Client, topics []market.Topic, hooks Hooks) *Handler {
	return &Handler{
		conn:   conn,
		topics: topics,
		hooks:  hooks,
		aw:     awaitables.New(),
		pre:    listiter.New[Processor](nil),
		errCh:  make(chan error, 1),
	}
}

// Run connects, runs the prepare handshake, then streams decoded
// messages to collector (which may be nil) until ctx is canceled, the
// connection closes, or a side task (keepalive/login/subscribe) fails.
func (h *Handler) Run(ctx context.Context, collector func(any)) error {
	url, err := h.hooks.ResolveURL(ctx, h.topics)
	if err != nil {
		return err
	}
	h.conn.SetURL(url)

	if err := h.conn.ConnectWithRetry(ctx); err != nil {
		return apperror.External(apperror.CodeTransport, "wshandler connect", err)
	}
	defer h.cleanup()

	go h.superviseTasks(ctx)

	if err := h.prepare(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-h.errCh:
			return err
		case data, ok := <-h.conn.Messages():
			if !ok {
				return apperror.Internal(apperror.CodeTransport, "wshandler", fmt.Errorf("connection closed"))
			}
			msg, err := h.hooks.Decode(data)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeProtocol, "wshandler decode")
			}
			out, stop := h.preProcess(msg)
			if stop {
				continue
			}
			if collector != nil {
				collector(out)
			}
		}
	}
}

// superviseTasks waits on the side-task registry forever, forwarding
// the first task failure to errCh — the Go stand-in for an unhandled
// exception escaping asyncio.wait in the original do_run loop.
func (h *Handler) superviseTasks(ctx context.Context) {
	for {
		if _, err := h.aw.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case h.errCh <- err:
			case <-ctx.Done():
			}
			return
		}
	}
}

func (h *Handler) prepare(ctx context.Context) error {
	if err := h.createKeepaliveTask(ctx); err != nil {
		return err
	}
	if h.hooks.LoginRequired() {
		return h.createLoginTask(ctx)
	}
	return h.onPrepared(ctx)
}

func (h *Handler) createKeepaliveTask(ctx context.Context) error {
	h.pre.Prepend(func(msg any) (any, bool) { return h.hooks.OnKeepaliveMessage(h, msg) })
	return h.aw.CreateTask(ctx, "keepalive", func(taskCtx context.Context) (any, error) {
		return nil, h.hooks.Keepalive(taskCtx, h)
	})
}

func (h *Handler) createLoginTask(ctx context.Context) error {
	h.pre.Append(func(msg any) (any, bool) { return h.hooks.OnLoginMessage(h, msg) })
	credentials, err := h.hooks.Credentials()
	if err != nil {
		return err
	}
	return h.aw.CreateTask(ctx, "login", func(taskCtx context.Context) (any, error) {
		command, err := h.hooks.LoginCommand(credentials)
		if err != nil {
			return nil, err
		}
		return nil, h.Send(taskCtx, command)
	})
}

// OnLoggedIn retires the login processor and advances to subscribe.
// Exchange hooks call this from OnLoginMessage once they recognize a
// successful login ack.
func (h *Handler) OnLoggedIn(ctx context.Context) error {
	if err := h.pre.Remove(nil); err != nil {
		return err
	}
	return h.onPrepared(ctx)
}

func (h *Handler) onPrepared(ctx context.Context) error {
	if !h.hooks.NeedsSubscribe() {
		return nil
	}
	return h.createSubscribeTask(ctx)
}

func (h *Handler) createSubscribeTask(ctx context.Context) error {
	h.pre.Append(func(msg any) (any, bool) { return h.hooks.OnSubscribeMessage(h, msg) })

	wireTopics := make([]any, len(h.topics))
	pending := make(map[string]struct{}, len(h.topics))
	for i, t := range h.topics {
		wt, err := h.hooks.ConvertTopic(t)
		if err != nil {
			return err
		}
		wireTopics[i] = wt
		pending[topicKey(wt)] = struct{}{}
	}
	h.pending = pending

	return h.aw.CreateTask(ctx, "subscribe", func(taskCtx context.Context) (any, error) {
		commands, err := h.hooks.SubscribeCommands(wireTopics)
		if err != nil {
			return nil, err
		}
		for _, command := range commands {
			if err := h.Send(taskCtx, command); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

// OnSubscribed retires a single pending topic's subscription, and once
// every topic has acked, retires the subscribe processor itself.
// Exchange hooks call this from OnSubscribeMessage for each
// acknowledged topic.
func (h *Handler) OnSubscribed(wireTopic any) {
	key := topicKey(wireTopic)
	delete(h.pending, key)
	if len(h.pending) == 0 {
		h.pre.Remove(nil)
		h.pending = nil
	}
}

// Send writes one already wire-shaped command (commonly a
// map[string]any or a struct tagged for JSON) to the connection.
func (h *Handler) Send(ctx context.Context, command any) error {
	return h.conn.SendJSON(ctx, command)
}

// Conn exposes the underlying transport for hooks that need to send
// raw keepalive frames outside the JSON command path.
func (h *Handler) Conn() *wsconn.Client {
	return h.conn
}

// Fail reports a non-recoverable protocol condition detected by a
// hook — a server error/close frame, a rejected login, a negative
// subscribe ack — and aborts Run with err. It is the Go stand-in for
// a Python pre-processor raising anything other than StopIteration:
// the first call wins, since Run only ever reads one value off errCh.
func (h *Handler) Fail(err error) {
	select {
	case h.errCh <- err:
	default:
	}
}

// FailedWith reports the error a prior Fail call delivered, if any,
// without blocking. It exists for hook-level tests that exercise
// Hooks methods directly (never calling Run), to assert a fatal frame
// raised the expected apperror code.
func (h *Handler) FailedWith() (error, bool) {
	select {
	case err := <-h.errCh:
		return err, true
	default:
		return nil, false
	}
}

func (h *Handler) preProcess(raw any) (any, bool) {
	msg := raw
	h.pre.Rewind()
	for h.pre.HasNext() {
		proc, _ := h.pre.Next()
		out, stop := proc(msg)
		if stop {
			return nil, true
		}
		msg = out
	}
	return msg, false
}

func (h *Handler) cleanup() {
	h.aw.Cleanup()
	h.conn.Close()
}

func topicKey(wireTopic any) string {
	if s, ok := wireTopic.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", wireTopic)
}
