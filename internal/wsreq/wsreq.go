// Package wsreq ports uxapi.exchanges.huobi.HuobiWSReq: a second,
// parallel WebSocket connection used purely for request/reply
// round trips (Huobipro's {"req": channel} snapshot request), as
// opposed to the subscribe-and-stream connection the rest of a
// WSHandler maintains. Only one request is ever in flight; a second
// caller's request waits behind it, exactly like HuobiWSReq draining
// its single-slot asyncio queue one item at a time.
package wsreq

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/wsconn"
)

// DefaultTimeout matches HuobiWSReq.timeout (10 seconds per request).
const DefaultTimeout = 10 * time.Second

type pending struct {
	req  any
	resp chan result
}

type result struct {
	data json.RawMessage
	err  error
}

// Client drives a request/reply WebSocket connection.
type Client struct {
	conn    *wsconn.Client
	timeout time.Duration

	queue chan pending

	mu      sync.Mutex
	waiting chan result
}

// New wraps an already-configured (but not yet connected) wsconn.Client
// as a request/reply channel.
func New(conn *wsconn.Client) *Client {
	return &Client{
		conn:    conn,
		timeout: DefaultTimeout,
		queue:   make(chan pending, 64),
	}
}

// Run connects and drains requests one at a time until ctx is
// cancelled or the connection is closed. It is meant to be run in its
// own goroutine for the lifetime of a single snapshot bootstrap, then
// torn down by cancelling ctx once the merger it feeds has consumed
// its snapshot (HuobiproOrderBookMerger.stop_wsreq).
func (c *Client) Run(ctx context.Context) error {
	c.conn.OnMessage(func(_ context.Context, data []byte) {
		msg, err := decode(data)
		if err != nil {
			return
		}
		var env struct {
			Rep string `json:"rep"`
		}
		if jsonErr := json.Unmarshal(msg, &env); jsonErr != nil || env.Rep == "" {
			return
		}
		c.mu.Lock()
		w := c.waiting
		c.waiting = nil
		c.mu.Unlock()
		if w != nil {
			w <- result{data: msg}
		}
	})

	if err := c.conn.ConnectWithRetry(ctx); err != nil {
		return apperror.External(apperror.CodeTransport, "wsreq connect", err)
	}
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-c.queue:
			c.serve(ctx, p)
		}
	}
}

func (c *Client) serve(ctx context.Context, p pending) {
	respCh := make(chan result, 1)
	c.mu.Lock()
	c.waiting = respCh
	c.mu.Unlock()

	if err := c.conn.SendJSON(ctx, p.req); err != nil {
		p.resp <- result{err: apperror.External(apperror.CodeTransport, "wsreq send", err)}
		return
	}

	select {
	case r := <-respCh:
		p.resp <- r
	case <-time.After(c.timeout):
		c.mu.Lock()
		c.waiting = nil
		c.mu.Unlock()
		p.resp <- result{err: apperror.Internal(apperror.CodeTimeout, "wsreq", fmt.Errorf("timed out after %s", c.timeout))}
	case <-ctx.Done():
		p.resp <- result{err: ctx.Err()}
	}
}

// Request sends req and blocks until the matching reply arrives, the
// per-request timeout elapses, or ctx is cancelled.
func (c *Client) Request(ctx context.Context, req any) (json.RawMessage, error) {
	p := pending{req: req, resp: make(chan result, 1)}
	select {
	case c.queue <- p:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-p.resp:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decode mirrors HuobiWSHandler.decode: Huobi's public/market streams
// send gzip-compressed binary frames, but private streams (and this
// wsapi channel) may send plain JSON text; try gzip first and fall
// back to the raw bytes.
func decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return data, nil
	}
	return out, nil
}
