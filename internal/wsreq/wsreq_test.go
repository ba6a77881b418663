package wsreq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/fd1az/uxfeed/internal/wsconn"
)

// mockReqServer answers every {"req": "..."} frame with {"rep": "..."}
// carrying the same channel name, mirroring Huobi's wsapi snapshot
// request/reply shape closely enough to exercise Client.Request.
func mockReqServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := context.Background()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var env struct {
				Req string `json:"req"`
			}
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			reply, _ := json.Marshal(map[string]string{"rep": env.Req, "status": "ok"})
			if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
				return
			}
		}
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	conn, err := wsconn.New(wsconn.DefaultConfig(url, "wsreq-test"))
	if err != nil {
		t.Fatalf("failed to build wsconn client: %v", err)
	}
	return New(conn)
}

func TestClient_RequestReply(t *testing.T) {
	server := mockReqServer(t)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	c := newTestClient(t, wsURL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)

	resp, err := c.Request(ctx, map[string]string{"req": "market.btcusdt.depth.step0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Rep string `json:"rep"`
	}
	if err := json.Unmarshal(resp, &got); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if got.Rep != "market.btcusdt.depth.step0" {
		t.Fatalf("expected echoed channel name, got %q", got.Rep)
	}
}

func TestClient_RequestTimesOutWithoutServerReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		<-r.Context().Done()
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	c := newTestClient(t, wsURL)
	c.timeout = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Run(ctx)

	_, err := c.Request(ctx, map[string]string{"req": "never answered"})
	if err == nil {
		t.Fatal("expected a timeout error when the server never replies")
	}
}

func TestDecode_PlainJSONFallback(t *testing.T) {
	out, err := decode([]byte(`{"rep":"x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"rep":"x"}` {
		t.Fatalf("expected plain JSON to pass through unchanged, got %q", out)
	}
}
