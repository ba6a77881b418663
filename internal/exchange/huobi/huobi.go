// Package huobi ports uxapi.exchanges.huobi: Huobipro (spot) and
// Huobidm (futures/swap) share a gzip-framed WebSocket protocol with a
// three-shape ping/pong keepalive and two slightly different login
// signature layouts, but diverge on order book bootstrap — Huobipro
// requests a snapshot over a second "wsreq" connection
// (internal/wsreq), while Huobidm pushes its own snapshot frame
// inline.
package huobi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/awaitables"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/orderbook"
	"github.com/fd1az/uxfeed/internal/wsconn"
	"github.com/fd1az/uxfeed/internal/wshandler"
	"github.com/fd1az/uxfeed/internal/wsreq"
)

const marketURL = "wss://api.huobi.pro/ws"
const privateURL = "wss://api.huobi.pro/ws/v2"
const dmMarketURL = "wss://api.hbdm.com/ws"
const dmPrivateURL = "wss://api.hbdm.com/notification"

var marketTemplates = map[string]string{
	"ticker":    "market.%s.detail",
	"ohlcv":     "market.%s.kline.%s",
	"orderbook": "market.%s.depth.%s",
	"mbp":       "market.%s.mbp.%s",
	"trade":     "market.%s.trade.detail",
	"bbo":       "market.%s.bbo",
}

var dmMarketTemplates = map[string]string{
	"ticker":    "market.%s.detail",
	"ohlcv":     "market.%s.kline.%s",
	"orderbook": "market.%s.depth.%s",
	"high_freq": "market.%s.depth.size_%s.high_freq?data_type=%s",
	"trade":     "market.%s.trade.detail",
}

// ConvertSymbol ports Huobipro.convert_symbol / Huobidm.convert_symbol.
func ConvertSymbol(sym market.Symbol) (string, error) {
	base, err := sym.Base()
	if err != nil {
		return "", err
	}
	if sym.MarketType == market.MarketFutures {
		expiration, err := sym.ContractExpiration()
		if err != nil {
			return "", err
		}
		return strings.ToUpper(base) + "_" + expiration, nil
	}
	quote, err := sym.Quote()
	if err != nil {
		return "", err
	}
	if sym.MarketType == market.MarketSpot {
		return strings.ToLower(base + quote), nil
	}
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote), nil
}

// ConvertTopic ports Huobipro.convert_topic (spot) and
// Huobidm.convert_topic (futures/swap) for the "market" wsapi type
// only — private topics are handled by the login/subscribe hooks
// directly rather than by symbol conversion.
func ConvertTopic(topic market.Topic) (string, error) {
	wireSymbol, err := ConvertSymbol(topic.Symbol())
	if err != nil {
		return "", err
	}
	maintype := topic.MainType()
	subtypes := topic.SubTypes()

	if topic.MarketType == market.MarketSpot {
		if maintype == "orderbook" {
			level := "step0"
			if len(subtypes) > 0 && subtypes[0] == "full" {
				return fmt.Sprintf(marketTemplates["mbp"], wireSymbol, "150"), nil
			} else if len(subtypes) > 0 {
				level = subtypes[0]
			}
			return fmt.Sprintf(marketTemplates["orderbook"], wireSymbol, level), nil
		}
		if maintype == "ohlcv" {
			period := "1min"
			if len(subtypes) > 0 {
				period = subtypes[0]
			}
			return fmt.Sprintf(marketTemplates["ohlcv"], wireSymbol, period), nil
		}
		template, ok := marketTemplates[maintype]
		if !ok {
			return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
		}
		return fmt.Sprintf(template, wireSymbol), nil
	}

	// Huobidm (futures/swap): orderbook with subtype "full" maps to
	// high_freq incremental depth; everything else uses depth.step0.
	if maintype == "orderbook" {
		if len(subtypes) > 0 && subtypes[0] == "full" {
			return fmt.Sprintf(dmMarketTemplates["high_freq"], wireSymbol, "150", "incremental"), nil
		}
		level := "step0"
		if len(subtypes) > 0 {
			level = subtypes[0]
		}
		return fmt.Sprintf(dmMarketTemplates["orderbook"], wireSymbol, level), nil
	}
	if maintype == "ohlcv" {
		period := "1min"
		if len(subtypes) > 0 {
			period = subtypes[0]
		}
		return fmt.Sprintf(dmMarketTemplates["ohlcv"], wireSymbol, period), nil
	}
	template, ok := dmMarketTemplates[maintype]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
	}
	return fmt.Sprintf(template, wireSymbol), nil
}

// Hooks implements wshandler.Hooks for one Huobi connection — either
// Huobipro (spot) or Huobidm (futures/swap), selected by isFutures.
type Hooks struct {
	cfg        config.ExchangeConfig
	isFutures  bool
	private    bool
	keepaliveQ chan map[string]any
}

// NewHooks builds Huobi hooks for one connection.
func NewHooks(cfg config.ExchangeConfig, isFutures, private bool) *Hooks {
	return &Hooks{cfg: cfg, isFutures: isFutures, private: private, keepaliveQ: make(chan map[string]any, 32)}
}

// Decode ports HuobiWSHandler.decode via the shared gzip/plain-JSON
// fallback also used by internal/wsreq.
func (h *Hooks) Decode(data []byte) (any, error) {
	plain, err := decodeFrame(data)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeProtocol, "huobi")
	}
	var msg map[string]any
	if err := json.Unmarshal(plain, &msg); err != nil {
		return nil, apperror.Validation(apperror.CodeProtocol, "huobi")
	}
	return msg, nil
}

func decodeFrame(data []byte) ([]byte, error) {
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

func (h *Hooks) LoginRequired() bool { return h.private }

func (h *Hooks) Credentials() (map[string]string, error) {
	if h.cfg.APIKey == "" {
		return nil, apperror.Unauthorized(apperror.CodeAuth, "huobi")
	}
	return map[string]string{"apiKey": h.cfg.APIKey, "secret": h.cfg.Secret}, nil
}

// Keepalive drains the queue OnKeepaliveMessage fills, coalescing
// bursts to the latest ping, and echoes back whichever of the three
// wire shapes the exchange used.
func (h *Hooks) Keepalive(ctx context.Context, handler *wshandler.Handler) error {
	for {
		var msg map[string]any
		select {
		case <-ctx.Done():
			return nil
		case msg = <-h.keepaliveQ:
		}
	drain:
		for {
			select {
			case msg = <-h.keepaliveQ:
			default:
				break drain
			}
		}

		pong, err := pongFor(msg)
		if err != nil {
			return err
		}
		if err := handler.Send(ctx, pong); err != nil {
			return apperror.External(apperror.CodeTransport, "huobi pong", err)
		}
	}
}

func pongFor(msg map[string]any) (map[string]any, error) {
	if ping, ok := msg["ping"]; ok {
		return map[string]any{"pong": ping}, nil
	}
	if op, _ := msg["op"].(string); op == "ping" {
		return map[string]any{"op": "pong", "ts": msg["ts"]}, nil
	}
	if action, _ := msg["action"].(string); action == "ping" {
		data, _ := msg["data"].(map[string]any)
		return map[string]any{"action": "pong", "data": map[string]any{"ts": data["ts"]}}, nil
	}
	return nil, apperror.Validation(apperror.CodeProtocol, "huobi keepalive")
}

// OnKeepaliveMessage also ports HuobiWSHandler's on_error_message: for
// private dm connections it is appended permanently in on_connected,
// so an {op:"close"}/{op:"error"} frame is checked here (the only
// processor that never retires) instead of just falling through to
// the collector.
func (h *Hooks) OnKeepaliveMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	op, _ := m["op"].(string)
	if op == "close" {
		handler.Fail(apperror.Validation(apperror.CodeProtocol, "huobi: server closed"))
		return nil, true
	}
	if op == "error" {
		handler.Fail(apperror.Validation(apperror.CodeProtocol, "huobi: invalid op or inner error"))
		return nil, true
	}
	_, hasPing := m["ping"]
	action, _ := m["action"].(string)
	if hasPing || op == "ping" || action == "ping" {
		select {
		case h.keepaliveQ <- m:
		default:
		}
		return nil, true
	}
	return msg, false
}

// LoginCommand ports HuobiWSHandler.login_command: spot and dm use
// slightly different signature parameter casing/naming, both HMAC-
// SHA256 signed over "GET\n{host}\n{path}\n{querystring}".
func (h *Hooks) LoginCommand(credentials map[string]string) (any, error) {
	u, err := url.Parse(h.wsURL())
	if err != nil {
		return nil, apperror.Internal(apperror.CodeProtocol, "huobi", err)
	}
	now := time.Now().UTC().Format("2006-01-02T15:04:05")

	var params url.Values
	if !h.isFutures {
		params = url.Values{
			"signatureMethod":  {"HmacSHA256"},
			"signatureVersion": {"2.1"},
			"accessKey":        {credentials["apiKey"]},
			"timestamp":        {now},
		}
	} else {
		params = url.Values{
			"SignatureMethod":  {"HmacSHA256"},
			"SignatureVersion": {"2"},
			"AccessKeyId":      {credentials["apiKey"]},
			"Timestamp":        {now},
		}
	}
	query := params.Encode()
	payload := strings.Join([]string{"GET", u.Host, u.Path, query}, "\n")
	signature := market.Sign([]byte(credentials["secret"]), []byte(payload), market.DigestBase64)

	if !h.isFutures {
		return map[string]any{
			"action": "req",
			"ch":     "auth",
			"params": map[string]any{
				"authType":         "api",
				"accessKey":        credentials["apiKey"],
				"signatureMethod":  "HmacSHA256",
				"signatureVersion": "2.1",
				"timestamp":        now,
				"signature":        signature,
			},
		}, nil
	}
	return map[string]any{
		"op":               "auth",
		"type":             "api",
		"AccessKeyId":      credentials["apiKey"],
		"SignatureMethod":  "HmacSHA256",
		"SignatureVersion": "2",
		"Timestamp":        now,
		"Signature":        signature,
	}, nil
}

func (h *Hooks) wsURL() string {
	switch {
	case h.isFutures && h.private:
		return dmPrivateURL
	case h.isFutures:
		return dmMarketURL
	case h.private:
		return privateURL
	default:
		return marketURL
	}
}

func (h *Hooks) OnLoginMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	if op, _ := m["op"].(string); op == "auth" {
		if code, _ := m["err-code"].(float64); code == 0 {
			handler.OnLoggedIn(context.Background())
		} else {
			handler.Fail(apperror.Unauthorized(apperror.CodeAuth, "huobi: login failed"))
		}
		return nil, true
	}
	if action, _ := m["action"].(string); action == "req" {
		if ch, _ := m["ch"].(string); ch == "auth" {
			if code, _ := m["code"].(float64); code == 200 {
				handler.OnLoggedIn(context.Background())
			} else {
				handler.Fail(apperror.Unauthorized(apperror.CodeAuth, "huobi: login failed"))
			}
			return nil, true
		}
	}
	return msg, false
}

func (h *Hooks) ConvertTopic(topic market.Topic) (any, error) {
	return ConvertTopic(topic)
}

func (h *Hooks) SubscribeCommands(wireTopics []any) ([]any, error) {
	commands := make([]any, len(wireTopics))
	for i, t := range wireTopics {
		commands[i] = map[string]any{"sub": t}
	}
	return commands, nil
}

func (h *Hooks) OnSubscribeMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	topic, hasTopic := m["subbed"].(string)
	if !hasTopic {
		return msg, false
	}
	if status, _ := m["status"].(string); status == "ok" {
		handler.OnSubscribed(topic)
		return nil, true
	}
	handler.Fail(apperror.Validation(apperror.CodeSubscribe, fmt.Sprintf("huobi: subscribe failed for %s", topic)))
	return nil, true
}

func (h *Hooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	return h.wsURL(), nil
}

func (h *Hooks) NeedsSubscribe() bool { return true }

// NewWSReqConn wires a parallel request/reply connection for
// HuobiproOrderBookMerger's snapshot bootstrap.
func NewWSReqConn(name string) (*wsreq.Client, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig(marketURL, name))
	if err != nil {
		return nil, err
	}
	return wsreq.New(conn), nil
}

// NewHuobiproSnapshotFetcher adapts a wsreq.Client into an
// orderbook.HuobiSnapshotFetcher, issuing one {"req": channel} call
// per invocation (run on its own goroutine via awaitables.RunInExecutor,
// ported from HuobiWSReq.request returning an asyncio.Future) and
// decoding its "data" reply shape into a HuobiSnapshot.
func NewHuobiproSnapshotFetcher(client *wsreq.Client) orderbook.HuobiSnapshotFetcher {
	return func(channel string) *awaitables.Future {
		return awaitables.RunInExecutor(func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), wsreq.DefaultTimeout+time.Second)
			defer cancel()
			raw, err := client.Request(ctx, map[string]any{"req": channel})
			if err != nil {
				return nil, err
			}
			return parseHuobiSnapshot(raw)
		})
	}
}

func parseHuobiSnapshot(raw json.RawMessage) (orderbook.HuobiSnapshot, error) {
	var env struct {
		Data struct {
			SeqNum int64           `json:"seqNum"`
			Bids   [][]json.Number `json:"bids"`
			Asks   [][]json.Number `json:"asks"`
		} `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return orderbook.HuobiSnapshot{}, apperror.Validation(apperror.CodeInvalidPatch, "huobi snapshot")
	}
	toRows := func(rows [][]json.Number) [][2]decimal.Decimal {
		out := make([][2]decimal.Decimal, 0, len(rows))
		for _, pair := range rows {
			if len(pair) != 2 {
				continue
			}
			price, err1 := decimal.NewFromString(pair[0].String())
			size, err2 := decimal.NewFromString(pair[1].String())
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, [2]decimal.Decimal{price, size})
		}
		return out
	}
	return orderbook.HuobiSnapshot{
		SeqNum: env.Data.SeqNum,
		Bids:   toRows(env.Data.Bids),
		Asks:   toRows(env.Data.Asks),
	}, nil
}
