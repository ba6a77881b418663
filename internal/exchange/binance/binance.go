// Package binance ports uxapi.exchanges.binance.Binance and its
// BinanceWSHandler/BinanceOrderBookMerger: combined-stream market data
// over /stream?streams=..., a listen-key REST handshake for private
// streams, and the REST-snapshot order book merger in
// internal/orderbook.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/orderbook"
	"github.com/fd1az/uxfeed/internal/ratelimit"
	"github.com/fd1az/uxfeed/internal/wsconn"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

// snapshotLimiter throttles REST depth-snapshot requests to Binance's
// documented weight budget (1200/minute on the public REST endpoints);
// a depth snapshot at limit=1000 costs 50 weight, so this stays well
// clear of a 429 even with several symbols bootstrapping at once.
var snapshotLimiter = ratelimit.New(1200)

// Describe table: base URLs per uxapi Binance.describe(). Kept as a
// plain map rather than a DeepExtend merge since there is only one
// override layer (market type selects a family, not a chain of
// partial overrides) — see DESIGN.md.
var wsURLs = map[string]string{
	"market":      "wss://stream.binance.com:9443/stream",
	"private":     "wss://stream.binance.com:9443/ws",
	"dapiMarket":  "wss://dstream.binance.com/stream",
	"dapiPrivate": "wss://dstream.binance.com/ws",
	"fapiMarket":  "wss://fstream.binance.com/stream",
	"fapiPrivate": "wss://fstream.binance.com/ws",
}

var restURLs = map[string]string{
	"public":      "https://api.binance.com/api/v3",
	"dapiPrivate": "https://dapi.binance.com/dapi/v1",
	"fapiPrivate": "https://fapi.binance.com/fapi/v1",
}

const deliveryHourUTC = 8

// wsapiType ports Binance.wsapi_type: which of the six URL families a
// topic belongs to, derived from its market type and whether it's a
// private (user-data) topic.
func wsapiType(topic market.Topic) string {
	var prefix string
	switch topic.MarketType {
	case market.MarketFutures:
		prefix = "dapi"
	case market.MarketSwap:
		prefix = "fapi"
	}
	wsType := "market"
	if topic.MainType() == "private" {
		wsType = "private"
	}
	if prefix == "" {
		return wsType
	}
	return prefix + strings.ToUpper(wsType[:1]) + wsType[1:]
}

// ConvertSymbol ports Binance.convert_symbol.
func ConvertSymbol(sym market.Symbol) (string, error) {
	base, err := sym.Base()
	if err != nil {
		return "", err
	}
	quote, err := sym.Quote()
	if err != nil {
		return "", err
	}
	switch sym.MarketType {
	case market.MarketSpot:
		return strings.ToUpper(base + quote), nil
	case market.MarketFutures:
		expiration, err := sym.ContractExpiration()
		if err != nil {
			return "", err
		}
		deliveryTime, err := market.ContractDeliveryTime(expiration, deliveryHourUTC, time.Time{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%s_%s", strings.ToUpper(base), strings.ToUpper(quote), deliveryTime.Format("060102")), nil
	case market.MarketSwap:
		return strings.ToUpper(quote + base), nil
	default:
		return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
	}
}

// streamTemplates mirrors the per-wsapi_type "market" stream name
// templates from Binance.describe()'s wsapi table, trimmed to the
// channels this port exposes (orderbook, ohlcv, trade, ticker, quote).
var streamTemplates = map[string]string{
	"orderbook": "%s@depth%s",
	"ohlcv":     "%s@kline_%s",
	"trade":     "%s@trade",
	"ticker":    "%s@ticker",
	"quote":     "%s@bookTicker",
}

// ConvertTopic ports Binance.convert_topic for the market (non-private)
// wsapi types: it builds the lowercase stream name Binance expects in
// a combined-stream URL.
func ConvertTopic(topic market.Topic) (string, error) {
	maintype := topic.MainType()
	if maintype == "private" {
		return "private", nil
	}

	template, ok := streamTemplates[maintype]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
	}

	sym := topic.Symbol()
	wireSymbol, err := ConvertSymbol(sym)
	if err != nil {
		return "", err
	}
	wireSymbol = strings.ToLower(wireSymbol)

	switch maintype {
	case "orderbook":
		levelSpeed := "20@100ms"
		subtypes := topic.SubTypes()
		switch {
		case len(subtypes) == 0:
		case subtypes[0] == "full":
			levelSpeed = "@100ms"
			if sym.MarketType == market.MarketSwap {
				levelSpeed = "@0ms"
			}
		default:
			levelSpeed = subtypes[0]
		}
		return fmt.Sprintf(template, wireSymbol, levelSpeed), nil
	case "ohlcv":
		period := "1m"
		if subtypes := topic.SubTypes(); len(subtypes) > 0 {
			period = subtypes[0]
		}
		return fmt.Sprintf(template, wireSymbol, period), nil
	default:
		return fmt.Sprintf(template, wireSymbol), nil
	}
}

// Hooks implements wshandler.Hooks for one Binance connection. A
// single Hooks value only ever serves topics of one wsapiType, mirroring
// BinanceWSHandler's constructor-time wsapi_type argument (the adapter
// layer is responsible for grouping a topic set by wsapiType before
// building a Handler per group, matching Binance.wshandler's own
// single-wsapi_type validation).
type Hooks struct {
	cfg        config.ExchangeConfig
	http       httpclient.Client
	apiType    string
	listenKey  string
	credential bool
}

// NewHooks builds Binance hooks for the wsapi family the given topics
// belong to. It returns an error if the topics span more than one
// family, matching Binance.wshandler's own check.
func NewHooks(cfg config.ExchangeConfig, http httpclient.Client, topics []market.Topic) (*Hooks, error) {
	if len(topics) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidTopic, "empty topic set")
	}
	apiType := wsapiType(topics[0])
	for _, t := range topics[1:] {
		if wsapiType(t) != apiType {
			return nil, apperror.Validation(apperror.CodeInvalidTopic, "mixed wsapi types in one connection")
		}
	}
	return &Hooks{cfg: cfg, http: http, apiType: apiType, credential: strings.Contains(strings.ToLower(apiType), "private")}, nil
}

func (h *Hooks) Decode(data []byte) (any, error) {
	return decodeJSON(data)
}

func (h *Hooks) LoginRequired() bool { return false } // handled in ResolveURL, see below

func (h *Hooks) Credentials() (map[string]string, error) {
	if h.cfg.APIKey == "" {
		return nil, apperror.Unauthorized(apperror.CodeAuth, "binance")
	}
	return map[string]string{"apiKey": h.cfg.APIKey, "secret": h.cfg.Secret}, nil
}

// ResolveURL ports BinanceWSHandler.connect: private streams fetch a
// listen key over REST first and dial {base}/{listenKey}; market
// streams dial the combined-stream endpoint with every topic's stream
// name pre-joined into the query string, so there is no separate
// subscribe handshake at all.
func (h *Hooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	base := wsURLs[h.apiType]
	if h.credential {
		key, err := h.requestListenKey(ctx, "POST", nil)
		if err != nil {
			return "", err
		}
		h.listenKey = key
		return base + "/" + key, nil
	}

	streams := make([]string, len(topics))
	for i, t := range topics {
		s, err := ConvertTopic(t)
		if err != nil {
			return "", err
		}
		streams[i] = s
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", apperror.Internal(apperror.CodeProtocol, "binance", err)
	}
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NeedsSubscribe is always false: subscription is encoded in the
// connect URL (the combined-stream query string for market data, the
// listen key for private user streams).
func (h *Hooks) NeedsSubscribe() bool { return false }

func (h *Hooks) ConvertTopic(topic market.Topic) (any, error) {
	return ConvertTopic(topic)
}

func (h *Hooks) SubscribeCommands(wireTopics []any) ([]any, error) { return nil, nil }
func (h *Hooks) OnSubscribeMessage(h2 *wshandler.Handler, msg any) (any, bool) {
	return msg, false
}

func (h *Hooks) LoginCommand(credentials map[string]string) (any, error) { return nil, nil }
func (h *Hooks) OnLoginMessage(h2 *wshandler.Handler, msg any) (any, bool) {
	return msg, false
}

// Keepalive ports BinanceWSHandler.keepalive: every 20 minutes, renew
// the listen key (user-data streams only; market streams have nothing
// to keep alive beyond wsconn's own ping loop).
func (h *Hooks) Keepalive(ctx context.Context, handler *wshandler.Handler) error {
	if !h.credential {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(20 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			params := map[string]string{}
			if h.apiType == "private" {
				params["listenKey"] = h.listenKey
			}
			if _, err := h.requestListenKey(ctx, "PUT", params); err != nil {
				return apperror.External(apperror.CodeTransport, "binance listen key renewal", err)
			}
		}
	}
}

func (h *Hooks) OnKeepaliveMessage(handler *wshandler.Handler, msg any) (any, bool) {
	return msg, false
}

func (h *Hooks) requestListenKey(ctx context.Context, method string, params map[string]string) (string, error) {
	base := restURLs["public"]
	if h.apiType == "dapiPrivate" || h.apiType == "fapiPrivate" {
		base = restURLs[h.apiType]
	}
	path := "/userDataStream"
	if h.apiType != "private" {
		path = "/listenKey"
	}

	var result struct {
		ListenKey string `json:"listenKey"`
	}
	req := h.http.NewRequest().
		SetHeader("X-MBX-APIKEY", h.cfg.APIKey).
		SetQueryParams(params).
		SetResult(&result)

	var resp *httpclient.Response
	var err error
	switch method {
	case "POST":
		resp, err = req.Post(ctx, base+path)
	case "PUT":
		resp, err = req.Put(ctx, base+path)
	default:
		return "", apperror.Internal(apperror.CodeProtocol, "binance", fmt.Errorf("unsupported method %s", method))
	}
	if err != nil {
		return "", apperror.External(apperror.CodeTransport, "binance listen key", err)
	}
	if resp.IsError() {
		return "", apperror.External(apperror.CodeTransport, "binance listen key", fmt.Errorf("status %d", resp.StatusCode))
	}
	return result.ListenKey, nil
}

// NewConn builds the wsconn.Client a Handler for this Hooks set should
// use; the actual dial URL is filled in by ResolveURL at Run time.
func NewConn(name string) (*wsconn.Client, error) {
	return wsconn.New(wsconn.DefaultConfig("", name))
}

// NewWSHandler wires a complete Handler for one Binance connection.
func NewWSHandler(cfg config.ExchangeConfig, http httpclient.Client, topics []market.Topic, connName string) (*wshandler.Handler, error) {
	hooks, err := NewHooks(cfg, http, topics)
	if err != nil {
		return nil, err
	}
	conn, err := NewConn(connName)
	if err != nil {
		return nil, err
	}
	return wshandler.New(conn, topics, hooks), nil
}

// fetchOrderBookSnapshot ports BinanceOrderBookMerger.fetch_order_book:
// a REST depth snapshot with limit=1000.
func fetchOrderBookSnapshot(ctx context.Context, http httpclient.Client, wireSymbol string) (orderbook.Snapshot, int64, error) {
	if err := snapshotLimiter.Wait(ctx); err != nil {
		return orderbook.Snapshot{}, 0, apperror.External(apperror.CodeOrderbookFetchFailed, wireSymbol, err)
	}
	var result struct {
		LastUpdateID int64      `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	}
	resp, err := http.NewRequest().
		SetQueryParams(map[string]string{"symbol": wireSymbol, "limit": "1000"}).
		SetResult(&result).
		Get(ctx, restURLs["public"]+"/depth")
	if err != nil {
		return orderbook.Snapshot{}, 0, apperror.External(apperror.CodeOrderbookFetchFailed, wireSymbol, err)
	}
	if resp.IsError() {
		return orderbook.Snapshot{}, 0, apperror.External(apperror.CodeOrderbookFetchFailed, wireSymbol, fmt.Errorf("status %d", resp.StatusCode))
	}

	toRows := func(raw [][]string) []orderbook.Row {
		rows := make([]orderbook.Row, len(raw))
		for i, pair := range raw {
			price, _ := decimal.NewFromString(pair[0])
			size, _ := decimal.NewFromString(pair[1])
			rows[i] = orderbook.Row{Price: price, Size: size}
		}
		return rows
	}
	return orderbook.Snapshot{Asks: toRows(result.Asks), Bids: toRows(result.Bids)}, result.LastUpdateID, nil
}

// NewOrderBookMerger wires an orderbook.BinanceMerger for one symbol,
// backed by the REST depth snapshot endpoint.
func NewOrderBookMerger(http httpclient.Client, sym market.Symbol) (*orderbook.BinanceMerger, error) {
	symbol, err := ConvertSymbol(sym)
	if err != nil {
		return nil, err
	}
	return orderbook.NewBinanceMerger(symbol, func(wireSymbol string) (orderbook.Snapshot, int64, error) {
		return fetchOrderBookSnapshot(context.Background(), http, wireSymbol)
	}), nil
}

// decodeJSON unmarshals a combined-stream frame
// ({"stream": "...", "data": {...}}) into a generic map; callers that
// need a typed delta (e.g. BinanceDeltaFromMessage) do the second pass
// themselves.
func decodeJSON(data []byte) (any, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, apperror.Validation(apperror.CodeProtocol, "binance")
	}
	return msg, nil
}

// BinanceDeltaFromMessage extracts a BinanceDelta from a decoded
// combined-stream envelope ({"stream": "...", "data": {...}}), for the
// orderbook stream specifically.
func BinanceDeltaFromMessage(msg map[string]any) (orderbook.BinanceDelta, error) {
	data, _ := msg["data"].(map[string]any)
	if data == nil {
		data = msg
	}
	delta := orderbook.BinanceDelta{}
	if v, ok := data["U"]; ok {
		delta.FirstUpdateID = toInt64(v)
	}
	if v, ok := data["u"]; ok {
		delta.FinalUpdateID = toInt64(v)
	}
	if v, ok := data["pu"]; ok {
		delta.HasPrevFinalUpdateID = true
		delta.PrevFinalUpdateID = toInt64(v)
	}
	asks, err := toUpdates(data["a"])
	if err != nil {
		return orderbook.BinanceDelta{}, err
	}
	bids, err := toUpdates(data["b"])
	if err != nil {
		return orderbook.BinanceDelta{}, err
	}
	delta.Asks, delta.Bids = asks, bids
	return delta, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func toUpdates(v any) ([][2]decimal.Decimal, error) {
	rows, _ := v.([]any)
	out := make([][2]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		pair, _ := r.([]any)
		if len(pair) != 2 {
			continue
		}
		price, err := decimal.NewFromString(fmt.Sprintf("%v", pair[0]))
		if err != nil {
			return nil, apperror.Validation(apperror.CodeInvalidPatch, "binance")
		}
		size, err := decimal.NewFromString(fmt.Sprintf("%v", pair[1]))
		if err != nil {
			return nil, apperror.Validation(apperror.CodeInvalidPatch, "binance")
		}
		out = append(out, [2]decimal.Decimal{price, size})
	}
	return out, nil
}
