// Package deribit ports uxapi.exchanges.deribit.Deribit: symbol
// conversion only, since the original has no WSHandler subclass of
// its own (Deribit's JSON-RPC 2.0 channel/subscribe shape is close
// enough to the base protocol that it needs no quirks layer). The
// wshandler.Hooks implementation here is authored from Deribit's
// public JSON-RPC API directly rather than ported line-for-line, since
// nothing in original_source covers it.
package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

const wsURL = "wss://www.deribit.com/ws/api/v2"
const wsURLTestnet = "wss://test.deribit.com/ws/api/v2"
const deliveryHourUTC = 8

var monthNames = [...]string{
	"", "JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// ConvertSymbol ports Deribit.convert_symbol.
func ConvertSymbol(sym market.Symbol) (string, error) {
	base, err := sym.Base()
	if err != nil {
		return "", err
	}
	base = strings.ToUpper(base)

	switch sym.MarketType {
	case market.MarketFutures:
		expiration, err := sym.ContractExpiration()
		if err != nil {
			return "", err
		}
		dt, err := market.ContractDeliveryTime(expiration, deliveryHourUTC, time.Time{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s-%02d%s%02d", base, dt.Day(), monthNames[dt.Month()], dt.Year()%100), nil
	case market.MarketSwap:
		return base + "-PERPETUAL", nil
	default:
		return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
	}
}

var channelTemplates = map[string]string{
	"orderbook": "book.%s.100ms",
	"trade":     "trades.%s.100ms",
	"ticker":    "ticker.%s.100ms",
	"ohlcv":     "chart.trades.%s.%s",
}

// ConvertTopic builds a Deribit JSON-RPC channel name for the topics
// this port supports.
func ConvertTopic(topic market.Topic) (string, error) {
	wireSymbol, err := ConvertSymbol(topic.Symbol())
	if err != nil {
		return "", err
	}
	maintype := topic.MainType()
	template, ok := channelTemplates[maintype]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
	}
	if maintype == "ohlcv" {
		period := "1"
		if subtypes := topic.SubTypes(); len(subtypes) > 0 {
			period = subtypes[0]
		}
		return fmt.Sprintf(template, wireSymbol, period), nil
	}
	return fmt.Sprintf(template, wireSymbol), nil
}

// Hooks implements wshandler.Hooks for one Deribit connection using
// JSON-RPC 2.0's public/subscribe and public/auth methods.
type Hooks struct {
	cfg       config.ExchangeConfig
	requestID int64
	private   bool
}

// NewHooks builds Deribit hooks for the given topic set.
func NewHooks(cfg config.ExchangeConfig, topics []market.Topic) *Hooks {
	private := false
	for _, t := range topics {
		if t.MainType() == "private" || t.MainType() == "myorder" {
			private = true
			break
		}
	}
	return &Hooks{cfg: cfg, private: private}
}

func (h *Hooks) nextID() int64 {
	h.requestID++
	return h.requestID
}

func (h *Hooks) Decode(data []byte) (any, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, apperror.Validation(apperror.CodeProtocol, "deribit")
	}
	return msg, nil
}

func (h *Hooks) LoginRequired() bool { return h.private }

func (h *Hooks) Credentials() (map[string]string, error) {
	if h.cfg.APIKey == "" {
		return nil, apperror.Unauthorized(apperror.CodeAuth, "deribit")
	}
	return map[string]string{"apiKey": h.cfg.APIKey, "secret": h.cfg.Secret}, nil
}

// Keepalive relies on Deribit's server-initiated heartbeat/test_request
// JSON-RPC notifications; OnKeepaliveMessage answers those directly,
// so the background task here only waits for cancellation.
func (h *Hooks) Keepalive(ctx context.Context, handler *wshandler.Handler) error {
	<-ctx.Done()
	return nil
}

func (h *Hooks) OnKeepaliveMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	params, _ := m["params"].(map[string]any)
	if params == nil {
		return msg, false
	}
	if kind, _ := params["type"].(string); kind == "test_request" {
		cmd := map[string]any{
			"jsonrpc": "2.0",
			"id":      h.nextID(),
			"method":  "public/test",
			"params":  map[string]any{},
		}
		_ = handler.Send(context.Background(), cmd)
		return nil, true
	}
	return msg, false
}

func (h *Hooks) LoginCommand(credentials map[string]string) (any, error) {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      h.nextID(),
		"method":  "public/auth",
		"params": map[string]any{
			"grant_type":    "client_credentials",
			"client_id":     credentials["apiKey"],
			"client_secret": credentials["secret"],
		},
	}, nil
}

func (h *Hooks) OnLoginMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	result, hasResult := m["result"].(map[string]any)
	if !hasResult {
		return msg, false
	}
	if _, ok := result["access_token"]; ok {
		handler.OnLoggedIn(context.Background())
		return nil, true
	}
	return msg, false
}

func (h *Hooks) ConvertTopic(topic market.Topic) (any, error) {
	return ConvertTopic(topic)
}

func (h *Hooks) SubscribeCommands(wireTopics []any) ([]any, error) {
	channels := make([]string, len(wireTopics))
	for i, t := range wireTopics {
		channels[i], _ = t.(string)
	}
	method := "public/subscribe"
	if h.private {
		method = "private/subscribe"
	}
	return []any{map[string]any{
		"jsonrpc": "2.0",
		"id":      h.nextID(),
		"method":  method,
		"params":  map[string]any{"channels": channels},
	}}, nil
}

func (h *Hooks) OnSubscribeMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	result, ok := m["result"].([]any)
	if !ok {
		return msg, false
	}
	for _, ch := range result {
		if channel, ok := ch.(string); ok {
			handler.OnSubscribed(channel)
		}
	}
	return nil, true
}

func (h *Hooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	if h.cfg.Testnet {
		return wsURLTestnet, nil
	}
	return wsURL, nil
}

func (h *Hooks) NeedsSubscribe() bool { return true }
