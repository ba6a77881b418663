// Package okex ports uxapi.exchanges.okex.Okex and OkexWSHandler: a
// single fixed wsapi URL carrying every market type's channels, a
// text "ping"/"pong" keepalive independent of JSON framing, an
// HMAC-signed login handshake for private topics, and the
// CRC32-checked order book merger in internal/orderbook.
package okex

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

const wsURL = "wss://real.okex.com:8443/ws/v3"
const deliveryHourUTC = 8
const serverTimeURL = "http://www.okex.com/api/general/v3/time"

// wsapiTemplates ports the per-market-type wsapi channel template
// table from Okex.describe(), trimmed to the channels this port
// exposes.
var wsapiTemplates = map[string]map[string]string{
	market.MarketSpot: {
		"ticker":    "spot/ticker:%s",
		"orderbook": "spot/depth%s:%s",
		"ohlcv":     "spot/candle%ss:%s",
		"trade":     "spot/trade:%s",
	},
	market.MarketFutures: {
		"ticker":    "futures/ticker:%s",
		"orderbook": "futures/depth%s:%s",
		"ohlcv":     "futures/candle%ss:%s",
		"trade":     "futures/trade:%s",
	},
	market.MarketSwap: {
		"ticker":    "swap/ticker:%s",
		"orderbook": "swap/depth%s:%s",
		"ohlcv":     "swap/candle%ss:%s",
		"trade":     "swap/trade:%s",
	},
}

var privateMainTypes = map[string]bool{
	"myorder":        true,
	"position":       true,
	"account":        true,
	"margin_account": true,
}

// ConvertSymbol ports Okex.convert_symbol for spot/futures/swap.
func ConvertSymbol(sym market.Symbol) (string, error) {
	base, err := sym.Base()
	if err != nil {
		return "", err
	}
	quote, err := sym.Quote()
	if err != nil {
		return "", err
	}
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)

	switch sym.MarketType {
	case market.MarketSpot:
		return base + "-" + quote, nil
	case market.MarketSwap:
		switch {
		case base == "USDT":
			return quote + "-" + base + "-SWAP", nil
		case quote == "USD":
			return base + "-" + quote + "-SWAP", nil
		}
		return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
	case market.MarketFutures:
		expiration, err := sym.ContractExpiration()
		if err != nil {
			return "", err
		}
		deliveryTime, err := market.ContractDeliveryTime(expiration, deliveryHourUTC, time.Time{})
		if err != nil {
			return "", err
		}
		suffix := deliveryTime.Format("060102")
		switch {
		case base == "USDT":
			return quote + "-" + base + "-" + suffix, nil
		case quote == "USD":
			return base + "-" + quote + "-" + suffix, nil
		}
		return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
	default:
		return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
	}
}

// ConvertTopic ports Okex.convert_topic: look up the market type's
// channel template and fill in the symbol (and, for orderbook/ohlcv,
// the level/period suffix).
func ConvertTopic(topic market.Topic) (string, error) {
	templates, ok := wsapiTemplates[topic.MarketType]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
	}
	maintype := topic.MainType()
	template, ok := templates[maintype]
	if !ok {
		return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
	}

	wireSymbol, err := ConvertSymbol(topic.Symbol())
	if err != nil {
		return "", err
	}

	switch maintype {
	case "orderbook":
		level := "5"
		if subtypes := topic.SubTypes(); len(subtypes) > 0 {
			if subtypes[0] == "full" || subtypes[0] == "tbt" {
				level = "_l2_tbt"
			} else {
				level = ""
			}
		}
		return fmt.Sprintf(template, level, wireSymbol), nil
	case "ohlcv":
		periodSec := "60"
		if subtypes := topic.SubTypes(); len(subtypes) > 0 {
			periodSec = subtypes[0]
		}
		return fmt.Sprintf(template, periodSec, wireSymbol), nil
	default:
		return fmt.Sprintf(template, wireSymbol), nil
	}
}

// Hooks implements wshandler.Hooks for one Okex connection.
type Hooks struct {
	cfg          config.ExchangeConfig
	http         httpclient.Client
	lastMessage  time.Time
	loginRequire bool
}

// NewHooks builds Okex hooks, detecting whether any topic requires the
// private login handshake.
func NewHooks(cfg config.ExchangeConfig, http httpclient.Client, topics []market.Topic) *Hooks {
	private := false
	for _, t := range topics {
		if privateMainTypes[t.MainType()] {
			private = true
			break
		}
	}
	return &Hooks{cfg: cfg, http: http, loginRequire: private, lastMessage: time.Now()}
}

// Decode ports OkexWSHandler.decode: frames arrive raw-deflate
// compressed (zlib with no header, Python's wbits=-MAX_WBITS), which
// Go's compress/flate reads directly without the zlib wrapper.
func (h *Hooks) Decode(data []byte) (any, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeProtocol, "okex")
	}

	var msg map[string]any
	if err := json.Unmarshal(plain, &msg); err != nil {
		return string(plain), nil
	}
	return msg, nil
}

func (h *Hooks) LoginRequired() bool { return h.loginRequire }

func (h *Hooks) Credentials() (map[string]string, error) {
	if h.cfg.APIKey == "" || h.cfg.Passphrase == "" {
		return nil, apperror.Unauthorized(apperror.CodeAuth, "okex")
	}
	return map[string]string{
		"apiKey":   h.cfg.APIKey,
		"secret":   h.cfg.Secret,
		"password": h.cfg.Passphrase,
	}, nil
}

// Keepalive pings only when nothing has arrived in the last 10
// seconds, matching OkexWSHandler.keepalive's idle-based ping.
func (h *Hooks) Keepalive(ctx context.Context, handler *wshandler.Handler) error {
	const interval = 10 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if time.Since(h.lastMessage) >= interval {
				if err := handler.Conn().Send(ctx, []byte("ping")); err != nil {
					return apperror.External(apperror.CodeTransport, "okex ping", err)
				}
			}
		}
	}
}

// OnKeepaliveMessage also ports OkexWSHandler's on_error_message: that
// pre-processor is appended permanently in on_connected, so an
// {event:"error"} frame must be caught here (the only processor that
// never retires) rather than only while the subscribe handshake is
// still pending.
func (h *Hooks) OnKeepaliveMessage(handler *wshandler.Handler, msg any) (any, bool) {
	h.lastMessage = time.Now()
	if m, ok := msg.(map[string]any); ok {
		if event, _ := m["event"].(string); event == "error" {
			handler.Fail(okexProtocolError(m))
			return nil, true
		}
	}
	if text, ok := msg.(string); ok && text == "pong" {
		return nil, true
	}
	return msg, false
}

func okexProtocolError(m map[string]any) error {
	errMsg, _ := m["message"].(string)
	errCode, _ := m["errorCode"].(string)
	return apperror.Validation(apperror.CodeProtocol, fmt.Sprintf("okex: %s(%s)", errMsg, errCode))
}

func (h *Hooks) LoginCommand(credentials map[string]string) (any, error) {
	serverTime, err := h.fetchServerTimestamp(context.Background())
	if err != nil {
		return nil, err
	}
	payload := serverTime + "GET" + "/users/self/verify"
	signature := market.Sign([]byte(credentials["secret"]), []byte(payload), market.DigestBase64)
	return map[string]any{
		"op": "login",
		"args": []string{
			credentials["apiKey"],
			credentials["password"],
			serverTime,
			signature,
		},
	}, nil
}

func (h *Hooks) fetchServerTimestamp(ctx context.Context) (string, error) {
	var result struct {
		Epoch string `json:"epoch"`
	}
	resp, err := h.http.NewRequest().SetResult(&result).Get(ctx, serverTimeURL)
	if err != nil {
		return "", apperror.External(apperror.CodeTransport, "okex server time", err)
	}
	if resp.IsError() {
		return "", apperror.External(apperror.CodeTransport, "okex server time", fmt.Errorf("status %d", resp.StatusCode))
	}
	return result.Epoch, nil
}

func (h *Hooks) OnLoginMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	if event, _ := m["event"].(string); event == "login" {
		handler.OnLoggedIn(context.Background())
		return nil, true
	}
	return msg, false
}

func (h *Hooks) ConvertTopic(topic market.Topic) (any, error) {
	return ConvertTopic(topic)
}

func (h *Hooks) SubscribeCommands(wireTopics []any) ([]any, error) {
	return []any{map[string]any{"op": "subscribe", "args": wireTopics}}, nil
}

func (h *Hooks) OnSubscribeMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	if event, _ := m["event"].(string); event == "subscribe" {
		if topic, ok := m["channel"].(string); ok {
			handler.OnSubscribed(topic)
		}
		return nil, true
	}
	if event, _ := m["event"].(string); event == "error" {
		handler.Fail(okexProtocolError(m))
		return nil, true
	}
	return msg, false
}

func (h *Hooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	return wsURL, nil
}

func (h *Hooks) NeedsSubscribe() bool { return true }
