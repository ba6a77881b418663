// Package bitmex ports uxapi.exchanges.bitmex.Bitmex and
// BitmexWSHandler: a fixed wsapi URL, info/error pre-processors ahead
// of the generic chain, an idle-based "ping"/"pong" text keepalive,
// an expiring-signature login handshake, and the id-keyed order book
// merger in internal/orderbook.
package bitmex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

const wsURL = "wss://www.bitmex.com/realtime"
const wsURLTestnet = "wss://testnet.bitmex.com/realtime"
const deliveryHourUTC = 12
const defaultAPIExpires = 60 * 60 * 24 * 1000 // 1000 days, in seconds

var privateMainTypes = map[string]bool{
	"myorder": true, "margin": true, "position": true, "affiliate": true,
	"execution": true, "privateNotifications": true, "transact": true, "wallet": true,
}

const monthCodes = "FGHJKMNQUVXZ"

// contractCode ports Bitmex._contract_code.
func contractCode(deliveryTime time.Time) string {
	year := deliveryTime.Year() - 2000
	quarter := (int(deliveryTime.Month()) + 2) / 3
	deliveryMonth := monthCodes[quarter*3-1]
	return fmt.Sprintf("%c%d", deliveryMonth, year)
}

// ConvertSymbol ports Bitmex.convert_symbol.
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
	case market.MarketSwap:
		switch sym.Name {
		case "!ETHUSD/BTC":
			return "ETH/USD", nil
		case "!XRPUSD/BTC":
			return "XRP/USD", nil
		case "BTC/USD":
			return sym.Name, nil
		}
	case market.MarketFutures:
		if base == "BTC" {
			expiration, err := sym.ContractExpiration()
			if err != nil {
				return "", err
			}
			deliveryTime, err := market.ContractDeliveryTime(expiration, deliveryHourUTC, time.Time{})
			if err != nil {
				return "", err
			}
			code := contractCode(deliveryTime)
			switch quote {
			case "USD":
				return "XBT" + code, nil
			case "ADA", "BCH", "EOS", "ETH", "LTC", "TRX", "XRP":
				return quote + code, nil
			}
		}
	case market.MarketIndex:
		return sym.Name, nil
	}
	return "", apperror.Validation(apperror.CodeInvalidSymbol, sym.Name)
}

// ConvertTopic ports Bitmex.convert_topic.
func ConvertTopic(topic market.Topic) (string, error) {
	maintype := topic.MainType()
	subtypes := topic.SubTypes()

	var name string
	switch maintype {
	case "orderbook":
		switch {
		case len(subtypes) == 0:
			name = "orderBook10"
		case subtypes[0] == "full":
			name = "orderBookL2"
		case subtypes[0] == "25":
			name = "orderBookL2_25"
		default:
			return "", apperror.Validation(apperror.CodeInvalidTopic, topic.String())
		}
	case "quote":
		if len(subtypes) > 0 {
			name = "quoteBin" + subtypes[0]
		} else {
			name = "quote"
		}
	case "trade":
		if len(subtypes) > 0 {
			name = "tradeBin" + subtypes[0]
		} else {
			name = "trade"
		}
	case "myorder":
		name = "order"
	default:
		name = maintype
	}

	if topic.ExtraInfo != "" {
		wireSymbol, err := ConvertSymbol(topic.Symbol())
		if err != nil {
			return "", err
		}
		name = name + ":" + wireSymbol
	}
	return name, nil
}

// Hooks implements wshandler.Hooks for one Bitmex connection.
type Hooks struct {
	cfg          config.ExchangeConfig
	testnet      bool
	lastMessage  time.Time
	loginRequire bool
}

// NewHooks builds Bitmex hooks for the given topic set.
func NewHooks(cfg config.ExchangeConfig, topics []market.Topic) *Hooks {
	private := false
	for _, t := range topics {
		if privateMainTypes[t.MainType()] {
			private = true
			break
		}
	}
	return &Hooks{cfg: cfg, testnet: cfg.Testnet, loginRequire: private, lastMessage: time.Now()}
}

func (h *Hooks) Decode(data []byte) (any, error) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return string(data), nil
	}
	return msg, nil
}

func (h *Hooks) LoginRequired() bool { return h.loginRequire }

func (h *Hooks) Credentials() (map[string]string, error) {
	if h.cfg.APIKey == "" {
		return nil, apperror.Unauthorized(apperror.CodeAuth, "bitmex")
	}
	return map[string]string{"apiKey": h.cfg.APIKey, "secret": h.cfg.Secret}, nil
}

// Keepalive ports BitmexWSHandler.keepalive: ping only when idle for
// 5 seconds.
func (h *Hooks) Keepalive(ctx context.Context, handler *wshandler.Handler) error {
	const interval = 5 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if time.Since(h.lastMessage) >= interval {
				if err := handler.Conn().Send(ctx, []byte("ping")); err != nil {
					return apperror.External(apperror.CodeTransport, "bitmex ping", err)
				}
			}
		}
	}
}

// OnKeepaliveMessage also ports BitmexWSHandler's on_info_message and
// on_error_message: both are appended permanently in on_connected, so
// they're checked here (the only processor that never retires)
// instead of only while the subscribe handshake is still pending.
func (h *Hooks) OnKeepaliveMessage(handler *wshandler.Handler, msg any) (any, bool) {
	h.lastMessage = time.Now()
	if m, ok := msg.(map[string]any); ok {
		if errVal, has := m["error"]; has {
			handler.Fail(apperror.Validation(apperror.CodeProtocol, fmt.Sprintf("bitmex: %v", errVal)))
			return nil, true
		}
		if _, has := m["info"]; has {
			return nil, true
		}
	}
	if text, ok := msg.(string); ok && text == "pong" {
		return nil, true
	}
	return msg, false
}

// LoginCommand ports BitmexWSHandler.login_command: an
// authKeyExpires signature valid for ws-api-expires seconds (1000
// days by default).
func (h *Hooks) LoginCommand(credentials map[string]string) (any, error) {
	expires := defaultAPIExpires + time.Now().Unix()
	payload := "GET" + "/realtime" + strconv.FormatInt(expires, 10)
	signature := market.Sign([]byte(credentials["secret"]), []byte(payload), market.DigestHex)
	return map[string]any{
		"op":   "authKeyExpires",
		"args": []any{credentials["apiKey"], expires, signature},
	}, nil
}

func (h *Hooks) OnLoginMessage(handler *wshandler.Handler, msg any) (any, bool) {
	m, ok := msg.(map[string]any)
	if !ok {
		return msg, false
	}
	req, ok := m["request"].(map[string]any)
	if !ok {
		return msg, false
	}
	if op, _ := req["op"].(string); op != "authKeyExpires" {
		return msg, false
	}
	if success, _ := m["success"].(bool); success {
		handler.OnLoggedIn(context.Background())
	} else {
		handler.Fail(apperror.Unauthorized(apperror.CodeAuth, "bitmex: login failed"))
	}
	return nil, true
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
	if topic, ok := m["subscribe"].(string); ok {
		handler.OnSubscribed(topic)
		return nil, true
	}
	if _, ok := m["info"]; ok {
		return nil, true
	}
	if errVal, ok := m["error"]; ok {
		handler.Fail(apperror.Validation(apperror.CodeProtocol, fmt.Sprintf("bitmex: %v", errVal)))
		return nil, true
	}
	return msg, false
}

func (h *Hooks) ResolveURL(ctx context.Context, topics []market.Topic) (string, error) {
	if h.testnet {
		return wsURLTestnet, nil
	}
	return wsURL, nil
}

func (h *Hooks) NeedsSubscribe() bool { return true }
