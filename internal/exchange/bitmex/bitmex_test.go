package bitmex

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func TestConvertSymbol_SwapBTCUSD(t *testing.T) {
	sym := market.NewSpotSymbol("bitmex", market.MarketSwap, "btc", "usd")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "BTC/USD" {
		t.Fatalf("expected BTC/USD, got %q", got)
	}
}

func TestConvertSymbol_UnsupportedSwapPair(t *testing.T) {
	sym := market.NewSpotSymbol("bitmex", market.MarketSwap, "ltc", "usd")
	_, err := ConvertSymbol(sym)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidSymbol {
		t.Fatalf("expected CodeInvalidSymbol, got %v", err)
	}
}

func TestConvertTopic_InvalidOrderbookSubtype(t *testing.T) {
	topic := market.Topic{ExchangeID: "bitmex", MarketType: market.MarketSwap, Datatype: "orderbook.bogus", ExtraInfo: "BTC/USD"}
	_, err := ConvertTopic(topic)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidTopic {
		t.Fatalf("expected CodeInvalidTopic, got %v", err)
	}
}

func TestConvertTopic_Trade(t *testing.T) {
	topic := market.Topic{ExchangeID: "bitmex", MarketType: market.MarketSwap, Datatype: "trade", ExtraInfo: "BTC/USD"}
	got, err := ConvertTopic(topic)
	if err != nil {
		t.Fatalf("ConvertTopic: %v", err)
	}
	if got != "trade:BTC/USD" {
		t.Fatalf("expected trade:BTC/USD, got %q", got)
	}
}

// drainFail asserts that handler.Fail fired and returns the error it
// delivered.
func drainFail(t *testing.T, h *wshandler.Handler) error {
	t.Helper()
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	return err
}

func TestOnKeepaliveMessage_ErrorFrameFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, nil)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnKeepaliveMessage(h, map[string]any{"error": "invalid channel"})
	if !stop {
		t.Fatal("expected an error frame to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err := drainFail(t, h)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol, got %v", err)
	}
}

func TestOnLoginMessage_RejectedLoginFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, nil)
	h := wshandler.New(nil, nil, hooks)

	msg := map[string]any{
		"success": false,
		"request": map[string]any{"op": "authKeyExpires"},
	}
	out, stop := hooks.OnLoginMessage(h, msg)
	if !stop {
		t.Fatal("expected a rejected login to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err := drainFail(t, h)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeAuth {
		t.Fatalf("expected CodeAuth, got %v", err)
	}
}

func TestOnSubscribeMessage_ErrorAckFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, nil)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnSubscribeMessage(h, map[string]any{"error": "unknown topic"})
	if !stop {
		t.Fatal("expected an error ack to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err := drainFail(t, h)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol, got %v", err)
	}
}
