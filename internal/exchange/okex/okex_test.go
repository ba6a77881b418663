package okex

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func TestConvertSymbol_Spot(t *testing.T) {
	sym := market.NewSpotSymbol("okex", market.MarketSpot, "btc", "usdt")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "BTC-USDT" {
		t.Fatalf("expected BTC-USDT, got %q", got)
	}
}

func TestConvertSymbol_SwapRequiresUSDTOrUSDQuote(t *testing.T) {
	sym := market.NewSpotSymbol("okex", market.MarketSwap, "btc", "eur")
	_, err := ConvertSymbol(sym)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidSymbol {
		t.Fatalf("expected CodeInvalidSymbol for unsupported swap quote, got %v", err)
	}
}

func TestConvertSymbol_SwapUSDTMargined(t *testing.T) {
	sym := market.NewSpotSymbol("okex", market.MarketSwap, "usdt", "btc")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "BTC-USDT-SWAP" {
		t.Fatalf("expected BTC-USDT-SWAP, got %q", got)
	}
}

func TestConvertTopic_UnknownMarketType(t *testing.T) {
	topic := market.Topic{ExchangeID: "okex", MarketType: "bogus", Datatype: "orderbook", ExtraInfo: "BTC/USDT"}
	_, err := ConvertTopic(topic)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidTopic {
		t.Fatalf("expected CodeInvalidTopic, got %v", err)
	}
}

func TestOnKeepaliveMessage_ErrorEventFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, nil, nil)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnKeepaliveMessage(h, map[string]any{
		"event":     "error",
		"message":   "Channel does not exist",
		"errorCode": "30040",
	})
	if !stop {
		t.Fatal("expected an error event to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol, got %v", err)
	}
}

func TestOnSubscribeMessage_ErrorEventFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, nil, nil)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnSubscribeMessage(h, map[string]any{
		"event":     "error",
		"message":   "Unrecognized request",
		"errorCode": "30039",
	})
	if !stop {
		t.Fatal("expected an error event to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeProtocol {
		t.Fatalf("expected CodeProtocol, got %v", err)
	}
}
