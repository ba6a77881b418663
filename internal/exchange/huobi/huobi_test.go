package huobi

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func TestConvertSymbol_Spot(t *testing.T) {
	sym := market.NewSpotSymbol("huobipro", market.MarketSpot, "btc", "usdt")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "btcusdt" {
		t.Fatalf("expected lowercase btcusdt, got %q", got)
	}
}

func TestConvertSymbol_Swap(t *testing.T) {
	sym := market.NewSpotSymbol("huobidm", market.MarketSwap, "btc", "usdt")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "BTC-USDT" {
		t.Fatalf("expected BTC-USDT, got %q", got)
	}
}

func TestConvertTopic_SpotOrderbookDefault(t *testing.T) {
	topic := market.Topic{ExchangeID: "huobipro", MarketType: market.MarketSpot, Datatype: "orderbook", ExtraInfo: "BTC/USDT"}
	got, err := ConvertTopic(topic)
	if err != nil {
		t.Fatalf("ConvertTopic: %v", err)
	}
	if got != "market.btcusdt.depth.step0" {
		t.Fatalf("expected default depth channel, got %q", got)
	}
}

func TestOnKeepaliveMessage_CloseOpFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, true, true)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnKeepaliveMessage(h, map[string]any{"op": "close"})
	if !stop {
		t.Fatal("expected a close frame to stop the chain")
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

func TestOnKeepaliveMessage_ErrorOpFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, true, true)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnKeepaliveMessage(h, map[string]any{"op": "error", "err-code": float64(2002)})
	if !stop {
		t.Fatal("expected an error frame to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	if _, ok := h.FailedWith(); !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
}

func TestOnLoginMessage_RejectedDMAuthFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, true, true)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnLoginMessage(h, map[string]any{"op": "auth", "err-code": float64(2002)})
	if !stop {
		t.Fatal("expected a rejected auth to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeAuth {
		t.Fatalf("expected CodeAuth, got %v", err)
	}
}

func TestOnLoginMessage_RejectedSpotAuthFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, false, true)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnLoginMessage(h, map[string]any{"action": "req", "ch": "auth", "code": float64(403)})
	if !stop {
		t.Fatal("expected a rejected auth to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v", out)
	}
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeAuth {
		t.Fatalf("expected CodeAuth, got %v", err)
	}
}

func TestOnSubscribeMessage_FailedAckFailsHandler(t *testing.T) {
	hooks := NewHooks(config.ExchangeConfig{}, false, false)
	h := wshandler.New(nil, nil, hooks)

	out, stop := hooks.OnSubscribeMessage(h, map[string]any{"subbed": "market.btcusdt.depth.step0", "status": "error"})
	if !stop {
		t.Fatal("expected a failed subscribe ack to stop the chain")
	}
	if out != nil {
		t.Fatalf("expected nil output, got %v (a failed ack must not reach the collector)", out)
	}
	err, ok := h.FailedWith()
	if !ok {
		t.Fatal("expected handler.Fail to have fired")
	}
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeSubscribe {
		t.Fatalf("expected CodeSubscribe, got %v", err)
	}
}
