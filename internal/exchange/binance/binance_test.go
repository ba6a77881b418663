package binance

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/apperror"
	"github.com/fd1az/uxfeed/internal/market"
)

func TestConvertSymbol_Spot(t *testing.T) {
	sym := market.NewSpotSymbol("binance", market.MarketSpot, "btc", "usdt")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %q", got)
	}
}

func TestConvertSymbol_Swap(t *testing.T) {
	sym := market.NewSpotSymbol("binance", market.MarketSwap, "btc", "usdt")
	got, err := ConvertSymbol(sym)
	if err != nil {
		t.Fatalf("ConvertSymbol: %v", err)
	}
	if got != "USDTBTC" {
		t.Fatalf("expected swap symbol to reverse base/quote, got %q", got)
	}
}

func TestConvertTopic_Orderbook(t *testing.T) {
	topic := market.Topic{ExchangeID: "binance", MarketType: market.MarketSpot, Datatype: "orderbook", ExtraInfo: "BTC/USDT"}
	got, err := ConvertTopic(topic)
	if err != nil {
		t.Fatalf("ConvertTopic: %v", err)
	}
	if got != "btcusdt@depth20@100ms" {
		t.Fatalf("expected default depth stream name, got %q", got)
	}
}

func TestConvertTopic_UnknownMainType(t *testing.T) {
	topic := market.Topic{ExchangeID: "binance", MarketType: market.MarketSpot, Datatype: "bogus", ExtraInfo: "BTC/USDT"}
	_, err := ConvertTopic(topic)
	if !apperror.IsAppError(err) || apperror.GetCode(err) != apperror.CodeInvalidTopic {
		t.Fatalf("expected CodeInvalidTopic, got %v", err)
	}
}
