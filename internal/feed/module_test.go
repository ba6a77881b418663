package feed

import (
	"testing"

	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

type fakeAdapter struct{ id string }

func (f *fakeAdapter) ID() string { return f.id }
func (f *fakeAdapter) ConvertSymbol(sym market.Symbol) (string, error) { return sym.Name, nil }
func (f *fakeAdapter) ConvertTopic(topic market.Topic) (any, error) { return topic.Datatype, nil }
func (f *fakeAdapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	return nil, nil
}
func (f *fakeAdapter) Describe() map[string]any { return nil }

func TestSplitSymbol(t *testing.T) {
	cases := []struct {
		raw                     string
		base, quote, expiration string
	}{
		{"BTC/USDT", "BTC", "USDT", ""},
		{"BTC/USDT:CW", "BTC", "USDT", "CW"},
	}
	for _, c := range cases {
		base, quote, expiration := splitSymbol(c.raw)
		if base != c.base || quote != c.quote || expiration != c.expiration {
			t.Fatalf("splitSymbol(%q) = (%q, %q, %q), want (%q, %q, %q)",
				c.raw, base, quote, expiration, c.base, c.quote, c.expiration)
		}
	}
}

func TestBuildTopics_Spot(t *testing.T) {
	adapter := &fakeAdapter{id: "binance"}
	topics, err := buildTopics(adapter, "binance", market.MarketSpot, "orderbook", []string{"BTC/USDT", "ETH/USDT"})
	if err != nil {
		t.Fatalf("buildTopics: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if topics[0].ExtraInfo != "BTC/USDT" || topics[0].Datatype != "orderbook" {
		t.Fatalf("unexpected topic: %+v", topics[0])
	}
}

func TestExchangeConfig_HuobiSharesOneSection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Exchanges.Huobi = config.ExchangeConfig{Symbols: []string{"BTC/USDT"}}

	pro := exchangeConfig(cfg, "huobipro")
	dm := exchangeConfig(cfg, "huobidm")
	if len(pro.Symbols) != 1 || len(dm.Symbols) != 1 {
		t.Fatalf("expected both huobi ids to resolve the shared section, got pro=%+v dm=%+v", pro, dm)
	}
}
