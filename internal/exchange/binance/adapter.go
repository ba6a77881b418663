package binance

import (
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/exchange"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func init() {
	exchange.Register("binance", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg, http: http}, nil
	})
}

// Adapter exposes this package's functions behind the common
// exchange.Adapter surface so callers can dispatch on exchange id
// without importing this package directly.
type Adapter struct {
	cfg  config.ExchangeConfig
	http httpclient.Client
}

func (a *Adapter) ID() string { return "binance" }

func (a *Adapter) ConvertSymbol(sym market.Symbol) (string, error) { return ConvertSymbol(sym) }

func (a *Adapter) ConvertTopic(topic market.Topic) (any, error) { return ConvertTopic(topic) }

func (a *Adapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	return NewWSHandler(a.cfg, a.http, topics, connName)
}

var describeBase = map[string]any{
	"id": "binance",
	"has": map[string]any{
		"orderbook": true,
		"trade":     true,
		"ticker":    true,
		"ohlcv":     true,
		"quote":     true,
	},
}

// Describe ports Binance.describe's ws/rest URL table, deep-extended
// with the capability flags every adapter's table carries.
func (a *Adapter) Describe() map[string]any {
	ws := make(map[string]any, len(wsURLs))
	for k, v := range wsURLs {
		ws[k] = v
	}
	rest := make(map[string]any, len(restURLs))
	for k, v := range restURLs {
		rest[k] = v
	}
	merged := market.DeepExtend(describeBase, map[string]any{
		"urls": map[string]any{"ws": ws, "rest": rest},
	})
	result, _ := merged.(map[string]any)
	return result
}
