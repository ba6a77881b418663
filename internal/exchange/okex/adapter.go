package okex

import (
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/exchange"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/orderbook"
	"github.com/fd1az/uxfeed/internal/wsconn"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func init() {
	exchange.Register("okex", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg, http: http}, nil
	})
}

// Adapter exposes this package's functions behind the common
// exchange.Adapter surface.
type Adapter struct {
	cfg  config.ExchangeConfig
	http httpclient.Client
}

func (a *Adapter) ID() string { return "okex" }

func (a *Adapter) ConvertSymbol(sym market.Symbol) (string, error) { return ConvertSymbol(sym) }

func (a *Adapter) ConvertTopic(topic market.Topic) (any, error) { return ConvertTopic(topic) }

func (a *Adapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig("", connName))
	if err != nil {
		return nil, err
	}
	return wshandler.New(conn, topics, NewHooks(a.cfg, a.http, topics)), nil
}

// NewOrderBookMerger wires an orderbook.OkexMerger for one symbol.
func (a *Adapter) NewOrderBookMerger(sym market.Symbol) (*orderbook.OkexMerger, error) {
	wireSymbol, err := ConvertSymbol(sym)
	if err != nil {
		return nil, err
	}
	return orderbook.NewOkexMerger(wireSymbol), nil
}

var describeBase = map[string]any{
	"id": "okex",
	"has": map[string]any{
		"orderbook": true,
		"trade":     true,
		"ticker":    true,
		"ohlcv":     true,
	},
}

// Describe ports Okex.describe's wsapi channel-template table,
// deep-extended per market type.
func (a *Adapter) Describe() map[string]any {
	templates := make(map[string]any, len(wsapiTemplates))
	for marketType, channels := range wsapiTemplates {
		ch := make(map[string]any, len(channels))
		for k, v := range channels {
			ch[k] = v
		}
		templates[marketType] = ch
	}
	merged := market.DeepExtend(describeBase, map[string]any{
		"urls":            map[string]any{"ws": wsURL},
		"wsapi":           templates,
		"deliveryHourUTC": deliveryHourUTC,
	})
	result, _ := merged.(map[string]any)
	return result
}
