package bitmex

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
	exchange.Register("bitmex", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg}, nil
	})
}

// Adapter exposes this package's functions behind the common
// exchange.Adapter surface. Bitmex needs no HTTP client of its own —
// the login handshake is signed locally, not fetched over REST.
type Adapter struct {
	cfg config.ExchangeConfig
}

func (a *Adapter) ID() string { return "bitmex" }

func (a *Adapter) ConvertSymbol(sym market.Symbol) (string, error) { return ConvertSymbol(sym) }

func (a *Adapter) ConvertTopic(topic market.Topic) (any, error) { return ConvertTopic(topic) }

func (a *Adapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig("", connName))
	if err != nil {
		return nil, err
	}
	return wshandler.New(conn, topics, NewHooks(a.cfg, topics)), nil
}

// NewOrderBookMerger wires an orderbook.BitmexMerger for one symbol.
func (a *Adapter) NewOrderBookMerger(sym market.Symbol) (*orderbook.BitmexMerger, error) {
	wireSymbol, err := ConvertSymbol(sym)
	if err != nil {
		return nil, err
	}
	return orderbook.NewBitmexMerger(wireSymbol), nil
}

var describeBase = map[string]any{
	"id": "bitmex",
	"has": map[string]any{
		"orderbook": true,
		"trade":     true,
		"quote":     true,
	},
}

// Describe ports Bitmex.describe's ws URL table.
func (a *Adapter) Describe() map[string]any {
	merged := market.DeepExtend(describeBase, map[string]any{
		"urls": map[string]any{
			"ws":        wsURL,
			"wsTestnet": wsURLTestnet,
		},
		"deliveryHourUTC": deliveryHourUTC,
	})
	result, _ := merged.(map[string]any)
	return result
}
