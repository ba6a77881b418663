package deribit

import (
	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/exchange"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wsconn"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

func init() {
	exchange.Register("deribit", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg}, nil
	})
}

// Adapter exposes this package's functions behind the common
// exchange.Adapter surface. Deribit carries no incremental order book
// merger of its own (see DESIGN.md) — subscribers consume its
// book.*.100ms channel as self-contained snapshots.
type Adapter struct {
	cfg config.ExchangeConfig
}

func (a *Adapter) ID() string { return "deribit" }

func (a *Adapter) ConvertSymbol(sym market.Symbol) (string, error) { return ConvertSymbol(sym) }

func (a *Adapter) ConvertTopic(topic market.Topic) (any, error) { return ConvertTopic(topic) }

func (a *Adapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig("", connName))
	if err != nil {
		return nil, err
	}
	return wshandler.New(conn, topics, NewHooks(a.cfg, topics)), nil
}

var describeBase = map[string]any{
	"id": "deribit",
	"has": map[string]any{
		"orderbook": true,
		"trade":     true,
		"ticker":    true,
		"ohlcv":     true,
	},
}

// Describe ports Deribit.describe's ws URL table.
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
