package huobi

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
	exchange.Register("huobipro", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg, isFutures: false}, nil
	})
	exchange.Register("huobidm", func(cfg config.ExchangeConfig, http httpclient.Client) (exchange.Adapter, error) {
		return &Adapter{cfg: cfg, isFutures: true}, nil
	})
}

// Adapter exposes this package's functions behind the common
// exchange.Adapter surface, for either the spot (Huobipro) or
// futures/swap (Huobidm) sub-exchange.
type Adapter struct {
	cfg       config.ExchangeConfig
	isFutures bool
}

func (a *Adapter) ID() string {
	if a.isFutures {
		return "huobidm"
	}
	return "huobipro"
}

func (a *Adapter) ConvertSymbol(sym market.Symbol) (string, error) { return ConvertSymbol(sym) }

func (a *Adapter) ConvertTopic(topic market.Topic) (any, error) { return ConvertTopic(topic) }

// privateMainTypes mirrors the user-data channel maintypes Huobi's
// private WS API carries; any topic in this set routes the connection
// through the login handshake.
var privateMainTypes = map[string]bool{
	"private": true, "myorder": true, "account": true, "position": true,
}

func topicsArePrivate(topics []market.Topic) bool {
	for _, t := range topics {
		if privateMainTypes[t.MainType()] {
			return true
		}
	}
	return false
}

func (a *Adapter) NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig("", connName))
	if err != nil {
		return nil, err
	}
	hooks := NewHooks(a.cfg, a.isFutures, topicsArePrivate(topics))
	return wshandler.New(conn, topics, hooks), nil
}

// NewOrderBookMerger wires the order book merger appropriate to this
// sub-exchange: Huobipro bootstraps its snapshot over a parallel
// wsreq connection, while Huobidm carries its own snapshot frame
// inline and needs no fetcher.
func (a *Adapter) NewOrderBookMerger(sym market.Symbol) (any, error) {
	wireSymbol, err := ConvertSymbol(sym)
	if err != nil {
		return nil, err
	}
	if a.isFutures {
		return orderbook.NewHuobidmMerger(wireSymbol), nil
	}
	reqConn, err := NewWSReqConn(wireSymbol)
	if err != nil {
		return nil, err
	}
	return orderbook.NewHuobiproMerger(wireSymbol, NewHuobiproSnapshotFetcher(reqConn)), nil
}

var describeBase = map[string]any{
	"id": "huobi",
	"has": map[string]any{
		"orderbook": true,
		"trade":     true,
		"ticker":    true,
		"ohlcv":     true,
	},
}

// Describe ports Huobipro/Huobidm.describe's ws URL table.
func (a *Adapter) Describe() map[string]any {
	merged := market.DeepExtend(describeBase, map[string]any{
		"id": a.ID(),
		"urls": map[string]any{
			"market":    marketURL,
			"private":   privateURL,
			"dmMarket":  dmMarketURL,
			"dmPrivate": dmPrivateURL,
		},
	})
	result, _ := merged.(map[string]any)
	return result
}
