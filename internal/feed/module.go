// Package feed wires one exchange's market-data WebSocket connection
// into the monolith module lifecycle: RegisterServices builds the
// exchange adapter and its wshandler.Handler from configuration;
// Startup only validates that wiring succeeded. The handler itself is
// pulled back out of the service registry and run by the caller (see
// cmd/wsxclient), mirroring how the teacher's arbitrage module hands
// its long-running detector back to main after StartModules.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/di"
	"github.com/fd1az/uxfeed/internal/exchange"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/monolith"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

// Tokens under which this module's services are registered in the DI
// container.
const (
	TokenAdapter = "feed.adapter"
	TokenHandler = "feed.handler"
)

// Module builds and registers the WebSocket handler for one exchange
// id, market type, and datatype, subscribing to every symbol
// configured for that exchange.
type Module struct {
	ExchangeID string
	MarketType string
	Datatype   string
}

var _ monolith.Module = (*Module)(nil)

// RegisterServices builds the exchange adapter and its handler and
// registers both under TokenAdapter/TokenHandler.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := di.GetToken[*config.Config](c, "config")
	exCfg := exchangeConfig(cfg, m.ExchangeID)

	http, err := httpclient.NewInstrumentedClient()
	if err != nil {
		return fmt.Errorf("feed: building http client: %w", err)
	}

	adapter, err := exchange.New(m.ExchangeID, exCfg, http)
	if err != nil {
		return fmt.Errorf("feed: building %q adapter: %w", m.ExchangeID, err)
	}
	c.Register(TokenAdapter, adapter)

	topics, err := buildTopics(adapter, m.ExchangeID, m.MarketType, m.Datatype, exCfg.Symbols)
	if err != nil {
		return fmt.Errorf("feed: building topics: %w", err)
	}
	if len(topics) == 0 {
		return fmt.Errorf("feed: no symbols configured for exchange %q", m.ExchangeID)
	}

	handler, err := adapter.NewWSHandler(topics, m.ExchangeID)
	if err != nil {
		return fmt.Errorf("feed: building ws handler: %w", err)
	}
	c.Register(TokenHandler, handler)
	return nil
}

// Startup only confirms the handler registered cleanly; the handler's
// Run loop is started explicitly by the caller, since it blocks until
// ctx is cancelled or the connection is exhausted.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = di.GetToken[*wshandler.Handler](mono.Services(), TokenHandler)
	return nil
}

// exchangeConfig maps Huobi's two registry ids onto the one "huobi"
// config section; every other id names its own section directly.
func exchangeConfig(cfg *config.Config, exchangeID string) config.ExchangeConfig {
	switch exchangeID {
	case "binance":
		return cfg.Exchanges.Binance
	case "okex":
		return cfg.Exchanges.Okex
	case "bitmex":
		return cfg.Exchanges.Bitmex
	case "huobipro", "huobidm":
		return cfg.Exchanges.Huobi
	case "deribit":
		return cfg.Exchanges.Deribit
	default:
		return config.ExchangeConfig{}
	}
}

// buildTopics parses each configured symbol string and pairs it with
// one topic for the requested datatype.
func buildTopics(adapter exchange.Adapter, exchangeID, marketType, datatype string, symbols []string) ([]market.Topic, error) {
	topics := make([]market.Topic, 0, len(symbols))
	for _, raw := range symbols {
		base, quote, expiration := splitSymbol(raw)
		var sym market.Symbol
		if marketType == market.MarketFutures && expiration != "" {
			sym = market.NewFuturesSymbol(exchangeID, base, quote, expiration)
		} else {
			sym = market.NewSpotSymbol(exchangeID, marketType, base, quote)
		}
		if _, err := adapter.ConvertSymbol(sym); err != nil {
			return nil, fmt.Errorf("symbol %q: %w", raw, err)
		}
		topics = append(topics, market.Topic{
			ExchangeID: exchangeID,
			MarketType: marketType,
			Datatype:   datatype,
			ExtraInfo:  sym.Name,
		})
	}
	return topics, nil
}

// splitSymbol accepts "BASE/QUOTE" or "BASE/QUOTE:EXPIRATION" (e.g.
// "BTC/USDT:CW" for a futures contract).
func splitSymbol(raw string) (base, quote, expiration string) {
	name, expiration, _ := strings.Cut(raw, ":")
	base, quote, _ = strings.Cut(name, "/")
	return base, quote, expiration
}
