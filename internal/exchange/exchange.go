// Package exchange defines the common Adapter surface every
// internal/exchange/<name> package implements, plus a package-level
// registry mirroring uxapi.register_exchange/new_exchange: each
// adapter package registers itself from an init() function, and
// callers look an exchange up by id without importing its concrete
// package directly.
package exchange

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fd1az/uxfeed/internal/config"
	"github.com/fd1az/uxfeed/internal/httpclient"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

// Adapter is what one exchange's package exposes once constructed for
// a given credential set.
type Adapter interface {
	// ID is the registered exchange id (e.g. "binance").
	ID() string
	// ConvertSymbol maps a canonical Symbol to this exchange's wire
	// symbol spelling.
	ConvertSymbol(sym market.Symbol) (string, error)
	// ConvertTopic maps a canonical Topic to this exchange's wire
	// channel/stream name.
	ConvertTopic(topic market.Topic) (any, error)
	// NewWSHandler builds a ready-to-Run handler for one connection's
	// worth of topics (all topics must share whatever grouping the
	// exchange requires — e.g. Binance's single wsapi family per
	// connection).
	NewWSHandler(topics []market.Topic, connName string) (*wshandler.Handler, error)
	// Describe returns this exchange's base+override configuration
	// table (URLs, capability flags), built with market.DeepExtend the
	// same way uxapi.Exchange.describe layers per-market-type
	// overrides on a shared base.
	Describe() map[string]any
}

// Factory builds an Adapter from one exchange's configured credentials
// and a shared HTTP client.
type Factory func(cfg config.ExchangeConfig, http httpclient.Client) (Adapter, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds factory under id. Called from each adapter package's
// init(); a duplicate id panics at startup, matching
// uxapi.register_exchange's "exchange already registered" assertion.
func Register(id string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("exchange: %q already registered", id))
	}
	registry[id] = factory
}

// New builds the Adapter registered under id.
func New(id string, cfg config.ExchangeConfig, http httpclient.Client) (Adapter, error) {
	mu.RLock()
	factory, ok := registry[id]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("exchange: %q not registered", id)
	}
	return factory(cfg, http)
}

// IDs lists every registered exchange id, sorted.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
