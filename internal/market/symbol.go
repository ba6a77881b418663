// Package market holds the canonical Symbol/Topic value types shared by
// every exchange adapter, plus the describe-table merge and calendar
// helpers those adapters use to translate a canonical symbol into an
// exchange-native one.
package market

import (
	"fmt"
	"strings"

	"github.com/fd1az/uxfeed/internal/apperror"
)

// MarketType values. "futures" is the only accepted spelling; the
// original Python source sometimes wrote "future" for CCXT interop, but
// this port canonicalizes to "futures" everywhere (see DESIGN.md).
const (
	MarketSpot    = "spot"
	MarketSwap    = "swap"
	MarketFutures = "futures"
	MarketIndex   = "index"
)

// Symbol identifies one tradable instrument on one exchange. It is the
// Go port of uxapi.UXSymbol: an (exchange_id, market_type, name) triple
// where name additionally encodes base/quote (and, for futures,
// contract expiration) in a slash/dot delimited string.
type Symbol struct {
	ExchangeID string
	MarketType string
	Name       string
}

// ParseSymbol parses the "exchange_id:market_type:name" wire form
// produced by WireString().
func ParseSymbol(s string) (Symbol, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Symbol{}, apperror.Validation(apperror.CodeInvalidSymbol, s)
	}
	return Symbol{ExchangeID: parts[0], MarketType: parts[1], Name: parts[2]}, nil
}

// NewSpotSymbol builds a spot or swap symbol from base/quote.
func NewSpotSymbol(exchangeID, marketType, base, quote string) Symbol {
	name := strings.ToUpper(base + "/" + quote)
	return Symbol{ExchangeID: exchangeID, MarketType: marketType, Name: name}
}

// NewFuturesSymbol builds a futures symbol with an expiration code
// ("CW", "NW", "CQ", "NQ").
func NewFuturesSymbol(exchangeID, base, quote, contractExpiration string) Symbol {
	if quote == "" {
		quote = "USD"
	}
	name := strings.ToUpper(fmt.Sprintf("%s/%s.%s", base, quote, contractExpiration))
	return Symbol{ExchangeID: exchangeID, MarketType: MarketFutures, Name: name}
}

func (s Symbol) String() string {
	return s.Name
}

// WireString is the "exchange_id:market_type:name" form ParseSymbol
// accepts.
func (s Symbol) WireString() string {
	return fmt.Sprintf("%s:%s:%s", s.ExchangeID, s.MarketType, s.Name)
}

func (s Symbol) baseQuote() (string, string, error) {
	baseQuote := s.Name
	if i := strings.IndexByte(s.Name, '.'); i >= 0 {
		baseQuote = s.Name[:i]
	}
	i := strings.IndexByte(baseQuote, '/')
	if i < 0 {
		return "", "", apperror.Validation(apperror.CodeInvalidSymbol, s.Name)
	}
	return baseQuote[:i], baseQuote[i+1:], nil
}

// Base returns the base asset, e.g. "BTC" in "BTC/USDT".
func (s Symbol) Base() (string, error) {
	base, _, err := s.baseQuote()
	return base, err
}

// Quote returns the quote asset, e.g. "USDT" in "BTC/USDT".
func (s Symbol) Quote() (string, error) {
	_, quote, err := s.baseQuote()
	return quote, err
}

// ContractExpiration returns the expiration code embedded after the
// dot in a futures symbol's name, e.g. "CQ" in "BTC/USD.CQ".
func (s Symbol) ContractExpiration() (string, error) {
	i := strings.IndexByte(s.Name, '.')
	if i < 0 {
		return "", apperror.Validation(apperror.CodeInvalidSymbol, s.Name)
	}
	return s.Name[i+1:], nil
}
