package market

import "strings"

// Topic identifies a data feed within one exchange and market type. It
// is the Go port of uxapi.UXTopic: (exchange_id, market_type, datatype,
// extrainfo) where datatype is a dot-delimited "maintype.subtype..."
// string, e.g. "orderbook.full" or "ohlcv.1m".
type Topic struct {
	ExchangeID string
	MarketType string
	Datatype   string
	ExtraInfo  string
}

func (t Topic) String() string {
	if t.ExtraInfo != "" {
		return t.Datatype + ":" + t.ExtraInfo
	}
	return t.Datatype
}

// MainType is the first dot-separated component of Datatype, e.g.
// "orderbook" in "orderbook.full".
func (t Topic) MainType() string {
	if i := strings.IndexByte(t.Datatype, '.'); i >= 0 {
		return t.Datatype[:i]
	}
	return t.Datatype
}

// SubTypes are the dot-separated components of Datatype after the
// first, e.g. ["full"] in "orderbook.full".
func (t Topic) SubTypes() []string {
	parts := strings.Split(t.Datatype, ".")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// Symbol reconstructs the Symbol this topic's ExtraInfo names, when
// ExtraInfo carries a symbol name (the common case for per-symbol
// channels like "orderbook:BTC/USDT").
func (t Topic) Symbol() Symbol {
	return Symbol{ExchangeID: t.ExchangeID, MarketType: t.MarketType, Name: t.ExtraInfo}
}
