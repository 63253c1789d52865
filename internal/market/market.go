package market

import (
	"context"
	"errors"
)

var (
	// ErrDataUnavailable signals that the provider returned no usable data
	// for the whole batch.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrSymbolNotFound signals that the provider has no data for a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// Quote is the most recent closing price for a symbol
type Quote struct {
	Symbol    string  `json:"symbol"`
	Close     float64 `json:"close"`
	Timestamp int64   `json:"timestamp"`
}

// Provider fetches current prices from an external market data source.
// Implementations may return partial results: symbols the provider could
// not resolve are simply absent from the returned map.
type Provider interface {
	// Quotes returns the latest closing price per symbol.
	Quotes(ctx context.Context, symbols []string) (map[string]Quote, error)

	// DailyCloses returns up to days daily closing prices for a symbol,
	// oldest first.
	DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}
