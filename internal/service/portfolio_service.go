package service

import (
	"context"
	"errors"

	"github.com/brokerage-dashboard/internal/market"
	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrZeroCostBasis signals that profit_loss_percent is undefined for a
	// symbol because its accumulated cost basis is exactly zero.
	ErrZeroCostBasis = errors.New("cost basis is zero")
)

// PerformanceEntry is the unrealized profit/loss for one held symbol
type PerformanceEntry struct {
	Symbol            string  `json:"symbol"`
	Quantity          float64 `json:"quantity"`
	CostBasis         float64 `json:"cost_basis"`
	CurrentValue      float64 `json:"current_value"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

// SymbolTracker registers symbols for periodic price refresh
type SymbolTracker interface {
	Track(symbols []string)
}

// PortfolioService derives holdings and performance from the trade ledger.
// Holdings are never persisted: every call recomputes them from the full
// ledger, so the result is always consistent with the ledger at read time.
type PortfolioService struct {
	tradeRepo *repository.TradeRepository
	provider  market.Provider
	tracker   SymbolTracker
	logger    *zap.Logger
}

// NewPortfolioService creates a new PortfolioService
func NewPortfolioService(
	tradeRepo *repository.TradeRepository,
	provider market.Provider,
	tracker SymbolTracker,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		tradeRepo: tradeRepo,
		provider:  provider,
		tracker:   tracker,
		logger:    logger,
	}
}

// position accumulates the net quantity and cost basis for one symbol
type position struct {
	Quantity  float64
	CostBasis float64
}

// aggregateHoldings folds a trade ledger into per-symbol net quantity.
// Buys add, sells subtract. Symbol keys are literal (case-sensitive), and
// symbols never traded do not appear.
func aggregateHoldings(trades []models.Trade) map[string]float64 {
	holdings := make(map[string]float64, len(trades))
	for _, t := range trades {
		if t.Side == models.TradeSideSell {
			holdings[t.Symbol] -= t.Quantity
		} else {
			holdings[t.Symbol] += t.Quantity
		}
	}
	return holdings
}

// aggregatePositions folds a trade ledger into per-symbol net quantity and
// cost basis. Both are pure sums, so trade order does not matter.
func aggregatePositions(trades []models.Trade) map[string]position {
	positions := make(map[string]position, len(trades))
	for _, t := range trades {
		p := positions[t.Symbol]
		if t.Side == models.TradeSideSell {
			p.Quantity -= t.Quantity
			p.CostBasis -= t.Quantity * t.Price
		} else {
			p.Quantity += t.Quantity
			p.CostBasis += t.Quantity * t.Price
		}
		positions[t.Symbol] = p
	}
	return positions
}

// Holdings returns the caller's per-symbol net quantity and registers the
// symbols for periodic price refresh.
func (s *PortfolioService) Holdings(userID uint) (map[string]float64, error) {
	trades, err := s.tradeRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	holdings := aggregateHoldings(trades)

	if s.tracker != nil && len(holdings) > 0 {
		symbols := make([]string, 0, len(holdings))
		for symbol := range holdings {
			symbols = append(symbols, symbol)
		}
		s.tracker.Track(symbols)
	}

	return holdings, nil
}

// Performance returns per-symbol unrealized profit/loss for every symbol
// with strictly positive net quantity.
//
// The overall request succeeds with a partial result when individual
// symbols cannot be priced: a symbol whose price is missing from the
// provider's response is omitted and logged, as is a symbol whose cost
// basis is exactly zero (profit_loss_percent would be undefined). Only a
// whole-batch provider failure is returned as an error.
func (s *PortfolioService) Performance(ctx context.Context, userID uint) (map[string]PerformanceEntry, error) {
	trades, err := s.tradeRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	positions := aggregatePositions(trades)

	held := make([]string, 0, len(positions))
	for symbol, p := range positions {
		if p.Quantity > 0 {
			held = append(held, symbol)
		}
	}
	if len(held) == 0 {
		return map[string]PerformanceEntry{}, nil
	}

	quotes, err := s.provider.Quotes(ctx, held)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]PerformanceEntry, len(held))
	for _, symbol := range held {
		p := positions[symbol]

		quote, ok := quotes[symbol]
		if !ok {
			s.logger.Warn("performance entry omitted: missing price",
				zap.Uint("user_id", userID),
				zap.String("symbol", symbol))
			continue
		}

		if p.CostBasis == 0 {
			s.logger.Warn("performance entry omitted",
				zap.Uint("user_id", userID),
				zap.String("symbol", symbol),
				zap.Error(ErrZeroCostBasis))
			continue
		}

		currentValue := p.Quantity * quote.Close
		profitLoss := currentValue - p.CostBasis
		entries[symbol] = PerformanceEntry{
			Symbol:            symbol,
			Quantity:          p.Quantity,
			CostBasis:         p.CostBasis,
			CurrentValue:      currentValue,
			ProfitLoss:        profitLoss,
			ProfitLossPercent: profitLoss / p.CostBasis * 100,
		}
	}

	return entries, nil
}
