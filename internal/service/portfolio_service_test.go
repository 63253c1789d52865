package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brokerage-dashboard/internal/market"
	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Trade{}))
	return db
}

// fakeProvider serves canned market data
type fakeProvider struct {
	quotes map[string]market.Quote
	closes []float64
	err    error
}

func (f *fakeProvider) Quotes(_ context.Context, symbols []string) (map[string]market.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]market.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (f *fakeProvider) DailyCloses(_ context.Context, _ string, days int) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	closes := f.closes
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}

// fakeTracker records refresh registrations
type fakeTracker struct {
	tracked [][]string
}

func (f *fakeTracker) Track(symbols []string) {
	f.tracked = append(f.tracked, symbols)
}

func insertTrades(t *testing.T, repo *repository.TradeRepository, userID uint, trades ...models.Trade) {
	t.Helper()
	base := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	for i := range trades {
		trades[i].UserID = userID
		trades[i].ExecutedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(&trades[i]))
	}
}

func TestAggregateHoldings(t *testing.T) {
	tests := []struct {
		name   string
		trades []models.Trade
		want   map[string]float64
	}{
		{
			name:   "empty ledger",
			trades: nil,
			want:   map[string]float64{},
		},
		{
			name: "buys add and sells subtract",
			trades: []models.Trade{
				{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
				{Symbol: "XYZ", Quantity: 4, Price: 120, Side: models.TradeSideSell},
				{Symbol: "MSFT", Quantity: 2, Price: 380, Side: models.TradeSideBuy},
			},
			want: map[string]float64{"XYZ": 6, "MSFT": 2},
		},
		{
			name: "oversold symbol goes negative",
			trades: []models.Trade{
				{Symbol: "TSLA", Quantity: 1, Price: 250, Side: models.TradeSideBuy},
				{Symbol: "TSLA", Quantity: 3, Price: 260, Side: models.TradeSideSell},
			},
			want: map[string]float64{"TSLA": -2},
		},
		{
			name: "symbol keys are case-sensitive",
			trades: []models.Trade{
				{Symbol: "aapl", Quantity: 1, Price: 100, Side: models.TradeSideBuy},
				{Symbol: "AAPL", Quantity: 2, Price: 100, Side: models.TradeSideBuy},
			},
			want: map[string]float64{"aapl": 1, "AAPL": 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, aggregateHoldings(tc.trades))
		})
	}
}

func TestAggregatePositions(t *testing.T) {
	trades := []models.Trade{
		{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
		{Symbol: "XYZ", Quantity: 4, Price: 120, Side: models.TradeSideSell},
	}

	positions := aggregatePositions(trades)
	require.Contains(t, positions, "XYZ")
	assert.InDelta(t, 6, positions["XYZ"].Quantity, 1e-9)
	assert.InDelta(t, 520, positions["XYZ"].CostBasis, 1e-9)
}

func TestAggregatePositionsOrderIndependent(t *testing.T) {
	forward := []models.Trade{
		{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
		{Symbol: "XYZ", Quantity: 4, Price: 120, Side: models.TradeSideSell},
	}
	reversed := []models.Trade{forward[1], forward[0]}

	assert.Equal(t, aggregatePositions(forward), aggregatePositions(reversed))
}

func TestHoldings(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	tracker := &fakeTracker{}
	svc := NewPortfolioService(tradeRepo, &fakeProvider{}, tracker, zap.NewNop())

	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
		models.Trade{Symbol: "XYZ", Quantity: 4, Price: 120, Side: models.TradeSideSell},
	)

	holdings, err := svc.Holdings(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"XYZ": 6}, holdings)

	// Recomputing on an unchanged ledger yields identical results
	again, err := svc.Holdings(1)
	require.NoError(t, err)
	assert.Equal(t, holdings, again)

	// Each holdings query registers the symbols for price refresh
	require.Len(t, tracker.tracked, 2)
	assert.Equal(t, []string{"XYZ"}, tracker.tracked[0])
}

func TestHoldingsEmptyLedger(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	tracker := &fakeTracker{}
	svc := NewPortfolioService(tradeRepo, &fakeProvider{}, tracker, zap.NewNop())

	holdings, err := svc.Holdings(1)
	require.NoError(t, err)
	assert.Empty(t, holdings)
	assert.Empty(t, tracker.tracked)
}

func TestPerformance(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	provider := &fakeProvider{quotes: map[string]market.Quote{
		"XYZ": {Symbol: "XYZ", Close: 150},
	}}
	svc := NewPortfolioService(tradeRepo, provider, &fakeTracker{}, zap.NewNop())

	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
		models.Trade{Symbol: "XYZ", Quantity: 4, Price: 120, Side: models.TradeSideSell},
	)

	entries, err := svc.Performance(context.Background(), 1)
	require.NoError(t, err)
	require.Contains(t, entries, "XYZ")

	entry := entries["XYZ"]
	assert.InDelta(t, 6, entry.Quantity, 1e-9)
	assert.InDelta(t, 520, entry.CostBasis, 1e-9)
	assert.InDelta(t, 900, entry.CurrentValue, 1e-9)
	assert.InDelta(t, 380, entry.ProfitLoss, 1e-9)
	assert.InDelta(t, 73.08, entry.ProfitLossPercent, 0.01)
}

func TestPerformanceExcludesNonPositivePositions(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	provider := &fakeProvider{quotes: map[string]market.Quote{
		"FLAT":  {Symbol: "FLAT", Close: 50},
		"SHORT": {Symbol: "SHORT", Close: 50},
	}}
	svc := NewPortfolioService(tradeRepo, provider, &fakeTracker{}, zap.NewNop())

	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "FLAT", Quantity: 5, Price: 40, Side: models.TradeSideBuy},
		models.Trade{Symbol: "FLAT", Quantity: 5, Price: 60, Side: models.TradeSideSell},
		models.Trade{Symbol: "SHORT", Quantity: 2, Price: 60, Side: models.TradeSideSell},
	)

	entries, err := svc.Performance(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPerformanceOmitsSymbolWithMissingPrice(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	provider := &fakeProvider{quotes: map[string]market.Quote{
		"XYZ": {Symbol: "XYZ", Close: 150},
	}}
	svc := NewPortfolioService(tradeRepo, provider, &fakeTracker{}, zap.NewNop())

	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
		models.Trade{Symbol: "NOPRICE", Quantity: 3, Price: 10, Side: models.TradeSideBuy},
	)

	entries, err := svc.Performance(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, entries, "XYZ")
	assert.NotContains(t, entries, "NOPRICE")
}

func TestPerformanceOmitsZeroCostBasis(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	provider := &fakeProvider{quotes: map[string]market.Quote{
		"ZERO": {Symbol: "ZERO", Close: 150},
	}}
	svc := NewPortfolioService(tradeRepo, provider, &fakeTracker{}, zap.NewNop())

	// Net quantity 5, but cost basis 10*60 - 5*120 = 0: the percentage
	// would be a division by zero.
	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "ZERO", Quantity: 10, Price: 60, Side: models.TradeSideBuy},
		models.Trade{Symbol: "ZERO", Quantity: 5, Price: 120, Side: models.TradeSideSell},
	)

	entries, err := svc.Performance(context.Background(), 1)
	require.NoError(t, err)
	assert.NotContains(t, entries, "ZERO")
}

func TestPerformanceProviderFailure(t *testing.T) {
	tradeRepo := repository.NewTradeRepository(setupTestDB(t))
	provider := &fakeProvider{err: errors.New("provider down")}
	svc := NewPortfolioService(tradeRepo, provider, &fakeTracker{}, zap.NewNop())

	insertTrades(t, tradeRepo, 1,
		models.Trade{Symbol: "XYZ", Quantity: 10, Price: 100, Side: models.TradeSideBuy},
	)

	_, err := svc.Performance(context.Background(), 1)
	assert.Error(t, err)
}
