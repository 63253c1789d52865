package service

import (
	"context"
	"errors"

	"github.com/brokerage-dashboard/internal/market"
	"go.uber.org/zap"
)

var (
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrInsufficientData = errors.New("not enough price history for analysis")
)

// Strategy parameters
const (
	smaShortWindow = 20
	smaLongWindow  = 50

	rsiPeriod     = 14
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Strategy names accepted by Analyze
const (
	StrategyMovingAverage = "moving_average"
	StrategyRSI           = "rsi"
)

// StrategySignal is the latest signal produced by a strategy
type StrategySignal struct {
	Symbol   string  `json:"symbol"`
	Strategy string  `json:"strategy"`
	Value    float64 `json:"value"`
	Signal   int     `json:"signal"`
	Position int     `json:"position"`
}

// StrategyService runs technical analysis strategies over daily closes
type StrategyService struct {
	provider market.Provider
	logger   *zap.Logger
}

// NewStrategyService creates a new StrategyService
func NewStrategyService(provider market.Provider, logger *zap.Logger) *StrategyService {
	return &StrategyService{
		provider: provider,
		logger:   logger,
	}
}

// Analyze fetches daily closes for a symbol and returns the latest signal
// for the requested strategy. Signal is +1 (buy), -1 (sell) or 0 (hold);
// position is the change from the previous signal.
func (s *StrategyService) Analyze(ctx context.Context, symbol, strategy string) (*StrategySignal, error) {
	if strategy != StrategyMovingAverage && strategy != StrategyRSI {
		return nil, ErrUnknownStrategy
	}

	closes, err := s.provider.DailyCloses(ctx, symbol, 120)
	if err != nil {
		return nil, err
	}

	var value float64
	var signals []int

	switch strategy {
	case StrategyMovingAverage:
		if len(closes) < smaLongWindow+1 {
			return nil, ErrInsufficientData
		}
		signals = movingAverageSignals(closes, smaShortWindow, smaLongWindow)
		value = sma(closes, smaShortWindow) - sma(closes, smaLongWindow)

	case StrategyRSI:
		if len(closes) < rsiPeriod+2 {
			return nil, ErrInsufficientData
		}
		values := rsi(closes, rsiPeriod)
		signals = rsiSignals(values)
		value = values[len(values)-1]
	}

	last := signals[len(signals)-1]
	position := last
	if len(signals) > 1 {
		position = last - signals[len(signals)-2]
	}

	return &StrategySignal{
		Symbol:   symbol,
		Strategy: strategy,
		Value:    value,
		Signal:   last,
		Position: position,
	}, nil
}

// sma returns the simple moving average of the trailing window
func sma(closes []float64, window int) float64 {
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window)
}

// movingAverageSignals produces a crossover signal series: +1 while the
// short SMA is above the long SMA, -1 while below.
func movingAverageSignals(closes []float64, short, long int) []int {
	signals := make([]int, 0, len(closes)-long+1)
	for i := long; i <= len(closes); i++ {
		window := closes[:i]
		shortAvg := sma(window, short)
		longAvg := sma(window, long)
		switch {
		case shortAvg > longAvg:
			signals = append(signals, 1)
		case shortAvg < longAvg:
			signals = append(signals, -1)
		default:
			signals = append(signals, 0)
		}
	}
	return signals
}

// rsi computes the relative strength index over rolling mean gains and
// losses. The result has one value per close starting at index period+1 of
// the input.
func rsi(closes []float64, period int) []float64 {
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	values := make([]float64, 0, len(closes)-period)
	for i := period + 1; i <= len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - period; j < i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			values = append(values, 100)
			continue
		}
		rs := avgGain / avgLoss
		values = append(values, 100-100/(1+rs))
	}
	return values
}

// rsiSignals maps RSI values to signals: +1 oversold, -1 overbought, else 0
func rsiSignals(values []float64) []int {
	signals := make([]int, len(values))
	for i, v := range values {
		switch {
		case v < rsiOversold:
			signals[i] = 1
		case v > rsiOverbought:
			signals[i] = -1
		}
	}
	return signals
}
