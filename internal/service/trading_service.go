package service

import (
	"errors"
	"time"

	"github.com/brokerage-dashboard/internal/models"
	"github.com/brokerage-dashboard/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidSide     = errors.New("trade type must be buy or sell")
)

const maxSymbolLength = 10

// ExecuteTradeRequest represents a manual trade record
type ExecuteTradeRequest struct {
	Symbol   string           `json:"symbol" binding:"required"`
	Quantity float64          `json:"quantity" binding:"required,gt=0"`
	Price    float64          `json:"price" binding:"required,gt=0"`
	Side     models.TradeSide `json:"type" binding:"required"`
}

// TradingService records trades into the append-only ledger
type TradingService struct {
	tradeRepo *repository.TradeRepository
	logger    *zap.Logger
}

// NewTradingService creates a new TradingService
func NewTradingService(tradeRepo *repository.TradeRepository, logger *zap.Logger) *TradingService {
	return &TradingService{
		tradeRepo: tradeRepo,
		logger:    logger,
	}
}

// Execute validates and records a trade. The timestamp is server-assigned.
// Sells are not checked against current holdings: the ledger accepts any
// trade satisfying the per-trade invariants.
func (s *TradingService) Execute(userID uint, req *ExecuteTradeRequest) (*models.Trade, error) {
	if req.Symbol == "" || len(req.Symbol) > maxSymbolLength {
		return nil, ErrInvalidSymbol
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if !req.Side.Valid() {
		return nil, ErrInvalidSide
	}

	trade := &models.Trade{
		UserID:     userID,
		Symbol:     req.Symbol,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Side:       req.Side,
		ExecutedAt: time.Now().UTC(),
	}

	if err := s.tradeRepo.Create(trade); err != nil {
		return nil, err
	}

	s.logger.Info("trade recorded",
		zap.Uint("user_id", userID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("price", trade.Price))

	return trade, nil
}

// History returns the caller's trades newest first, with pagination
func (s *TradingService) History(userID uint, page, pageSize int) ([]models.Trade, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return s.tradeRepo.GetByUserIDPaginated(userID, page, pageSize)
}
