package repository

import (
	"github.com/brokerage-dashboard/internal/models"
	"gorm.io/gorm"
)

// TradeRepository handles trade ledger data access.
// The ledger is append-only: there are no update or delete operations.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create appends a trade to the ledger
func (r *TradeRepository) Create(trade *models.Trade) error {
	return r.db.Create(trade).Error
}

// GetByUserID retrieves all trades for a user, newest first
func (r *TradeRepository) GetByUserID(userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("user_id = ?", userID).Order("executed_at DESC").Find(&trades)
	return trades, result.Error
}

// GetByUserIDPaginated retrieves trades with pagination
func (r *TradeRepository) GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.Trade, int64, error) {
	var trades []models.Trade
	var total int64

	if err := r.db.Model(&models.Trade{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("user_id = ?", userID).
		Order("executed_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&trades)

	return trades, total, result.Error
}

// GetBySymbol retrieves a user's trades for one symbol, newest first
func (r *TradeRepository) GetBySymbol(userID uint, symbol string) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("user_id = ? AND symbol = ?", userID, symbol).Order("executed_at DESC").Find(&trades)
	return trades, result.Error
}
