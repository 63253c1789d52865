package models

import (
	"time"
)

// TradeSide represents the trade side
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Valid reports whether the side is one of the known values
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Trade represents a single recorded buy or sell.
// Trades are append-only: once created they are never updated or deleted.
type Trade struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	Symbol     string    `gorm:"size:10;not null;index" json:"symbol"`
	Quantity   float64   `gorm:"type:decimal(20,8);not null" json:"quantity"`
	Price      float64   `gorm:"type:decimal(20,8);not null" json:"price"`
	Side       TradeSide `gorm:"size:4;not null" json:"type"`
	ExecutedAt time.Time `gorm:"index" json:"timestamp"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}
