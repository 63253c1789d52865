package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/brokerage-dashboard/internal/market"
	"github.com/brokerage-dashboard/internal/middleware"
	"github.com/brokerage-dashboard/internal/service"
	"github.com/brokerage-dashboard/pkg/response"
	"github.com/gin-gonic/gin"
)

const analyzeTimeout = 15 * time.Second

// TradingHandler handles trade recording and strategy analysis requests
type TradingHandler struct {
	tradingService  *service.TradingService
	strategyService *service.StrategyService
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(tradingService *service.TradingService, strategyService *service.StrategyService) *TradingHandler {
	return &TradingHandler{
		tradingService:  tradingService,
		strategyService: strategyService,
	}
}

// Execute records a manual trade
// POST /api/trading/execute
func (h *TradingHandler) Execute(c *gin.Context) {
	var req service.ExecuteTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.tradingService.Execute(middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSymbol),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidPrice),
			errors.Is(err, service.ErrInvalidSide):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to record trade")
		}
		return
	}

	response.Created(c, trade)
}

// History returns the caller's trades, newest first
// GET /api/trading/history
func (h *TradingHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	trades, total, err := h.tradingService.History(middleware.GetUserID(c), page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to load trade history")
		return
	}

	response.SuccessPaginated(c, trades, total, page, pageSize)
}

// Analyze runs a strategy over a symbol's daily closes
// POST /api/trading/analyze
func (h *TradingHandler) Analyze(c *gin.Context) {
	var req struct {
		Symbol   string `json:"symbol" binding:"required"`
		Strategy string `json:"strategy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), analyzeTimeout)
	defer cancel()

	signal, err := h.strategyService.Analyze(ctx, req.Symbol, req.Strategy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStrategy),
			errors.Is(err, service.ErrInsufficientData):
			response.BadRequest(c, err.Error())
		case errors.Is(err, market.ErrSymbolNotFound):
			response.NotFound(c, err.Error())
		default:
			response.BadGateway(c, "market data unavailable")
		}
		return
	}

	response.Success(c, signal)
}

// RegisterRoutes registers trading routes
func (h *TradingHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	trading := rg.Group("/trading", authMiddleware)
	{
		trading.POST("/execute", h.Execute)
		trading.GET("/history", h.History)
		trading.POST("/analyze", h.Analyze)
	}
}
