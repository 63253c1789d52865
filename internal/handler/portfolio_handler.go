package handler

import (
	"context"
	"time"

	"github.com/brokerage-dashboard/internal/middleware"
	"github.com/brokerage-dashboard/internal/service"
	"github.com/brokerage-dashboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// performanceTimeout bounds the synchronous market data fetch inside the
// request path.
const performanceTimeout = 15 * time.Second

// PortfolioHandler handles portfolio API requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// GetHoldings returns the caller's per-symbol net quantity
// GET /api/portfolio/holdings
func (h *PortfolioHandler) GetHoldings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	holdings, err := h.portfolioService.Holdings(userID)
	if err != nil {
		response.InternalError(c, "failed to compute holdings")
		return
	}

	response.Success(c, holdings)
}

// GetPerformance returns unrealized profit/loss per held symbol. Symbols
// that cannot be priced are omitted; the request still succeeds.
// GET /api/portfolio/performance
func (h *PortfolioHandler) GetPerformance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), performanceTimeout)
	defer cancel()

	entries, err := h.portfolioService.Performance(ctx, userID)
	if err != nil {
		response.BadGateway(c, "market data unavailable")
		return
	}

	response.Success(c, entries)
}

// RegisterRoutes registers portfolio routes
func (h *PortfolioHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	portfolio := rg.Group("/portfolio", authMiddleware)
	{
		portfolio.GET("/holdings", h.GetHoldings)
		portfolio.GET("/performance", h.GetPerformance)
	}
}
