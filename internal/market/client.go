package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/brokerage-dashboard/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a market data client backed by the Yahoo Finance chart API.
// It implements the Provider interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ Provider = (*Client)(nil)

// NewClient creates a new market data client.
func NewClient(cfg config.MarketConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("User-Agent", "brokerage-dashboard/1.0")

	return &Client{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// chartResponse is the subset of the chart API response we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quotes returns the latest closing price per symbol. Symbols the provider
// cannot resolve are absent from the result; the error is non-nil only when
// the entire batch failed.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	quotes := make(map[string]Quote, len(symbols))
	var lastErr error

	for _, symbol := range symbols {
		chart, err := c.fetchChart(ctx, symbol, "1d")
		if err != nil {
			c.logger.Warn("quote fetch failed",
				zap.String("symbol", symbol),
				zap.Error(err))
			lastErr = err
			continue
		}

		quotes[symbol] = Quote{
			Symbol:    symbol,
			Close:     chart.Chart.Result[0].Meta.RegularMarketPrice,
			Timestamp: chart.Chart.Result[0].Meta.RegularMarketTime,
		}
	}

	if len(quotes) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, lastErr)
	}

	return quotes, nil
}

// DailyCloses returns up to days daily closing prices for a symbol, oldest first.
func (c *Client) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	chart, err := c.fetchChart(ctx, symbol, rangeForDays(days))
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote series for %s", ErrDataUnavailable, symbol)
	}

	raw := result.Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, v := range raw {
		// Market holidays and halts come back as nulls
		if v != nil {
			closes = append(closes, *v)
		}
	}

	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}

// fetchChart performs the chart request with rate limiting and retry.
func (c *Client) fetchChart(ctx context.Context, symbol, dataRange string) (*chartResponse, error) {
	req := c.client.R().
		SetContext(ctx).
		SetResult(&chartResponse{}).
		SetQueryParams(map[string]string{
			"range":    dataRange,
			"interval": "1d",
		})

	resp, err := c.doRequest(ctx, req, "/v8/finance/chart/"+symbol)
	if err != nil {
		return nil, err
	}

	chart := resp.Result().(*chartResponse)
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrSymbolNotFound, symbol, chart.Chart.Error.Code)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty result for %s", ErrDataUnavailable, symbol)
	}

	return chart, nil
}

// doRequest executes the request with rate limiting and up to maxRetries
// attempts using exponential backoff.
func (c *Client) doRequest(ctx context.Context, req *resty.Request, url string) (*resty.Response, error) {
	const maxRetries = 3

	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.Execute(http.MethodGet, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			// Network or client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("market data request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	default:
		return "1y"
	}
}
