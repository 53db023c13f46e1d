package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/pkg/config"
	"github.com/calder/noteval/pkg/httputil"
	"github.com/calder/noteval/pkg/logger"
)

// Client pulls daily closes from the external quote feed. Requests are
// rate limited and retried by the shared HTTP client.
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// NewClient creates a feed client from the feed configuration
func NewClient(cfg config.FeedConfig, log *logger.Logger) *Client {
	httpClient := httputil.New(log, cfg.Timeout).
		WithRateLimit(cfg.RequestsPerSec).
		WithRetry(3, 2*time.Second)

	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  log.WithComponent("feed"),
	}
}

// closeRow is one row of the feed's daily-close payload
type closeRow struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// FetchCloses retrieves a ticker's daily closes between two dates
func (c *Client) FetchCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/v1/closes/%s?from=%s&to=%s&apikey=%s",
		c.baseURL,
		url.PathEscape(ticker),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
		url.QueryEscape(c.apiKey),
	)

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("feed request for %s failed: %w", ticker, err)
	}
	defer resp.Body.Close()

	var rows []closeRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("feed payload for %s is malformed: %w", ticker, err)
	}

	points := make([]contracts.PricePoint, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"date":   row.Date,
			}).Warn("Skipping close with unparseable date")
			continue
		}
		points = append(points, contracts.PricePoint{Date: date, Close: row.Close})
	}

	return points, nil
}
