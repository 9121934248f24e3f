package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://api.coingecko.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// PricePoint is one sample of the market chart.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// GetMarketChart returns daily-granularity USD price history for an asset,
// oldest sample first.
func (c *Client) GetMarketChart(ctx context.Context, assetID string, days int) ([]PricePoint, error) {
	if strings.TrimSpace(assetID) == "" {
		return nil, fmt.Errorf("asset id is required")
	}
	if days <= 0 {
		days = 30
	}
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("days", fmt.Sprintf("%d", days))
	path := fmt.Sprintf("/api/v3/coins/%s/market_chart", url.PathEscape(assetID))
	body, err := c.doRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var parsed marketChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse market chart: %w", err)
	}
	points := make([]PricePoint, 0, len(parsed.Prices))
	for _, item := range parsed.Prices {
		points = append(points, PricePoint{
			Timestamp: time.UnixMilli(int64(item[0])).UTC(),
			Price:     item[1],
		})
	}
	return points, nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
