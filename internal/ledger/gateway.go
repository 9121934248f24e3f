package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Gateway signs and broadcasts through a chain REST gateway, which holds the
// hot wallet. The service itself never touches key material.
type Gateway struct {
	host       string
	httpClient *http.Client
}

type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("chain gateway error (%d): %s", e.Status, e.Body)
}

func NewGateway(httpClient *http.Client, host string) *Gateway {
	return &Gateway{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
	}
}

func (g *Gateway) Name() string { return "gateway" }

type transferRequest struct {
	Amount      string `json:"amount"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
}

type transferResponse struct {
	TxHash string `json:"tx_hash"`
}

func (g *Gateway) Transfer(ctx context.Context, amount decimal.Decimal, fromAddress, toAddress string) (string, error) {
	if g == nil || g.httpClient == nil || g.host == "" {
		return "", fmt.Errorf("chain gateway is not configured")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("transfer amount must be positive, got %s", amount.String())
	}
	payload, err := json.Marshal(transferRequest{
		Amount:      amount.String(),
		FromAddress: fromAddress,
		ToAddress:   toAddress,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer: %w", err)
	}

	body, err := g.doRequest(ctx, http.MethodPost, "/v1/transfers", payload)
	if err != nil {
		return "", err
	}
	var parsed transferResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse transfer response: %w", err)
	}
	if strings.TrimSpace(parsed.TxHash) == "" {
		return "", fmt.Errorf("gateway returned no transaction hash")
	}
	return parsed.TxHash, nil
}

type balanceResponse struct {
	Native string `json:"native"`
	Token  string `json:"token"`
}

func (g *Gateway) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	b, err := g.balances(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return parseBalance(b.Native)
}

func (g *Gateway) TokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	b, err := g.balances(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return parseBalance(b.Token)
}

func (g *Gateway) balances(ctx context.Context, address string) (balanceResponse, error) {
	if g == nil || g.httpClient == nil || g.host == "" {
		return balanceResponse{}, fmt.Errorf("chain gateway is not configured")
	}
	if strings.TrimSpace(address) == "" {
		return balanceResponse{}, fmt.Errorf("address is required")
	}
	body, err := g.doRequest(ctx, http.MethodGet, "/v1/balances/"+url.PathEscape(address), nil)
	if err != nil {
		return balanceResponse{}, err
	}
	var parsed balanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return balanceResponse{}, fmt.Errorf("failed to parse balances: %w", err)
	}
	return parsed, nil
}

func parseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func (g *Gateway) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.host+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &GatewayError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
