package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient talks to the game economy service. The service owns every
// balance; this client only moves money for order reservations, payouts
// and refunds.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client for the economy service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Balance returns the identity's current balance.
func (c *HTTPClient) Balance(ctx context.Context, identity string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/accounts/%s/balance", c.baseURL, identity), nil)
	if err != nil {
		return 0, fmt.Errorf("build balance request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ledger balance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ledger balance: status %d", resp.StatusCode)
	}
	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	return body.Balance, nil
}

// Withdraw debits the identity's balance.
func (c *HTTPClient) Withdraw(ctx context.Context, identity string, amount float64) error {
	return c.post(ctx, identity, "withdraw", amount)
}

// Deposit credits the identity's balance.
func (c *HTTPClient) Deposit(ctx context.Context, identity string, amount float64) error {
	return c.post(ctx, identity, "deposit", amount)
}

func (c *HTTPClient) post(ctx context.Context, identity, op string, amount float64) error {
	payload, err := json.Marshal(map[string]float64{"amount": amount})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/accounts/%s/%s", c.baseURL, identity, op), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return ErrInsufficientBalance
	default:
		return fmt.Errorf("ledger %s: status %d", op, resp.StatusCode)
	}
}
