package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ms-orders/internal/config"
	"ms-orders/internal/logger"
)

// Client talks to the Razorpay orders API. Calls are bounded by the configured
// timeout; a hung gateway must not hold checkout locks open.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	logger    *logger.Logger
}

func NewClient(cfg config.RazorpayConfig, log *logger.Logger) *Client {
	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   cfg.BaseURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    log,
	}
}

type gatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder registers an order with the gateway for the given amount in
// minor units and returns the gateway's order id.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency string, notes map[string]string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountPaise,
		Currency: currency,
		Notes:    notes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gateway order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway order create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("gateway order create failed: status %d", resp.StatusCode)
	}

	var order gatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("failed to decode gateway order: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("gateway returned an order without an id")
	}

	c.logger.LogPayment("CREATE", order.ID, fmt.Sprintf("gateway order for %d %s", amountPaise, currency))
	return order.ID, nil
}

// CancelOrder voids a gateway order after a local checkout failure. This is
// compensation, not settlement: callers treat failures as log-only.
func (c *Client) CancelOrder(ctx context.Context, gatewayOrderID string) error {
	url := fmt.Sprintf("%s/v1/orders/%s/cancel", c.baseURL, gatewayOrderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create gateway cancel request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway order cancel failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("gateway order cancel failed: status %d", resp.StatusCode)
	}

	c.logger.LogPayment("CANCEL", gatewayOrderID, "gateway order cancelled")
	return nil
}

// KeyID is the public key the browser checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// VerifySignature checks a payment callback signature.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifyPaymentSignature(c.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}
