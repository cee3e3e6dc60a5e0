package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client talks to the hosted checkout gateway. Order creation goes over the
// gateway REST API with basic auth; callback signatures are verified locally
// with the shared secret.
type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string

	HTTPClient *http.Client
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		KeyID:      keyID,
		KeySecret:  keySecret,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*Order, error) {
	payload := map[string]any{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payment: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: create order: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("payment: gateway status %d: %s", res.StatusCode, data)
	}

	var order Order
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("payment: decode order: %w", err)
	}
	return &order, nil
}

// VerifySignature recomputes HMAC-SHA256 over "order_id|payment_id" with the
// shared secret and compares it against the gateway-supplied hex signature.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
