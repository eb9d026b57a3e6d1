package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://accept.paymob.com"

const (
	pathAuthTokens  = "/api/auth/tokens"
	pathOrders      = "/api/ecommerce/orders"
	pathPaymentKeys = "/api/acceptance/payment_keys"
)

// Client talks to the Paymob Accept REST API. Every call is a single JSON POST
// with no retry.
type Client struct {
	BaseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type authReq struct {
	APIKey string `json:"api_key"`
}

type authResp struct {
	Token string `json:"token"`
}

// Authenticate exchanges the merchant API key for a session token.
func (c *Client) Authenticate(ctx context.Context, apiKey string) (string, error) {
	var out authResp
	status, upstream, err := c.postJSON(ctx, pathAuthTokens, authReq{APIKey: apiKey}, &out)
	if err != nil {
		return "", newAuthError(status, upstream, err)
	}
	if out.Token == "" {
		return "", newAuthError(status, upstream, errors.New("paymob: auth response has no token"))
	}
	return out.Token, nil
}

// OrderRequest is a translated order ready to register with the gateway.
type OrderRequest struct {
	AmountCents     int64
	Currency        string
	Items           []Item
	MerchantOrderID string
}

type orderReq struct {
	AuthToken       string `json:"auth_token"`
	DeliveryNeeded  string `json:"delivery_needed"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MerchantOrderID string `json:"merchant_order_id,omitempty"`
	Items           []Item `json:"items"`
}

type orderResp struct {
	ID int64 `json:"id"`
}

// CreateOrder registers an order and returns the gateway's order id.
func (c *Client) CreateOrder(ctx context.Context, token string, req OrderRequest) (int64, error) {
	payload := orderReq{
		AuthToken:       token,
		DeliveryNeeded:  "false",
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		MerchantOrderID: req.MerchantOrderID,
		Items:           req.Items,
	}
	var out orderResp
	status, upstream, err := c.postJSON(ctx, pathOrders, payload, &out)
	if err != nil {
		return 0, newOrderError(status, upstream, err)
	}
	if out.ID == 0 {
		return 0, newOrderError(status, upstream, errors.New("paymob: order response has no id"))
	}
	return out.ID, nil
}

// PaymentKeyRequest holds everything needed to issue a payment key for an order.
type PaymentKeyRequest struct {
	AmountCents       int64
	OrderID           int64
	Currency          string
	IntegrationID     int64
	ExpirationSeconds int
	Billing           BillingData
	LockOrderWhenPaid bool
}

type paymentKeyReq struct {
	AuthToken         string      `json:"auth_token"`
	AmountCents       int64       `json:"amount_cents"`
	Expiration        int         `json:"expiration"`
	OrderID           int64       `json:"order_id"`
	BillingData       BillingData `json:"billing_data"`
	Currency          string      `json:"currency"`
	IntegrationID     int64       `json:"integration_id"`
	LockOrderWhenPaid bool        `json:"lock_order_when_paid,omitempty"`
}

type paymentKeyResp struct {
	Token string `json:"token"`
}

// CreatePaymentKey issues the payment key the storefront hands to the payment iframe.
func (c *Client) CreatePaymentKey(ctx context.Context, token string, req PaymentKeyRequest) (string, error) {
	payload := paymentKeyReq{
		AuthToken:         token,
		AmountCents:       req.AmountCents,
		Expiration:        req.ExpirationSeconds,
		OrderID:           req.OrderID,
		BillingData:       req.Billing,
		Currency:          req.Currency,
		IntegrationID:     req.IntegrationID,
		LockOrderWhenPaid: req.LockOrderWhenPaid,
	}
	var out paymentKeyResp
	status, upstream, err := c.postJSON(ctx, pathPaymentKeys, payload, &out)
	if err != nil {
		return "", newPaymentKeyError(status, upstream, err)
	}
	if out.Token == "" {
		return "", newPaymentKeyError(status, upstream, errors.New("paymob: payment key response has no token"))
	}
	return out.Token, nil
}

// errorBody covers the shapes Paymob uses for error responses.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func upstreamMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Detail
}

// postJSON sends body to path and decodes a 2xx response into out. On failure it
// returns the upstream status (0 if no response) and the gateway's message.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) (int, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("paymob request failed", zap.String("path", path), zap.Error(err))
		return 0, "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("paymob response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstream := upstreamMessage(respBody)
		c.logger.Warn("paymob returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("upstream", upstream),
		)
		return resp.StatusCode, upstream, fmt.Errorf("POST %s: request failed with status code %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, "", nil
}
