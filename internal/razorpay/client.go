package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrCredentialsMissing is returned before any request when the key pair is not set.
var ErrCredentialsMissing = errors.New("razorpay credentials are not configured")

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type OrderRequest struct {
	Amount         int               `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentCapture bool              `json:"payment_capture"`
	Receipt        string            `json:"receipt,omitempty"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// APIError is the provider's error envelope, kept so callers can log the reason.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay error: status=%d code=%s description=%s", e.StatusCode, e.Code, e.Description)
}

// NewClient builds a client against baseURL (https://api.razorpay.com in production).
// Requests carry no client-side timeout; the caller's context bounds them.
func NewClient(keyID, keySecret, baseURL string, log *slog.Logger) *Client {
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        log,
	}
}

func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, ErrCredentialsMissing
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	fullURL := c.baseURL + "/v1/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build razorpay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(rawBody, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		} else {
			apiErr.Description = truncateBody(rawBody)
		}
		if c.log != nil {
			c.log.Error("razorpay create order failed", "status", resp.StatusCode, "code", apiErr.Code, "description", apiErr.Description)
		}
		return nil, apiErr
	}

	var order Order
	if err := json.Unmarshal(rawBody, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if order.ID == "" {
		return nil, fmt.Errorf("invalid razorpay response (missing order id)")
	}

	if c.log != nil {
		c.log.Info("razorpay order created", "order_id", order.ID, "amount", order.Amount, "currency", order.Currency)
	}
	return &order, nil
}

// VerifyPaymentSignature checks the signature the hosted checkout posts back:
// hex(HMAC-SHA256(order_id + "|" + payment_id, key secret)).
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c.keySecret == "" {
		return false
	}
	return validSignature([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw webhook body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}
	return validSignature(body, signature, secret)
}

// Sign computes the hex HMAC-SHA256 Razorpay uses for both checkout and webhook signatures.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
