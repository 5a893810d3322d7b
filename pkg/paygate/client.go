/**
 * @description
 * This package provides a client for interacting with the payment gateway that
 * backs bank-transfer donations. It encapsulates order-code generation, the
 * synchronous QR-issuance call, request body construction, and response parsing.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - github.com/google/uuid: Entropy source for order codes.
 */
package paygate

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrGatewayUnavailable is returned when the gateway cannot be reached, times
// out, or answers with a server-side failure. Callers must treat it as
// all-or-nothing: nothing may be persisted for the attempted donation.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Client is a client for the payment gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment gateway client. The timeout bounds every
// call; it is the cancellation contract required for donation creation.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateOrderCode mints a globally-unique correlation key for a bank-transfer
// donation: 32 hex characters of UUID entropy (128 random bits). The unique
// index on donations.order_code is the collision backstop.
func GenerateOrderCode() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// CreateQRRequest is the payload for the gateway's QR-issuance endpoint.
type CreateQRRequest struct {
	OrderCode         string `json:"orderCode"`
	BankCode          string `json:"bankCode,omitempty"`
	AccountNumber     string `json:"accountNumber"`
	AccountHolderName string `json:"accountHolderName"`
	Amount            int64  `json:"amount"`
	Description       string `json:"description"`
}

// QRResponse is the expected response from the QR-issuance endpoint.
type QRResponse struct {
	Data struct {
		QRCodeURL string `json:"qrCodeUrl"`
	} `json:"data"`
}

// ErrorResponse represents an error payload from the gateway API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("paygate api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown paygate api error"
}

// CreatePaymentQR asks the gateway to render a transfer QR for the given order
// code and receiving account. Network failures, timeouts, and 5xx responses
// surface as ErrGatewayUnavailable.
func (c *Client) CreatePaymentQR(ctx context.Context, req CreateQRRequest) (*QRResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal qr request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payment-qr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build qr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && len(apiErr.Errors) > 0 {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("paygate api error: status %d", resp.StatusCode)
	}

	var qr QRResponse
	if err := json.Unmarshal(respBody, &qr); err != nil {
		return nil, fmt.Errorf("decode qr response: %w", err)
	}
	if qr.Data.QRCodeURL == "" {
		return nil, fmt.Errorf("paygate api error: empty qr url in response")
	}
	return &qr, nil
}

// SuccessStatus reports whether a gateway callback status denotes a settled
// payment. The gateway is inconsistent about its vocabulary across versions.
func SuccessStatus(status string) bool {
	switch normalizeStatus(status) {
	case "paid", "success":
		return true
	}
	return false
}

// FailureStatus reports whether a gateway callback status denotes a terminal
// failure (as opposed to an in-flight or unknown state).
func FailureStatus(status string) bool {
	switch normalizeStatus(status) {
	case "failed", "failure", "cancelled", "canceled", "expired":
		return true
	}
	return false
}

func normalizeStatus(status string) string {
	return strings.TrimSpace(strings.ToLower(status))
}
