/**
 * @description
 * This file contains the HTTP handler for processing incoming payment callbacks
 * from the Paygate payment gateway. It is the entry point through which bank
 * transfer donations get settled.
 *
 * Key features:
 * - Security: Validates the HMAC-SHA256 signature of incoming callbacks to
 *   ensure authenticity. The endpoint carries no bearer auth.
 * - Rate limiting: Throttles callers per source IP via a shared Redis counter,
 *   failing open when Redis is unreachable.
 * - Idempotency: Delegates to the service's order-code reconciliation, which
 *   acknowledges duplicate callbacks without double-applying amounts.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha256, encoding/hex: For callback signature validation.
 * - encoding/json, io, log, net/http, strconv, strings, time: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For reconciliation logic and models.
 */

package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/famtree/ledger-service/internal/app"
	"github.com/famtree/ledger-service/internal/domain"
	"github.com/famtree/ledger-service/internal/store"
)

const webhookSignatureHeader = "X-Paygate-Signature"

// RateLimiter is the distributed counter the webhook endpoint throttles with.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// WebhookHandler processes incoming payment callbacks from the gateway.
type WebhookHandler struct {
	service   *app.Service
	secret    string
	limiter   RateLimiter
	rateLimit int
}

// NewWebhookHandler creates a new handler for the gateway callback endpoint.
// The limiter may be nil, in which case no throttling is applied.
func NewWebhookHandler(service *app.Service, secret string, limiter RateLimiter, rateLimitPerMin int) *WebhookHandler {
	return &WebhookHandler{
		service:   service,
		secret:    secret,
		limiter:   limiter,
		rateLimit: rateLimitPerMin,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)

	if h.limiter != nil && h.rateLimit > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "paygate_webhook", clientIP, h.rateLimit, time.Minute)
		if err != nil {
			// Redis being down must not block settlement callbacks.
			log.Printf("level=warn component=webhook msg=\"rate limiter unavailable, failing open\" err=%v", err)
		} else if count > h.rateLimit {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		log.Printf("level=error component=webhook msg=\"cannot read callback body\" remote=%s err=%v", clientIP, err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	if !h.validSignature(r.Header.Get(webhookSignatureHeader), body) {
		log.Printf("level=warn component=webhook msg=\"invalid callback signature\" remote=%s", clientIP)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var cb domain.GatewayCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		log.Printf("level=error component=webhook msg=\"cannot decode callback JSON\" remote=%s err=%v", clientIP, err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if cb.OrderCode == "" {
		http.Error(w, "Missing orderCode", http.StatusBadRequest)
		return
	}

	if err := h.service.ResolveOrderCode(r.Context(), cb); err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			log.Printf("level=warn component=webhook msg=\"callback for unknown order code\" order_code=%s", cb.OrderCode)
			http.Error(w, "Unknown order code", http.StatusNotFound)
			return
		}
		log.Printf("level=error component=webhook msg=\"callback processing failed\" order_code=%s err=%v", cb.OrderCode, err)
		http.Error(w, "Callback processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}

// validSignature verifies the hex-encoded HMAC-SHA256 of the raw body against
// the signature header, in constant time.
func (h *WebhookHandler) validSignature(signature string, body []byte) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.TrimSpace(signature)), []byte(expected))
}

// getClientIP extracts the originating client IP, honoring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndexByte(ip, ':'); idx > 0 {
		return ip[:idx]
	}
	return ip
}
