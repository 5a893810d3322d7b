package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_1234"

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	handler := NewWebhookHandler(nil, testWebhookSecret, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(`{"orderCode":"abc","status":"paid"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	signed := []byte(`{"orderCode":"abc","status":"paid","amount":100}`)
	tampered := `{"orderCode":"abc","status":"paid","amount":999}`

	handler := NewWebhookHandler(nil, testWebhookSecret, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(tampered))
	req.Header.Set(webhookSignatureHeader, signBody(testWebhookSecret, signed))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", rec.Code)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	body := `{"orderCode":"abc","status":"paid"}`

	handler := NewWebhookHandler(nil, testWebhookSecret, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(body))
	req.Header.Set(webhookSignatureHeader, signBody("whsec_other", []byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	body := `{"orderCode":`

	handler := NewWebhookHandler(nil, testWebhookSecret, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(body))
	req.Header.Set(webhookSignatureHeader, signBody(testWebhookSecret, []byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestWebhookRejectsMissingOrderCode(t *testing.T) {
	body := `{"status":"paid"}`

	handler := NewWebhookHandler(nil, testWebhookSecret, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(body))
	req.Header.Set(webhookSignatureHeader, signBody(testWebhookSecret, []byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing orderCode, got %d", rec.Code)
	}
}

type stubLimiter struct {
	count      int
	retryAfter int
	err        error
}

func (s *stubLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return s.count, s.retryAfter, s.err
}

func TestWebhookRateLimitExceeded(t *testing.T) {
	handler := NewWebhookHandler(nil, testWebhookSecret, &stubLimiter{count: 121, retryAfter: 42}, 120)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After 42, got %q", got)
	}
}

func TestWebhookRateLimiterFailsOpen(t *testing.T) {
	// Limiter errors must not block callbacks; the request proceeds to
	// signature validation instead.
	handler := NewWebhookHandler(nil, testWebhookSecret, &stubLimiter{err: context.DeadlineExceeded}, 120)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 (signature check) after limiter failure, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:4321",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "remote addr fallback strips port",
			remoteAddr: "192.0.2.4:5678",
			want:       "192.0.2.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
