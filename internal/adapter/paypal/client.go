package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"church-payments/config"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ProcessorClient against the PayPal REST API. One
// long-lived value is shared by every caller; the access token cache and the
// outbound rate limiter live on it. The token is refreshed under a mutex so
// concurrent callers never stampede the token endpoint.
type Client struct {
	base      string
	clientID  string
	secret    string
	webhookID string
	http      HTTPClient
	limiter   *rate.Limiter
	log       zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a PayPal API client. A nil httpClient gets a default
// client with the configured timeout.
func NewClient(cfg config.PayPalConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:  cfg.ClientID,
		secret:    cfg.Secret,
		webhookID: cfg.WebhookID,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
		log:       log,
	}
}

// token returns a valid cached access token, fetching a new one when absent
// or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	// Refresh a minute before the advertised expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	c.log.Debug().Msg("paypal: access token refreshed")
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// AuthorizedRequest performs one authenticated API call: waits for limiter
// capacity, attaches the cached bearer token and retries once with a fresh
// token when the API answers 401. The caller owns the response body.
func (c *Client) AuthorizedRequest(ctx context.Context, method, path string, headers map[string]string, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("outbound rate limiter: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.invalidateToken()
			continue
		}
		return resp, nil
	}
}

// amountValue renders a float amount the way the API wants it: two decimal
// places, no exponent.
func amountValue(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// CreateOrder creates a checkout order with intent CAPTURE.
func (c *Client) CreateOrder(ctx context.Context, req ports.ProcessorOrderRequest) (*ports.ProcessorOrder, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"custom_id":   req.CustomID,
			"description": req.Description,
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         amountValue(req.Amount),
			},
		}},
	}

	resp, err := c.AuthorizedRequest(ctx, http.MethodPost, "/v2/checkout/orders", nil, body)
	if err != nil {
		return nil, apperror.ErrProcessorCallFailed("create order", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrProcessorCallFailed("create order", apiError(resp))
	}

	var or orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, apperror.ErrProcessorCallFailed("create order", fmt.Errorf("decode response: %w", err))
	}

	out := &ports.ProcessorOrder{OrderRef: or.ID, Status: or.Status}
	for _, l := range or.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			out.ApprovalURL = l.Href
			break
		}
	}
	return out, nil
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder captures an approved order and returns the capture reference
// that refunds will be issued against.
func (c *Client) CaptureOrder(ctx context.Context, orderRef string) (*ports.ProcessorCapture, error) {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderRef)
	resp, err := c.AuthorizedRequest(ctx, http.MethodPost, path, nil, map[string]any{})
	if err != nil {
		return nil, apperror.ErrProcessorCallFailed("capture order", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrProcessorCallFailed("capture order", apiError(resp))
	}

	var cr captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, apperror.ErrProcessorCallFailed("capture order", fmt.Errorf("decode response: %w", err))
	}

	for _, pu := range cr.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			first := pu.Payments.Captures[0]
			return &ports.ProcessorCapture{CaptureRef: first.ID, Status: first.Status}, nil
		}
	}
	return nil, apperror.ErrProcessorCallFailed("capture order", fmt.Errorf("order %s: no capture in response", orderRef))
}

// ExecuteRefund refunds amount against a capture. The idempotency key rides
// the PayPal-Request-Id header, so a retried call settles the same refund
// instead of issuing a second one.
func (c *Client) ExecuteRefund(ctx context.Context, captureRef string, amount float64, currency, idempotencyKey string) (*ports.ProcessorRefund, error) {
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", captureRef)
	headers := map[string]string{"PayPal-Request-Id": idempotencyKey}
	body := map[string]any{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         amountValue(amount),
		},
	}

	resp, err := c.AuthorizedRequest(ctx, http.MethodPost, path, headers, body)
	if err != nil {
		return nil, apperror.ErrRefundExecutionFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrRefundExecutionFailed(apiError(resp))
	}

	var rr struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, apperror.ErrRefundExecutionFailed(fmt.Errorf("decode response: %w", err))
	}
	return &ports.ProcessorRefund{RefundID: rr.ID, Status: rr.Status}, nil
}

// Webhook signature header names, in Go's canonical form.
const (
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
)

// VerifyWebhookSignature submits the delivery to the verification endpoint.
// An explicit FAILURE verdict and an unreachable verifier are distinct
// failures; both reject the delivery.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers map[string]string, rawBody []byte) error {
	body := map[string]any{
		"auth_algo":         headers[HeaderAuthAlgo],
		"cert_url":          headers[HeaderCertURL],
		"transmission_id":   headers[HeaderTransmissionID],
		"transmission_sig":  headers[HeaderTransmissionSig],
		"transmission_time": headers[HeaderTransmissionTime],
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(rawBody),
	}

	resp, err := c.AuthorizedRequest(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", nil, body)
	if err != nil {
		return apperror.ErrVerifierUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.ErrVerifierUnavailable(apiError(resp))
	}

	var vr struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return apperror.ErrVerifierUnavailable(fmt.Errorf("decode response: %w", err))
	}
	if vr.VerificationStatus != "SUCCESS" {
		return apperror.ErrSignatureInvalid()
	}
	return nil
}

// apiError summarizes a non-2xx API response.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
