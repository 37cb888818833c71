// File: internal/infra/adapters/payment/airwallex_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/adapter"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*AirwallexGateway)(nil)

const (
	defaultBaseURL = "https://api.airwallex.com"
	// The gateway issues 60-minute tokens; cache for less to avoid races at
	// the boundary.
	defaultTokenTTL = 50 * time.Minute
	requestTimeout  = 30 * time.Second
)

// AirwallexGateway implements adapter.PaymentGateway against the Airwallex
// payment-intent REST API. It owns the cached bearer credential: concurrent
// authenticate calls collapse into one login round trip, and an expired
// credential triggers exactly one transparent retry.
type AirwallexGateway struct {
	baseURL  string
	clientID string
	apiKey   string
	tokenTTL time.Duration
	client   *http.Client

	mu       sync.Mutex
	token    string
	expiry   time.Time
	inflight chan struct{} // non-nil while a login is in progress
}

func NewAirwallexGateway(baseURL, clientID, apiKey string, tokenTTL time.Duration) (*AirwallexGateway, error) {
	if clientID == "" || apiKey == "" {
		return nil, errors.New("gateway client id and api key are required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AirwallexGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		apiKey:   apiKey,
		tokenTTL: tokenTTL,
		client:   &http.Client{Timeout: requestTimeout},
	}, nil
}

func (g *AirwallexGateway) Name() string { return "airwallex" }

// authenticate returns the cached credential while it is fresh, otherwise
// performs one login. Callers arriving during an in-flight login wait on the
// shared channel and reuse its result instead of issuing their own login.
func (g *AirwallexGateway) authenticate(ctx context.Context) (string, error) {
	for {
		g.mu.Lock()
		if g.token != "" && time.Now().Before(g.expiry) {
			token := g.token
			g.mu.Unlock()
			return token, nil
		}
		if g.inflight != nil {
			wait := g.inflight
			g.mu.Unlock()
			select {
			case <-wait:
				continue // re-check the cache the leader populated
			case <-ctx.Done():
				return "", domain.NewNetworkError("authenticate", ctx.Err())
			}
		}
		g.inflight = make(chan struct{})
		g.mu.Unlock()

		token, expiry, err := g.login(ctx)

		g.mu.Lock()
		if err == nil {
			g.token = token
			g.expiry = expiry
		}
		close(g.inflight)
		g.inflight = nil
		g.mu.Unlock()
		return token, err
	}
}

// invalidate drops the cached credential after the gateway rejected it.
func (g *AirwallexGateway) invalidate() {
	g.mu.Lock()
	g.token = ""
	g.expiry = time.Time{}
	g.mu.Unlock()
}

func (g *AirwallexGateway) login(ctx context.Context) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v1/authentication/login", nil)
	if err != nil {
		return "", time.Time{}, domain.NewInternalError("build login request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	metrics.ObserveGatewayCall("login", err == nil, time.Since(start))
	if err != nil {
		return "", time.Time{}, domain.NewNetworkError("login", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", time.Time{}, domain.NewAuthenticationError("gateway rejected client credentials", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, domain.NewGatewayError(resp.StatusCode, "login failed", string(body))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return "", time.Time{}, domain.NewGatewayError(resp.StatusCode, "login returned no token", string(body))
	}
	metrics.IncAuthRefresh()
	return out.Token, time.Now().Add(g.tokenTTL), nil
}

// execute issues an authenticated call. On 401 the cached credential is
// cleared and the call retried exactly once with a fresh one; a second 401 is
// a fatal authentication error.
func (g *AirwallexGateway) execute(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var raw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewInternalError("encode gateway payload", err)
		}
		raw = b
	}

	retried := false
	for {
		token, err := g.authenticate(ctx)
		if err != nil {
			return nil, err
		}

		var body io.Reader
		if raw != nil {
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
		if err != nil {
			return nil, domain.NewInternalError("build gateway request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		start := time.Now()
		resp, err := g.client.Do(req)
		metrics.ObserveGatewayCall(op, err == nil, time.Since(start))
		if err != nil {
			return nil, domain.NewNetworkError(op, err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, domain.NewNetworkError(op, readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			g.invalidate()
			if retried {
				return nil, domain.NewAuthenticationError("gateway rejected a freshly issued credential", nil)
			}
			retried = true
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, domain.NewGatewayError(resp.StatusCode, gatewayMessage(respBody), string(respBody))
		}
		return respBody, nil
	}
}

// gatewayMessage pulls the provider's message field out of an error body.
func gatewayMessage(body []byte) string {
	var out struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(body, &out) == nil && out.Message != "" {
		if out.Code != "" {
			return fmt.Sprintf("%s (%s)", out.Message, out.Code)
		}
		return out.Message
	}
	return "gateway rejected the request"
}

type intentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
	RequestID    string `json:"request_id"`
}

func (r *intentResponse) toPort() *adapter.PaymentIntent {
	return &adapter.PaymentIntent{
		ID:           r.ID,
		Status:       mapIntentStatus(r.Status),
		RawStatus:    r.Status,
		Amount:       r.Amount,
		Currency:     r.Currency,
		ClientSecret: r.ClientSecret,
		RequestID:    r.RequestID,
	}
}

// mapIntentStatus folds the provider's status vocabulary onto the internal
// lifecycle; anything non-terminal counts as pending.
func mapIntentStatus(raw string) model.IntentStatus {
	switch strings.ToUpper(raw) {
	case "SUCCEEDED":
		return model.IntentStatusSucceeded
	case "FAILED":
		return model.IntentStatusFailed
	case "CANCELLED":
		return model.IntentStatusCancelled
	default:
		return model.IntentStatusPending
	}
}

func (g *AirwallexGateway) CreatePaymentIntent(ctx context.Context, params adapter.CreateIntentParams) (*adapter.PaymentIntent, error) {
	if params.Amount <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	if len(params.Currency) != 3 {
		return nil, domain.NewValidationError("currency must be a 3-letter code")
	}
	if params.RequestID == "" {
		params.RequestID = uuid.NewString()
	}

	payload := map[string]any{
		"request_id":        params.RequestID,
		"amount":            params.Amount,
		"currency":          strings.ToUpper(params.Currency),
		"merchant_order_id": params.MerchantOrderID,
	}
	if params.Metadata != nil {
		payload["metadata"] = params.Metadata
	}

	body, err := g.execute(ctx, "create_intent", http.MethodPost, "/api/v1/pa/payment_intents/create", payload)
	if err != nil {
		return nil, err
	}
	var out intentResponse
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, domain.NewGatewayError(http.StatusOK, "create returned an unreadable intent", string(body))
	}
	pi := out.toPort()
	if pi.RequestID == "" {
		pi.RequestID = params.RequestID
	}
	return pi, nil
}

func (g *AirwallexGateway) GetPaymentIntent(ctx context.Context, intentID string) (*adapter.PaymentIntent, error) {
	if intentID == "" {
		return nil, domain.NewValidationError("paymentIntentId is required")
	}
	body, err := g.execute(ctx, "get_intent", http.MethodGet, "/api/v1/pa/payment_intents/"+intentID, nil)
	if err != nil {
		return nil, err
	}
	var out intentResponse
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, domain.NewGatewayError(http.StatusOK, "get returned an unreadable intent", string(body))
	}
	return out.toPort(), nil
}

func (g *AirwallexGateway) ConfirmPaymentIntent(ctx context.Context, intentID string, data map[string]any) (*adapter.PaymentIntent, error) {
	if intentID == "" {
		return nil, domain.NewValidationError("paymentIntentId is required")
	}
	payload := map[string]any{"request_id": uuid.NewString()}
	for k, v := range data {
		payload[k] = v
	}
	body, err := g.execute(ctx, "confirm_intent", http.MethodPost, "/api/v1/pa/payment_intents/"+intentID+"/confirm", payload)
	if err != nil {
		return nil, err
	}
	var out intentResponse
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, domain.NewGatewayError(http.StatusOK, "confirm returned an unreadable intent", string(body))
	}
	return out.toPort(), nil
}

func (g *AirwallexGateway) CancelPaymentIntent(ctx context.Context, intentID, reason string) (*adapter.PaymentIntent, error) {
	if intentID == "" {
		return nil, domain.NewValidationError("paymentIntentId is required")
	}
	payload := map[string]any{"request_id": uuid.NewString()}
	if reason != "" {
		payload["cancellation_reason"] = reason
	}
	body, err := g.execute(ctx, "cancel_intent", http.MethodPost, "/api/v1/pa/payment_intents/"+intentID+"/cancel", payload)
	if err != nil {
		return nil, err
	}
	var out intentResponse
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, domain.NewGatewayError(http.StatusOK, "cancel returned an unreadable intent", string(body))
	}
	return out.toPort(), nil
}
