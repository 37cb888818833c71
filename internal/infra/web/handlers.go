package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/adapter"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/redis"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/usecase"
)

const intentRateLimit = 10 // per uid per window

type createIntentRequest struct {
	UID           string `json:"uid"`
	Plan          string `json:"plan"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"paymentMethod"`
}

type confirmIntentRequest struct {
	PaymentMethod map[string]any `json:"paymentMethod"`
}

type cancelIntentRequest struct {
	Reason string `json:"reason"`
}

type adminLoginRequest struct {
	APIKey string `json:"apiKey"`
}

type intentPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type settleResultPayload struct {
	IntentID         string `json:"intentId"`
	Status           string `json:"status"`
	Applied          bool   `json:"applied"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	OrderID          string `json:"orderId,omitempty"`
}

// errorEnvelope is the uniform failure shape every handler returns.
type errorEnvelope struct {
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	RetryAfter *int64 `json:"retryAfter,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, log *zerolog.Logger, requestID string, err error) {
	env := errorEnvelope{Success: false, RequestID: requestID}
	status := http.StatusInternalServerError

	var de *domain.Error
	switch {
	case errors.As(err, &de):
		status = de.HTTPStatus()
		env.Code = string(de.Kind)
		env.Message = de.Message
		env.Retryable = de.Retryable
		if de.RetryAfter > 0 {
			secs := int64(de.RetryAfter.Seconds())
			env.RetryAfter = &secs
		}
	case domain.IsKind(err, domain.KindNotFound):
		status = http.StatusNotFound
		env.Code = string(domain.KindNotFound)
		env.Message = "not found"
	default:
		env.Code = string(domain.KindInternal)
		env.Message = "internal error"
		log.Error().Err(err).Str("request_id", requestID).Msg("unclassified handler error")
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", requestID).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("request_id", requestID).Msg("request rejected")
	}
	writeJSON(w, status, env)
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log, requestID, domain.NewValidationError("malformed JSON body: %v", err))
		return
	}

	if s.limiter != nil && req.UID != "" {
		allowed, err := s.limiter.Allow(r.Context(), redis.IntentCreationKey(req.UID), intentRateLimit, s.limiterWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, admitting request")
		} else if !allowed {
			writeError(w, s.log, requestID, domain.NewRateLimitError(s.limiterWindow, "too many payment intents, slow down"))
			return
		}
	}

	pi, orderID, err := s.purchaseUC.CreateIntent(r.Context(), req.UID, model.PlanName(req.Plan), req.Amount, req.Currency, req.PaymentMethod)
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"requestId": requestID,
		"orderId":   orderID,
		"intent":    toIntentPayload(pi),
	})
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	intentID := chi.URLParam(r, "id")

	res, err := s.purchaseUC.GetStatus(r.Context(), intentID)
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": requestID,
		"result":    toSettlePayload(res),
	})
}

func (s *Server) handleConfirmIntent(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	intentID := chi.URLParam(r, "id")

	var req confirmIntentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, s.log, requestID, domain.NewValidationError("malformed JSON body: %v", err))
			return
		}
	}

	res, err := s.purchaseUC.Confirm(r.Context(), intentID, req.PaymentMethod)
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": requestID,
		"result":    toSettlePayload(res),
	})
}

func (s *Server) handleCancelIntent(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	intentID := chi.URLParam(r, "id")

	var req cancelIntentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, s.log, requestID, domain.NewValidationError("malformed JSON body: %v", err))
			return
		}
	}

	res, err := s.purchaseUC.Cancel(r.Context(), intentID, req.Reason)
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": requestID,
		"result":    toSettlePayload(res),
	})
}

func (s *Server) handleRunExpiration(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	report, err := s.expiryUC.Run(r.Context())
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": requestID,
		"report": map[string]any{
			"monthlyExpired":    report.MonthlyExpired,
			"yearlyRefreshed":   report.YearlyRefreshed,
			"yearlyExpired":     report.YearlyExpired,
			"addonCoinsCleared": report.AddonCoinsCleared,
			"durationMs":        report.Duration.Milliseconds(),
		},
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log, requestID, domain.NewValidationError("malformed JSON body: %v", err))
		return
	}
	if s.apiKey == "" || req.APIKey != s.apiKey {
		writeError(w, s.log, requestID, domain.NewAuthenticationError("invalid api key", nil))
		return
	}
	token, err := s.auth.Mint()
	if err != nil {
		writeError(w, s.log, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func toIntentPayload(pi *adapter.PaymentIntent) *intentPayload {
	if pi == nil {
		return nil
	}
	return &intentPayload{
		ID:           pi.ID,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     pi.Currency,
		ClientSecret: pi.ClientSecret,
	}
}

func toSettlePayload(res *usecase.PurchaseResult) *settleResultPayload {
	if res == nil {
		return nil
	}
	p := &settleResultPayload{
		IntentID:         res.IntentID,
		Status:           string(res.Status),
		Applied:          res.Applied,
		AlreadyProcessed: res.AlreadyProcessed,
	}
	if res.Order != nil {
		p.OrderID = res.Order.OrderID
	}
	return p
}
