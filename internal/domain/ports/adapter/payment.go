package adapter

import (
	"context"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

// CreateIntentParams carries everything the gateway needs to open a payment
// intent. Amount is in minor units. RequestID is the client-side idempotency
// key; the gateway client generates one when it is empty.
type CreateIntentParams struct {
	Amount          int64
	Currency        string
	MerchantOrderID string
	RequestID       string
	Metadata        map[string]any
}

// PaymentIntent is the provider-agnostic view of the gateway's intent object.
// RawStatus preserves the provider wording for diagnostics.
type PaymentIntent struct {
	ID           string
	Status       model.IntentStatus
	RawStatus    string
	Amount       int64
	Currency     string
	ClientSecret string
	RequestID    string
}

// PaymentGateway is the hex port for the external payment provider.
// Implementations own credential caching and the single 401 retry; all other
// failures surface as typed domain errors for the caller to act on.
type PaymentGateway interface {
	Name() string

	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID string, data map[string]any) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID, reason string) (*PaymentIntent, error)
}
