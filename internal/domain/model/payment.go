package model

import (
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
)

// IntentStatus mirrors the gateway's payment-intent lifecycle. Terminal
// states are final.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "PENDING"
	IntentStatusSucceeded IntentStatus = "SUCCEEDED"
	IntentStatusFailed    IntentStatus = "FAILED"
	IntentStatusCancelled IntentStatus = "CANCELLED"
)

func (s IntentStatus) Terminal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusFailed || s == IntentStatusCancelled
}

type MetadataStatus string

const (
	MetadataStatusPending    MetadataStatus = "pending"
	MetadataStatusProcessing MetadataStatus = "processing"
	MetadataStatusCompleted  MetadataStatus = "completed"
	MetadataStatusFailed     MetadataStatus = "failed"
	MetadataStatusCancelled  MetadataStatus = "cancelled"
	MetadataStatusExpired    MetadataStatus = "expired"
)

// MetadataTTL bounds how long a purchase intent may wait for settlement.
const MetadataTTL = 24 * time.Hour

// PurchaseMetadata correlates a gateway payment intent with the internal
// purchase it is meant to fulfill. One record per intent id; logically absent
// once ExpiresAt has passed.
type PurchaseMetadata struct {
	PaymentIntentID string
	UID             string
	Plan            PlanName
	Price           int64 // minor units
	OrderID         string
	PaymentMethod   string
	Status          MetadataStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// NewPurchaseMetadata validates and constructs a pending record.
func NewPurchaseMetadata(intentID, uid string, plan PlanName, price int64, orderID, paymentMethod string, now time.Time) (*PurchaseMetadata, error) {
	switch {
	case intentID == "":
		return nil, domain.NewValidationError("paymentIntentId is required")
	case uid == "":
		return nil, domain.NewValidationError("uid is required")
	case plan == "":
		return nil, domain.NewValidationError("plan is required")
	case price <= 0:
		return nil, domain.NewValidationError("price must be positive")
	case orderID == "":
		return nil, domain.NewValidationError("orderId is required")
	}
	return &PurchaseMetadata{
		PaymentIntentID: intentID,
		UID:             uid,
		Plan:            plan,
		Price:           price,
		OrderID:         orderID,
		PaymentMethod:   paymentMethod,
		Status:          MetadataStatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(MetadataTTL),
	}, nil
}

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the append-only audit row written once per purchase attempt. It is
// the system of record for reconciliation and is never updated after insert.
type Order struct {
	ID              string // UUID
	UID             string
	Plan            PlanName
	Price           int64
	CoinsAdded      int64
	PaymentIntentID string
	OrderID         string
	Status          OrderStatus
	PaymentStatus   IntentStatus
	ErrorMessage    *string
	ErrorCode       *string
	CreatedAt       time.Time
}
