// File: internal/usecase/purchase_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/adapter"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/logging"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/metrics"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseResult describes what a terminal-status observation did.
type PurchaseResult struct {
	IntentID         string
	Status           model.IntentStatus
	Applied          bool // entitlement changed in this call
	AlreadyProcessed bool // another observation settled the intent first
	Order            *model.Order
}

// CatalogRefresher invalidates derived read views after a purchase. It is an
// explicit, separately retryable post-action; failures never undo a purchase.
type CatalogRefresher interface {
	Invalidate(ctx context.Context) error
}

type PurchaseUseCase interface {
	// CreateIntent opens a payment intent with the gateway and records the
	// purchase metadata that later settlement will be matched against.
	CreateIntent(ctx context.Context, uid string, plan model.PlanName, amount int64, currency, paymentMethod string) (*adapter.PaymentIntent, string, error)
	// GetStatus polls the gateway and settles the intent when the status is
	// terminal.
	GetStatus(ctx context.Context, intentID string) (*PurchaseResult, error)
	Confirm(ctx context.Context, intentID string, data map[string]any) (*PurchaseResult, error)
	Cancel(ctx context.Context, intentID, reason string) (*PurchaseResult, error)
}

type purchaseUC struct {
	gateway   adapter.PaymentGateway
	bridge    *MetadataBridge
	plans     repository.SubscriptionPlanRepository
	subs      repository.SubscriptionRepository
	orders    repository.OrderRepository
	refresher CatalogRefresher // optional
	log       *zerolog.Logger
}

func NewPurchaseUseCase(
	gateway adapter.PaymentGateway,
	bridge *MetadataBridge,
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	orders repository.OrderRepository,
	refresher CatalogRefresher,
	logger *zerolog.Logger,
) *purchaseUC {
	l := logger.With().Str("component", "PurchaseUC").Logger()
	return &purchaseUC{
		gateway:   gateway,
		bridge:    bridge,
		plans:     plans,
		subs:      subs,
		orders:    orders,
		refresher: refresher,
		log:       &l,
	}
}

func (u *purchaseUC) CreateIntent(ctx context.Context, uid string, plan model.PlanName, amount int64, currency, paymentMethod string) (*adapter.PaymentIntent, string, error) {
	switch {
	case uid == "":
		return nil, "", domain.NewValidationError("uid is required")
	case plan == "":
		return nil, "", domain.NewValidationError("plan is required")
	case amount <= 0:
		return nil, "", domain.NewValidationError("amount must be positive")
	case len(currency) != 3:
		return nil, "", domain.NewValidationError("currency must be a 3-letter code")
	}

	def, err := u.plans.FindByName(ctx, nil, plan)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.NewValidationError("unknown plan %q", plan)
		}
		return nil, "", err
	}

	orderID := ulid.Make().String()
	pi, err := u.gateway.CreatePaymentIntent(ctx, adapter.CreateIntentParams{
		Amount:          amount,
		Currency:        currency,
		MerchantOrderID: orderID,
		Metadata: map[string]any{
			"uid":  uid,
			"plan": string(def.Name),
		},
	})
	if err != nil {
		return nil, "", err
	}

	if _, err := u.bridge.Store(ctx, pi.ID, uid, def.Name, amount, orderID, paymentMethod); err != nil {
		// The gateway intent exists but cannot be correlated; surface the
		// failure so the caller does not hand out a checkout it can never
		// settle.
		u.log.Error().Err(err).Str("payment_intent_id", pi.ID).Str("uid", uid).
			Msg("payment intent created but metadata store failed")
		return nil, "", err
	}

	u.log.Info().Str("payment_intent_id", pi.ID).Str("uid", uid).
		Str("plan", string(def.Name)).Int64("amount", amount).
		Msg("payment intent created")
	return pi, orderID, nil
}

func (u *purchaseUC) GetStatus(ctx context.Context, intentID string) (*PurchaseResult, error) {
	pi, err := u.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, pi)
}

func (u *purchaseUC) Confirm(ctx context.Context, intentID string, data map[string]any) (*PurchaseResult, error) {
	pi, err := u.gateway.ConfirmPaymentIntent(ctx, intentID, data)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, pi)
}

func (u *purchaseUC) Cancel(ctx context.Context, intentID, reason string) (*PurchaseResult, error) {
	pi, err := u.gateway.CancelPaymentIntent(ctx, intentID, reason)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, pi)
}

// settle reacts to the observed gateway status. For terminal statuses it
// applies the entitlement change (success only) and appends the audit row,
// exactly once per intent no matter how many times the status is observed.
func (u *purchaseUC) settle(ctx context.Context, pi *adapter.PaymentIntent) (*PurchaseResult, error) {
	defer logging.TraceDuration(u.log, "PurchaseUC.settle")()
	res := &PurchaseResult{IntentID: pi.ID, Status: pi.Status}
	if !pi.Status.Terminal() {
		return res, nil
	}

	switch pi.Status {
	case model.IntentStatusSucceeded:
		return u.settleSucceeded(ctx, pi, res)
	default:
		return u.settleNotPaid(ctx, pi, res)
	}
}

func (u *purchaseUC) settleSucceeded(ctx context.Context, pi *adapter.PaymentIntent, res *PurchaseResult) (*PurchaseResult, error) {
	meta, err := u.bridge.Get(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Money moved but nothing identifies the purchase. Surfaced at
			// the highest severity and never swallowed; no entitlement is
			// granted without an audit trail.
			metrics.IncReconciliationGap()
			u.log.Error().Str("payment_intent_id", pi.ID).
				Msg("RECONCILIATION GAP: gateway reports success but purchase metadata is missing")
			return nil, domain.NewReconciliationGap(pi.ID)
		}
		return nil, err
	}

	// The pending->processing transition is the idempotency gate: whichever
	// observer wins it applies the purchase, everyone else no-ops.
	if !u.bridge.Advance(ctx, pi.ID, model.MetadataStatusPending, model.MetadataStatusProcessing) {
		res.AlreadyProcessed = true
		u.log.Debug().Str("payment_intent_id", pi.ID).Str("status", string(meta.Status)).
			Msg("intent already settled, skipping")
		return res, nil
	}

	now := time.Now()
	order := &model.Order{
		ID:              uuid.NewString(),
		UID:             meta.UID,
		Plan:            meta.Plan,
		Price:           meta.Price,
		PaymentIntentID: pi.ID,
		OrderID:         meta.OrderID,
		PaymentStatus:   pi.Status,
		CreatedAt:       now,
	}

	coins, applyErr := u.applyEntitlement(ctx, meta, now)
	if applyErr != nil {
		// The gateway's success must leave a durable trace even when our
		// side fails: record the failure in the audit ledger.
		msg := applyErr.Error()
		code := string(domain.KindOf(applyErr))
		order.Status = model.OrderStatusFailed
		order.ErrorMessage = &msg
		order.ErrorCode = &code
		if insErr := u.orders.Insert(ctx, nil, order); insErr != nil {
			u.log.Error().Err(insErr).Str("payment_intent_id", pi.ID).
				Msg("failed to record entitlement failure in audit ledger")
		}
		u.bridge.Advance(ctx, pi.ID, model.MetadataStatusProcessing, model.MetadataStatusFailed)
		metrics.IncPayment("failed")
		res.Order = order
		return res, applyErr
	}

	order.CoinsAdded = coins
	order.Status = model.OrderStatusActive
	if err := u.orders.Insert(ctx, nil, order); err != nil {
		// Entitlement is granted; the missing ledger row is the remaining
		// gap, so it gets the loudest log we have.
		u.log.Error().Err(err).Str("payment_intent_id", pi.ID).Str("uid", meta.UID).
			Msg("entitlement applied but audit record insert failed")
	}
	u.bridge.Advance(ctx, pi.ID, model.MetadataStatusProcessing, model.MetadataStatusCompleted)
	u.refreshCatalog(ctx)
	metrics.IncPayment("succeeded")

	u.log.Info().Str("payment_intent_id", pi.ID).Str("uid", meta.UID).
		Str("plan", string(meta.Plan)).Msg("purchase settled")
	res.Applied = true
	res.Order = order
	return res, nil
}

// applyEntitlement runs the plan state machine and persists the outcome with
// a conditional write. It returns the coins granted so the audit row records
// the same figure the entitlement used.
func (u *purchaseUC) applyEntitlement(ctx context.Context, meta *model.PurchaseMetadata, now time.Time) (int64, error) {
	def, err := u.plans.FindByName(ctx, nil, meta.Plan)
	if err != nil {
		return 0, err
	}
	cur, err := u.subs.Find(ctx, nil, meta.UID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.NewNotFoundError("no subscription row for uid %s", meta.UID)
		}
		return 0, err
	}
	next, err := model.ApplyPurchase(*cur, def, now)
	if err != nil {
		return 0, err
	}

	if def.Name == model.PlanAddon {
		// Atomic add guarded on the row still being active, so a plan expiry
		// racing this purchase cannot strand addon coins on an inactive row.
		ok, err := u.subs.AddCoinsIfActive(ctx, nil, meta.UID, def.Coins)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, domain.NewPreconditionError("addon purchase requires an active subscription")
		}
		return def.Coins, nil
	}
	if err := u.subs.SavePlanState(ctx, nil, &next); err != nil {
		return 0, err
	}
	return def.Coins, nil
}

func (u *purchaseUC) settleNotPaid(ctx context.Context, pi *adapter.PaymentIntent, res *PurchaseResult) (*PurchaseResult, error) {
	meta, err := u.bridge.Get(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// No money moved and nothing to unwind.
			u.log.Debug().Str("payment_intent_id", pi.ID).Str("status", string(pi.Status)).
				Msg("terminal non-success for unknown intent, nothing to record")
			return res, nil
		}
		return nil, err
	}

	target := model.MetadataStatusFailed
	orderStatus := model.OrderStatusFailed
	if pi.Status == model.IntentStatusCancelled {
		target = model.MetadataStatusCancelled
		orderStatus = model.OrderStatusCancelled
	}
	if !u.bridge.Advance(ctx, pi.ID, model.MetadataStatusPending, target) {
		res.AlreadyProcessed = true
		return res, nil
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		UID:             meta.UID,
		Plan:            meta.Plan,
		Price:           meta.Price,
		CoinsAdded:      0,
		PaymentIntentID: pi.ID,
		OrderID:         meta.OrderID,
		Status:          orderStatus,
		PaymentStatus:   pi.Status,
		CreatedAt:       time.Now(),
	}
	if err := u.orders.Insert(ctx, nil, order); err != nil {
		u.log.Error().Err(err).Str("payment_intent_id", pi.ID).
			Msg("failed to record terminal non-success in audit ledger")
		return nil, err
	}
	metrics.IncPayment(string(orderStatus))
	res.Order = order
	return res, nil
}

func (u *purchaseUC) refreshCatalog(ctx context.Context) {
	if u.refresher == nil {
		return
	}
	if err := u.refresher.Invalidate(ctx); err != nil {
		u.log.Warn().Err(err).Msg("catalog refresh after purchase failed, views may be stale until TTL")
	}
}
