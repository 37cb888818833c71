package model

import (
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
)

// coinCycle is the coin validity window shared by Monthly/Tester plans and
// the Yearly refresh cadence.
const (
	coinCycle  = 30 * 24 * time.Hour
	yearlyTerm = 365 * 24 * time.Hour
)

// SubscriptionState is the per-user entitlement record. Created implicitly at
// signup (inactive, all nullable fields nil), mutated only by ApplyPurchase
// and the expiration engine, never deleted.
//
// Invariants: Active is true iff Plan is set and PlanExpiryAt was in the
// future at last recomputation; NextCoinRefreshAt is non-nil only for Yearly.
type SubscriptionState struct {
	UID               string
	Active            bool
	Plan              *PlanName
	CoinBalance       int64
	PlanExpiryAt      *time.Time
	CoinsExpiryAt     *time.Time
	NextCoinRefreshAt *time.Time
	PurchasedAt       *time.Time
}

func (s *SubscriptionState) IsZero() bool { return s == nil || s.UID == "" }

// ApplyPurchase computes the entitlement state after purchasing def at `now`.
// It is a pure function: no clock capture, no side effects, and the input
// state is never modified. Plan rules:
//
//   - Addon: adds coins to the current balance and inherits the hosting
//     plan's expiries untouched. Requires an active subscription.
//   - Yearly: plan runs 365 days, coins refresh on a 30-day cycle.
//   - Monthly/Tester: plan and coins share a 30-day window.
//   - Anything else: falls back to the catalog period for both windows.
//
// Non-addon purchases replace the coin balance rather than adding to it.
func ApplyPurchase(cur SubscriptionState, def *PlanDefinition, now time.Time) (SubscriptionState, error) {
	if cur.IsZero() {
		return cur, domain.NewValidationError("subscription state requires a uid")
	}
	if def.IsZero() {
		return cur, domain.NewValidationError("plan definition is required")
	}

	next := cur

	if def.Name == PlanAddon {
		if !cur.Active {
			return cur, domain.NewPreconditionError("addon purchase requires an active subscription")
		}
		// Addon coins ride on the main plan: expiries stay anchored to the
		// hosting plan and are not re-anchored by later refreshes.
		next.CoinBalance = cur.CoinBalance + def.Coins
		return next, nil
	}

	plan := def.Name
	purchased := now
	next.Active = true
	next.Plan = &plan
	next.CoinBalance = def.Coins
	next.PurchasedAt = &purchased

	switch def.Name {
	case PlanYearly:
		planExpiry := now.Add(yearlyTerm)
		coinsExpiry := now.Add(coinCycle)
		refresh := coinsExpiry
		next.PlanExpiryAt = &planExpiry
		next.CoinsExpiryAt = &coinsExpiry
		next.NextCoinRefreshAt = &refresh
	case PlanMonthly, PlanTester:
		expiry := now.Add(coinCycle)
		coinsExpiry := expiry
		next.PlanExpiryAt = &expiry
		next.CoinsExpiryAt = &coinsExpiry
		next.NextCoinRefreshAt = nil
	default:
		expiry := now.Add(def.Period())
		coinsExpiry := expiry
		next.PlanExpiryAt = &expiry
		next.CoinsExpiryAt = &coinsExpiry
		next.NextCoinRefreshAt = nil
	}
	return next, nil
}
