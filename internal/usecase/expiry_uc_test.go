//go:build !integration

// File: internal/usecase/expiry_uc_test.go
package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

func seedYearly(subs *memSubscriptionRepo, uid string, planExpiry, refresh time.Time, coins int64) {
	plan := model.PlanYearly
	coinsExpiry := refresh
	subs.seed(&model.SubscriptionState{
		UID: uid, Active: true, Plan: &plan, CoinBalance: coins,
		PlanExpiryAt: &planExpiry, CoinsExpiryAt: &coinsExpiry, NextCoinRefreshAt: &refresh,
	})
}

func TestExpiryUC_YearlyRefresh(t *testing.T) {
	subs := newMemSubscriptionRepo()
	subs.planCoins[model.PlanYearly] = 1000
	uc := NewExpiryUseCase(subs, nil, newTestLogger())

	now := time.Now()
	// refresh due an hour ago, plan still running for most of the year
	seedYearly(subs, "u1", now.Add(335*24*time.Hour), now.Add(-time.Hour), 37)

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.YearlyRefreshed != 1 {
		t.Fatalf("yearlyRefreshed = %d, want 1", report.YearlyRefreshed)
	}

	s := subs.get("u1")
	if s.CoinBalance != 1000 {
		t.Fatalf("balance = %d, want plan allotment 1000", s.CoinBalance)
	}
	if s.NextCoinRefreshAt == nil || !s.NextCoinRefreshAt.After(now.Add(29*24*time.Hour)) {
		t.Fatalf("next refresh not advanced a full cycle: %v", s.NextCoinRefreshAt)
	}
	if !s.Active || s.Plan == nil || *s.Plan != model.PlanYearly {
		t.Fatalf("refresh must not change the plan itself: %+v", s)
	}

	// an immediate second run matches nothing
	report, err = uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.YearlyRefreshed != 0 {
		t.Fatalf("second run refreshed %d rows, want 0", report.YearlyRefreshed)
	}
	if got := subs.get("u1").CoinBalance; got != 1000 {
		t.Fatalf("balance changed on no-op rerun: %d", got)
	}
}

func TestExpiryUC_YearlyExpirySupersedesRefresh(t *testing.T) {
	subs := newMemSubscriptionRepo()
	subs.planCoins[model.PlanYearly] = 1000
	uc := NewExpiryUseCase(subs, nil, newTestLogger())

	now := time.Now()
	// both the refresh and the final expiry are due
	seedYearly(subs, "u1", now.Add(-time.Minute), now.Add(-time.Minute), 250)

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.YearlyRefreshed != 0 {
		t.Fatalf("refresh touched an expiring row: %d", report.YearlyRefreshed)
	}
	if report.YearlyExpired != 1 {
		t.Fatalf("yearlyExpired = %d, want 1", report.YearlyExpired)
	}

	s := subs.get("u1")
	if s.Active || s.Plan != nil || s.CoinBalance != 0 {
		t.Fatalf("row not cleared: %+v", s)
	}
	if s.PlanExpiryAt != nil || s.CoinsExpiryAt != nil || s.NextCoinRefreshAt != nil {
		t.Fatalf("timestamps not cleared: %+v", s)
	}
}

func TestExpiryUC_MonthlyAndTesterExpiry(t *testing.T) {
	subs := newMemSubscriptionRepo()
	uc := NewExpiryUseCase(subs, nil, newTestLogger())

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(10 * 24 * time.Hour)
	monthly := model.PlanMonthly
	tester := model.PlanTester

	subs.seed(&model.SubscriptionState{UID: "due-monthly", Active: true, Plan: &monthly, CoinBalance: 12, PlanExpiryAt: &past, CoinsExpiryAt: &past})
	subs.seed(&model.SubscriptionState{UID: "due-tester", Active: true, Plan: &tester, CoinBalance: 3, PlanExpiryAt: &past, CoinsExpiryAt: &past})
	subs.seed(&model.SubscriptionState{UID: "running", Active: true, Plan: &monthly, CoinBalance: 400, PlanExpiryAt: &future, CoinsExpiryAt: &future})

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.MonthlyExpired != 2 {
		t.Fatalf("monthlyExpired = %d, want 2", report.MonthlyExpired)
	}
	if s := subs.get("due-monthly"); s.Active || s.CoinBalance != 0 {
		t.Fatalf("due monthly row not cleared: %+v", s)
	}
	if s := subs.get("running"); !s.Active || s.CoinBalance != 400 {
		t.Fatalf("running row must be untouched: %+v", s)
	}

	report, err = uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.MonthlyExpired != 0 {
		t.Fatalf("rerun expired %d rows, want 0", report.MonthlyExpired)
	}
}

func TestExpiryUC_AddonCleanup(t *testing.T) {
	subs := newMemSubscriptionRepo()
	uc := NewExpiryUseCase(subs, nil, newTestLogger())

	past := time.Now().Add(-time.Hour)
	// plan already gone, addon coins left behind with an elapsed window
	subs.seed(&model.SubscriptionState{UID: "u1", Active: false, CoinBalance: 150, CoinsExpiryAt: &past})

	report, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AddonCoinsCleared != 1 {
		t.Fatalf("addonCoinsCleared = %d, want 1", report.AddonCoinsCleared)
	}
	s := subs.get("u1")
	if s.CoinBalance != 0 || s.CoinsExpiryAt != nil {
		t.Fatalf("stranded coins not cleared: %+v", s)
	}

	report, err = uc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AddonCoinsCleared != 0 {
		t.Fatalf("rerun cleared %d rows, want 0", report.AddonCoinsCleared)
	}
}

func TestExpiryUC_PassFailureDoesNotBlockOthers(t *testing.T) {
	subs := newMemSubscriptionRepo()
	subs.refreshErr = context.DeadlineExceeded
	uc := NewExpiryUseCase(subs, nil, newTestLogger())

	now := time.Now()
	past := now.Add(-time.Hour)
	monthly := model.PlanMonthly
	subs.seed(&model.SubscriptionState{UID: "due", Active: true, Plan: &monthly, CoinBalance: 5, PlanExpiryAt: &past, CoinsExpiryAt: &past})

	report, err := uc.Run(context.Background())
	if err == nil {
		t.Fatal("expected the failed pass to surface")
	}
	if report.MonthlyExpired != 1 {
		t.Fatalf("monthlyExpired = %d, want 1 despite a later pass failing", report.MonthlyExpired)
	}
	if report.YearlyRefreshed != 0 {
		t.Fatalf("failed pass reported %d rows", report.YearlyRefreshed)
	}
}
