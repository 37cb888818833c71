package model

import (
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
)

type PlanName string

const (
	PlanMonthly PlanName = "Monthly"
	PlanYearly  PlanName = "Yearly"
	PlanTester  PlanName = "Tester"
	PlanAddon   PlanName = "Addon"
)

// DefaultPlanPeriod is the validity length used when a catalog entry does not
// carry an explicit period.
const DefaultPlanPeriod = 30 * 24 * time.Hour

// PlanDefinition is an immutable catalog entry loaded from the datastore.
// The core never mutates it.
type PlanDefinition struct {
	Name          PlanName
	Coins         int64 // credit grant on purchase
	PeriodSeconds int64 // validity length; 0 falls back to DefaultPlanPeriod
	Price         int64 // minor units
	CreatedAt     time.Time
}

func (p *PlanDefinition) IsZero() bool { return p == nil || p.Name == "" }

// Period returns the plan's validity length with the 30-day fallback applied.
func (p *PlanDefinition) Period() time.Duration {
	if p.PeriodSeconds <= 0 {
		return DefaultPlanPeriod
	}
	return time.Duration(p.PeriodSeconds) * time.Second
}

// NewPlanDefinition validates and constructs a catalog entry.
func NewPlanDefinition(name PlanName, coins, periodSeconds, price int64) (*PlanDefinition, error) {
	if name == "" || coins < 0 || periodSeconds < 0 || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &PlanDefinition{
		Name:          name,
		Coins:         coins,
		PeriodSeconds: periodSeconds,
		Price:         price,
		CreatedAt:     time.Now(),
	}, nil
}
