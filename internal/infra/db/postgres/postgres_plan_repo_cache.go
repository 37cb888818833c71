package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/metrics"
	red "github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/redis"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches the plan catalog in Redis. The catalog is
// read-only from the core's point of view, so entries only leave the cache by
// TTL or an explicit Invalidate from the orchestrator's post-purchase action.
type planRepoCacheDecorator struct {
	inner repository.SubscriptionPlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient) *planRepoCacheDecorator {
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func planKey(name model.PlanName) string { return fmt.Sprintf("plan:%s", name) }

const plansAllKey = "plans:all"

func (d *planRepoCacheDecorator) FindByName(ctx context.Context, tx repository.Tx, name model.PlanName) (*model.PlanDefinition, error) {
	if val, err := d.cache.Get(ctx, planKey(name)); err == nil {
		var plan model.PlanDefinition
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	}
	metrics.IncCacheRequest("plan", "miss")

	plan, err := d.inner.FindByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plan); err == nil {
		_ = d.cache.Set(ctx, planKey(name), b, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PlanDefinition, error) {
	if val, err := d.cache.Get(ctx, plansAllKey); err == nil {
		var plans []*model.PlanDefinition
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	}
	metrics.IncCacheRequest("plan_list", "miss")

	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plans); err == nil {
		_ = d.cache.Set(ctx, plansAllKey, b, d.ttl)
	}
	return plans, nil
}

// Invalidate drops every cached catalog view. Exposed so the purchase flow
// can refresh derived views as an explicit, retryable post-action.
func (d *planRepoCacheDecorator) Invalidate(ctx context.Context) error {
	keys := []string{plansAllKey,
		planKey(model.PlanMonthly), planKey(model.PlanYearly),
		planKey(model.PlanTester), planKey(model.PlanAddon),
	}
	return d.cache.Del(ctx, keys...)
}
