package embedding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/usage"
	"github.com/kailas-cloud/contractdex/internal/metrics"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// ParseBudgetAction maps a config value to a BudgetAction. Anything but
// "reject" warns.
func ParseBudgetAction(s string) BudgetAction {
	if s == string(BudgetActionReject) {
		return BudgetActionReject
	}
	return BudgetActionWarn
}

// BudgetStore persists per-scope counters. Add must be safe to call repeatedly.
type BudgetStore interface {
	Add(ctx context.Context, scope string, at time.Time, tokens int64) error
	Load(ctx context.Context, scope string, at time.Time) (daily, monthly int64, err error)
}

// BudgetLimits configures a tracker.
type BudgetLimits struct {
	Daily                int64 // 0 = unlimited
	Monthly              int64 // 0 = unlimited
	Action               BudgetAction
	CostPerMillionTokens float64
}

// BudgetTracker is an in-memory token budget for one scope ("embedding",
// "llm") with optional write-behind persistence. Check never touches the store.
type BudgetTracker struct {
	mu              sync.Mutex
	scope           string
	limits          BudgetLimits
	dailyUsed       int64
	monthlyUsed     int64
	dailyRequests   int64
	monthlyRequests int64
	lastDayReset    time.Time
	lastMonthReset  time.Time
	store           BudgetStore
	now             func() time.Time
	logger          *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits.
func NewBudgetTracker(scope string, limits BudgetLimits, logger *zap.Logger) *BudgetTracker {
	if limits.Action == "" {
		limits.Action = BudgetActionWarn
	}
	b := &BudgetTracker{
		scope:  scope,
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	now := b.now()
	b.lastDayReset = truncateToDay(now)
	b.lastMonthReset = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	daily, monthly, err := b.store.Load(ctx, b.scope, b.now())
	if err != nil {
		b.logger.Warn("Failed to load budget from store", zap.String("scope", b.scope), zap.Error(err))
		return
	}
	b.dailyUsed = daily
	b.monthlyUsed = monthly

	b.logger.Info("Budget loaded from store",
		zap.String("scope", b.scope),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
}

// Scope returns the budget scope name.
func (b *BudgetTracker) Scope() string { return b.scope }

// Check verifies the budget allows a new request.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.limits.Daily > 0 && b.dailyUsed >= b.limits.Daily
	monthlyExceeded := b.limits.Monthly > 0 && b.monthlyUsed >= b.limits.Monthly

	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.limits.Action == BudgetActionReject {
		return domain.ErrQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("scope", b.scope),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.limits.Daily),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.limits.Monthly),
	)
	return nil
}

// Record registers consumed tokens after a request, then persists them
// with a short background timeout so the caller is never blocked by the store.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	b.dailyRequests++
	b.monthlyRequests++
	store := b.store
	now := b.now()
	remainingDaily, remainingMonthly := b.remainingLocked()
	b.mu.Unlock()

	gauge := metrics.EmbeddingBudgetTokensRemaining
	gauge.WithLabelValues(b.scope, "daily").Set(float64(remainingDaily))
	gauge.WithLabelValues(b.scope, "monthly").Set(float64(remainingMonthly))

	if store == nil || tokens <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.Add(ctx, b.scope, now, tokens); err != nil {
		b.logger.Warn("Failed to persist budget", zap.String("scope", b.scope), zap.Error(err))
	}
}

// Daily returns the budget state of the current UTC day.
func (b *BudgetTracker) Daily() usage.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	remaining, _ := b.remainingLocked()
	return b.snapshot(b.limits.Daily, b.dailyUsed, remaining, b.dailyRequests)
}

// Monthly returns the budget state of the current UTC month.
func (b *BudgetTracker) Monthly() usage.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	_, remaining := b.remainingLocked()
	return b.snapshot(b.limits.Monthly, b.monthlyUsed, remaining, b.monthlyRequests)
}

func (b *BudgetTracker) snapshot(limit, used, remaining, requests int64) usage.Snapshot {
	return usage.Snapshot{
		Scope:            b.scope,
		Limit:            limit,
		Used:             used,
		Remaining:        remaining,
		Requests:         requests,
		CostMillidollars: int64(float64(used) * b.limits.CostPerMillionTokens / 1000),
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	return b.Daily().Remaining
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	return b.Monthly().Remaining
}

func (b *BudgetTracker) remainingLocked() (daily, monthly int64) {
	return remaining(b.limits.Daily, b.dailyUsed), remaining(b.limits.Monthly, b.monthlyUsed)
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *BudgetTracker) resetIfNeeded() {
	now := b.now()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(b.lastDayReset) {
		b.dailyUsed = 0
		b.dailyRequests = 0
		b.lastDayReset = today
	}
	if thisMonth.After(b.lastMonthReset) {
		b.monthlyUsed = 0
		b.monthlyRequests = 0
		b.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
