// Package budget persists token budget counters as expiring INCRBY keys.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/contractdex/internal/db"
)

const keyPrefix = "contractdex:budget:"

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one daily and one monthly counter per budget scope.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Add increments both counters of scope for the period containing at.
func (s *Store) Add(ctx context.Context, scope string, at time.Time, tokens int64) error {
	if err := s.incr(ctx, DailyKey(scope, at), tokens, s.dailyTTL); err != nil {
		return err
	}
	return s.incr(ctx, MonthlyKey(scope, at), tokens, s.monthTTL)
}

// Load returns the daily and monthly usage of scope. Missing keys count as zero.
func (s *Store) Load(ctx context.Context, scope string, at time.Time) (daily, monthly int64, err error) {
	if daily, err = s.get(ctx, DailyKey(scope, at)); err != nil {
		return 0, 0, err
	}
	if monthly, err = s.get(ctx, MonthlyKey(scope, at)); err != nil {
		return 0, 0, err
	}
	return daily, monthly, nil
}

// DailyKey names the counter for the UTC day of t.
func DailyKey(scope string, t time.Time) string {
	return fmt.Sprintf("%s%s:daily:%s", keyPrefix, scope, t.UTC().Format("2006-01-02"))
}

// MonthlyKey names the counter for the UTC month of t.
func MonthlyKey(scope string, t time.Time) string {
	return fmt.Sprintf("%s%s:monthly:%s", keyPrefix, scope, t.UTC().Format("2006-01"))
}

func (s *Store) incr(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}
	// NX: the first write of a period fixes its expiry.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}
