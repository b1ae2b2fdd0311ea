package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
)

const summaryKeyPrefix = "summary:"

// SummaryCacheKey returns the cache key holding the summary of accountID.
func SummaryCacheKey(accountID string) string {
	return summaryKeyPrefix + accountID
}

// cachedSummary is the wire form of a summary. Decimals travel as strings.
type cachedSummary struct {
	Balance      string `json:"balance"`
	TotalCredits string `json:"totalCredits"`
	TotalDebits  string `json:"totalDebits"`
}

// SummaryCache memoizes account summaries on top of a Cache backend.
// Entries are replaced or deleted whole.
type SummaryCache struct {
	cache Cache
	ttl   time.Duration
}

// NewSummaryCache creates a new SummaryCache. A non-positive ttl selects SummaryCacheTTL.
func NewSummaryCache(cache Cache, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = SummaryCacheTTL
	}

	return &SummaryCache{
		cache: cache,
		ttl:   ttl,
	}
}

// TTL returns the lifetime of new entries.
func (c *SummaryCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached summary. A miss is (nil, false, nil).
func (c *SummaryCache) Get(ctx context.Context, accountID string) (*domain.Summary, bool, error) {
	raw, err := c.cache.Get(ctx, SummaryCacheKey(accountID))
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached cachedSummary
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("decode cached summary: %w", err)
	}

	summary, err := cached.toDomain()
	if err != nil {
		return nil, false, err
	}

	return summary, true, nil
}

// Set stores summary for accountID with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, accountID string, summary *domain.Summary) error {
	raw, err := json.Marshal(cachedSummary{
		Balance:      summary.Balance.String(),
		TotalCredits: summary.TotalCredits.String(),
		TotalDebits:  summary.TotalDebits.String(),
	})
	if err != nil {
		return err
	}

	return c.cache.Set(ctx, SummaryCacheKey(accountID), raw, c.ttl)
}

// Invalidate drops the cached summary of accountID.
func (c *SummaryCache) Invalidate(ctx context.Context, accountID string) error {
	return c.cache.Delete(ctx, SummaryCacheKey(accountID))
}

func (s cachedSummary) toDomain() (*domain.Summary, error) {
	balance, err := decimal.NewFromString(s.Balance)
	if err != nil {
		return nil, fmt.Errorf("decode cached balance: %w", err)
	}

	credits, err := decimal.NewFromString(s.TotalCredits)
	if err != nil {
		return nil, fmt.Errorf("decode cached credits: %w", err)
	}

	debits, err := decimal.NewFromString(s.TotalDebits)
	if err != nil {
		return nil, fmt.Errorf("decode cached debits: %w", err)
	}

	return &domain.Summary{
		Balance:      balance,
		TotalCredits: credits,
		TotalDebits:  debits,
	}, nil
}
