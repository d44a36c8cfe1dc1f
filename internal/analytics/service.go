package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyRow aggregates submission activity for one day.
type DailyRow struct {
	Day         time.Time `json:"day"`
	Placed      int64     `json:"placed"`
	Approved    int64     `json:"approved"`
	Rejected    int64     `json:"rejected"`
	OrderValue  float64   `json:"orderValue"`
	InvestTotal float64   `json:"investTotal"`
}

// TopProductRow is one entry of the most ordered products.
type TopProductRow struct {
	ProductID  int64   `json:"productId"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	OrderValue float64 `json:"orderValue"`
}

// Overview summarises the current submission queue.
type Overview struct {
	Pending     int64   `json:"pending"`
	Approved    int64   `json:"approved"`
	Rejected    int64   `json:"rejected"`
	InvestTotal float64 `json:"investTotal"`
}

// Querier defines the database access required for analytics operations.
type Querier interface {
	SubmissionDailyRange(ctx context.Context, from, to time.Time) ([]DailyRow, error)
	TopProducts(ctx context.Context, limit, offset int32) ([]TopProductRow, error)
	StatusOverview(ctx context.Context) (Overview, error)
}

// Service provides cached access to submission analytics.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// DailyRange returns submission activity between the provided bounds.
func (s *Service) DailyRange(ctx context.Context, from, to time.Time) ([]DailyRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "daily", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []DailyRow
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.SubmissionDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns paginated top-ordered products by quantity.
func (s *Service) TopProducts(ctx context.Context, limit, offset int32) ([]TopProductRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", limit, offset)
	var cached []TopProductRow
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Q.TopProducts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// StatusOverview returns current queue counts and the open invest total.
func (s *Service) StatusOverview(ctx context.Context) (Overview, error) {
	if s == nil || s.Q == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "overview")
	var cached Overview
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	ov, err := s.Q.StatusOverview(ctx)
	if err != nil {
		return Overview{}, err
	}
	s.store(ctx, key, ov)
	return ov, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
