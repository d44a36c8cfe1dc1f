package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p5portal/backend-portal/internal/analytics"
)

type stubQueries struct {
	dailyCalls    int
	overviewCalls int
}

func (s *stubQueries) SubmissionDailyRange(_ context.Context, from, _ time.Time) ([]analytics.DailyRow, error) {
	s.dailyCalls++
	return []analytics.DailyRow{{Day: from, Placed: 3, Approved: 1, OrderValue: 1200, InvestTotal: 60}}, nil
}

func (s *stubQueries) TopProducts(context.Context, int32, int32) ([]analytics.TopProductRow, error) {
	return nil, nil
}

func (s *stubQueries) StatusOverview(context.Context) (analytics.Overview, error) {
	s.overviewCalls++
	return analytics.Overview{Pending: 4, InvestTotal: 85.5}, nil
}

func newService(t *testing.T) (*analytics.Service, *stubQueries) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queries := &stubQueries{}
	return &analytics.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30}, queries
}

func TestDailyRangeCached(t *testing.T) {
	svc, queries := newService(t)
	from := time.Now().Add(-24 * time.Hour).Truncate(24 * time.Hour)
	to := time.Now().Truncate(24 * time.Hour)
	if _, err := svc.DailyRange(context.Background(), from, to); err != nil {
		t.Fatalf("first call: %v", err)
	}
	rows, err := svc.DailyRange(context.Background(), from, to)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.dailyCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.dailyCalls)
	}
	if len(rows) != 1 || rows[0].Placed != 3 {
		t.Fatalf("unexpected cached rows: %+v", rows)
	}
}

func TestStatusOverviewCached(t *testing.T) {
	svc, queries := newService(t)
	if _, err := svc.StatusOverview(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ov, err := svc.StatusOverview(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.overviewCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.overviewCalls)
	}
	if ov.Pending != 4 || ov.InvestTotal != 85.5 {
		t.Fatalf("unexpected overview: %+v", ov)
	}
}
