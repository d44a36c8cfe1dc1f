package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements Querier against the submissions tables.
type Store struct {
	Pool *pgxpool.Pool
}

// SubmissionDailyRange aggregates submissions per day, from inclusive,
// to exclusive.
func (s *Store) SubmissionDailyRange(ctx context.Context, from, to time.Time) ([]DailyRow, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("analytics store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('day', sub.created_at) AS day,
			count(DISTINCT sub.id) FILTER (WHERE sub.status = 'pending') AS placed,
			count(DISTINCT sub.id) FILTER (WHERE sub.status = 'approved') AS approved,
			count(DISTINCT sub.id) FILTER (WHERE sub.status = 'rejected') AS rejected,
			coalesce(sum(it.dealer_price * it.quantity), 0) AS order_value,
			coalesce(sum(it.invest * it.quantity), 0) AS invest_total
		FROM submissions sub
		LEFT JOIN submission_items it ON it.submission_id = sub.id
		WHERE sub.created_at >= $1 AND sub.created_at < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily range: %w", err)
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		var row DailyRow
		if err := rows.Scan(&row.Day, &row.Placed, &row.Approved, &row.Rejected, &row.OrderValue, &row.InvestTotal); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopProducts lists the most ordered products by total quantity.
func (s *Store) TopProducts(ctx context.Context, limit, offset int32) ([]TopProductRow, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("analytics store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT it.product_id, it.sku, it.name,
			sum(it.quantity) AS quantity,
			sum(it.dealer_price * it.quantity) AS order_value
		FROM submission_items it
		GROUP BY it.product_id, it.sku, it.name
		ORDER BY quantity DESC, it.product_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	var out []TopProductRow
	for rows.Next() {
		var row TopProductRow
		if err := rows.Scan(&row.ProductID, &row.SKU, &row.Name, &row.Quantity, &row.OrderValue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StatusOverview counts submissions per status and sums the invest of
// pending submissions.
func (s *Store) StatusOverview(ctx context.Context) (Overview, error) {
	if s == nil || s.Pool == nil {
		return Overview{}, errors.New("analytics store not configured")
	}
	var ov Overview
	err := s.Pool.QueryRow(ctx, `
		SELECT count(DISTINCT sub.id) FILTER (WHERE sub.status = 'pending'),
			count(DISTINCT sub.id) FILTER (WHERE sub.status = 'approved'),
			count(DISTINCT sub.id) FILTER (WHERE sub.status = 'rejected'),
			coalesce(sum(it.invest * it.quantity) FILTER (WHERE sub.status = 'pending'), 0)
		FROM submissions sub
		LEFT JOIN submission_items it ON it.submission_id = sub.id`).
		Scan(&ov.Pending, &ov.Approved, &ov.Rejected, &ov.InvestTotal)
	if err != nil {
		return Overview{}, fmt.Errorf("query overview: %w", err)
	}
	return ov, nil
}
