package distributor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads distributor rows from Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// ListActive returns every active distributor ordered by code.
func (s *Store) ListActive(ctx context.Context) ([]Distributor, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("distributor store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, code, name, rule_tag, active
		FROM distributors
		WHERE active
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list distributors: %w", err)
	}
	defer rows.Close()

	var out []Distributor
	for rows.Next() {
		var d Distributor
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.RuleTag, &d.Active); err != nil {
			return nil, fmt.Errorf("scan distributor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list distributors: %w", err)
	}
	return out, nil
}

// GetByCode fetches one distributor by exact lower-cased code match.
func (s *Store) GetByCode(ctx context.Context, code string) (Distributor, error) {
	if s == nil || s.Pool == nil {
		return Distributor{}, errors.New("distributor store not configured")
	}
	var d Distributor
	err := s.Pool.QueryRow(ctx, `
		SELECT id, code, name, rule_tag, active
		FROM distributors
		WHERE lower(code) = lower($1)`, code).
		Scan(&d.ID, &d.Code, &d.Name, &d.RuleTag, &d.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Distributor{}, fmt.Errorf("%w: %q", ErrUnknownCode, code)
		}
		return Distributor{}, fmt.Errorf("get distributor: %w", err)
	}
	return d, nil
}
