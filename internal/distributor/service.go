package distributor

import (
	"context"
	"errors"
	"fmt"

	"github.com/p5portal/backend-portal/internal/cache"
)

type lister interface {
	ListActive(ctx context.Context) ([]Distributor, error)
}

// Service serves the active distributor list with a Redis read-through
// cache and builds resolver catalogs from it.
type Service struct {
	Store lister
	Cache *cache.Cache
}

// List returns the active distributors, cached.
func (s *Service) List(ctx context.Context) ([]Distributor, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("distributor service not configured")
	}
	var cached []Distributor
	if ok, err := s.Cache.GetJSON(ctx, cache.KeyDistributors, &cached); err == nil && ok {
		return cached, nil
	}
	list, err := s.Store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, cache.KeyDistributors, list)
	return list, nil
}

// Catalog builds a code index over the active distributors.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("build distributor catalog: %w", err)
	}
	return NewCatalog(list), nil
}

// Invalidate drops the cached list after master data changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx, cache.KeyDistributors)
}
