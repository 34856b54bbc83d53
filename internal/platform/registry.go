package platform

import (
	"fmt"

	"github.com/plumapost/pluma-backend/internal/apperrors"
)

// Registry maps platform slugs to adapters. It is built once at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.Slug()]; dup {
			return nil, fmt.Errorf("duplicate adapter for platform %q", a.Slug())
		}
		r.adapters[a.Slug()] = a
	}
	return r, nil
}

// Resolve returns the adapter for a slug. A miss at delivery time means a
// misconfigured account; the caller records it as a failed delivery.
func (r *Registry) Resolve(slug string) (Adapter, error) {
	a, ok := r.adapters[slug]
	if !ok {
		return nil, &apperrors.ErrUnknownPlatform{Slug: slug}
	}
	return a, nil
}

// ResolveThreadable returns the adapter only if it can publish replies.
func (r *Registry) ResolveThreadable(slug string) (ThreadAdapter, error) {
	a, err := r.Resolve(slug)
	if err != nil {
		return nil, err
	}
	ta, ok := a.(ThreadAdapter)
	if !ok {
		return nil, &apperrors.ErrNotThreadable{Slug: slug}
	}
	return ta, nil
}

// Validate checks that every configured platform slug has an adapter, so a
// missing adapter for a known platform is a startup error rather than a
// delivery-time surprise.
func (r *Registry) Validate(slugs []string) error {
	for _, slug := range slugs {
		if _, ok := r.adapters[slug]; !ok {
			return &apperrors.ErrUnknownPlatform{Slug: slug}
		}
	}
	return nil
}
