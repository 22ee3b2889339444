package ranking

import (
	"context"
	"fmt"
	"slices"

	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
)

// Kind names a per-listing counter.
type Kind string

const (
	KindViews Kind = "views"
	KindLikes Kind = "likes"
)

// CounterStore reads and moves per-listing counters.
type CounterStore interface {
	Increment(ctx context.Context, kind Kind, id string) (int64, error)
	Decrement(ctx context.Context, kind Kind, id string) (int64, error)
	Get(ctx context.Context, kind Kind, id string) (int64, bool, error)
	SeedIfAbsent(ctx context.Context, kind Kind, id string, value int64) (int64, error)
}

type listingSource interface {
	ListAvailable(ctx context.Context) ([]models.Listing, error)
}

// Service ranks the live catalog by interest.
type Service interface {
	Popular(ctx context.Context, limit int) ([]Ranked, error)
	Counts(ctx context.Context, ids []string) (map[string]Counts, error)
}

type service struct {
	listings listingSource
	counters CounterStore
	seed     Seeder
}

// NewService builds the ranking service. Seeded counters are written back to
// the store so a listing keeps its starting counts across requests.
func NewService(listings listingSource, counters CounterStore, seed Seeder) (Service, error) {
	if listings == nil {
		return nil, fmt.Errorf("listing source required")
	}
	if counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if seed == nil {
		seed = FixedSeeder(0, 0)
	}
	return &service{listings: listings, counters: counters, seed: seed}, nil
}

func (s *service) Popular(ctx context.Context, limit int) ([]Ranked, error) {
	listings, err := s.listings.ListAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listings")
	}

	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID.String())
	}
	counts, err := s.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := slices.Collect(Rank(listings, counts, nil))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Counts reads the counters for ids, seeding the ones never observed.
func (s *service) Counts(ctx context.Context, ids []string) (map[string]Counts, error) {
	out := make(map[string]Counts, len(ids))
	for _, id := range ids {
		views, err := s.read(ctx, KindViews, id)
		if err != nil {
			return nil, err
		}
		likes, err := s.read(ctx, KindLikes, id)
		if err != nil {
			return nil, err
		}
		out[id] = Counts{Views: views, Likes: likes, HasViews: true, HasLikes: true}
	}
	return out, nil
}

func (s *service) read(ctx context.Context, kind Kind, id string) (int64, error) {
	value, ok, err := s.counters.Get(ctx, kind, id)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read counter")
	}
	if ok {
		return value, nil
	}
	views, likes := s.seed(id)
	seeded := views
	if kind == KindLikes {
		seeded = likes
	}
	value, err = s.counters.SeedIfAbsent(ctx, kind, id, seeded)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed counter")
	}
	return value, nil
}
