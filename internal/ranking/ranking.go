package ranking

import (
	"iter"
	"math/rand/v2"
	"slices"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
)

// Counts holds the observed counters for one listing. A counter that was never
// observed is reported with its Has flag unset and is filled by a Seeder.
type Counts struct {
	Views    int64
	Likes    int64
	HasViews bool
	HasLikes bool
}

// Seeder supplies counters for listings that have not been observed yet.
type Seeder func(id string) (views, likes int64)

// Ranked is a listing with the counters it was ordered by.
type Ranked struct {
	models.Listing
	Views int64 `json:"views"`
	Likes int64 `json:"likes"`
}

// RandomSeeder draws views and likes uniformly from the configured half-open ranges.
func RandomSeeder(rng *rand.Rand, cfg config.RankingConfig) Seeder {
	return func(string) (int64, int64) {
		return between(rng, cfg.SeedViewsMin, cfg.SeedViewsMax), between(rng, cfg.SeedLikesMin, cfg.SeedLikesMax)
	}
}

// FixedSeeder returns the same counters for every listing.
func FixedSeeder(views, likes int64) Seeder {
	return func(string) (int64, int64) { return views, likes }
}

func between(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int64N(hi-lo)
}

// Rank orders listings by likes, then views, both descending. Listings with
// equal counters keep their input order. The sort runs when the sequence is
// first ranged over and the sequence yields only once; call Rank again to
// recompute against fresh counters.
func Rank(listings []models.Listing, counts map[string]Counts, seed Seeder) iter.Seq[Ranked] {
	consumed := false
	return func(yield func(Ranked) bool) {
		if consumed {
			return
		}
		consumed = true

		ranked := make([]Ranked, 0, len(listings))
		for _, listing := range listings {
			ranked = append(ranked, withCounts(listing, counts, seed))
		}
		slices.SortStableFunc(ranked, func(a, b Ranked) int {
			if a.Likes != b.Likes {
				if a.Likes > b.Likes {
					return -1
				}
				return 1
			}
			switch {
			case a.Views > b.Views:
				return -1
			case a.Views < b.Views:
				return 1
			}
			return 0
		})
		for _, r := range ranked {
			if !yield(r) {
				return
			}
		}
	}
}

func withCounts(listing models.Listing, counts map[string]Counts, seed Seeder) Ranked {
	id := listing.ID.String()
	c := counts[id]
	if (!c.HasViews || !c.HasLikes) && seed != nil {
		views, likes := seed(id)
		if !c.HasViews {
			c.Views = views
		}
		if !c.HasLikes {
			c.Likes = likes
		}
	}
	return Ranked{Listing: listing, Views: max(c.Views, 0), Likes: max(c.Likes, 0)}
}
