package listings

import (
	"iter"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
)

// All matches every category or transaction type.
const All = "all"

// Criteria narrows a catalog. Empty fields and All match everything.
type Criteria struct {
	Category        string `json:"category"`
	TransactionType string `json:"type"`
	Query           string `json:"q"`
}

// Filter yields the listings matching every predicate in c, in input order.
// The query is matched case-insensitively against title or location.
func Filter(listings []models.Listing, c Criteria) iter.Seq[models.Listing] {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	return func(yield func(models.Listing) bool) {
		for _, l := range listings {
			if !matchesField(c.Category, l.CategoryValue()) {
				continue
			}
			if !matchesField(c.TransactionType, string(l.Type)) {
				continue
			}
			if query != "" &&
				!strings.Contains(strings.ToLower(l.Title), query) &&
				!strings.Contains(strings.ToLower(l.Location), query) {
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

func matchesField(want, got string) bool {
	return want == "" || want == All || want == got
}
