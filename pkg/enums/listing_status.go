package enums

// ListingStatus tracks whether a listing can still be bought.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
)

var listingStatuses = []ListingStatus{ListingStatusAvailable, ListingStatusReserved, ListingStatusSold}

func (v ListingStatus) IsValid() bool { return valid(listingStatuses, v) }

func ParseListingStatus(raw string) (ListingStatus, error) {
	return parse("listing status", listingStatuses, raw)
}

// CanTransitionTo reports whether the owner may move a listing to next.
// Sold is terminal.
func (v ListingStatus) CanTransitionTo(next ListingStatus) bool {
	return next.IsValid() && (v != ListingStatusSold || next == ListingStatusSold)
}
