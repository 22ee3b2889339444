package enums

import "testing"

func TestParseTransactionType(t *testing.T) {
	for _, raw := range []string{"sale", "buy", "rent", "lease"} {
		if _, err := ParseTransactionType(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseTransactionType("all"); err == nil {
		t.Fatal("\"all\" is a filter sentinel, not a transaction type")
	}
}

func TestListingCategoryIsValid(t *testing.T) {
	if !ListingCategoryScaffold.IsValid() {
		t.Fatal("scaffold should be valid")
	}
	if ListingCategory("brick").IsValid() {
		t.Fatal("brick should not be valid")
	}
}

func TestListingStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ListingStatus
		ok       bool
	}{
		{ListingStatusAvailable, ListingStatusReserved, true},
		{ListingStatusReserved, ListingStatusAvailable, true},
		{ListingStatusAvailable, ListingStatusSold, true},
		{ListingStatusSold, ListingStatusAvailable, false},
		{ListingStatusSold, ListingStatusSold, true},
		{ListingStatusAvailable, ListingStatus("archived"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestTokenTransactionTypeSign(t *testing.T) {
	if TokenTransactionTypePurchase.Sign() != 1 {
		t.Fatal("purchase should be positive")
	}
	if TokenTransactionTypeSell.Sign() != -1 {
		t.Fatal("sell should be negative")
	}
	if TokenTransactionType("gift").Sign() != 0 {
		t.Fatal("unknown type should be neutral")
	}
}

func TestParseHelpers(t *testing.T) {
	if got, err := ParsePaymentMethod("bank_transfer"); err != nil || got != PaymentMethodBankTransfer {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if _, err := ParsePaymentMethod("cash"); err == nil || err.Error() != `invalid payment method "cash"` {
		t.Fatalf("unexpected error %v", err)
	}
	if got, err := ParseListingStatus("reserved"); err != nil || got != ListingStatusReserved {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if OrderStatus("shipped").IsValid() || !PaymentStatusCancelled.IsValid() {
		t.Fatal("status sets are wrong")
	}
}
