package ledger

import (
	"context"
	"testing"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/google/uuid"
)

func TestLocalTradeLogNewestFirstAndCapped(t *testing.T) {
	store := localstore.NewMemory()
	log, err := NewLocalTradeLog(store)
	if err != nil {
		t.Fatalf("new trade log: %v", err)
	}
	ctx := context.Background()
	userID := uuid.New()

	for i := int64(1); i <= maxTradeHistory+5; i++ {
		if err := log.RecordTrade(ctx, userID, Trade{ID: i, Type: "매수", Amount: i, Price: 1250}); err != nil {
			t.Fatalf("record trade %d: %v", i, err)
		}
	}

	history, err := TradeHistory(ctx, store, userID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != maxTradeHistory {
		t.Fatalf("expected %d trades, got %d", maxTradeHistory, len(history))
	}
	if history[0].ID != maxTradeHistory+5 {
		t.Fatalf("expected newest trade first, got id %d", history[0].ID)
	}
}

func TestTradeHistoryEmpty(t *testing.T) {
	history, err := TradeHistory(context.Background(), localstore.NewMemory(), uuid.New())
	if err != nil || history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %v err=%v", history, err)
	}
}
