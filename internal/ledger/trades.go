package ledger

import (
	"context"
	"fmt"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/google/uuid"
)

const maxTradeHistory = 100

type localTradeLog struct {
	store localstore.Store
}

// NewLocalTradeLog records trades newest first in the user's local state.
func NewLocalTradeLog(store localstore.Store) (TradeRecorder, error) {
	if store == nil {
		return nil, fmt.Errorf("local store required")
	}
	return &localTradeLog{store: store}, nil
}

func (l *localTradeLog) RecordTrade(ctx context.Context, userID uuid.UUID, trade Trade) error {
	owner := userID.String()
	var history []Trade
	if _, err := l.store.Get(ctx, owner, localstore.KeyTokenTradeHistory, &history); err != nil {
		return err
	}
	history = append([]Trade{trade}, history...)
	if len(history) > maxTradeHistory {
		history = history[:maxTradeHistory]
	}
	return l.store.Put(ctx, owner, localstore.KeyTokenTradeHistory, history)
}

// TradeHistory returns the user's recorded trades, newest first.
func TradeHistory(ctx context.Context, store localstore.Store, userID uuid.UUID) ([]Trade, error) {
	history := []Trade{}
	if _, err := store.Get(ctx, userID.String(), localstore.KeyTokenTradeHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}
