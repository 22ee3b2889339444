package chat

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubListings map[uuid.UUID]*models.Listing

func (s stubListings) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if l, ok := s[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubProfiles map[uuid.UUID]*models.Profile

func (s stubProfiles) Find(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func TestSendAndRooms(t *testing.T) {
	seller := uuid.New()
	beam := &models.Listing{ID: uuid.New(), UserID: seller, Title: "H빔 철골"}
	plywood := &models.Listing{ID: uuid.New(), UserID: uuid.New(), Title: "목재 합판"}
	c := &clock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(localstore.NewMemory(),
		stubListings{beam.ID: beam, plywood.ID: plywood},
		stubProfiles{seller: {ID: seller, Name: "철강상사"}},
		c.now)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	user := uuid.New()

	if _, err := svc.Send(ctx, user, beam.ID, "재고 있나요?"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Send(ctx, user, plywood.ID, "배송 되나요?"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Send(ctx, user, beam.ID, "가격 조정 가능한가요?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	rooms, err := svc.Rooms(ctx, user)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ListingID != beam.ID.String() || rooms[0].LastMessage != "가격 조정 가능한가요?" {
		t.Fatalf("expected most recent room first, got %+v", rooms[0])
	}
	if rooms[0].SellerName != "철강상사" || rooms[1].SellerName != defaultSellerName {
		t.Fatalf("unexpected seller names %q, %q", rooms[0].SellerName, rooms[1].SellerName)
	}

	msgs, err := svc.Messages(ctx, user, beam.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Sender != SenderUser {
		t.Fatalf("unexpected transcript %+v", msgs)
	}
}

func TestMessagesGreetsOnEmptyConversation(t *testing.T) {
	beam := &models.Listing{ID: uuid.New(), Title: "H빔 철골"}
	svc, _ := NewService(localstore.NewMemory(), stubListings{beam.ID: beam}, nil, nil)

	msgs, err := svc.Messages(context.Background(), uuid.New(), beam.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sender != SenderOther || msgs[0].Text != "안녕하세요! H빔 철골에 대해 문의드립니다." {
		t.Fatalf("unexpected greeting %+v", msgs)
	}
}

func TestSendRejectsBlankAndUnknownListing(t *testing.T) {
	beam := &models.Listing{ID: uuid.New(), Title: "H빔 철골"}
	svc, _ := NewService(localstore.NewMemory(), stubListings{beam.ID: beam}, nil, nil)
	ctx := context.Background()

	if _, err := svc.Send(ctx, uuid.New(), beam.ID, "   "); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Send(ctx, uuid.New(), uuid.New(), "안녕하세요"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
