// Package chat keeps a per-listing message log on the user's device state.
// Messages are not delivered to the other party.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
)

const (
	SenderUser  = "user"
	SenderOther = "other"

	defaultSellerName = "판매자"
)

type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Room summarises one conversation for the room list.
type Room struct {
	ListingID       string    `json:"listingId"`
	ListingTitle    string    `json:"listingTitle"`
	SellerName      string    `json:"sellerName"`
	SellerAvatar    string    `json:"sellerAvatar"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

type listingFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type profileFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type Service interface {
	Send(ctx context.Context, userID, listingID uuid.UUID, text string) (*Message, error)
	Messages(ctx context.Context, userID, listingID uuid.UUID) ([]Message, error)
	Rooms(ctx context.Context, userID uuid.UUID) ([]Room, error)
}

type service struct {
	store    localstore.Store
	listings listingFinder
	profiles profileFinder
	now      func() time.Time
}

func NewService(store localstore.Store, listings listingFinder, profiles profileFinder, now func() time.Time) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("local store required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing finder required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{store: store, listings: listings, profiles: profiles, now: now}, nil
}

// Send appends text to the listing's transcript and moves its room to the top.
func (s *service) Send(ctx context.Context, userID, listingID uuid.UUID, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "메시지를 입력해주세요.")
	}
	listing, err := s.listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	owner := userID.String()
	now := s.now().UTC()

	var transcript []Message
	if _, err := s.store.Get(ctx, owner, localstore.ChatKey(listingID.String()), &transcript); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat")
	}
	msg := Message{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Text:      text,
		Sender:    SenderUser,
		Timestamp: now,
	}
	transcript = append(transcript, msg)
	if err := s.store.Put(ctx, owner, localstore.ChatKey(listingID.String()), transcript); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save chat")
	}

	rooms, err := s.Rooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	room := Room{
		ListingID:       listingID.String(),
		ListingTitle:    listing.Title,
		SellerName:      s.sellerName(ctx, listing.UserID),
		LastMessage:     text,
		LastMessageTime: now,
	}
	if idx := slices.IndexFunc(rooms, func(r Room) bool { return r.ListingID == room.ListingID }); idx >= 0 {
		rooms[idx] = room
	} else {
		rooms = slices.Insert(rooms, 0, room)
	}
	slices.SortStableFunc(rooms, func(a, b Room) int {
		return b.LastMessageTime.Compare(a.LastMessageTime)
	})
	if err := s.store.Put(ctx, owner, localstore.KeyChatRooms, rooms); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save chat rooms")
	}
	return &msg, nil
}

// Messages returns the transcript. An empty conversation opens with a
// greeting about the listing that is not stored.
func (s *service) Messages(ctx context.Context, userID, listingID uuid.UUID) ([]Message, error) {
	listing, err := s.listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	var transcript []Message
	if _, err := s.store.Get(ctx, userID.String(), localstore.ChatKey(listingID.String()), &transcript); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat")
	}
	if len(transcript) == 0 {
		now := s.now().UTC()
		return []Message{{
			ID:        strconv.FormatInt(now.UnixMilli(), 10),
			Text:      fmt.Sprintf("안녕하세요! %s에 대해 문의드립니다.", listing.Title),
			Sender:    SenderOther,
			Timestamp: now,
		}}, nil
	}
	return transcript, nil
}

func (s *service) Rooms(ctx context.Context, userID uuid.UUID) ([]Room, error) {
	rooms := []Room{}
	if _, err := s.store.Get(ctx, userID.String(), localstore.KeyChatRooms, &rooms); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat rooms")
	}
	return rooms, nil
}

func (s *service) listing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "매물을 찾을 수 없습니다.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) sellerName(ctx context.Context, sellerID uuid.UUID) string {
	if s.profiles == nil {
		return defaultSellerName
	}
	profile, err := s.profiles.Find(ctx, sellerID)
	if err != nil || strings.TrimSpace(profile.Name) == "" {
		return defaultSellerName
	}
	return profile.Name
}
