package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/internal/chat"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/users"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type listingLoader interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error)
	Liked(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
}

type historyLoader interface {
	Histories(ctx context.Context, userID uuid.UUID, limit int) (*ledger.History, error)
}

type roomLoader interface {
	Rooms(ctx context.Context, userID uuid.UUID) ([]chat.Room, error)
}

// Service manages the profile behind "my page".
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*models.Profile, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
}

// UpdateInput holds the editable profile fields. Nil leaves a field unchanged.
type UpdateInput struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Dashboard is everything "my page" shows in one payload.
type Dashboard struct {
	Profile           *models.Profile           `json:"profile"`
	Listings          []models.Listing          `json:"listings"`
	LikedListings     []models.Listing          `json:"likedListings"`
	Orders            []models.Order            `json:"orders"`
	Payments          []models.Payment          `json:"payments"`
	TokenTransactions []models.TokenTransaction `json:"tokenTransactions"`
	ChatRooms         []chat.Room               `json:"chatRooms"`
}

type ServiceParams struct {
	Repo     Repository
	Users    userFinder
	Listings listingLoader
	History  historyLoader
	Rooms    roomLoader
}

type service struct {
	repo     Repository
	users    userFinder
	listings listingLoader
	history  historyLoader
	rooms    roomLoader
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		listings: params.Listings,
		history:  params.History,
		rooms:    params.Rooms,
	}, nil
}

// GetOrCreate returns the user's profile, creating an empty one on first use.
// Concurrent first calls converge on a single row.
func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "로그인이 필요합니다")
	}
	profile, err := s.repo.Find(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "로그인이 필요합니다")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if _, err := s.repo.CreateIfAbsent(ctx, &models.Profile{
		ID:    userID,
		Name:  users.DisplayName(user),
		Phone: user.Phone,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}

	profile, err = s.repo.Find(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*models.Profile, error) {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "이름을 입력해주세요.")
		}
		fields["name"] = name
	}
	if input.Phone != nil {
		fields["phone"] = nullable(*input.Phone)
	}
	if input.AvatarURL != nil {
		fields["avatar_url"] = nullable(*input.AvatarURL)
	}
	if err := s.repo.UpdateDetails(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	profile, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return profile, nil
}

// Dashboard loads the profile and its related collections concurrently.
func (s *service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Dashboard{
		Profile:           profile,
		Listings:          []models.Listing{},
		LikedListings:     []models.Listing{},
		Orders:            []models.Order{},
		Payments:          []models.Payment{},
		TokenTransactions: []models.TokenTransaction{},
		ChatRooms:         []chat.Room{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.listings != nil {
		g.Go(func() error {
			rows, err := s.listings.ListByOwner(gctx, userID)
			if err != nil {
				return err
			}
			if rows != nil {
				out.Listings = rows
			}
			return nil
		})
		g.Go(func() error {
			rows, err := s.listings.Liked(gctx, userID)
			if err != nil {
				return err
			}
			if rows != nil {
				out.LikedListings = rows
			}
			return nil
		})
	}
	if s.history != nil {
		g.Go(func() error {
			history, err := s.history.Histories(gctx, userID, ledger.DefaultHistoryLimit)
			if err != nil {
				return err
			}
			if history.Orders != nil {
				out.Orders = history.Orders
			}
			if history.Payments != nil {
				out.Payments = history.Payments
			}
			if history.TokenTransactions != nil {
				out.TokenTransactions = history.TokenTransactions
			}
			return nil
		})
	}
	if s.rooms != nil {
		g.Go(func() error {
			rooms, err := s.rooms.Rooms(gctx, userID)
			if err != nil {
				return err
			}
			out.ChatRooms = rooms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard")
	}
	return out, nil
}

func nullable(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
