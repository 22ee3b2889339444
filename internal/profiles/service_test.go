package profiles

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/geonmarket-backend/internal/chat"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/users"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubListings struct {
	mine, liked []models.Listing
}

func (s stubListings) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	return s.mine, nil
}

func (s stubListings) Liked(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	return s.liked, nil
}

type stubHistory struct{}

func (stubHistory) Histories(ctx context.Context, userID uuid.UUID, limit int) (*ledger.History, error) {
	return &ledger.History{Payments: []models.Payment{{UserID: userID, Amount: 12500}}}, nil
}

type stubRooms struct{}

func (stubRooms) Rooms(ctx context.Context, userID uuid.UUID) ([]chat.Room, error) {
	return []chat.Room{{ListingTitle: "H빔 철골"}}, nil
}

func seedUser(t *testing.T, client *db.Client, name, email string) *models.User {
	t.Helper()
	user, err := users.NewRepository(client.DB()).Create(context.Background(), users.CreateUserDTO{
		Email:        email,
		PasswordHash: "x",
		Name:         name,
	})
	require.NoError(t, err)
	return user
}

func newTestService(t *testing.T, client *db.Client) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Users:    users.NewRepository(client.DB()),
		Listings: stubListings{mine: []models.Listing{{Title: "목재 합판"}}},
		History:  stubHistory{},
		Rooms:    stubRooms{},
	})
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateUsesEmailLocalPart(t *testing.T) {
	client := dbtest.Open(t)
	user := seedUser(t, client, "", "builder@example.com")
	svc := newTestService(t, client)

	profile, err := svc.GetOrCreate(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "builder", profile.Name)
	assert.Zero(t, profile.Tokens)
	assert.Zero(t, profile.Balance)
}

func TestGetOrCreateConverges(t *testing.T) {
	client := dbtest.Open(t)
	user := seedUser(t, client, "김건설", "kim@example.com")
	svc := newTestService(t, client)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GetOrCreate(context.Background(), user.ID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.Profile{}).Where("id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateLeavesBalancesAlone(t *testing.T) {
	client := dbtest.Open(t)
	user := seedUser(t, client, "김건설", "kim@example.com")
	svc := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, client.DB().Model(&models.Profile{}).Where("id = ?", user.ID).
		Updates(map[string]any{"tokens": 7, "balance": 5000}).Error)

	name, phone := "박현장", "010-1234-5678"
	profile, err := svc.Update(ctx, user.ID, UpdateInput{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "박현장", profile.Name)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, phone, *profile.Phone)
	assert.Equal(t, int64(7), profile.Tokens)
	assert.Equal(t, int64(5000), profile.Balance)

	blank := " "
	_, err = svc.Update(ctx, user.ID, UpdateInput{Name: &blank})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDashboardCollectsSections(t *testing.T) {
	client := dbtest.Open(t)
	user := seedUser(t, client, "김건설", "kim@example.com")
	svc := newTestService(t, client)

	dash, err := svc.Dashboard(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "김건설", dash.Profile.Name)
	require.Len(t, dash.Listings, 1)
	assert.NotNil(t, dash.LikedListings)
	assert.Empty(t, dash.LikedListings)
	require.Len(t, dash.Payments, 1)
	assert.Equal(t, int64(12500), dash.Payments[0].Amount)
	assert.NotNil(t, dash.Orders)
	require.Len(t, dash.ChatRooms, 1)
}

func TestGetOrCreateUnknownUser(t *testing.T) {
	client := dbtest.Open(t)
	svc := newTestService(t, client)

	_, err := svc.GetOrCreate(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
