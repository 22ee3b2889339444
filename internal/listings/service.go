package listings

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// countReader returns the current counters for listings, seeding unseen ones.
type countReader interface {
	Counts(ctx context.Context, ids []string) (map[string]ranking.Counts, error)
}

// Service exposes the listing catalog.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*Detail, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Search(ctx context.Context, criteria Criteria) ([]models.Listing, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*models.Listing, error)
	UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*models.Listing, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error)
	ToggleLike(ctx context.Context, userID, listingID uuid.UUID) (*LikeResult, error)
	Liked(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
}

// CreateInput holds the payload for a new listing.
type CreateInput struct {
	Title       string   `json:"title" validate:"notblank"`
	Description string   `json:"description"`
	Price       int64    `json:"price" validate:"gt=0"`
	TokenPrice  *int64   `json:"tokenPrice,omitempty"`
	Type        string   `json:"type" validate:"required"`
	Category    *string  `json:"category,omitempty"`
	Location    string   `json:"location" validate:"notblank"`
	Images      []string `json:"images"`
}

// UpdateInput holds optional changes to a listing. Images replace the set when present.
type UpdateInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *int64    `json:"price,omitempty"`
	TokenPrice  *int64    `json:"tokenPrice,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Images      *[]string `json:"images,omitempty"`
}

// Detail is a listing with its interest counters.
type Detail struct {
	Listing models.Listing `json:"listing"`
	Views   int64          `json:"views"`
	Likes   int64          `json:"likes"`
}

type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Counters ranking.CounterStore
	Counts   countReader
	Local    localstore.Store
	Config   config.ListingsConfig
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	repo     Repository
	counters ranking.CounterStore
	counts   countReader
	local    localstore.Store
	cfg      config.ListingsConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Counters == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if params.Local == nil {
		return nil, fmt.Errorf("local store required")
	}
	if params.Config.MaxImages <= 0 {
		params.Config.MaxImages = 10
	}
	if params.Config.TokenPriceDivisor <= 0 {
		params.Config.TokenPriceDivisor = DefaultTokenPriceDivisor
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		counters: params.Counters,
		counts:   params.Counts,
		local:    params.Local,
		cfg:      params.Config,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Listing, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	title := strings.TrimSpace(input.Title)
	location := strings.TrimSpace(input.Location)
	if title == "" || location == "" || input.Price <= 0 || strings.TrimSpace(input.Type) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "필수 항목을 모두 입력해주세요.")
	}
	txType, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	tokenPrice, err := s.tokenPrice(input.Price, input.TokenPrice)
	if err != nil {
		return nil, err
	}
	images, err := s.imageURLs(input.Images)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 && s.cfg.DefaultImageURL != "" {
		images = []string{s.cfg.DefaultImageURL}
	}

	listing := &models.Listing{
		UserID:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		TokenPrice:  tokenPrice,
		Type:        txType,
		Category:    category,
		Location:    location,
		Status:      enums.ListingStatusAvailable,
	}
	for i, url := range images {
		listing.Images = append(listing.Images, models.ListingImage{ImageURL: url, ImageOrder: i})
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, listing)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	return listing, nil
}

// Get loads a listing and counts the view.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	key := id.String()
	detail := &Detail{Listing: *listing}

	if s.counts != nil {
		counts, err := s.counts.Counts(ctx, []string{key})
		if err != nil {
			s.warn(ctx, id, "read counters", err)
		} else {
			detail.Views, detail.Likes = counts[key].Views, counts[key].Likes
		}
	} else if likes, _, err := s.counters.Get(ctx, ranking.KindLikes, key); err == nil {
		detail.Likes = likes
	}

	views, err := s.counters.Increment(ctx, ranking.KindViews, key)
	if err != nil {
		s.warn(ctx, id, "count view", err)
		return detail, nil
	}
	detail.Views = views
	return detail, nil
}

// Find loads a listing without counting a view.
func (s *service) Find(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.load(ctx, id)
}

// Search returns the catalog newest first, narrowed by criteria.
func (s *service) Search(ctx context.Context, criteria Criteria) ([]models.Listing, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	out := slices.Collect(Filter(rows, criteria))
	if out == nil {
		out = []models.Listing{}
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*models.Listing, error) {
	listing, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyUpdate(listing, input); err != nil {
		return nil, err
	}
	var images []string
	if input.Images != nil {
		if images, err = s.imageURLs(*input.Images); err != nil {
			return nil, err
		}
		if len(images) == 0 && s.cfg.DefaultImageURL != "" {
			images = []string{s.cfg.DefaultImageURL}
		}
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, listing); err != nil {
			return err
		}
		if input.Images != nil {
			return repo.ReplaceImages(ctx, listing.ID, images)
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	return s.load(ctx, id)
}

func (s *service) applyUpdate(listing *models.Listing, input UpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "제목을 입력해주세요.")
		}
		listing.Title = title
	}
	if input.Description != nil {
		listing.Description = strings.TrimSpace(*input.Description)
	}
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if location == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "위치를 입력해주세요.")
		}
		listing.Location = location
	}
	if input.Type != nil {
		txType, err := parseType(*input.Type)
		if err != nil {
			return err
		}
		listing.Type = txType
	}
	if input.Category != nil {
		category, err := parseCategory(input.Category)
		if err != nil {
			return err
		}
		listing.Category = category
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "가격은 0보다 커야 합니다.")
		}
		listing.Price = *input.Price
		if input.TokenPrice == nil {
			listing.TokenPrice = DeriveTokenPrice(listing.Price, s.cfg.TokenPriceDivisor)
		}
	}
	if input.TokenPrice != nil {
		tokenPrice, err := s.tokenPrice(listing.Price, input.TokenPrice)
		if err != nil {
			return err
		}
		listing.TokenPrice = tokenPrice
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*models.Listing, error) {
	next, err := enums.ParseListingStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	listing, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !listing.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "판매완료된 매물은 상태를 변경할 수 없습니다.").
			WithDetails(map[string]any{"from": listing.Status, "to": next})
	}
	if listing.Status == next {
		return listing, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing status")
	}
	listing.Status = next
	return listing, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
	}
	return nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owner listings")
	}
	return rows, nil
}

// ToggleLike flips the listing in the user's liked set and moves the like counter with it.
func (s *service) ToggleLike(ctx context.Context, userID, listingID uuid.UUID) (*LikeResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if _, err := s.load(ctx, listingID); err != nil {
		return nil, err
	}
	key := listingID.String()
	if s.counts != nil {
		if _, err := s.counts.Counts(ctx, []string{key}); err != nil {
			return nil, err
		}
	}

	liked, err := s.likedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &LikeResult{}
	if idx := slices.Index(liked, key); idx >= 0 {
		liked = slices.Delete(liked, idx, idx+1)
		result.Likes, err = s.counters.Decrement(ctx, ranking.KindLikes, key)
	} else {
		liked = append(liked, key)
		result.Liked = true
		result.Likes, err = s.counters.Increment(ctx, ranking.KindLikes, key)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update like counter")
	}
	if err := s.local.Put(ctx, userID.String(), localstore.KeyLikedItems, liked); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save liked items")
	}
	return result, nil
}

// Liked returns the listings the user has liked that still exist.
func (s *service) Liked(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	liked, err := s.likedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(liked))
	for _, raw := range liked {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load liked listings")
	}
	return rows, nil
}

func (s *service) likedIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var liked []string
	if _, err := s.local.Get(ctx, userID.String(), localstore.KeyLikedItems, &liked); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load liked items")
	}
	return liked, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "매물을 찾을 수 없습니다.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) owned(ctx context.Context, actorID, id uuid.UUID) (*models.Listing, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "본인 매물만 수정할 수 있습니다.")
	}
	return listing, nil
}

func (s *service) tokenPrice(price int64, requested *int64) (int64, error) {
	if requested == nil || *requested == 0 {
		return DeriveTokenPrice(price, s.cfg.TokenPriceDivisor), nil
	}
	if *requested < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "토큰 가격은 1 이상이어야 합니다.")
	}
	return *requested, nil
}

func (s *service) imageURLs(raw []string) ([]string, error) {
	urls := make([]string, 0, len(raw))
	for _, url := range raw {
		if url = strings.TrimSpace(url); url != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) > s.cfg.MaxImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("이미지는 최대 %d장까지 등록할 수 있습니다.", s.cfg.MaxImages))
	}
	return urls, nil
}

func (s *service) warn(ctx context.Context, id uuid.UUID, op string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithListingID(ctx, id.String()), op+": "+err.Error())
}

func parseType(raw string) (enums.TransactionType, error) {
	value, err := enums.ParseTransactionType(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type")
	}
	return value, nil
}

func parseCategory(raw *string) (*enums.ListingCategory, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := enums.ParseListingCategory(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	return &value, nil
}
