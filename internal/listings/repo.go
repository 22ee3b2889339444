package listings

import (
	"context"

	"github.com/angelmondragon/geonmarket-backend/internal/repo"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists listings and their ordered images.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	List(ctx context.Context) ([]models.Listing, error)
	ListAvailable(ctx context.Context) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error
	ReplaceImages(ctx context.Context, listingID uuid.UUID, urls []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.DB(ctx).Create(listing).Error
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("image_order ASC")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.DB(ctx).
		Preload("Images", orderedImages).
		Where("id = ?", id).
		First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Listing
	if err := r.DB(ctx).
		Preload("Images", orderedImages).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns the whole catalog, newest first.
func (r *repository) List(ctx context.Context) ([]models.Listing, error) {
	var rows []models.Listing
	if err := r.DB(ctx).
		Preload("Images", orderedImages).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	var rows []models.Listing
	if err := r.DB(ctx).
		Preload("Images", orderedImages).
		Where("status = ?", enums.ListingStatusAvailable).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	if err := r.DB(ctx).
		Preload("Images", orderedImages).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update saves the scalar columns; images are left alone.
func (r *repository) Update(ctx context.Context, listing *models.Listing) error {
	return r.DB(ctx).Omit("Images").Save(listing).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error {
	res := r.DB(ctx).Model(&models.Listing{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceImages swaps the image set for urls, keeping their order.
func (r *repository) ReplaceImages(ctx context.Context, listingID uuid.UUID, urls []string) error {
	db := r.DB(ctx)
	if err := db.Where("listing_id = ?", listingID).Delete(&models.ListingImage{}).Error; err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}
	rows := make([]models.ListingImage, 0, len(urls))
	for i, url := range urls {
		rows = append(rows, models.ListingImage{ListingID: listingID, ImageURL: url, ImageOrder: i})
	}
	return db.Create(&rows).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB(ctx)
	if err := db.Where("listing_id = ?", id).Delete(&models.ListingImage{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Listing{}).Error
}
