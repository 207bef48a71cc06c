package stock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/toughstock/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository handles database operations for products
type ProductRepository interface {
	// Create inserts a new product and fills its ID
	Create(ctx context.Context, p *domain.Product) error

	// GetByID returns nil, nil when the product does not exist
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetForUpdate is GetByID with a row lock where the store supports it
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products ordered by name, then id
	List(ctx context.Context, filter Filter) ([]domain.Product, error)

	// Save replaces every mutable column of an existing product
	Save(ctx context.Context, p *domain.Product) error

	// Decrement removes qty units if at least qty are on hand and
	// reports whether the row changed
	Decrement(ctx context.Context, id int64, qty int, at time.Time) (bool, error)

	// Delete removes a product row
	Delete(ctx context.Context, id int64) error

	// SoldHistory lists products that have been sold, newest sale first
	SoldHistory(ctx context.Context) ([]domain.Product, error)
}

// Filter narrows product listings. Zero values match everything except
// IncludeZero, which must be set to see zeroed products.
type Filter struct {
	IncludeZero bool   `json:"include_zero" query:"include_zero"`
	Name        string `json:"name" query:"name"`
	Brand       string `json:"brand" query:"brand"`
	Style       string `json:"style" query:"style"`
	Type        string `json:"type" query:"type"`
	MinQuantity int    `json:"min_quantity" query:"min_quantity"`
	OnlyZero    bool   `json:"only_zero" query:"only_zero"`
}

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based repository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormProductRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(db, id)
}

func (r *GormProductRepository) get(db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) List(ctx context.Context, filter Filter) ([]domain.Product, error) {
	db := r.db.WithContext(ctx).Model(&domain.Product{})
	switch {
	case filter.OnlyZero:
		db = db.Where("quantity <= 0")
	case !filter.IncludeZero:
		db = db.Where("quantity > 0")
	}
	if filter.MinQuantity > 0 {
		db = db.Where("quantity >= ?", filter.MinQuantity)
	}
	if s := strings.TrimSpace(filter.Name); s != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(filter.Brand); s != "" {
		db = db.Where("LOWER(brand) = ?", strings.ToLower(s))
	}
	if s := strings.TrimSpace(filter.Style); s != "" {
		db = db.Where("LOWER(style) = ?", strings.ToLower(s))
	}
	if s := strings.TrimSpace(filter.Type); s != "" {
		db = db.Where("LOWER(type) = ?", strings.ToLower(s))
	}
	var rows []domain.Product
	if err := db.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormProductRepository) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", p.ID).
		Select("name", "price", "quantity", "brand", "style", "type", "photo_ref", "expiry_date", "updated_at").
		Updates(p).Error
}

func (r *GormProductRepository) Decrement(ctx context.Context, id int64, qty int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Updates(map[string]interface{}{
			"quantity":     gorm.Expr("quantity - ?", qty),
			"sold_flag":    true,
			"last_sale_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{}).Error
}

func (r *GormProductRepository) SoldHistory(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := r.db.WithContext(ctx).
		Where("sold_flag = ?", true).
		Order("last_sale_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}
