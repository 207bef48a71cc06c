// Package stock is the product ledger: every mutation runs in one
// transaction and quantity never drops below zero.
package stock

import (
	"context"
	"io/fs"
	"math"
	"strings"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/talkincode/toughstock/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductFields are the mutable columns of a product.
type ProductFields struct {
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Quantity   int        `json:"quantity"`
	Brand      string     `json:"brand"`
	Style      string     `json:"style"`
	Type       string     `json:"type"`
	PhotoRef   string     `json:"photo_ref"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

func (f ProductFields) normalize() ProductFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Brand = strings.TrimSpace(f.Brand)
	f.Style = strings.TrimSpace(f.Style)
	f.Type = strings.TrimSpace(f.Type)
	f.PhotoRef = strings.TrimSpace(f.PhotoRef)
	if f.ExpiryDate != nil {
		d := DateOnly(*f.ExpiryDate)
		f.ExpiryDate = &d
	}
	return f
}

// Validate checks the invariants shared by add, update and import.
func (f ProductFields) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return domain.NewValidationError("name", "must not be empty")
	case math.IsNaN(f.Price) || math.IsInf(f.Price, 0) || f.Price <= 0:
		return domain.NewValidationError("price", "must be greater than zero")
	case f.Quantity < 0:
		return domain.NewValidationError("quantity", "must not be negative")
	}
	return nil
}

func (f ProductFields) apply(p *domain.Product) {
	p.Name = f.Name
	p.Price = f.Price
	p.Quantity = f.Quantity
	p.Brand = f.Brand
	p.Style = f.Style
	p.Type = f.Type
	p.PhotoRef = f.PhotoRef
	p.ExpiryDate = f.ExpiryDate
}

// FieldsOf copies the mutable columns of p.
func FieldsOf(p *domain.Product) ProductFields {
	return ProductFields{
		Name:       p.Name,
		Price:      p.Price,
		Quantity:   p.Quantity,
		Brand:      p.Brand,
		Style:      p.Style,
		Type:       p.Type,
		PhotoRef:   p.PhotoRef,
		ExpiryDate: p.ExpiryDate,
	}
}

// DateOnly drops the clock part of t, keeping its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Ledger struct {
	db    *gorm.DB
	files FileRemover
	bus   EventBus.BusPublisher
	now   func() time.Time
}

type Option func(*Ledger)

// WithFileRemover sets the collaborator that deletes photo files.
func WithFileRemover(files FileRemover) Option {
	return func(l *Ledger) { l.files = files }
}

// WithPublisher publishes ledger events after each commit.
func WithPublisher(bus EventBus.BusPublisher) Option {
	return func(l *Ledger) { l.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) DB() *gorm.DB {
	return l.db
}

func (l *Ledger) transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormProductRepository(tx))
	})
}

func (l *Ledger) AddProduct(ctx context.Context, fields ProductFields) (int64, error) {
	fields = fields.normalize()
	if err := fields.Validate(); err != nil {
		return 0, err
	}
	var p domain.Product
	fields.apply(&p)
	err := l.transaction(ctx, func(repo ProductRepository) error {
		return repo.Create(ctx, &p)
	})
	if err != nil {
		return 0, domain.WrapIO("add product", err)
	}
	zap.L().Info("product added",
		zap.String("namespace", "stock"),
		zap.Int64("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("quantity", p.Quantity))
	l.publish(Event{Topic: TopicAdded, ProductID: p.ID, Name: p.Name, Quantity: p.Quantity, Delta: p.Quantity, At: l.now()})
	return p.ID, nil
}

// GetAll lists products by name. Zeroed products appear only when
// includeZero is set; administrative views always pass true.
func (l *Ledger) GetAll(ctx context.Context, includeZero bool) ([]domain.Product, error) {
	return l.Find(ctx, Filter{IncludeZero: includeZero})
}

func (l *Ledger) Find(ctx context.Context, filter Filter) ([]domain.Product, error) {
	var rows []domain.Product
	err := l.transaction(ctx, func(repo ProductRepository) error {
		var err error
		rows, err = repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, domain.WrapIO("list products", err)
	}
	return rows, nil
}

// GetByID returns nil without error when the product does not exist.
func (l *Ledger) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p *domain.Product
	err := l.transaction(ctx, func(repo ProductRepository) error {
		var err error
		p, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, domain.WrapIO("get product", err)
	}
	return p, nil
}

// UpdateProduct replaces every mutable field. A product is never removed
// here, whatever the new quantity. When the photo changes the previous
// file is removed after commit.
func (l *Ledger) UpdateProduct(ctx context.Context, id int64, fields ProductFields) error {
	fields = fields.normalize()
	if err := fields.Validate(); err != nil {
		return err
	}
	return l.modify(ctx, "update product", id, func(p *domain.Product) error {
		fields.apply(p)
		return nil
	})
}

// Restock brings a product back to active stock with a new quantity and
// price, keeping every other field. A price of zero keeps the current one.
func (l *Ledger) Restock(ctx context.Context, id int64, qty int, price float64) error {
	if qty < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	if price < 0 {
		return domain.NewValidationError("price", "must not be negative")
	}
	return l.modify(ctx, "restock product", id, func(p *domain.Product) error {
		p.Quantity = qty
		if price > 0 {
			p.Price = price
		}
		return nil
	})
}

// SetPhoto points the product at a new photo reference. The previous file,
// if any, is removed after commit.
func (l *Ledger) SetPhoto(ctx context.Context, id int64, ref string) error {
	return l.modify(ctx, "set product photo", id, func(p *domain.Product) error {
		p.PhotoRef = ref
		return nil
	})
}

// modify runs a read-modify-write of one row inside a single transaction,
// holding the row lock between the read and the save.
func (l *Ledger) modify(ctx context.Context, action string, id int64, change func(p *domain.Product) error) error {
	var (
		oldPhoto   string
		oldQty     int
		productRow domain.Product
	)
	err := l.transaction(ctx, func(repo ProductRepository) error {
		p, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewNotFoundError("product", id)
		}
		oldPhoto, oldQty = p.PhotoRef, p.Quantity
		if err := change(p); err != nil {
			return err
		}
		p.UpdatedAt = l.now()
		if err := repo.Save(ctx, p); err != nil {
			return err
		}
		productRow = *p
		return nil
	})
	if err != nil {
		return domain.WrapIO(action, err)
	}
	if oldPhoto != "" && oldPhoto != productRow.PhotoRef {
		l.removePhoto(oldPhoto)
	}
	if oldQty == 0 && productRow.Quantity > 0 {
		zap.L().Info("product recovered",
			zap.String("namespace", "stock"),
			zap.Int64("id", id),
			zap.Int("quantity", productRow.Quantity))
	}
	l.publish(Event{Topic: TopicUpdated, ProductID: id, Name: productRow.Name,
		Quantity: productRow.Quantity, Delta: productRow.Quantity - oldQty, At: l.now()})
	return nil
}

// DeleteProduct removes the row, then removes its photo outside the
// transaction. Photo cleanup failures are logged only.
func (l *Ledger) DeleteProduct(ctx context.Context, id int64) error {
	var deleted domain.Product
	err := l.transaction(ctx, func(repo ProductRepository) error {
		p, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewNotFoundError("product", id)
		}
		deleted = *p
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return domain.WrapIO("delete product", err)
	}
	if deleted.PhotoRef != "" {
		l.removePhoto(deleted.PhotoRef)
	}
	zap.L().Info("product deleted",
		zap.String("namespace", "stock"),
		zap.Int64("id", id),
		zap.String("name", deleted.Name))
	l.publish(Event{Topic: TopicDeleted, ProductID: id, Name: deleted.Name, Delta: -deleted.Quantity, At: l.now()})
	return nil
}

func (l *Ledger) removePhoto(ref string) {
	if l.files == nil {
		return
	}
	err := l.files.Remove(ref)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		zap.L().Debug("photo already gone", zap.String("namespace", "stock"), zap.String("photo_ref", ref))
	default:
		zap.L().Warn("failed to remove photo", zap.String("namespace", "stock"), zap.String("photo_ref", ref), zap.Error(err))
	}
}

// Sell takes qty units off the product. The quantity is re-read and the
// decrement guarded inside one transaction, so concurrent sales can never
// drive it negative.
func (l *Ledger) Sell(ctx context.Context, id int64, qty int) (*domain.Product, error) {
	if qty < 1 {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}
	var sold domain.Product
	err := l.transaction(ctx, func(repo ProductRepository) error {
		p, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return &domain.InsufficientStockError{ProductID: id, Requested: qty, Missing: true}
		}
		if p.Quantity < qty {
			return &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: p.Quantity}
		}
		now := l.now()
		ok, err := repo.Decrement(ctx, id, qty, now)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: p.Quantity}
		}
		p.Quantity -= qty
		p.SoldFlag = true
		p.LastSaleAt = &now
		p.UpdatedAt = now
		sold = *p
		return nil
	})
	if err != nil {
		return nil, domain.WrapIO("sell product", err)
	}
	zap.L().Info("product sold",
		zap.String("namespace", "stock"),
		zap.Int64("id", id),
		zap.Int("qty", qty),
		zap.Int("remaining", sold.Quantity))
	l.publish(Event{Topic: TopicSold, ProductID: id, Name: sold.Name, Quantity: sold.Quantity, Delta: -qty, At: *sold.LastSaleAt})
	if sold.Quantity == 0 {
		l.publish(Event{Topic: TopicZeroed, ProductID: id, Name: sold.Name, At: *sold.LastSaleAt})
	}
	return &sold, nil
}
