package domain

import "time"

// Product is one stock item. Quantity never goes below zero and a product
// at zero stays in the table until DeleteProduct removes it.
type Product struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"index;not null" json:"name"`
	Price      float64    `gorm:"not null" json:"price"`
	Quantity   int        `gorm:"not null;default:0;index" json:"quantity"`
	Brand      string     `gorm:"size:128;index" json:"brand"`
	Style      string     `gorm:"size:128" json:"style"`
	Type       string     `gorm:"size:128" json:"type"`
	PhotoRef   string     `gorm:"size:1024" json:"photo_ref"`
	ExpiryDate *time.Time `gorm:"type:date" json:"expiry_date,omitempty"`
	SoldFlag   bool       `gorm:"not null;default:false" json:"sold_flag"`
	LastSaleAt *time.Time `json:"last_sale_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// StockValue is unit price times quantity.
func (p *Product) StockValue() float64 {
	return p.Price * float64(p.Quantity)
}
