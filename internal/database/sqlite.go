package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sqliteProduct mirrors domain.Product column for column. The sqlite driver
// maps an auto-increment primary key to a plain rowid alias, which hands out
// max(id)+1 again after the newest row is deleted; the explicit type keeps
// the AUTOINCREMENT keyword so product ids are never reused.
type sqliteProduct struct {
	ID         int64      `gorm:"type:integer PRIMARY KEY AUTOINCREMENT"`
	Name       string     `gorm:"index;not null"`
	Price      float64    `gorm:"not null"`
	Quantity   int        `gorm:"not null;default:0;index"`
	Brand      string     `gorm:"size:128;index"`
	Style      string     `gorm:"size:128"`
	Type       string     `gorm:"size:128"`
	PhotoRef   string     `gorm:"size:1024"`
	ExpiryDate *time.Time `gorm:"type:date"`
	SoldFlag   bool       `gorm:"not null;default:false"`
	LastSaleAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (sqliteProduct) TableName() string {
	return "products"
}

// createSqliteTables creates the tables whose sqlite DDL differs from what
// AutoMigrate would emit. Existing tables are left alone.
func createSqliteTables(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasTable(&sqliteProduct{}) {
		return nil
	}
	if err := m.CreateTable(&sqliteProduct{}); err != nil {
		return errors.Wrap(err, "create products table")
	}
	return nil
}
