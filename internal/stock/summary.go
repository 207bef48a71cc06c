package stock

import (
	"context"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughstock/internal/domain"
)

// DefaultLowStockThreshold marks active products with this many units or
// fewer as running low.
const DefaultLowStockThreshold = 3

type Summary struct {
	Products       int              `json:"products"`
	Active         int              `json:"active"`
	Zeroed         int              `json:"zeroed"`
	TotalUnits     int              `json:"total_units"`
	StockValue     decimal.Decimal  `json:"stock_value"`
	AveragePrice   float64          `json:"average_price"`
	MedianQuantity float64          `json:"median_quantity"`
	LowStock       []domain.Product `json:"low_stock"`
}

// SoldHistory lists every product that has had a sale, newest first.
func (l *Ledger) SoldHistory(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := l.transaction(ctx, func(repo ProductRepository) error {
		var err error
		rows, err = repo.SoldHistory(ctx)
		return err
	})
	if err != nil {
		return nil, domain.WrapIO("sold history", err)
	}
	return rows, nil
}

// Zeroed lists products waiting for recovery.
func (l *Ledger) Zeroed(ctx context.Context) ([]domain.Product, error) {
	return l.Find(ctx, Filter{OnlyZero: true})
}

// ExpiringWithin lists active products whose expiry date falls before
// today plus days, soonest first. Already expired items are included.
func (l *Ledger) ExpiringWithin(ctx context.Context, days int) ([]domain.Product, error) {
	rows, err := l.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	limit := DateOnly(l.now()).AddDate(0, 0, days)
	var out []domain.Product
	for _, p := range rows {
		if p.ExpiryDate != nil && !DateOnly(*p.ExpiryDate).After(limit) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	return out, nil
}

// Summary aggregates the whole table. Stock value is summed in decimal
// to avoid float drift on currency.
func (l *Ledger) Summary(ctx context.Context, lowThreshold int) (*Summary, error) {
	if lowThreshold <= 0 {
		lowThreshold = DefaultLowStockThreshold
	}
	rows, err := l.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	s := &Summary{Products: len(rows), StockValue: decimal.Zero, LowStock: []domain.Product{}}
	var prices, quantities stats.Float64Data
	for _, p := range rows {
		prices = append(prices, p.Price)
		quantities = append(quantities, float64(p.Quantity))
		if p.Quantity <= 0 {
			s.Zeroed++
			continue
		}
		s.Active++
		s.TotalUnits += p.Quantity
		s.StockValue = s.StockValue.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
		if p.Quantity <= lowThreshold {
			s.LowStock = append(s.LowStock, p)
		}
	}
	if mean, err := prices.Mean(); err == nil {
		s.AveragePrice = decimal.NewFromFloat(mean).Round(2).InexactFloat64()
	}
	if median, err := quantities.Median(); err == nil {
		s.MedianQuantity = median
	}
	return s, nil
}

// DaysUntil counts whole calendar days from one date to another.
func DaysUntil(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
