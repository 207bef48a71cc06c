package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	for _, f := range []ProductFields{
		{Name: "A", Price: 10.10, Quantity: 3},
		{Name: "B", Price: 20, Quantity: 10},
		{Name: "C", Price: 5, Quantity: 0},
		{Name: "D", Price: 0.3, Quantity: 1},
	} {
		_, err := l.AddProduct(ctx, f)
		require.NoError(t, err)
	}

	s, err := l.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Products)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.Zeroed)
	assert.Equal(t, 14, s.TotalUnits)
	assert.Equal(t, "230.60", s.StockValue.StringFixed(2))
	require.Len(t, s.LowStock, 2)
	assert.Equal(t, "A", s.LowStock[0].Name)
	assert.Equal(t, "D", s.LowStock[1].Name)
	assert.Equal(t, 8.85, s.AveragePrice)
	assert.Equal(t, 2.0, s.MedianQuantity)
}

func TestSummaryEmpty(t *testing.T) {
	s, err := newTestLedger(t).Summary(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Products)
	assert.True(t, s.StockValue.IsZero())
	assert.Empty(t, s.LowStock)
}

func TestSoldHistory(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	a, err := l.AddProduct(ctx, ProductFields{Name: "A", Price: 1, Quantity: 5})
	require.NoError(t, err)
	b, err := l.AddProduct(ctx, ProductFields{Name: "B", Price: 1, Quantity: 5})
	require.NoError(t, err)
	_, err = l.AddProduct(ctx, ProductFields{Name: "C", Price: 1, Quantity: 5})
	require.NoError(t, err)

	_, err = l.Sell(ctx, a, 1)
	require.NoError(t, err)
	_, err = l.Sell(ctx, b, 5)
	require.NoError(t, err)

	rows, err := l.SoldHistory(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b, rows[0].ID)
	assert.Equal(t, a, rows[1].ID)
}

func TestExpiringWithin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l := newTestLedger(t, WithClock(func() time.Time { return now }))
	date := func(d int) *time.Time {
		v := now.AddDate(0, 0, d)
		return &v
	}
	for _, f := range []ProductFields{
		{Name: "Vencido", Price: 1, Quantity: 1, ExpiryDate: date(-2)},
		{Name: "Semana", Price: 1, Quantity: 1, ExpiryDate: date(7)},
		{Name: "Longe", Price: 1, Quantity: 1, ExpiryDate: date(90)},
		{Name: "Zerado", Price: 1, Quantity: 0, ExpiryDate: date(1)},
		{Name: "Sem data", Price: 1, Quantity: 1},
	} {
		_, err := l.AddProduct(ctx, f)
		require.NoError(t, err)
	}

	rows, err := l.ExpiringWithin(ctx, 30)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Vencido", rows[0].Name)
	assert.Equal(t, "Semana", rows[1].Name)
	assert.Equal(t, 7, DaysUntil(now, *rows[1].ExpiryDate))
}
