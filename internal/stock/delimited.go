package stock

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/talkincode/toughstock/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Delimiter separates columns in the export format.
const Delimiter = ';'

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

// productRecord is one row of the delimited format. Every column is text
// so a malformed cell never aborts decoding of the whole buffer.
type productRecord struct {
	ID         string `csv:"id"`
	Name       string `csv:"name"`
	Price      string `csv:"price"`
	Quantity   string `csv:"quantity"`
	Brand      string `csv:"brand"`
	Style      string `csv:"style"`
	Type       string `csv:"type"`
	PhotoRef   string `csv:"photo_ref"`
	ExpiryDate string `csv:"expiry_date"`
	SoldFlag   string `csv:"sold_flag"`
	LastSaleAt string `csv:"last_sale_at"`
}

func toRecord(p *domain.Product) *productRecord {
	r := &productRecord{
		ID:       strconv.FormatInt(p.ID, 10),
		Name:     p.Name,
		Price:    strconv.FormatFloat(p.Price, 'f', -1, 64),
		Quantity: strconv.Itoa(p.Quantity),
		Brand:    p.Brand,
		Style:    p.Style,
		Type:     p.Type,
		PhotoRef: p.PhotoRef,
		SoldFlag: "0",
	}
	if p.ExpiryDate != nil {
		r.ExpiryDate = p.ExpiryDate.Format(dateLayout)
	}
	if p.SoldFlag {
		r.SoldFlag = "1"
	}
	if p.LastSaleAt != nil {
		r.LastSaleAt = p.LastSaleAt.Format(timestampLayout)
	}
	return r
}

// ExportAllAsDelimitedText writes every product, zeroed ones included, as
// semicolon separated text with a header row. No products yields "".
func (l *Ledger) ExportAllAsDelimitedText(ctx context.Context) (string, error) {
	rows, err := l.GetAll(ctx, true)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	records := make([]*productRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toRecord(&rows[i]))
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Delimiter
	if err := gocsv.MarshalCSV(records, gocsv.NewSafeCSVWriter(w)); err != nil {
		return "", domain.WrapIO("export products", err)
	}
	return buf.String(), nil
}

// ImportFromDelimitedText inserts one product per row and returns how many
// were inserted. Rows without a name, or that fail validation once numeric
// cells are coerced, are skipped; each row runs under its own savepoint so
// one bad row never undoes the others.
func (l *Ledger) ImportFromDelimitedText(ctx context.Context, text string) (int, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records []*productRecord
	if err := gocsv.UnmarshalCSV(r, &records); err != nil {
		return 0, domain.NewValidationError("text", err.Error())
	}

	inserted := 0
	var added []domain.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range records {
			line := i + 2
			p, err := rec.product()
			if err != nil {
				zap.L().Warn("import row skipped",
					zap.String("namespace", "stock"),
					zap.Int("line", line),
					zap.Error(err))
				continue
			}
			err = tx.Transaction(func(row *gorm.DB) error {
				return NewGormProductRepository(row).Create(ctx, p)
			})
			if err != nil {
				zap.L().Warn("import row failed",
					zap.String("namespace", "stock"),
					zap.Int("line", line),
					zap.String("name", p.Name),
					zap.Error(err))
				continue
			}
			inserted++
			added = append(added, *p)
		}
		return nil
	})
	if err != nil {
		return 0, domain.WrapIO("import products", err)
	}
	zap.L().Info("products imported",
		zap.String("namespace", "stock"),
		zap.Int("rows", len(records)),
		zap.Int("inserted", inserted))
	for _, p := range added {
		l.publish(Event{Topic: TopicAdded, ProductID: p.ID, Name: p.Name, Quantity: p.Quantity, Delta: p.Quantity, At: l.now()})
	}
	return inserted, nil
}

func (rec *productRecord) product() (*domain.Product, error) {
	fields := ProductFields{
		Name:       rec.Name,
		Price:      parsePrice(rec.Price),
		Quantity:   parseQuantity(rec.Quantity),
		Brand:      rec.Brand,
		Style:      rec.Style,
		Type:       rec.Type,
		PhotoRef:   rec.PhotoRef,
		ExpiryDate: ParseDate(rec.ExpiryDate),
	}
	fields = fields.normalize()
	if fields.Name == "" {
		return nil, domain.NewValidationError("name", "empty")
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	var p domain.Product
	fields.apply(&p)
	p.SoldFlag = cast.ToBool(strings.TrimSpace(rec.SoldFlag))
	p.LastSaleAt = parseTimestamp(rec.LastSaleAt)
	return &p, nil
}

// parsePrice accepts "59.90", "59,90" and "R$ 59,90"; anything else is 0.
func parsePrice(s string) float64 {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// parseQuantity falls back to zero for text that is not a number or does
// not fit a 32-bit quantity.
func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n)
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// ParseDate accepts ISO, DD/MM/YYYY and the formats dateparse knows. It
// returns nil for blank or unrecognized input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	d := DateOnly(t)
	return &d
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return &t
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return nil
	}
	return &t
}
