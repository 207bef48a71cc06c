package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/database"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
)

func newTestLedger(t *testing.T) *stock.Ledger {
	t.Helper()
	db, err := database.Open(config.DBConfig{Type: database.TypeSqlite}, filepath.Join(t.TempDir(), "estoque.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return stock.NewLedger(db)
}

type failingLedger struct {
	addErr  error
	sellErr error
	rows    []domain.Product
}

func (f *failingLedger) AddProduct(context.Context, stock.ProductFields) (int64, error) {
	return 0, f.addErr
}

func (f *failingLedger) GetAll(context.Context, bool) ([]domain.Product, error) {
	return f.rows, nil
}

func (f *failingLedger) Sell(context.Context, int64, int) (*domain.Product, error) {
	return nil, f.sellErr
}

func TestPriceValidationKeepsState(t *testing.T) {
	ctx := context.Background()
	it := NewInterpreter(newTestLedger(t), 0)
	sess := NewSession("admin")

	it.Handle(ctx, sess, "adicionar produto")
	assert.Equal(t, StepAwaitingName, sess.Step)
	it.Handle(ctx, sess, "Perfume X")
	assert.Equal(t, StepAwaitingPrice, sess.Step)
	it.Handle(ctx, sess, "abc")
	assert.Equal(t, StepAwaitingPrice, sess.Step)
	it.Handle(ctx, sess, "59,90")
	assert.Equal(t, StepAwaitingQty, sess.Step)
	assert.Equal(t, 59.90, sess.Pending.Price)
	assert.Len(t, sess.History, 8)
}

func TestAddFlowCreatesProduct(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	it := NewInterpreter(ledger, 0)
	sess := NewSession("admin")

	steps := []struct {
		input string
		want  Step
	}{
		{"Adicionar Produto", StepAwaitingName},
		{"  perfume   floral ", StepAwaitingPrice},
		{"0", StepAwaitingPrice},
		{"R$ 89,90", StepAwaitingQty},
		{"-1", StepAwaitingQty},
		{"dez", StepAwaitingQty},
		{"10", StepAwaitingBrand},
		{"xyz", StepAwaitingBrand},
		{"nat", StepAwaitingStyle},
		{"perfumaria", StepAwaitingType},
		{"sha", StepAwaitingType},
		{"perfumaria feminina", StepAwaitingExpiry},
		{"31-12-2025", StepAwaitingExpiry},
		{"31/12/2025", StepIdle},
	}
	var reply string
	for _, s := range steps {
		reply = it.Handle(ctx, sess, s.input)
		require.Equal(t, s.want, sess.Step, "after %q: %s", s.input, reply)
	}
	assert.Contains(t, reply, "ID: 1")
	assert.Equal(t, PendingProduct{}, sess.Pending)

	p, err := ledger.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Perfume   Floral", p.Name)
	assert.Equal(t, 89.90, p.Price)
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, "Natura", p.Brand)
	assert.Equal(t, "Perfumaria", p.Style)
	assert.Equal(t, "Perfumaria feminina", p.Type)
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, "2025-12-31", p.ExpiryDate.Format("2006-01-02"))
}

func TestAddFlowWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	it := NewInterpreter(ledger, 0)

	for _, none := range []string{"não", "NAO", "none", ""} {
		sess := NewSession("admin")
		for _, in := range []string{"adicionar produto", "Batom", "19.9", "0", "Avon", "Make", "Boca"} {
			it.Handle(ctx, sess, in)
		}
		require.Equal(t, StepAwaitingExpiry, sess.Step)
		reply := it.Handle(ctx, sess, none)
		assert.Equal(t, StepIdle, sess.Step)
		assert.Contains(t, reply, "adicionado")
	}
	rows, err := ledger.GetAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	for _, p := range rows {
		assert.Nil(t, p.ExpiryDate)
		assert.Equal(t, 0, p.Quantity)
	}
}

func TestAmbiguousCategoryReprompts(t *testing.T) {
	ctx := context.Background()
	it := NewInterpreter(newTestLedger(t), 0)
	sess := NewSession("admin")
	for _, in := range []string{"adicionar produto", "Kit", "10", "1"} {
		it.Handle(ctx, sess, in)
	}
	reply := it.Handle(ctx, sess, "ou")
	assert.Equal(t, StepAwaitingBrand, sess.Step)
	assert.Contains(t, reply, "Outra")
	assert.Contains(t, reply, "Oui-Original-Unique-Individuel")
}

func TestCancelFromAnyState(t *testing.T) {
	ctx := context.Background()
	it := NewInterpreter(newTestLedger(t), 0)
	sess := NewSession("admin")
	for _, in := range []string{"adicionar produto", "Kit", "10"} {
		it.Handle(ctx, sess, in)
	}
	require.Equal(t, StepAwaitingQty, sess.Step)
	it.Handle(ctx, sess, "Cancelar")
	assert.Equal(t, StepIdle, sess.Step)
	assert.Equal(t, PendingProduct{}, sess.Pending)

	it.Handle(ctx, sess, "vender")
	require.Equal(t, StepAwaitingSellID, sess.Step)
	it.Handle(ctx, sess, "cancel")
	assert.Equal(t, StepIdle, sess.Step)
}

func TestSellFlows(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	id, err := ledger.AddProduct(ctx, stock.ProductFields{Name: "Perfume X", Price: 59.9, Quantity: 3, Brand: "Natura"})
	require.NoError(t, err)
	it := NewInterpreter(ledger, 0)
	sess := NewSession("admin")

	reply := it.Handle(ctx, sess, fmt.Sprintf("vender %d", id))
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "Restam 2")

	it.Handle(ctx, sess, "vender")
	assert.Equal(t, StepAwaitingSellID, sess.Step)
	reply = it.Handle(ctx, sess, "abc")
	assert.Equal(t, StepAwaitingSellID, sess.Step)
	assert.Contains(t, reply, "ID inválido")
	reply = it.Handle(ctx, sess, fmt.Sprintf("%d 2", id))
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "esgotado")

	reply = it.Handle(ctx, sess, fmt.Sprintf("vender %d", id))
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "Estoque insuficiente")

	reply = it.Handle(ctx, sess, "vender 999")
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "não encontrado")

	reply = it.Handle(ctx, sess, "vender xyz")
	assert.Equal(t, StepAwaitingSellID, sess.Step)
	assert.Contains(t, reply, "ID inválido")

	p, err := ledger.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Quantity)
}

func TestLedgerFailuresResetToIdle(t *testing.T) {
	ctx := context.Background()
	ledger := &failingLedger{
		addErr:  &domain.IOError{Op: "add product", Err: errors.New("database is locked")},
		sellErr: &domain.IOError{Op: "sell product", Err: errors.New("database is locked")},
	}
	it := NewInterpreter(ledger, 0)
	sess := NewSession("admin")
	for _, in := range []string{"adicionar produto", "Kit", "10", "1", "Avon", "Make", "Boca"} {
		it.Handle(ctx, sess, in)
	}
	reply := it.Handle(ctx, sess, "não")
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "Erro ao salvar")

	reply = it.Handle(ctx, sess, "vender 1")
	assert.Equal(t, StepIdle, sess.Step)
	assert.Contains(t, reply, "Erro na venda")
}

func TestStockListing(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	for i := 0; i < 12; i++ {
		_, err := ledger.AddProduct(ctx, stock.ProductFields{Name: fmt.Sprintf("Item %02d", i), Price: 1, Quantity: 1, Brand: "Avon"})
		require.NoError(t, err)
	}
	zeroID, err := ledger.AddProduct(ctx, stock.ProductFields{Name: "Kaiak", Price: 99, Quantity: 0, Brand: "Natura"})
	require.NoError(t, err)
	it := NewInterpreter(ledger, 0)
	sess := NewSession("admin")

	reply := it.Handle(ctx, sess, "estoque")
	assert.Contains(t, reply, "Estoque (12 itens)")
	assert.Contains(t, reply, "...e mais 2 itens.")
	assert.NotContains(t, reply, "Kaiak")
	assert.Equal(t, 10, strings.Count(reply, "• "))

	reply = it.Handle(ctx, sess, "estoque natura")
	assert.Contains(t, reply, fmt.Sprintf("ID %d Kaiak", zeroID))
	assert.Contains(t, reply, "esgotado")

	reply = it.Handle(ctx, sess, "estoque Jequiti")
	assert.Contains(t, reply, "Nenhum item da marca Jequiti")
	assert.Equal(t, StepIdle, sess.Step)
}

func TestStockListingEmpty(t *testing.T) {
	it := NewInterpreter(&failingLedger{}, 0)
	reply := it.Handle(context.Background(), NewSession("x"), "stock")
	assert.Equal(t, "Estoque vazio no momento.", reply)
}

func TestIdleCommands(t *testing.T) {
	ctx := context.Background()
	it := NewInterpreter(&failingLedger{}, 0)
	sess := NewSession("admin")

	assert.Contains(t, it.Handle(ctx, sess, "ajuda"), "adicionar produto")
	assert.Contains(t, it.Handle(ctx, sess, "help"), "cancelar")
	assert.Contains(t, it.Handle(ctx, sess, ""), "Digite algo")
	assert.Contains(t, it.Handle(ctx, sess, "bom dia"), "Não entendi")
	assert.Equal(t, StepIdle, sess.Step)
}

func TestHistoryCap(t *testing.T) {
	sess := NewSession("admin")
	for i := 0; i < HistoryCap; i++ {
		sess.Append(RoleUser, fmt.Sprint(i))
	}
	assert.Len(t, sess.History, HistoryCap)
	sess.Append(RoleUser, "overflow")
	assert.Len(t, sess.History, HistoryKeep)
	assert.Equal(t, "overflow", sess.History[HistoryKeep-1].Text)
	assert.Equal(t, fmt.Sprint(HistoryCap+1-HistoryKeep), sess.History[0].Text)
}

func TestParsePrice(t *testing.T) {
	for in, want := range map[string]string{
		"59,90":    "59.9",
		"59.90":    "59.9",
		"R$ 45,00": "45",
		"r$10":     "10",
		"1.234,56": "1234.56",
	} {
		d, ok := ParsePrice(in)
		require.True(t, ok, in)
		assert.Equal(t, want, d.String(), in)
	}
	for _, in := range []string{"", "abc", "0", "-3", "0,00"} {
		_, ok := ParsePrice(in)
		assert.False(t, ok, in)
	}
}

func TestParseExpiry(t *testing.T) {
	d, ok := ParseExpiry("05/01/2026")
	require.True(t, ok)
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 5, d.Day())

	d, ok = ParseExpiry("Não")
	assert.True(t, ok)
	assert.Nil(t, d)

	_, ok = ParseExpiry("2026-01-05")
	assert.False(t, ok)
}
