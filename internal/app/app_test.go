package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/account"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false
	return &cfg
}

func newTestApp(t *testing.T, cfg *config.AppConfig) *Application {
	t.Helper()
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)
	return a
}

func TestInitSeedsAdmin(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	user, err := a.Accounts().Authenticate(context.Background(), account.DefaultAdminUsername, account.DefaultAdminPassword)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = os.Stat(a.Config().GetDatabasePath())
	assert.NoError(t, err)
}

func TestBackupBeforeOpen(t *testing.T) {
	cfg := testConfig(t)
	first := NewApplication(cfg)
	require.NoError(t, first.Init(cfg))
	file, err := first.Backup()
	require.NoError(t, err)
	assert.Empty(t, file, "no database file exists on first start")
	first.Release()

	second := newTestApp(t, cfg)
	file, err = second.Backup()
	require.NoError(t, err)
	require.NotEmpty(t, file)
	assert.Equal(t, cfg.GetBackupDir(), filepath.Dir(file))

	again, err := second.Backup()
	require.NoError(t, err)
	assert.Equal(t, file, again)
}

func TestBackupSkippedWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Enabled = false
	first := NewApplication(cfg)
	require.NoError(t, first.Init(cfg))
	first.Release()

	second := newTestApp(t, cfg)
	file, err := second.Backup()
	require.NoError(t, err)
	assert.Empty(t, file)
}

func TestAuditSubscriberReceivesEvents(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	var got []stock.Event
	require.NoError(t, a.Subscribe(stock.TopicSold, func(ev stock.Event) { got = append(got, ev) }))

	ctx := context.Background()
	id, err := a.Ledger().AddProduct(ctx, stock.ProductFields{Name: "Kaiak", Price: 99.9, Quantity: 2})
	require.NoError(t, err)
	_, err = a.Ledger().Sell(ctx, id, 1)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ProductID)
}

func TestStockAlert(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx := context.Background()

	text, err := a.StockAlert(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	soon := time.Now().AddDate(0, 0, 5)
	_, err = a.Ledger().AddProduct(ctx, stock.ProductFields{Name: "Malbec", Price: 150, Quantity: 2})
	require.NoError(t, err)
	_, err = a.Ledger().AddProduct(ctx, stock.ProductFields{Name: "Essencial", Price: 80, Quantity: 20, ExpiryDate: &soon})
	require.NoError(t, err)

	text, err = a.StockAlert(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Estoque baixo:")
	assert.Contains(t, text, "Malbec: 2 un.")
	assert.Contains(t, text, "Validade próxima:")
	assert.Contains(t, text, "Essencial")
}

func TestBuildAlertTextExpired(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	past := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	text := buildAlertText(nil, []domain.Product{{ID: 7, Name: "Lily", ExpiryDate: &past}}, now)
	assert.Equal(t, "Validade próxima:\n- [7] Lily: vencido em 01/03/2024\n", text)
	assert.Empty(t, buildAlertText(nil, nil, now))
}

func TestJobsRegistered(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stock.AlertSchedule = "0 0 8 * * *"
	a := newTestApp(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.StartJobs(ctx)
	require.NotNil(t, a.Scheduler())
	assert.Len(t, a.Scheduler().Entries(), 3)
}
