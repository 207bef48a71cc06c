package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughstock/internal/backup"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/gomail.v2"
)

// ChatIdleTimeout is how long an untouched chat session is kept.
const ChatIdleTimeout = 2 * time.Hour

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 10m", a.SchedExpireChatsTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if a.appConfig.Backup.Enabled && isSqliteType(a.appConfig.Database.Type) {
		_, err = a.sched.AddFunc("@daily", a.SchedPruneBackupsTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	if spec := strings.TrimSpace(a.appConfig.Stock.AlertSchedule); spec != "" {
		_, err = a.sched.AddFunc(spec, a.SchedStockAlertTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedExpireChatsTask drops idle chat sessions.
func (a *Application) SchedExpireChatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if n := a.chats.Expire(ChatIdleTimeout); n > 0 {
		zap.L().Info("expired chat sessions", zap.String("namespace", "chat"), zap.Int("count", n))
	}
}

// SchedPruneBackupsTask keeps only the configured number of snapshots.
func (a *Application) SchedPruneBackupsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	mgr := backup.NewManager(a.appConfig.GetBackupDir(), a.appConfig.Backup.Retention)
	removed, err := mgr.Prune(a.appConfig.GetDatabasePath())
	if err != nil {
		zap.L().Error("prune backups failed", zap.String("namespace", "backup"), zap.Error(err))
		return
	}
	if len(removed) > 0 {
		zap.L().Info("pruned backups", zap.String("namespace", "backup"), zap.Strings("files", removed))
	}
}

// SchedStockAlertTask logs low and expiring stock and mails it when a
// mail relay is configured.
func (a *Application) SchedStockAlertTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	text, err := a.StockAlert(ctx)
	if err != nil {
		zap.L().Error("stock alert failed", zap.String("namespace", "alert"), zap.Error(err))
		return
	}
	if text == "" {
		return
	}
	zap.L().Warn("stock alert", zap.String("namespace", "alert"), zap.String("body", text))
	if a.appConfig.Mail.Enabled {
		if err := a.sendMail("Alerta de estoque", text); err != nil {
			zap.L().Error("send alert mail failed", zap.String("namespace", "alert"), zap.Error(err))
		}
	}
}

// StockAlert collects running-low and expiring products into a plain text
// body. It returns "" when there is nothing to report.
func (a *Application) StockAlert(ctx context.Context) (string, error) {
	var (
		summary  *stock.Summary
		expiring []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.ledger.Summary(gctx, a.appConfig.Stock.LowStockThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		expiring, err = a.ledger.ExpiringWithin(gctx, a.appConfig.Stock.ExpiryDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	return buildAlertText(summary.LowStock, expiring, time.Now()), nil
}

func buildAlertText(low, expiring []domain.Product, now time.Time) string {
	if len(low) == 0 && len(expiring) == 0 {
		return ""
	}
	var sb strings.Builder
	if len(low) > 0 {
		sb.WriteString("Estoque baixo:\n")
		for _, p := range low {
			fmt.Fprintf(&sb, "- [%d] %s: %d un.\n", p.ID, p.Name, p.Quantity)
		}
	}
	if len(expiring) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Validade próxima:\n")
		for _, p := range expiring {
			days := stock.DaysUntil(now, *p.ExpiryDate)
			switch {
			case days < 0:
				fmt.Fprintf(&sb, "- [%d] %s: vencido em %s\n", p.ID, p.Name, p.ExpiryDate.Format("02/01/2006"))
			default:
				fmt.Fprintf(&sb, "- [%d] %s: vence em %d dia(s)\n", p.ID, p.Name, days)
			}
		}
	}
	return sb.String()
}

func (a *Application) sendMail(subject, body string) error {
	cfg := a.appConfig.Mail
	if cfg.Host == "" || cfg.To == "" {
		return errors.New("mail host and recipients are required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", strings.Split(cfg.To, ",")...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd)
	return errors.Wrap(d.DialAndSend(m), "send mail")
}
