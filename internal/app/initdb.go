package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// checkSuper makes sure the default admin account exists and is usable.
func (a *Application) checkSuper() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.accounts.EnsureAdmin(ctx); err != nil {
		zap.L().Error("failed to ensure default admin account",
			zap.String("namespace", "account"), zap.Error(err))
	}
}

// InitDb drops nothing; it recreates missing tables and reseeds the admin.
func (a *Application) InitDb() error {
	if err := a.MigrateDB(); err != nil {
		return err
	}
	a.checkSuper()
	return nil
}
