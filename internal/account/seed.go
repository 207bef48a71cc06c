package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureAdmin creates the default admin on an empty store and repairs it
// when its hash or role has been blanked out.
func (s *Store) EnsureAdmin(ctx context.Context) error {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", DefaultAdminUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := s.AddUser(ctx, DefaultAdminUsername, DefaultAdminPassword, domain.RoleAdmin)
		if err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
			return err
		}
		if created {
			zap.L().Warn("initialized default admin account, change its password",
				zap.String("username", DefaultAdminUsername))
		}
		return nil
	case err != nil:
		zap.L().Error("failed to query default admin", zap.Error(err))
		return domain.WrapIO("query admin", err)
	}

	resetPassword := strings.TrimSpace(user.PasswordHash) == ""
	// a demoted admin stays demoted while another admin exists
	resetRole := user.Role != domain.RoleAdmin && !s.hasAdmin(ctx)
	if !resetPassword && !resetRole {
		return nil
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hash, err := common.HashPassword(DefaultAdminPassword)
		if err != nil {
			return domain.WrapIO("hash password", err)
		}
		updates["password_hash"] = hash
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair default admin", zap.Error(err))
		return domain.WrapIO("repair admin", err)
	}
	zap.L().Warn("repaired default admin account",
		zap.String("username", DefaultAdminUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole))
	return nil
}

func (s *Store) hasAdmin(ctx context.Context) bool {
	var count int64
	s.db.WithContext(ctx).Model(&domain.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	return count > 0
}
