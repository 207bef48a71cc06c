// Package account stores operator accounts and checks their passwords.
package account

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultAdminUsername = "admin"
	// DefaultAdminPassword is the well known first-login password. Change it
	// after the first login.
	DefaultAdminPassword = "123"
)

// UserInfo is the public view of an account.
type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Store struct {
	db *gorm.DB
	// dummyHash keeps Authenticate doing one hash comparison for unknown users.
	dummyHash string
}

func NewStore(db *gorm.DB) *Store {
	dummy, err := common.HashPassword("toughstock-dummy-password")
	if err != nil {
		panic(err)
	}
	return &Store{db: db, dummyHash: dummy}
}

func validate(username, password, role string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return domain.NewValidationError("username", "must not be empty")
	case password == "":
		return domain.NewValidationError("password", "must not be empty")
	case !domain.ValidRole(role):
		return domain.NewValidationError("role", "must be one of admin, staff, user")
	}
	return nil
}

// AddUser stores a new account. It returns false without error when the
// username is already taken.
func (s *Store) AddUser(ctx context.Context, username, password, role string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validate(username, password, role); err != nil {
		return false, err
	}
	hash, err := common.HashPassword(password)
	if err != nil {
		return false, domain.WrapIO("hash password", err)
	}
	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		err := tx.Create(&domain.User{Username: username, PasswordHash: hash, Role: role}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, domain.WrapIO("add user", err)
	}
	if created {
		zap.L().Info("user created", zap.String("namespace", "account"),
			zap.String("username", username), zap.String("role", role))
	}
	return created, nil
}

// Authenticate returns the user when the password matches, nil otherwise.
// Legacy SHA-256 hashes are upgraded to bcrypt on a successful login.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	found := true
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		found = false
	case err != nil:
		return nil, domain.WrapIO("authenticate", err)
	}

	hash := s.dummyHash
	if found {
		hash = user.PasswordHash
	}
	matched := common.CheckPassword(hash, password)
	if !found || !matched {
		return nil, nil
	}

	if common.IsLegacyHash(user.PasswordHash) {
		s.upgradeHash(ctx, &user, password)
	}
	return &user, nil
}

func (s *Store) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := common.HashPassword(password)
	if err != nil {
		zap.L().Warn("password rehash failed", zap.String("namespace", "account"), zap.Error(err))
		return
	}
	err = s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now()}).Error
	if err != nil {
		zap.L().Warn("password rehash not saved", zap.String("namespace", "account"),
			zap.String("username", user.Username), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	zap.L().Info("legacy password hash upgraded", zap.String("namespace", "account"),
		zap.String("username", user.Username))
}

// ListUsers never returns password hashes.
func (s *Store) ListUsers(ctx context.Context) ([]UserInfo, error) {
	var rows []UserInfo
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Select("username", "role").
		Order("role DESC").Order("username ASC").
		Find(&rows).Error
	if err != nil {
		return nil, domain.WrapIO("list users", err)
	}
	return rows, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapIO("get user", err)
	}
	return &user, nil
}

// UpdateRole refuses to demote the last admin.
func (s *Store) UpdateRole(ctx context.Context, username, role string) error {
	if !domain.ValidRole(role) {
		return domain.NewValidationError("role", "must be one of admin, staff, user")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, username)
		if err != nil {
			return err
		}
		if user.Role == domain.RoleAdmin && role != domain.RoleAdmin {
			if err := ensureOtherAdmin(tx, user.ID); err != nil {
				return err
			}
		}
		return tx.Model(&domain.User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{"role": role, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return domain.WrapIO("update role", err)
	}
	zap.L().Info("user role updated", zap.String("namespace", "account"),
		zap.String("username", username), zap.String("role", role))
	return nil
}

// DeleteUser refuses to remove the last admin.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockedUser(tx, username)
		if err != nil {
			return err
		}
		if user.Role == domain.RoleAdmin {
			if err := ensureOtherAdmin(tx, user.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&domain.User{}, user.ID).Error
	})
	if err != nil {
		return domain.WrapIO("delete user", err)
	}
	zap.L().Info("user deleted", zap.String("namespace", "account"), zap.String("username", username))
	return nil
}

func (s *Store) ChangePassword(ctx context.Context, username, password string) error {
	if password == "" {
		return domain.NewValidationError("password", "must not be empty")
	}
	hash, err := common.HashPassword(password)
	if err != nil {
		return domain.WrapIO("hash password", err)
	}
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now()})
	if res.Error != nil {
		return domain.WrapIO("change password", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("user", username)
	}
	return nil
}

func lockedUser(tx *gorm.DB, username string) (*domain.User, error) {
	var user domain.User
	err := tx.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("user", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureOtherAdmin(tx *gorm.DB, exceptID int64) error {
	var admins int64
	if err := tx.Model(&domain.User{}).Where("role = ? AND id <> ?", domain.RoleAdmin, exceptID).Count(&admins).Error; err != nil {
		return err
	}
	if admins == 0 {
		return domain.NewValidationError("username", "the last admin account cannot be removed or demoted")
	}
	return nil
}
