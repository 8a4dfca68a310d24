package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/venues/internal/models"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindUserByLogin matches the identifier against email, case insensitively,
// and only then against username.
func (r *GormRepo) FindUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(identifier)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.DB.WithContext(ctx).Where("username = ?", identifier).First(&user).Error
	}
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// IdentifierTaken reports whether any of ids already names an account at
// login: an individual's username or email, or a company email. Case is
// ignored, so "Carol@Example.com" as a username blocks carol@example.com as
// an email and the reverse.
func (r *GormRepo) IdentifierTaken(ctx context.Context, ids ...string) (bool, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if k := NormalizeEmail(id); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return false, nil
	}

	var users int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) IN ? OR email IN ?", keys, keys).
		Count(&users).Error; err != nil {
		return false, err
	}
	if users > 0 {
		return true, nil
	}

	var companies int64
	if err := r.DB.WithContext(ctx).Model(&models.Company{}).
		Where("email IN ?", keys).
		Count(&companies).Error; err != nil {
		return false, err
	}
	return companies > 0, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

// RecordLoginFailure bumps the failure counter under a row lock and starts a
// lockout of lockFor once threshold is reached. A lock that already expired is
// cleared first so the account gets a fresh set of attempts.
func (r *GormRepo) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration, now time.Time) (*models.User, error) {
	var out models.User
	err := r.WithTx(ctx, func(tx *GormRepo) error {
		if err := tx.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&out).Error; err != nil {
			return translate(err)
		}

		if out.LockoutEnd != nil && !out.IsLockedOut(now) {
			out.AccessFailedCount = 0
			out.LockoutEnd = nil
		}
		out.AccessFailedCount++
		if threshold > 0 && out.AccessFailedCount >= threshold && out.LockoutEnd == nil {
			end := now.Add(lockFor)
			out.LockoutEnd = &end
		}

		return tx.DB.Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
			"access_failed_count": out.AccessFailedCount,
			"lockout_end":         out.LockoutEnd,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	return &out, nil
}

func (r *GormRepo) RecordLoginSuccess(ctx context.Context, id uuid.UUID, ip string, now time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"access_failed_count": 0,
		"lockout_end":         nil,
		"last_login_at":       now,
		"last_login_ip":       ip,
	})
	if res.Error != nil {
		return fmt.Errorf("record login success: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active).Error
}
