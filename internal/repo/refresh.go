package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/venues/internal/models"
)

func (r *GormRepo) CreateRefresh(ctx context.Context, t *models.RefreshToken) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *GormRepo) FindRefresh(ctx context.Context, digest string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", digest).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// LockRefresh is FindRefresh with SELECT ... FOR UPDATE. Only meaningful
// inside WithTx; dialects without row locks ignore the clause.
func (r *GormRepo) LockRefresh(ctx context.Context, digest string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", digest).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// RevokeRefresh flips revoked only if the row is still unrevoked and reports
// whether this call was the one that did it.
func (r *GormRepo) RevokeRefresh(ctx context.Context, id uuid.UUID, ip string, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]any{
			"revoked":       true,
			"revoked_at":    now,
			"revoked_by_ip": ip,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) SetReplacedBy(ctx context.Context, id uuid.UUID, digest string) error {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Update("replaced_by_token", digest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) CountRefreshByOwner(ctx context.Context, owner models.OwnerRef) (int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.RefreshToken{})
	switch owner.Kind() {
	case models.OwnerUser:
		q = q.Where("user_id = ?", owner.ID())
	case models.OwnerCompany:
		q = q.Where("company_id = ?", owner.ID())
	default:
		return 0, models.ErrCorruptOwner
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
