package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/venues/internal/models"
)

func (r *GormRepo) FindCompanyByEmail(ctx context.Context, email string) (*models.Company, error) {
	var company models.Company
	if err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&company).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

func (r *GormRepo) GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

func (r *GormRepo) CreateCompany(ctx context.Context, c *models.Company) error {
	c.Email = NormalizeEmail(c.Email)
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return translate(err)
	}
	return nil
}
