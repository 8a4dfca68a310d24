package transport

import (
	"time"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/models"
)

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type CompanyLoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string `json:"username" form:"username" validate:"required,max=64"`
	FirstName   string `json:"firstName" form:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" form:"lastName" validate:"max=100"`
	Email       string `json:"email" form:"email" validate:"required,email,max=254"`
	Password    string `json:"password" form:"password" validate:"required,min=8,max=72"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber" validate:"max=32"`
}

type CompanyRegisterRequest struct {
	Name        string `json:"name" form:"name" validate:"required,max=200"`
	Email       string `json:"email" form:"email" validate:"required,email,max=254"`
	Password    string `json:"password" form:"password" validate:"required,min=8,max=72"`
	Category    string `json:"category" form:"category" validate:"max=100"`
	Description string `json:"description" form:"description" validate:"max=2000"`
	TaxID       string `json:"taxId" form:"taxId" validate:"max=32"`
	PhoneNumber string `json:"phoneNumber" form:"phoneNumber" validate:"max=32"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken" validate:"required"`
}

type UserDto struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type CompanyDto struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuthResponse carries exactly one of User and Company; the other is null.
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         *UserDto    `json:"user"`
	Company      *CompanyDto `json:"company"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewUserDto(u *models.User) *UserDto {
	return &UserDto{
		ID:          u.ID.String(),
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func NewCompanyDto(c *models.Company) *CompanyDto {
	return &CompanyDto{
		ID:          c.ID.String(),
		Name:        c.Name,
		Email:       c.Email,
		Category:    c.Category,
		Description: c.Description,
		PhoneNumber: c.PhoneNumber,
		CreatedAt:   c.CreatedAt,
	}
}

func NewAuthResponse(access, refresh string, expiresAt time.Time, p domain.Principal) AuthResponse {
	resp := AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.UTC(),
	}
	switch v := p.(type) {
	case domain.Individual:
		resp.User = NewUserDto(v.Account)
	case domain.Company:
		resp.Company = NewCompanyDto(v.Account)
	}
	return resp
}
