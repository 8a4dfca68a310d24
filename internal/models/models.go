package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"        json:"id"`
	Username          string     `gorm:"uniqueIndex;not null"        json:"username"`
	FirstName         string     `gorm:"not null"                    json:"firstName"`
	LastName          string     `gorm:"not null"                    json:"lastName"`
	Email             string     `gorm:"uniqueIndex;not null"        json:"email"`
	PhoneNumber       string     `                                   json:"phoneNumber"`
	PasswordHash      string     `gorm:"not null"                    json:"-"`
	IsActive          bool       `gorm:"not null"                    json:"isActive"`
	AccessFailedCount int        `gorm:"not null;default:0"          json:"-"`
	LockoutEnd        *time.Time `                                   json:"-"`
	LastLoginAt       *time.Time `                                   json:"lastLoginAt"`
	LastLoginIP       string     `                                   json:"-"`
	CreatedAt         time.Time  `                                   json:"createdAt"`
	UpdatedAt         time.Time  `                                   json:"updatedAt"`
}

// IsLockedOut reports whether the lock set by repeated failures is still in force at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

type Company struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name         string    `gorm:"not null"              json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	IsActive     bool      `gorm:"not null"              json:"isActive"`
	Category     string    `                             json:"category"`
	Description  string    `                             json:"description"`
	TaxID        string    `                             json:"-"`
	PhoneNumber  string    `                             json:"phoneNumber"`
	CreatedAt    time.Time `                             json:"createdAt"`
	UpdatedAt    time.Time `                             json:"updatedAt"`
}

// RefreshToken is a ledger row. Token holds the SHA-256 digest of the value
// handed to the client, never the value itself.
type RefreshToken struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"  json:"id"`
	Token           string     `gorm:"uniqueIndex;not null"  json:"-"`
	JWTID           string     `gorm:"index;not null"        json:"jwtId"`
	UserID          *uuid.UUID `gorm:"type:uuid;index"       json:"userId"`
	CompanyID       *uuid.UUID `gorm:"type:uuid;index"       json:"companyId"`
	CreatedAt       time.Time  `gorm:"not null"              json:"createdAt"`
	CreatedByIP     string     `                             json:"createdByIp"`
	ExpiresAt       time.Time  `gorm:"not null"              json:"expiresAt"`
	Revoked         bool       `gorm:"not null;default:false" json:"revoked"`
	RevokedAt       *time.Time `                             json:"revokedAt"`
	RevokedByIP     string     `                             json:"revokedByIp"`
	ReplacedByToken string     `                             json:"-"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive is the only derived state of a ledger row: not revoked and not expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// All lists the models the auth schema is built from.
func All() []any {
	return []any{&User{}, &Company{}, &RefreshToken{}}
}
