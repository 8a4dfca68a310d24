package models

import (
	"errors"

	"github.com/google/uuid"
)

var ErrCorruptOwner = errors.New("refresh token must reference exactly one owner")

type OwnerKind int

const (
	OwnerUser OwnerKind = iota + 1
	OwnerCompany
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerUser:
		return "user"
	case OwnerCompany:
		return "company"
	default:
		return "unknown"
	}
}

// OwnerRef names the principal a refresh token belongs to. The zero value is
// not a valid owner; build one with UserOwner or CompanyOwner.
type OwnerRef struct {
	kind OwnerKind
	id   uuid.UUID
}

func UserOwner(id uuid.UUID) OwnerRef    { return OwnerRef{kind: OwnerUser, id: id} }
func CompanyOwner(id uuid.UUID) OwnerRef { return OwnerRef{kind: OwnerCompany, id: id} }

func (o OwnerRef) Kind() OwnerKind { return o.kind }
func (o OwnerRef) ID() uuid.UUID   { return o.id }
func (o OwnerRef) IsZero() bool    { return o.kind == 0 || o.id == uuid.Nil }

func (o OwnerRef) String() string {
	return o.kind.String() + ":" + o.id.String()
}

// SetOwner writes o into exactly one of the owner columns and clears the other.
func (t *RefreshToken) SetOwner(o OwnerRef) error {
	if o.IsZero() {
		return ErrCorruptOwner
	}
	id := o.id
	switch o.kind {
	case OwnerUser:
		t.UserID, t.CompanyID = &id, nil
	case OwnerCompany:
		t.UserID, t.CompanyID = nil, &id
	}
	return nil
}

// Owner reads the owner columns back. A row with neither or both set is corrupt.
func (t *RefreshToken) Owner() (OwnerRef, error) {
	hasUser := t.UserID != nil && *t.UserID != uuid.Nil
	hasCompany := t.CompanyID != nil && *t.CompanyID != uuid.Nil
	switch {
	case hasUser && !hasCompany:
		return UserOwner(*t.UserID), nil
	case hasCompany && !hasUser:
		return CompanyOwner(*t.CompanyID), nil
	default:
		return OwnerRef{}, ErrCorruptOwner
	}
}
