package domain

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

type Kind string

const (
	KindIndividual Kind = "individual"
	KindCompany    Kind = "company"
)

// Principal is an authenticated identity. Only Individual and Company implement it.
type Principal interface {
	Kind() Kind
	ID() uuid.UUID
	Email() string
	Active() bool
	Owner() models.OwnerRef
	principal()
}

type Individual struct {
	Account *models.User
}

func (i Individual) Kind() Kind              { return KindIndividual }
func (i Individual) ID() uuid.UUID           { return i.Account.ID }
func (i Individual) Email() string           { return i.Account.Email }
func (i Individual) Active() bool            { return i.Account.IsActive }
func (i Individual) Owner() models.OwnerRef  { return models.UserOwner(i.Account.ID) }
func (Individual) principal() {}

type Company struct {
	Account *models.Company
}

func (c Company) Kind() Kind             { return KindCompany }
func (c Company) ID() uuid.UUID          { return c.Account.ID }
func (c Company) Email() string          { return c.Account.Email }
func (c Company) Active() bool           { return c.Account.IsActive }
func (c Company) Owner() models.OwnerRef { return models.CompanyOwner(c.Account.ID) }
func (Company) principal() {}

// Scopes is the static scope list carried by access tokens of kind k.
func Scopes(k Kind) []string {
	switch k {
	case KindCompany:
		return []string{"read", "write", "manage"}
	default:
		return []string{"read", "write"}
	}
}

// TokenSubject flattens p into the claims its access tokens carry.
func TokenSubject(p Principal) tokens.Subject {
	sub := tokens.Subject{
		ID:    p.ID(),
		Role:  string(p.Kind()),
		Email: p.Email(),
		Scope: Scopes(p.Kind()),
	}
	switch v := p.(type) {
	case Individual:
		sub.Username = v.Account.Username
		sub.GivenName = v.Account.FirstName
		sub.FamilyName = v.Account.LastName
	case Company:
		sub.CompanyName = v.Account.Name
		sub.CompanyCategory = v.Account.Category
	}
	return sub
}
