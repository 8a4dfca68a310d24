package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/events"
	"github.com/Skotchmaster/venues/internal/hash"
	"github.com/Skotchmaster/venues/internal/logging"
	"github.com/Skotchmaster/venues/internal/metrics"
	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/internal/repo"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// CompanyIndexer receives company profiles after registration.
type CompanyIndexer interface {
	Put(ctx context.Context, c *models.Company) error
}

// Config holds the lockout policy. Lockout applies to individual accounts
// only; company logins are never locked.
type Config struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Now              func() time.Time
}

type AuthService struct {
	Repo      *repo.GormRepo
	Hasher    *hash.Hasher
	Ledger    *Ledger
	Events    events.Publisher
	Companies CompanyIndexer
	Cfg       Config
}

type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	Principal        domain.Principal
}

// Credentials is a login attempt. An empty Kind means either principal kind
// may match; individuals are tried first.
type Credentials struct {
	Identifier string
	Secret     string
	Kind       domain.Kind
}

type RegisterUser struct {
	Username    string
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

type RegisterCompany struct {
	Name        string
	Email       string
	Password    string
	Category    string
	Description string
	TaxID       string
	PhoneNumber string
}

func New(r *repo.GormRepo, h *hash.Hasher, l *Ledger, cfg Config) *AuthService {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthService{Repo: r, Hasher: h, Ledger: l, Events: events.Nop{}, Cfg: cfg}
}

func (s *AuthService) now() time.Time { return s.Cfg.Now().UTC() }

// Authenticate resolves credentials to a principal. Every credential-stage
// failure comes back as ErrUnauthenticated; the log says which one it was.
func (s *AuthService) Authenticate(ctx context.Context, cred Credentials, ip string) (domain.Principal, error) {
	l := logging.FromContext(ctx).With(zap.String("svc", "auth.authenticate"), zap.String("ip", ip))

	if strings.TrimSpace(cred.Identifier) == "" || cred.Secret == "" {
		return nil, validation("identifier and password are required")
	}

	if cred.Kind != domain.KindCompany {
		user, err := s.Repo.FindUserByLogin(ctx, cred.Identifier)
		switch {
		case err == nil:
			return s.authenticateIndividual(ctx, l, user, cred.Secret, ip)
		case !errors.Is(err, repo.ErrNotFound):
			return nil, err
		}
	}

	if cred.Kind != domain.KindIndividual {
		company, err := s.Repo.FindCompanyByEmail(ctx, cred.Identifier)
		switch {
		case err == nil:
			return s.authenticateCompany(ctx, l, company, cred.Secret, ip)
		case !errors.Is(err, repo.ErrNotFound):
			return nil, err
		}
	}

	l.Info("login_failed", zap.String("reason", "unknown principal"))
	metrics.LoginAttempt("unknown", "not_found")
	return nil, ErrUnauthenticated
}

func (s *AuthService) authenticateIndividual(ctx context.Context, l *zap.Logger, user *models.User, secret, ip string) (domain.Principal, error) {
	l = l.With(zap.String("kind", string(domain.KindIndividual)), zap.Stringer("user_id", user.ID))
	now := s.now()

	if user.IsLockedOut(now) {
		l.Warn("login_failed", zap.String("reason", "locked"), zap.Timep("lockout_end", user.LockoutEnd))
		s.loginFailed(ctx, domain.KindIndividual, user.ID, ip, "locked")
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		l.Info("login_failed", zap.String("reason", "inactive"))
		s.loginFailed(ctx, domain.KindIndividual, user.ID, ip, "inactive")
		return nil, ErrUnauthenticated
	}

	ok, err := s.Hasher.CheckPassword(ctx, user.PasswordHash, secret)
	if err != nil {
		return nil, err
	}
	if !ok {
		updated, err := s.Repo.RecordLoginFailure(ctx, user.ID, s.Cfg.LockoutThreshold, s.Cfg.LockoutDuration, now)
		if err != nil {
			return nil, err
		}
		l.Info("login_failed", zap.String("reason", "bad password"), zap.Int("failed_count", updated.AccessFailedCount))
		s.loginFailed(ctx, domain.KindIndividual, user.ID, ip, "bad_password")
		if updated.IsLockedOut(now) {
			l.Warn("account_locked", zap.Timep("lockout_end", updated.LockoutEnd))
			metrics.Lockout()
			s.publish(ctx, events.Event{
				Type: events.AccountLocked, PrincipalID: user.ID.String(),
				Kind: string(domain.KindIndividual), IP: ip, At: now,
			})
		}
		return nil, ErrUnauthenticated
	}

	if err := s.Repo.RecordLoginSuccess(ctx, user.ID, ip, now); err != nil {
		return nil, err
	}
	user.AccessFailedCount = 0
	user.LockoutEnd = nil
	user.LastLoginAt = &now
	user.LastLoginIP = ip
	return domain.Individual{Account: user}, nil
}

func (s *AuthService) authenticateCompany(ctx context.Context, l *zap.Logger, company *models.Company, secret, ip string) (domain.Principal, error) {
	l = l.With(zap.String("kind", string(domain.KindCompany)), zap.Stringer("company_id", company.ID))

	if !company.IsActive {
		l.Info("login_failed", zap.String("reason", "inactive"))
		s.loginFailed(ctx, domain.KindCompany, company.ID, ip, "inactive")
		return nil, ErrUnauthenticated
	}
	ok, err := s.Hasher.CheckPassword(ctx, company.PasswordHash, secret)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.Info("login_failed", zap.String("reason", "bad password"))
		s.loginFailed(ctx, domain.KindCompany, company.ID, ip, "bad_password")
		return nil, ErrUnauthenticated
	}
	return domain.Company{Account: company}, nil
}

// Login accepts a username or email and matches individuals first, then companies.
func (s *AuthService) Login(ctx context.Context, identifier, secret, ip string) (*AuthResult, error) {
	return s.login(ctx, Credentials{Identifier: identifier, Secret: secret}, ip)
}

func (s *AuthService) CompanyLogin(ctx context.Context, email, secret, ip string) (*AuthResult, error) {
	return s.login(ctx, Credentials{Identifier: email, Secret: secret, Kind: domain.KindCompany}, ip)
}

func (s *AuthService) login(ctx context.Context, cred Credentials, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With(zap.String("svc", "auth.login"))

	p, err := s.Authenticate(ctx, cred, ip)
	if err != nil {
		return nil, err
	}
	pair, err := s.Ledger.Issue(ctx, p, ip)
	if err != nil {
		l.Error("login_error", zap.String("reason", "cannot issue tokens"), zap.Error(err))
		return nil, err
	}

	metrics.LoginAttempt(string(p.Kind()), "success")
	s.publish(ctx, events.Event{
		Type: events.LoginSucceeded, PrincipalID: p.ID().String(),
		Kind: string(p.Kind()), IP: ip, At: pair.IssuedAt,
	})
	l.Info("login_successful", zap.String("kind", string(p.Kind())), zap.Stringer("principal_id", p.ID()))
	return result(pair, p), nil
}

// Register creates an individual account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterUser, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With(zap.String("svc", "auth.register"))

	in.Username = strings.TrimSpace(in.Username)
	in.Email = repo.NormalizeEmail(in.Email)
	switch {
	case in.Username == "":
		return nil, validation("username is required")
	case !validEmail(in.Email):
		return nil, validation("a valid email is required")
	case in.Password == "":
		return nil, validation("password is required")
	case len(in.Password) > hash.MaxSecretBytes:
		return nil, validation("password must be at most 72 bytes")
	}

	if err := s.ensureIdentifiersFree(ctx, in.Username, in.Email); err != nil {
		l.Info("register_error", zap.String("reason", "username or email taken"))
		return nil, err
	}

	pwHash, err := s.hashSecret(ctx, l, in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: pwHash,
		IsActive:     true,
	}

	var pair *tokens.Pair
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		issued, err := s.Ledger.issue(ctx, tx, domain.Individual{Account: user}, ip)
		pair = issued
		return err
	})
	if errors.Is(err, repo.ErrConflict) {
		l.Info("register_error", zap.String("reason", "unique violation"))
		return nil, ErrConflict
	}
	if err != nil {
		l.Error("register_error", zap.Error(err))
		return nil, err
	}

	p := domain.Individual{Account: user}
	metrics.Registration(string(p.Kind()))
	s.publish(ctx, events.Event{
		Type: events.IndividualRegistered, PrincipalID: user.ID.String(),
		Kind: string(p.Kind()), IP: ip, At: pair.IssuedAt,
	})
	l.Info("register_successful", zap.Stringer("user_id", user.ID))
	return result(pair, p), nil
}

// RegisterCompany creates a company account, logs it in and publishes its
// profile to the directory index.
func (s *AuthService) RegisterCompany(ctx context.Context, in RegisterCompany, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With(zap.String("svc", "auth.company_register"))

	in.Name = strings.TrimSpace(in.Name)
	in.Email = repo.NormalizeEmail(in.Email)
	switch {
	case in.Name == "":
		return nil, validation("company name is required")
	case !validEmail(in.Email):
		return nil, validation("a valid email is required")
	case in.Password == "":
		return nil, validation("password is required")
	case len(in.Password) > hash.MaxSecretBytes:
		return nil, validation("password must be at most 72 bytes")
	}

	if err := s.ensureIdentifiersFree(ctx, in.Email); err != nil {
		l.Info("register_error", zap.String("reason", "email taken"))
		return nil, err
	}

	pwHash, err := s.hashSecret(ctx, l, in.Password)
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		IsActive:     true,
		Category:     strings.TrimSpace(in.Category),
		Description:  strings.TrimSpace(in.Description),
		TaxID:        strings.TrimSpace(in.TaxID),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
	}

	var pair *tokens.Pair
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		issued, err := s.Ledger.issue(ctx, tx, domain.Company{Account: company}, ip)
		pair = issued
		return err
	})
	if errors.Is(err, repo.ErrConflict) {
		l.Info("register_error", zap.String("reason", "unique violation"))
		return nil, ErrConflict
	}
	if err != nil {
		l.Error("register_error", zap.Error(err))
		return nil, err
	}

	if s.Companies != nil {
		if err := s.Companies.Put(ctx, company); err != nil {
			l.Warn("company_index_failed", zap.Stringer("company_id", company.ID), zap.Error(err))
		}
	}

	p := domain.Company{Account: company}
	metrics.Registration(string(p.Kind()))
	s.publish(ctx, events.Event{
		Type: events.CompanyRegistered, PrincipalID: company.ID.String(),
		Kind: string(p.Kind()), IP: ip, At: pair.IssuedAt,
	})
	l.Info("register_successful", zap.Stringer("company_id", company.ID))
	return result(pair, p), nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip string) (*AuthResult, error) {
	rot, err := s.Ledger.ValidateAndRotate(ctx, refreshToken, ip)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			metrics.Refresh("rejected")
		default:
			metrics.Refresh("error")
		}
		return nil, err
	}
	metrics.Refresh("rotated")
	s.publish(ctx, events.Event{
		Type: events.TokenRefreshed, PrincipalID: rot.Principal.ID().String(),
		Kind: string(rot.Principal.Kind()), IP: ip, At: rot.Pair.IssuedAt,
	})
	return result(rot.Pair, rot.Principal), nil
}

// LogOut revokes the refresh token. false means there was nothing active to revoke.
func (s *AuthService) LogOut(ctx context.Context, refreshToken, ip string) (bool, error) {
	l := logging.FromContext(ctx).With(zap.String("svc", "auth.logout"))

	owner, ok, err := s.Ledger.Revoke(ctx, refreshToken, ip)
	if err != nil {
		l.Error("logout_failed", zap.String("reason", "cannot revoke refreshToken"), zap.Error(err))
		return false, err
	}
	if ok {
		e := events.Event{Type: events.LoggedOut, IP: ip, At: s.now()}
		if !owner.IsZero() {
			e.PrincipalID = owner.ID().String()
			e.Kind = string(principalKind(owner))
		}
		s.publish(ctx, e)
	}
	l.Info("logout", zap.Bool("revoked", ok), zap.Stringer("owner", owner))
	return ok, nil
}

// Me loads the principal behind an access token's subject and role.
func (s *AuthService) Me(ctx context.Context, subject, role string) (domain.Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	var owner models.OwnerRef
	switch domain.Kind(role) {
	case domain.KindIndividual:
		owner = models.UserOwner(id)
	case domain.KindCompany:
		owner = models.CompanyOwner(id)
	default:
		return nil, ErrUnauthenticated
	}
	p, err := resolve(ctx, s.Repo, owner)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// ReindexCompany pushes the current profile of the company behind subject to
// the directory index.
func (s *AuthService) ReindexCompany(ctx context.Context, subject string) error {
	if s.Companies == nil {
		return ErrNoIndex
	}
	p, err := s.Me(ctx, subject, string(domain.KindCompany))
	if err != nil {
		return err
	}
	company := p.(domain.Company).Account
	if err := s.Companies.Put(ctx, company); err != nil {
		return fmt.Errorf("index company %s: %w", company.ID, err)
	}
	logging.FromContext(ctx).Info("company_reindexed", zap.Stringer("company_id", company.ID))
	return nil
}

func principalKind(o models.OwnerRef) domain.Kind {
	if o.Kind() == models.OwnerCompany {
		return domain.KindCompany
	}
	return domain.KindIndividual
}

// ensureIdentifiersFree rejects a registration whose username or email would
// let a login identifier match more than one account.
func (s *AuthService) ensureIdentifiersFree(ctx context.Context, ids ...string) error {
	taken, err := s.Repo.IdentifierTaken(ctx, ids...)
	if err != nil {
		return err
	}
	if taken {
		return ErrConflict
	}
	return nil
}

func (s *AuthService) hashSecret(ctx context.Context, l *zap.Logger, secret string) (string, error) {
	pwHash, err := s.Hasher.HashPassword(ctx, secret)
	switch {
	case errors.Is(err, hash.ErrSecretTooLong):
		return "", validation("password must be at most 72 bytes")
	case err != nil:
		l.Error("register_error", zap.String("reason", "cannot hash the password"), zap.Error(err))
		return "", err
	}
	return pwHash, nil
}

func (s *AuthService) loginFailed(ctx context.Context, kind domain.Kind, id uuid.UUID, ip, reason string) {
	metrics.LoginAttempt(string(kind), reason)
	s.publish(ctx, events.Event{
		Type: events.LoginFailed, PrincipalID: id.String(),
		Kind: string(kind), IP: ip, Reason: reason, At: s.now(),
	})
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func result(pair *tokens.Pair, p domain.Principal) *AuthResult {
	return &AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Principal:        p,
	}
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
