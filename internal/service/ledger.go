package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/logging"
	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/internal/repo"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

// Ledger owns the refresh token state machine: Active -> Revoked, or
// Active -> Expired by the clock. Rows are never deleted or reactivated.
type Ledger struct {
	Repo   *repo.GormRepo
	Issuer *tokens.Issuer
	Now    func() time.Time
}

type Rotation struct {
	Pair      *tokens.Pair
	Principal domain.Principal
	Previous  *models.RefreshToken
}

func NewLedger(r *repo.GormRepo, issuer *tokens.Issuer, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{Repo: r, Issuer: issuer, Now: now}
}

// Issue mints a pair for p and records the refresh half.
func (l *Ledger) Issue(ctx context.Context, p domain.Principal, ip string) (*tokens.Pair, error) {
	return l.issue(ctx, l.Repo, p, ip)
}

func (l *Ledger) issue(ctx context.Context, r *repo.GormRepo, p domain.Principal, ip string) (*tokens.Pair, error) {
	pair, err := l.Issuer.Issue(domain.TokenSubject(p))
	if err != nil {
		return nil, err
	}
	rec := &models.RefreshToken{
		Token:       tokens.Digest(pair.RefreshToken),
		JWTID:       pair.JWTID,
		CreatedAt:   pair.IssuedAt,
		CreatedByIP: ip,
		ExpiresAt:   pair.RefreshExpiresAt,
	}
	if err := rec.SetOwner(p.Owner()); err != nil {
		return nil, err
	}
	if err := r.CreateRefresh(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// ValidateAndRotate spends value and returns its successor. The lookup, the
// revocation, the new row and the replaced_by link commit together or not at
// all. Of two concurrent calls with the same value at most one succeeds.
func (l *Ledger) ValidateAndRotate(ctx context.Context, value, ip string) (*Rotation, error) {
	log := logging.FromContext(ctx).With(
		zap.String("svc", "ledger.rotate"),
		zap.String("token_prefix", tokens.Prefix(value)),
	)
	if value == "" {
		return nil, ErrInvalidToken
	}

	now := l.Now().UTC()
	digest := tokens.Digest(value)

	var out *Rotation
	err := l.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		old, err := tx.LockRefresh(ctx, digest)
		if errors.Is(err, repo.ErrNotFound) {
			log.Info("refresh_rejected", zap.String("reason", "not found"))
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if !old.IsActive(now) {
			log.Info("refresh_rejected",
				zap.String("reason", "inactive"),
				zap.Stringer("token_id", old.ID),
				zap.Bool("revoked", old.Revoked),
				zap.Bool("expired", old.IsExpired(now)),
			)
			return ErrInvalidToken
		}

		revoked, err := tx.RevokeRefresh(ctx, old.ID, ip, now)
		if err != nil {
			return err
		}
		if !revoked {
			log.Warn("refresh_rejected", zap.String("reason", "lost rotation race"), zap.Stringer("token_id", old.ID))
			return ErrInvalidToken
		}

		owner, err := old.Owner()
		if err != nil {
			log.Error("refresh_corrupt", zap.Stringer("token_id", old.ID), zap.Error(err))
			return ErrCorruptToken
		}
		p, err := resolve(ctx, tx, owner)
		if errors.Is(err, repo.ErrNotFound) {
			log.Error("refresh_corrupt", zap.Stringer("token_id", old.ID), zap.Stringer("owner", owner))
			return ErrCorruptToken
		}
		if err != nil {
			return err
		}
		if !p.Active() {
			log.Info("refresh_rejected", zap.String("reason", "owner inactive"), zap.Stringer("owner", owner))
			return ErrInvalidToken
		}

		pair, err := l.issue(ctx, tx, p, ip)
		if err != nil {
			return err
		}
		if err := tx.SetReplacedBy(ctx, old.ID, tokens.Digest(pair.RefreshToken)); err != nil {
			return err
		}

		old.Revoked = true
		old.RevokedAt = &now
		old.RevokedByIP = ip
		old.ReplacedByToken = tokens.Digest(pair.RefreshToken)
		out = &Rotation{Pair: pair, Principal: p, Previous: old}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("refresh_rotated", zap.Stringer("owner", out.Principal.Owner()), zap.String("jti", out.Pair.JWTID))
	return out, nil
}

// Revoke retires value if it is still active and reports whose it was. false
// means it was unknown, already revoked or expired; callers cannot tell which.
// A row with a corrupt owner is still revoked and comes back with a zero owner.
func (l *Ledger) Revoke(ctx context.Context, value, ip string) (models.OwnerRef, bool, error) {
	if value == "" {
		return models.OwnerRef{}, false, nil
	}
	now := l.Now().UTC()

	tok, err := l.Repo.FindRefresh(ctx, tokens.Digest(value))
	if errors.Is(err, repo.ErrNotFound) {
		return models.OwnerRef{}, false, nil
	}
	if err != nil {
		return models.OwnerRef{}, false, err
	}
	if !tok.IsActive(now) {
		return models.OwnerRef{}, false, nil
	}
	ok, err := l.Repo.RevokeRefresh(ctx, tok.ID, ip, now)
	if err != nil || !ok {
		return models.OwnerRef{}, false, err
	}
	owner, _ := tok.Owner()
	return owner, true, nil
}

func resolve(ctx context.Context, r *repo.GormRepo, owner models.OwnerRef) (domain.Principal, error) {
	switch owner.Kind() {
	case models.OwnerUser:
		u, err := r.GetUserByID(ctx, owner.ID())
		if err != nil {
			return nil, err
		}
		return domain.Individual{Account: u}, nil
	case models.OwnerCompany:
		c, err := r.GetCompanyByID(ctx, owner.ID())
		if err != nil {
			return nil, err
		}
		return domain.Company{Account: c}, nil
	default:
		return nil, models.ErrCorruptOwner
	}
}
