package auth

import (
	"context"
	"fmt"
	"log/slog"

	"support-chat/domain"
	"support-chat/errors"
)

// UserDirectory resolves a user id into the identity projection used by the
// real-time core. Backed by the user repository in production.
type UserDirectory interface {
	GetIdentity(ctx context.Context, id string) (domain.Identity, error)
}

// Verifier implements contract.IdentityVerifier on top of the token manager
// and the user directory. The handshake is rejected with ErrAuthMissing when
// no credential is present at all, and with ErrAuthInvalid for anything that
// does not resolve to an active identity.
type Verifier struct {
	log    *slog.Logger
	tokens *TokenManager
	users  UserDirectory
}

func NewVerifier(log *slog.Logger, tokens *TokenManager, users UserDirectory) *Verifier {
	return &Verifier{log: log, tokens: tokens, users: users}
}

func (v *Verifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, errors.ErrAuthMissing
	}

	claims, err := v.tokens.Validate(credential)
	if err != nil {
		v.log.Debug("token validation failed", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthInvalid, err)
	}

	identity, err := v.users.GetIdentity(ctx, claims.UserID)
	if err != nil {
		v.log.Debug("unknown identity in token", "user_id", claims.UserID)
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthInvalid, err)
	}
	if !identity.Active {
		return domain.Identity{}, fmt.Errorf("%w: identity deactivated", errors.ErrAuthInvalid)
	}
	return identity, nil
}
