package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"support-chat/domain"
	"support-chat/errors"

	"github.com/stretchr/testify/require"
)

// directory is an in-memory UserDirectory.
type directory map[string]domain.Identity

func (d directory) GetIdentity(_ context.Context, id string) (domain.Identity, error) {
	identity, ok := d[id]
	if !ok {
		return domain.Identity{}, errors.ErrUserNotFound
	}
	return identity, nil
}

func TestVerifier_Verify(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	tokens := NewTokenManager("test-secret", time.Hour)

	users := directory{
		"u1": {ID: "u1", Name: "Alice", Role: domain.RoleRequester, Active: true},
		"u2": {ID: "u2", Name: "Bruno", Role: domain.RoleCounterpart, Active: false},
	}
	verifier := NewVerifier(log, tokens, users)

	// Missing credential
	_, err := verifier.Verify(ctx, "")
	req.ErrorIs(err, errors.ErrAuthMissing)

	// Malformed credential
	_, err = verifier.Verify(ctx, "garbage")
	req.ErrorIs(err, errors.ErrAuthInvalid)

	// Valid token for an unknown user
	token, err := tokens.Generate("ghost", domain.RoleRequester)
	req.NoError(err)
	_, err = verifier.Verify(ctx, token)
	req.ErrorIs(err, errors.ErrAuthInvalid)

	// Valid token for a deactivated user
	token, err = tokens.Generate("u2", domain.RoleCounterpart)
	req.NoError(err)
	_, err = verifier.Verify(ctx, token)
	req.ErrorIs(err, errors.ErrAuthInvalid)

	// Valid token for an active user
	token, err = tokens.Generate("u1", domain.RoleRequester)
	req.NoError(err)
	identity, err := verifier.Verify(ctx, token)
	req.NoError(err)
	req.Equal("u1", identity.ID)
	req.Equal("Alice", identity.Name)
}

func TestPassword_HashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3rS3cret!")
	req.NoError(err)
	req.NotEqual("Sup3rS3cret!", hash)

	ok, err := ComparePassword("Sup3rS3cret!", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(ok)
}
