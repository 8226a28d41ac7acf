// Package auth persists refresh-token records and enforces the session policy:
// a user has at most one live refresh token (issuing a new one drops the rest),
// and a token stays valid until its natural expiry.
package auth

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrInvalidToken = errors.New("invalid or expired refresh token")
)

type (
	RefreshToken struct {
		Token     string    `json:"-"`
		UserID    string    `json:"-"`
		ExpiresAt time.Time `json:"-"` // UTC
		CreatedAt time.Time `json:"-"` // UTC
	}

	Repository interface {
		CreateRefreshToken(rt RefreshToken) (RefreshToken, error)
		GetRefreshToken(token string) (RefreshToken, error)
		// DeleteUserRefreshTokens deletes all of the user's tokens except keep (if any).
		DeleteUserRefreshTokens(userID string, keep ...string) error
		DeleteRefreshToken(token string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// cleanToken strips the stray newlines some clients send back in token bodies.
func cleanToken(token string) string {
	return strings.TrimSpace(strings.ReplaceAll(token, "\n", ""))
}

// Save records a freshly issued refresh token and revokes the user's other sessions.
func (svc *Service) Save(token, userID string) (RefreshToken, error) {
	token = cleanToken(token)
	if err := svc.repo.DeleteUserRefreshTokens(userID); err != nil {
		return RefreshToken{}, errors.Wrap(err, "revoking previous sessions")
	}
	now := NowFunc().UTC()
	rt := RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(core.Conf.Server.JWTRefreshExpirationDelta),
		CreatedAt: now,
	}
	return svc.repo.CreateRefreshToken(rt)
}

// Validate resolves a refresh token to its owner's user ID.
// Expired tokens are deleted on sight; the token is otherwise left in place so it
// can be reused until its natural expiry.
func (svc *Service) Validate(token string) (string, error) {
	token = cleanToken(token)
	rt, err := svc.repo.GetRefreshToken(token)
	if err != nil {
		if errors.Cause(err) == ErrInvalidToken {
			return "", ErrInvalidToken
		}
		return "", errors.Wrap(err, "finding refresh token")
	}
	if NowFunc().UTC().After(rt.ExpiresAt) {
		if err = svc.repo.DeleteRefreshToken(token); err != nil {
			return "", errors.Wrap(err, "deleting expired refresh token")
		}
		return "", ErrInvalidToken
	}
	return rt.UserID, nil
}
