package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/auth"
)

type refreshTokenRow struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type authRepository struct {
	db *sqlx.DB
}

var _ auth.Repository = (*authRepository)(nil) // interface compliance check

func NewAuthRepository(db *sqlx.DB) *authRepository {
	return &authRepository{db: db}
}

func (repo authRepository) CreateRefreshToken(rt auth.RefreshToken) (auth.RefreshToken, error) {
	_, err := repo.db.NamedExec(
		`INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		 VALUES (:token, :user_id, :expires_at, :created_at)`,
		refreshTokenRow(rt))
	if err != nil {
		return auth.RefreshToken{}, errors.Wrap(err, "inserting refresh token")
	}
	return rt, nil
}

func (repo authRepository) GetRefreshToken(token string) (auth.RefreshToken, error) {
	var row refreshTokenRow
	if err := repo.db.Get(&row, "SELECT * FROM refresh_tokens WHERE token = $1", token); err != nil {
		if err == sql.ErrNoRows {
			return auth.RefreshToken{}, auth.ErrInvalidToken
		}
		return auth.RefreshToken{}, errors.Wrap(err, "getting refresh token")
	}
	return auth.RefreshToken(row), nil
}

func (repo authRepository) DeleteUserRefreshTokens(userID string, keep ...string) error {
	query := "DELETE FROM refresh_tokens WHERE user_id = ?"
	args := []interface{}{userID}
	if len(keep) > 0 {
		q, inArgs, err := sqlx.In(" AND token NOT IN (?)", keep)
		if err != nil {
			return errors.Wrap(err, "building token exclusion")
		}
		query += q
		args = append(args, inArgs...)
	}
	if _, err := repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting user refresh tokens")
	}
	return nil
}

func (repo authRepository) DeleteRefreshToken(token string) error {
	if _, err := repo.db.Exec("DELETE FROM refresh_tokens WHERE token = $1", token); err != nil {
		return errors.Wrap(err, "deleting refresh token")
	}
	return nil
}
