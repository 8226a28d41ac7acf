package inmemdb

import (
	"github.com/trezcool/elimu/core/auth"
)

type authRepository struct {
	db *DB
}

var _ auth.Repository = (*authRepository)(nil)

func NewAuthRepository(db *DB) *authRepository {
	return &authRepository{db: db}
}

func (repo *authRepository) CreateRefreshToken(rt auth.RefreshToken) (auth.RefreshToken, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.refreshTokens[rt.Token] = &rt
	return rt, nil
}

func (repo *authRepository) GetRefreshToken(token string) (auth.RefreshToken, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rt, ok := repo.db.refreshTokens[token]; ok {
		return *rt, nil
	}
	return auth.RefreshToken{}, auth.ErrInvalidToken
}

func (repo *authRepository) DeleteUserRefreshTokens(userID string, keep ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := make(map[string]bool, len(keep))
	for _, token := range keep {
		kept[token] = true
	}
	for token, rt := range repo.db.refreshTokens {
		if rt.UserID == userID && !kept[token] {
			delete(repo.db.refreshTokens, token)
		}
	}
	return nil
}

func (repo *authRepository) DeleteRefreshToken(token string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.refreshTokens, token)
	return nil
}
