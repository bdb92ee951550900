package repository

import (
	"context"
	"time"
)

const revokedTokenPrefix = "revoked_token:"

// TokenCacheRepository backs logout. A revoked token is blacklisted in
// redis for its remaining lifetime; after that the signature expiry
// rejects it anyway.
type TokenCacheRepository interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func NewTokenCacheRepository(r *Repository) TokenCacheRepository {
	return &tokenCacheRepository{Repository: r}
}

type tokenCacheRepository struct {
	*Repository
}

func (r *tokenCacheRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedTokenPrefix+token, 1, ttl).Err()
}

func (r *tokenCacheRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedTokenPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
