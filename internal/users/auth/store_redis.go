// Copyright (c) 2026 Folio. All rights reserved.
// Author: dev@readfolio.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/platform/constants"
)

// RedisRefreshTokenRepository implements RefreshTokenRepository using Redis.
//
// Only the SHA-256 hash of a refresh token is ever stored, so a leaked Redis
// snapshot cannot be replayed against the API. Expiry is delegated to the
// key TTL.
type RedisRefreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository creates a new Redis-backed RefreshTokenRepository.
func NewRefreshTokenRepository(client *redis.Client) *RedisRefreshTokenRepository {
	return &RedisRefreshTokenRepository{client: client}
}

func refreshTokenKey(tokenHash string) string {
	return constants.RedisPrefixRefreshToken + tokenHash
}

/*
Set stores a refresh token hash with its associated userID and TTL.

Parameters:
  - context: context.Context
  - tokenHash: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisRefreshTokenRepository) Set(context context.Context, tokenHash string, userID string, ttl time.Duration) error {
	if err := repository.client.Set(context, refreshTokenKey(tokenHash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_refresh_token_set_failed: %w", err)
	}
	return nil
}

/*
Get retrieves the userID for a given refresh token hash.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisRefreshTokenRepository) Get(context context.Context, tokenHash string) (string, error) {
	userID, err := repository.client.Get(context, refreshTokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Refresh token")
		}
		return "", fmt.Errorf("redis_refresh_token_get_failed: %w", err)
	}
	return userID, nil
}

/*
Delete removes the refresh token hash from Redis.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisRefreshTokenRepository) Delete(context context.Context, tokenHash string) error {
	if err := repository.client.Del(context, refreshTokenKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redis_refresh_token_delete_failed: %w", err)
	}
	return nil
}
