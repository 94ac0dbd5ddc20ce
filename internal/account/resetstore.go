package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetKeyPrefix is the Redis key prefix for password reset tokens.
const resetKeyPrefix = "pwreset:"

// resetTokenBytes is the number of random bytes in a reset token.
// 32 bytes = 256 bits of entropy, URL-safe base64 encoded.
const resetTokenBytes = 32

// ResetTokenStore keeps one-time password reset tokens in Redis. Only the
// SHA-256 of a token is stored, keyed with a TTL, so a leaked Redis dump
// cannot be replayed and expiry needs no sweeper.
type ResetTokenStore struct {
	redis *redis.Client
}

// NewResetTokenStore creates a reset token store backed by the given client.
func NewResetTokenStore(rdb *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{redis: rdb}
}

// Save stores tokenHash -> accountID with the store's TTL semantics applied
// by Redis itself.
func (s *ResetTokenStore) Save(ctx context.Context, tokenHash string, accountID int64, ttl time.Duration) error {
	key := resetKeyPrefix + tokenHash
	if err := s.redis.Set(ctx, key, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("storing reset token in redis: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the token, enforcing one-time use.
// Returns (0, false, nil) when the token is unknown or expired.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenHash string) (int64, bool, error) {
	key := resetKeyPrefix + tokenHash

	val, err := s.redis.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading reset token from redis: %w", err)
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decoding reset token value: %w", err)
	}

	return id, true, nil
}

// generateResetToken creates a cryptographically random URL-safe token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashResetToken returns the hex SHA-256 of a plaintext token. The plaintext
// only ever appears in the (mock-delivered) reset link.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
