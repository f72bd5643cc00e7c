package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const (
	codeKeyPrefix     = "vcode:"
	verifiedKeyPrefix = "verified:"
)

// VerificationStore keeps verification codes and verified flags in Redis.
// Codes expire on their own via TTL, so an expired code simply reads as
// missing.
type VerificationStore struct {
	rdb goredis.Cmdable
}

func NewVerificationStore(rdb goredis.Cmdable) *VerificationStore {
	return &VerificationStore{rdb: rdb}
}

var _ domain.VerificationStore = (*VerificationStore)(nil)

func (s *VerificationStore) StoreCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, codeKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

func (s *VerificationStore) GetCode(ctx context.Context, email string) (string, error) {
	code, err := s.rdb.Get(ctx, codeKey(email)).Result()
	if err == goredis.Nil {
		return "", domain.ErrCodeExpired
	}
	if err != nil {
		return "", fmt.Errorf("failed to load verification code: %w", err)
	}
	return code, nil
}

// ConsumeCode deletes the code and sets the verified flag in a single
// pipeline so a code can never be replayed after a successful check.
func (s *VerificationStore) ConsumeCode(ctx context.Context, email string, verifiedTTL time.Duration) error {
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, codeKey(email))
		pipe.Set(ctx, verifiedKey(email), "1", verifiedTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	return nil
}

func (s *VerificationStore) IsVerified(ctx context.Context, email string) (bool, error) {
	_, err := s.rdb.Get(ctx, verifiedKey(email)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check verified status: %w", err)
	}
	return true, nil
}

func (s *VerificationStore) Clear(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, codeKey(email), verifiedKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to clear verification state: %w", err)
	}
	return nil
}

func codeKey(email string) string {
	return codeKeyPrefix + email
}

func verifiedKey(email string) string {
	return verifiedKeyPrefix + email
}
