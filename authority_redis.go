package goPermit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gp"

// RedisAuthority is an Authority backed by Redis sets: each subject owns one
// set of granted permission names under "<prefix>:grants:<subject-uuid>".
//
// RedisAuthority holds no local state beyond the client and prefix, so grants
// take effect across processes immediately. Transport failures surface as
// errors wrapping ErrAuthorityUnavailable.
type RedisAuthority struct {
	redis  *redis.Client
	prefix string
}

// NewRedisAuthority wraps client. An empty prefix falls back to the package
// default; the prefix must match across every process sharing the grant data.
func NewRedisAuthority(client *redis.Client, prefix string) *RedisAuthority {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisAuthority{
		redis:  client,
		prefix: prefix,
	}
}

func (a *RedisAuthority) key(subjectID uuid.UUID) string {
	return a.prefix + ":grants:" + subjectID.String()
}

// Grant adds the named permissions to the subject's grant set.
func (a *RedisAuthority) Grant(ctx context.Context, subjectID uuid.UUID, permissions ...string) error {
	if len(permissions) == 0 {
		return nil
	}
	members := make([]interface{}, len(permissions))
	for i, p := range permissions {
		members[i] = p
	}
	if err := a.redis.SAdd(ctx, a.key(subjectID), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return nil
}

// Revoke removes the named permissions from the subject's grant set.
func (a *RedisAuthority) Revoke(ctx context.Context, subjectID uuid.UUID, permissions ...string) error {
	if len(permissions) == 0 {
		return nil
	}
	members := make([]interface{}, len(permissions))
	for i, p := range permissions {
		members[i] = p
	}
	if err := a.redis.SRem(ctx, a.key(subjectID), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return nil
}

// Grants returns the subject's current grant set. Order is unspecified.
func (a *RedisAuthority) Grants(ctx context.Context, subjectID uuid.UUID) ([]string, error) {
	members, err := a.redis.SMembers(ctx, a.key(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return members, nil
}

// Verify reports whether the subject holds the permission or the wildcard.
func (a *RedisAuthority) Verify(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error) {
	key := a.key(subjectID)

	held, err := a.redis.SIsMember(ctx, key, permission).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	if held {
		return true, nil
	}

	wildcard, err := a.redis.SIsMember(ctx, key, PermissionWildcard).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return wildcard, nil
}
