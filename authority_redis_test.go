package goPermit

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisAuthorityGrantVerifyRevoke(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	authority := NewRedisAuthority(rdb, "gp")
	subject := uuid.New()
	ctx := context.Background()

	ok, err := authority.Verify(ctx, subject, "doc.read")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("empty grant set verified a permission")
	}

	if err := authority.Grant(ctx, subject, "doc.read", "doc.write"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	ok, err = authority.Verify(ctx, subject, "doc.read")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("granted permission not verified")
	}

	if err := authority.Revoke(ctx, subject, "doc.read"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	ok, err = authority.Verify(ctx, subject, "doc.read")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("revoked permission still verified")
	}
}

func TestRedisAuthorityWildcard(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	authority := NewRedisAuthority(rdb, "gp")
	subject := uuid.New()
	ctx := context.Background()

	if err := authority.Grant(ctx, subject, PermissionWildcard); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	ok, err := authority.Verify(ctx, subject, "anything.at.all")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("wildcard grant did not cover an arbitrary permission")
	}
}

func TestRedisAuthorityGrants(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	authority := NewRedisAuthority(rdb, "gp")
	subject := uuid.New()
	ctx := context.Background()

	if err := authority.Grant(ctx, subject, "a", "b"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	grants, err := authority.Grants(ctx, subject)
	if err != nil {
		t.Fatalf("Grants failed: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("Grants = %v, want two entries", grants)
	}
}

func TestRedisAuthorityKeyPrefix(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	authority := NewRedisAuthority(rdb, "")
	subject := uuid.New()
	ctx := context.Background()

	if err := authority.Grant(ctx, subject, "doc.read"); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	n, err := rdb.Exists(ctx, "gp:grants:"+subject.String()).Result()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if n != 1 {
		t.Fatal("empty prefix did not fall back to the package default")
	}
}

func TestRedisAuthorityUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	authority := NewRedisAuthority(rdb, "gp")

	_, err := authority.Verify(context.Background(), uuid.New(), "doc.read")
	if !errors.Is(err, ErrAuthorityUnavailable) {
		t.Fatalf("Verify returned %v, want ErrAuthorityUnavailable", err)
	}
}

func TestRedisAuthorityFailureRoutedToOnError(t *testing.T) {
	mr, rdb := newTestRedis(t)

	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logr.Discard()).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	mr.Close()

	var captured error
	execErr := engine.Check(uuid.New()).
		RequirePermission("doc.read").
		OnGranted(func(context.Context) error { return nil }).
		OnDenied(func(context.Context) error { return nil }).
		OnError(func(_ context.Context, e error) error { captured = e; return nil }).
		Execute(context.Background())
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}
	if !errors.Is(captured, ErrAuthorityUnavailable) {
		t.Fatalf("OnError received %v, want ErrAuthorityUnavailable", captured)
	}
}
