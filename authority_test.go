package goPermit

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestStaticAuthorityGrantRevoke(t *testing.T) {
	authority := NewStaticAuthority()
	subject := uuid.New()
	ctx := context.Background()

	ok, err := authority.Verify(ctx, subject, "doc.read")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("fresh authority granted a permission")
	}

	authority.Grant(subject, "doc.read", "doc.write")
	ok, err = authority.Verify(ctx, subject, "doc.write")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("granted permission not verified")
	}

	authority.Revoke(subject, "doc.write")
	ok, err = authority.Verify(ctx, subject, "doc.write")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("revoked permission still verified")
	}
}

func TestStaticAuthorityWildcard(t *testing.T) {
	authority := NewStaticAuthority()
	subject := uuid.New()
	authority.Grant(subject, PermissionWildcard)

	ok, err := authority.Verify(context.Background(), subject, "anything.at.all")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("wildcard grant did not cover an arbitrary permission")
	}
}

func TestStaticAuthorityGrantsSorted(t *testing.T) {
	authority := NewStaticAuthority()
	subject := uuid.New()
	authority.Grant(subject, "c", "a", "b")

	got := authority.Grants(subject)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Grants = %v, want %v", got, want)
	}

	if grants := authority.Grants(uuid.New()); grants != nil {
		t.Fatalf("Grants for unknown subject = %v, want nil", grants)
	}
}

func TestStaticAuthorityHonorsCancelledContext(t *testing.T) {
	authority := NewStaticAuthority()
	subject := uuid.New()
	authority.Grant(subject, "doc.read")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := authority.Verify(ctx, subject, "doc.read")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Verify returned %v, want context.Canceled", err)
	}
	if ok {
		t.Fatal("cancelled Verify reported a grant")
	}
}

func TestAuthorityFuncAdapter(t *testing.T) {
	var seen string
	authority := AuthorityFunc(func(_ context.Context, _ uuid.UUID, permission string) (bool, error) {
		seen = permission
		return true, nil
	})

	ok, err := authority.Verify(context.Background(), uuid.New(), "doc.read")
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}
	if seen != "doc.read" {
		t.Fatalf("adapter forwarded permission %q", seen)
	}
}
