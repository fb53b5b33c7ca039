package goPermit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// PermissionWildcard, when granted to a subject, makes every Verify call for
// that subject answer true. Intended for root/service accounts and tests.
const PermissionWildcard = "*"

// Authority answers whether a subject holds a named permission. It is the
// only contract through which goPermit consumes a permission-storage backend.
//
// Verify may block, may observe ctx cancellation, and may fail; the Check
// executor classifies those results into the denied/cancelled/error outcomes.
// Implementations must be safe for concurrent use.
type Authority interface {
	Verify(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error)
}

// AuthorityFunc adapts a plain function to the Authority interface.
type AuthorityFunc func(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error)

// Verify calls f.
func (f AuthorityFunc) Verify(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error) {
	return f(ctx, subjectID, permission)
}

// StaticAuthority is an in-memory Authority backed by a mutex-guarded grant
// table. It never fails on its own; Verify returns an error only when ctx is
// already cancelled. Suitable for tests and zero-infrastructure setups.
type StaticAuthority struct {
	mu     sync.RWMutex
	grants map[uuid.UUID]map[string]struct{}
}

// NewStaticAuthority returns an empty StaticAuthority.
func NewStaticAuthority() *StaticAuthority {
	return &StaticAuthority{
		grants: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Grant adds the named permissions to the subject's grant set. Granting an
// already-held permission is a no-op.
func (a *StaticAuthority) Grant(subjectID uuid.UUID, permissions ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	set := a.grants[subjectID]
	if set == nil {
		set = make(map[string]struct{}, len(permissions))
		a.grants[subjectID] = set
	}
	for _, p := range permissions {
		set[p] = struct{}{}
	}
}

// Revoke removes the named permissions from the subject's grant set.
// Revoking a permission the subject does not hold is a no-op.
func (a *StaticAuthority) Revoke(subjectID uuid.UUID, permissions ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	set := a.grants[subjectID]
	if set == nil {
		return
	}
	for _, p := range permissions {
		delete(set, p)
	}
	if len(set) == 0 {
		delete(a.grants, subjectID)
	}
}

// Grants returns the subject's current grant set, sorted.
func (a *StaticAuthority) Grants(subjectID uuid.UUID) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	set := a.grants[subjectID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Verify reports whether the subject holds the permission or the wildcard.
// It honors ctx cancellation before touching the table.
func (a *StaticAuthority) Verify(ctx context.Context, subjectID uuid.UUID, permission string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	set := a.grants[subjectID]
	if set == nil {
		return false, nil
	}
	if _, ok := set[PermissionWildcard]; ok {
		return true, nil
	}
	_, ok := set[permission]
	return ok, nil
}
