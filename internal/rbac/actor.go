package rbac

import (
	"context"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Actor resolves policy capability checks against a granted permission set.
// Module read maps to "<module>.view" and write to "<module>.edit".
type Actor struct {
	UserID int64
	perms  map[string]struct{}
	admin  bool
}

// NewActor builds an Actor from the user's effective permissions.
func NewActor(userID int64, permissions []string, admin bool) Actor {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Actor{UserID: userID, perms: set, admin: admin}
}

func (a Actor) has(perm string) bool {
	if a.admin {
		return true
	}
	if _, ok := a.perms[perm]; ok {
		return true
	}
	_, ok := a.perms[shared.PermAdmin]
	return ok
}

// CanRead reports whether the actor may view the module.
func (a Actor) CanRead(module string) bool {
	return a.has(module + ".view")
}

// CanWrite reports whether the actor may mutate the module.
func (a Actor) CanWrite(module string) bool {
	return a.has(module + ".edit")
}

// UserIdentifier exposes the backing user ID for audit trails.
func (a Actor) UserIdentifier() int64 {
	return a.UserID
}

// IsAdmin reports whether the actor holds the superuser flag or the
// admin override permission.
func (a Actor) IsAdmin() bool {
	if a.admin {
		return true
	}
	_, ok := a.perms[shared.PermAdmin]
	return ok
}

// ResolveActor loads the effective permission set and superuser flag for
// the user and returns the capability view the policies consume.
func (s *Service) ResolveActor(ctx context.Context, userID int64) (policy.Actor, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	admin, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewActor(userID, perms, admin), nil
}
