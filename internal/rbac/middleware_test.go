package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubPermissionSource struct {
	perms  map[int64][]string
	admins map[int64]bool
}

func (s *stubPermissionSource) ResolveActor(_ context.Context, userID int64) (policy.Actor, error) {
	return NewActor(userID, s.perms[userID], s.admins[userID]), nil
}

func (s *stubPermissionSource) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return s.perms[userID], nil
}

func (s *stubPermissionSource) IsAdmin(_ context.Context, userID int64) (bool, error) {
	return s.admins[userID], nil
}

func gatedRequest(t *testing.T, gate func(http.Handler) http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/invoices/1/force", nil)
	if userID != "" {
		sess := &shared.Session{ID: "test"}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAnySuperuserWithoutRoles(t *testing.T) {
	source := &stubPermissionSource{admins: map[int64]bool{1: true}}
	mw := Middleware{Service: source}

	rec := gatedRequest(t, mw.RequireAny(shared.PermInvoicesEdit), "1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAnyAdminOverridePermission(t *testing.T) {
	source := &stubPermissionSource{perms: map[int64][]string{2: {shared.PermAdmin}}}
	mw := Middleware{Service: source}

	rec := gatedRequest(t, mw.RequireAny(shared.PermInvoicesEdit), "2")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAnyRolePermissions(t *testing.T) {
	source := &stubPermissionSource{perms: map[int64][]string{
		3: {shared.PermInvoicesView},
		4: {shared.PermInvoicesEdit},
	}}
	mw := Middleware{Service: source}

	assert.Equal(t, http.StatusForbidden, gatedRequest(t, mw.RequireAny(shared.PermInvoicesEdit), "3").Code)
	assert.Equal(t, http.StatusNoContent, gatedRequest(t, mw.RequireAny(shared.PermInvoicesEdit), "4").Code)
}

func TestRequireAllSuperuserWithoutRoles(t *testing.T) {
	source := &stubPermissionSource{admins: map[int64]bool{1: true}}
	mw := Middleware{Service: source}

	rec := gatedRequest(t, mw.RequireAll(shared.PermInvoicesView, shared.PermInvoicesEdit), "1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAllPartialGrantDenied(t *testing.T) {
	source := &stubPermissionSource{perms: map[int64][]string{5: {shared.PermInvoicesView}}}
	mw := Middleware{Service: source}

	rec := gatedRequest(t, mw.RequireAll(shared.PermInvoicesView, shared.PermInvoicesEdit), "5")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyUnauthenticated(t *testing.T) {
	mw := Middleware{Service: &stubPermissionSource{}}

	rec := gatedRequest(t, mw.RequireAny(shared.PermInvoicesEdit), "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
