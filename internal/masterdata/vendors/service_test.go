package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdshared "github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	seq     int64
	vendors map[int64]Vendor
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: make(map[int64]Vendor)}
}

func (m *memoryRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Vendor, int, error) {
	var list []Vendor
	for _, v := range m.vendors {
		if v.DeletedAt != nil && !filters.WithTrashed {
			continue
		}
		if filters.IsActive != nil && v.IsActive != *filters.IsActive {
			continue
		}
		list = append(list, v)
	}
	return list, len(list), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, mdshared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	m.seq++
	vendor.ID = m.seq
	vendor.CreatedAt = time.Now()
	vendor.UpdatedAt = vendor.CreatedAt
	m.vendors[vendor.ID] = vendor
	return vendor, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, vendor Vendor) error {
	existing, ok := m.vendors[id]
	if !ok || existing.DeletedAt != nil {
		return mdshared.ErrNotFound
	}
	vendor.ID = id
	vendor.CreatedAt = existing.CreatedAt
	vendor.UpdatedAt = time.Now()
	m.vendors[id] = vendor
	return nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, id int64) error {
	v, ok := m.vendors[id]
	if !ok || v.DeletedAt != nil {
		return mdshared.ErrNotFound
	}
	now := time.Now()
	v.DeletedAt = &now
	m.vendors[id] = v
	return nil
}

func (m *memoryRepo) Restore(ctx context.Context, id int64) error {
	v, ok := m.vendors[id]
	if !ok || v.DeletedAt == nil {
		return mdshared.ErrNotFound
	}
	v.DeletedAt = nil
	m.vendors[id] = v
	return nil
}

func (m *memoryRepo) ForceDelete(ctx context.Context, id int64) error {
	if _, ok := m.vendors[id]; !ok {
		return mdshared.ErrNotFound
	}
	delete(m.vendors, id)
	return nil
}

func (m *memoryRepo) SetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	var count int64
	for _, id := range ids {
		v, ok := m.vendors[id]
		if !ok || v.DeletedAt != nil {
			continue
		}
		v.IsActive = active
		m.vendors[id] = v
		count++
	}
	return count, nil
}

func ctxWithPerms(perms ...string) context.Context {
	return shared.ContextWithActor(context.Background(), rbac.NewActor(1, perms, false))
}

func ctxWithAdmin() context.Context {
	return shared.ContextWithActor(context.Background(), rbac.NewActor(1, nil, true))
}

func newTestService(repo Repository) *Service {
	return NewService(repo, policy.NewRegistry(), nil, nil)
}

func TestVendorCreateRequiresEditPermission(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(ctxWithPerms("vendors.view"), Vendor{Name: "Acme Supply"})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "You do not have permission to create vendors.", err.Error())

	created, err := svc.Create(ctxWithPerms("vendors.view", "vendors.edit"), Vendor{Name: "Acme Supply"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestVendorCreateValidatesName(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(ctxWithPerms("vendors.edit"), Vendor{Name: "   "})
	require.ErrorIs(t, err, mdshared.ErrRequiredField)
}

func TestVendorSoftDeleteAndRestore(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := ctxWithPerms("vendors.view", "vendors.edit")

	created, err := svc.Create(ctx, Vendor{Name: "Acme Supply", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	list, _, err := svc.List(ctx, mdshared.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Restore(ctx, created.ID))
	list, _, err = svc.List(ctx, mdshared.ListFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestVendorForceDeleteAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := ctxWithPerms("vendors.view", "vendors.edit")

	created, err := svc.Create(ctx, Vendor{Name: "Acme Supply"})
	require.NoError(t, err)

	err = svc.ForceDelete(ctx, created.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Only administrators can permanently delete vendors.", err.Error())

	require.NoError(t, svc.ForceDelete(ctxWithAdmin(), created.ID))
	_, err = repo.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, mdshared.ErrNotFound)
}

func TestVendorBulkSetActive(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := ctxWithPerms("vendors.edit", "vendors.view")

	a, err := svc.Create(ctx, Vendor{Name: "Alpha", IsActive: true})
	require.NoError(t, err)
	b, err := svc.Create(ctx, Vendor{Name: "Beta", IsActive: true})
	require.NoError(t, err)

	count, err := svc.BulkSetActive(ctx, []int64{a.ID, b.ID, 999}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestVendorUnauthenticated(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, _, err := svc.List(context.Background(), mdshared.ListFilters{})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}
