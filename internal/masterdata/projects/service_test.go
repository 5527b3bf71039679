package projects

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
	seq      int64
	projects map[int64]Project
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[int64]Project)}
}

func (m *memoryRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Project, int, error) {
	var list []Project
	for _, p := range m.projects {
		if p.DeletedAt != nil && !filters.WithTrashed {
			continue
		}
		list = append(list, p)
	}
	return list, len(list), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return Project{}, mdshared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, project Project) (Project, error) {
	m.seq++
	project.ID = m.seq
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.projects[project.ID] = project
	return project, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, project Project) error {
	existing, ok := m.projects[id]
	if !ok || existing.DeletedAt != nil {
		return mdshared.ErrNotFound
	}
	project.ID = id
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = time.Now()
	m.projects[id] = project
	return nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, id int64) error {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt != nil {
		return mdshared.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	m.projects[id] = p
	return nil
}

func (m *memoryRepo) Restore(ctx context.Context, id int64) error {
	p, ok := m.projects[id]
	if !ok || p.DeletedAt == nil {
		return mdshared.ErrNotFound
	}
	p.DeletedAt = nil
	m.projects[id] = p
	return nil
}

func (m *memoryRepo) ForceDelete(ctx context.Context, id int64) error {
	if _, ok := m.projects[id]; !ok {
		return mdshared.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func ctxWithPerms(perms ...string) context.Context {
	return shared.ContextWithActor(context.Background(), rbac.NewActor(1, perms, false))
}

func newTestService(repo Repository) *Service {
	return NewService(repo, policy.NewRegistry(), nil, nil)
}

func TestProjectCreateRequiresEditPermission(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(ctxWithPerms("projects.view"), Project{Name: "Warehouse Expansion"})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "You do not have permission to manage projects.", err.Error())
}

func TestProjectCreateValidates(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := ctxWithPerms("projects.edit")

	_, err := svc.Create(ctx, Project{Name: ""})
	require.ErrorIs(t, err, mdshared.ErrRequiredField)

	_, err = svc.Create(ctx, Project{Name: "Warehouse Expansion", Budget: -1})
	require.ErrorIs(t, err, mdshared.ErrValidation)
}

func TestProjectLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := ctxWithPerms("projects.view", "projects.edit")

	created, err := svc.Create(ctx, Project{Code: "PRJ-001", Name: "Warehouse Expansion", Budget: 250000})
	require.NoError(t, err)

	created.Description = "Phase two"
	require.NoError(t, svc.Update(ctx, created.ID, created))

	require.NoError(t, svc.Delete(ctx, created.ID))
	list, _, err := svc.List(ctx, mdshared.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Restore(ctx, created.ID))

	adminCtx := shared.ContextWithActor(context.Background(), rbac.NewActor(9, nil, true))
	require.NoError(t, svc.ForceDelete(adminCtx, created.ID))
	_, err = repo.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, mdshared.ErrNotFound)
}

func TestProjectForceDeleteDeniedForNonAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := ctxWithPerms("projects.edit")

	created, err := svc.Create(ctx, Project{Name: "Warehouse Expansion"})
	require.NoError(t, err)

	err = svc.ForceDelete(ctx, created.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Only administrators can permanently delete projects.", err.Error())
}
