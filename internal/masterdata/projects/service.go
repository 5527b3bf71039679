package projects

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	sharedpkg "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service applies project authorization and business rules on top of the
// repository.
type Service struct {
	repo     Repository
	policies *policy.Registry
	audit    *sharedpkg.AuditLogger
	logger   *slog.Logger
}

func NewService(repo Repository, policies *policy.Registry, audit *sharedpkg.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, policies: policies, audit: audit, logger: logger}
}

func (s *Service) authorize(ctx context.Context, action policy.Action) error {
	actor := sharedpkg.ActorFromContext(ctx)
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	decision, err := s.policies.Decide(policy.DocProject, action, actor, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	if s.audit == nil {
		return
	}
	log := sharedpkg.AuditLog{Action: action, Entity: "project", EntityID: strconv.FormatInt(id, 10)}
	if actor, ok := sharedpkg.ActorFromContext(ctx).(interface{ UserIdentifier() int64 }); ok {
		log.ActorID = actor.UserIdentifier()
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit project", slog.Any("error", err))
	}
}

func (s *Service) validate(p Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name", shared.ErrRequiredField)
	}
	if p.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", shared.ErrValidation)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Project, int, error) {
	if err := s.authorize(ctx, policy.ActionViewAny); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	if err := s.authorize(ctx, policy.ActionView); err != nil {
		return Project{}, err
	}
	if id <= 0 {
		return Project{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, project Project) (Project, error) {
	if err := s.authorize(ctx, policy.ActionCreate); err != nil {
		return Project{}, err
	}
	if err := s.validate(project); err != nil {
		return Project{}, err
	}
	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return Project{}, err
	}
	s.record(ctx, "project.create", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, project Project) error {
	if err := s.authorize(ctx, policy.ActionUpdate); err != nil {
		return err
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(project); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, project); err != nil {
		return err
	}
	s.record(ctx, "project.update", id)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.authorize(ctx, policy.ActionDelete); err != nil {
		return err
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "project.delete", id)
	return nil
}

func (s *Service) Restore(ctx context.Context, id int64) error {
	if err := s.authorize(ctx, policy.ActionRestore); err != nil {
		return err
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "project.restore", id)
	return nil
}

func (s *Service) ForceDelete(ctx context.Context, id int64) error {
	if err := s.authorize(ctx, policy.ActionForceDelete); err != nil {
		return err
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.ForceDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "project.force_delete", id)
	return nil
}
