package vendors

import (
	"context"
	"strconv"

	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	sharedpkg "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service applies vendor authorization and business rules on top of the
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
	decision, err := s.policies.Decide(policy.DocVendor, action, actor, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := sharedpkg.AuditLog{Action: action, Entity: "vendor", EntityID: strconv.FormatInt(id, 10), Meta: meta}
	if actor, ok := sharedpkg.ActorFromContext(ctx).(interface{ UserIdentifier() int64 }); ok {
		log.ActorID = actor.UserIdentifier()
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit vendor", slog.Any("error", err))
	}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	if err := s.authorize(ctx, policy.ActionViewAny); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if err := s.authorize(ctx, policy.ActionView); err != nil {
		return Vendor{}, err
	}
	if id <= 0 {
		return Vendor{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	if err := s.authorize(ctx, policy.ActionCreate); err != nil {
		return Vendor{}, err
	}
	if err := s.validate(vendor); err != nil {
		return Vendor{}, err
	}
	created, err := s.repo.Create(ctx, vendor)
	if err != nil {
		return Vendor{}, err
	}
	s.record(ctx, "vendor.create", created.ID, nil)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, vendor Vendor) error {
	if err := s.authorize(ctx, policy.ActionUpdate); err != nil {
		return err
	}
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(vendor); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, vendor); err != nil {
		return err
	}
	s.record(ctx, "vendor.update", id, nil)
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
	s.record(ctx, "vendor.delete", id, nil)
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
	s.record(ctx, "vendor.restore", id, nil)
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
	s.record(ctx, "vendor.force_delete", id, nil)
	return nil
}

// BulkSetActive flips the active flag on the given vendors and returns how
// many rows changed.
func (s *Service) BulkSetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	if err := s.authorize(ctx, policy.ActionBulkManage); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.repo.SetActive(ctx, ids, active)
	if err != nil {
		return 0, err
	}
	s.record(ctx, "vendor.bulk_set_active", 0, map[string]any{"ids": ids, "active": active, "count": count})
	return count, nil
}
