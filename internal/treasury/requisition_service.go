package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RequisitionService orchestrates check requisition flows.
type RequisitionService struct {
	repo      Repository
	policies  *policy.Registry
	audit     AuditPort
	approvals ApprovalPort
}

// NewRequisitionService constructs the requisition service.
func NewRequisitionService(repo Repository, policies *policy.Registry, audit AuditPort, approvals ApprovalPort) *RequisitionService {
	return &RequisitionService{repo: repo, policies: policies, audit: audit, approvals: approvals}
}

// CreateRequisitionInput describes creation payload.
type CreateRequisitionInput struct {
	InvoiceID *int64
	VendorID  int64
	Amount    float64
	Currency  string
	Purpose   string
	Note      string
}

// UpdateRequisitionInput carries editable fields.
type UpdateRequisitionInput struct {
	InvoiceID *int64
	VendorID  int64
	Amount    float64
	Currency  string
	Purpose   string
	Note      string
}

func (s *RequisitionService) decide(actor policy.Actor, action policy.Action, entity any) error {
	decision, err := s.policies.Decide(policy.DocCheckRequisition, action, actor, entity)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

// List returns requisitions visible to the actor.
func (s *RequisitionService) List(ctx context.Context, filters RequisitionFilters) ([]CheckRequisition, int, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decide(actor, policy.ActionViewAny, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.ListRequisitions(ctx, filters)
}

// Get returns a single requisition.
func (s *RequisitionService) Get(ctx context.Context, id int64) (CheckRequisition, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return CheckRequisition{}, err
	}
	cr, err := s.repo.GetRequisition(ctx, id)
	if err != nil {
		return CheckRequisition{}, err
	}
	if err := s.decide(actor, policy.ActionView, cr.View()); err != nil {
		return CheckRequisition{}, err
	}
	return cr, nil
}

// Create persists a new draft requisition.
func (s *RequisitionService) Create(ctx context.Context, input CreateRequisitionInput) (CheckRequisition, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return CheckRequisition{}, err
	}
	if err := s.decide(actor, policy.ActionCreate, nil); err != nil {
		return CheckRequisition{}, err
	}
	if input.VendorID == 0 || input.Amount <= 0 || input.Purpose == "" {
		return CheckRequisition{}, ErrValidation
	}
	cr := CheckRequisition{
		Number:    generateNumber("CR"),
		Ref:       uuid.New(),
		InvoiceID: input.InvoiceID,
		VendorID:  input.VendorID,
		Status:    policy.RequisitionStatusDraft,
		Amount:    input.Amount,
		Currency:  defaultString(input.Currency, "USD"),
		Purpose:   input.Purpose,
		Note:      input.Note,
		CreatedBy: actorID(actor),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequisition(ctx, cr)
		if err != nil {
			return err
		}
		cr.ID = id
		return nil
	})
	if err != nil {
		return CheckRequisition{}, err
	}
	s.recordAudit(ctx, actor, "check_requisition.create", cr.ID, map[string]any{"number": cr.Number, "amount": shared.FormatAmount(cr.Currency, cr.Amount)})
	return cr, nil
}

// Update edits a requisition while it is still editable.
func (s *RequisitionService) Update(ctx context.Context, id int64, input UpdateRequisitionInput) error {
	if input.VendorID == 0 || input.Amount <= 0 || input.Purpose == "" {
		return ErrValidation
	}
	return s.transition(ctx, id, policy.ActionUpdate, "check_requisition.update", func(ctx context.Context, tx TxRepository, cr CheckRequisition) error {
		cr.InvoiceID = input.InvoiceID
		cr.VendorID = input.VendorID
		cr.Amount = input.Amount
		cr.Currency = defaultString(input.Currency, cr.Currency)
		cr.Purpose = input.Purpose
		cr.Note = input.Note
		return tx.UpdateRequisition(ctx, cr)
	})
}

// Submit sends a draft (or revised rejected) requisition for approval.
func (s *RequisitionService) Submit(ctx context.Context, id int64, note string) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	cr, err := s.repo.GetRequisition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.decide(actor, policy.ActionUpdate, cr.View()); err != nil {
		return err
	}
	var ref uuid.UUID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetRequisitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != policy.RequisitionStatusDraft && current.Status != policy.RequisitionStatusRejected {
			return fmt.Errorf("%w: requisition %d is %s, want draft or rejected", ErrInvalidState, id, current.Status)
		}
		ref = current.Ref
		return tx.UpdateRequisitionStatus(ctx, id, policy.RequisitionStatusPendingApproval)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, ref, actorID(actor), shared.ApprovalSubmit, note)
	s.recordAudit(ctx, actor, "check_requisition.submit", id, map[string]any{"number": cr.Number})
	return nil
}

// Approve moves a pending requisition to approved.
func (s *RequisitionService) Approve(ctx context.Context, id int64, note string) error {
	return s.review(ctx, id, policy.ActionApprove, policy.RequisitionStatusApproved, shared.ApprovalApprove, "check_requisition.approve", note)
}

// Reject moves a pending requisition to rejected so it can be revised.
func (s *RequisitionService) Reject(ctx context.Context, id int64, note string) error {
	return s.review(ctx, id, policy.ActionReject, policy.RequisitionStatusRejected, shared.ApprovalReject, "check_requisition.reject", note)
}

func (s *RequisitionService) review(ctx context.Context, id int64, action policy.Action, outcome policy.RequisitionStatus, logAction shared.ApprovalAction, auditAction, note string) error {
	var ref uuid.UUID
	err := s.transition(ctx, id, action, auditAction, func(ctx context.Context, tx TxRepository, cr CheckRequisition) error {
		ref = cr.Ref
		return tx.SetRequisitionApproval(ctx, id, outcome, actorID(shared.ActorFromContext(ctx)), time.Now())
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, ref, actorID(shared.ActorFromContext(ctx)), logAction, note)
	return nil
}

// Delete soft-deletes a draft or pending requisition.
func (s *RequisitionService) Delete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionDelete, "check_requisition.delete", func(ctx context.Context, tx TxRepository, cr CheckRequisition) error {
		return tx.SoftDeleteRequisition(ctx, id)
	})
}

// Restore brings back a soft-deleted requisition.
func (s *RequisitionService) Restore(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionRestore, "check_requisition.restore", func(ctx context.Context, tx TxRepository, cr CheckRequisition) error {
		return tx.RestoreRequisition(ctx, id)
	})
}

// ForceDelete permanently removes the requisition, admin only.
func (s *RequisitionService) ForceDelete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionForceDelete, "check_requisition.force_delete", func(ctx context.Context, tx TxRepository, cr CheckRequisition) error {
		return tx.ForceDeleteRequisition(ctx, id)
	})
}

func (s *RequisitionService) transition(ctx context.Context, id int64, action policy.Action, auditAction string, mutate func(context.Context, TxRepository, CheckRequisition) error) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	cr, err := s.repo.GetRequisition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.decide(actor, action, cr.View()); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetRequisitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.decide(actor, action, current.View()); err != nil {
			if current.Status != cr.Status {
				return fmt.Errorf("%w: %s is now %s", shared.ErrStateChanged, cr.Number, current.Status)
			}
			return err
		}
		return mutate(ctx, tx, current)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, auditAction, id, map[string]any{"number": cr.Number})
	return nil
}

// markRequisitionProcessed is the system transition taken when a
// disbursement is cut against the requisition. Not a user action.
func markRequisitionProcessed(ctx context.Context, tx TxRepository, id int64) (CheckRequisition, error) {
	cr, err := tx.GetRequisitionForUpdate(ctx, id)
	if err != nil {
		return CheckRequisition{}, err
	}
	if cr.Status != policy.RequisitionStatusApproved {
		return CheckRequisition{}, fmt.Errorf("%w: requisition %d is %s, want approved", ErrInvalidState, id, cr.Status)
	}
	if err := tx.UpdateRequisitionStatus(ctx, id, policy.RequisitionStatusProcessed); err != nil {
		return CheckRequisition{}, err
	}
	cr.Status = policy.RequisitionStatusProcessed
	return cr, nil
}

// markRequisitionPaid is the system transition taken when the check is
// released to the vendor. Not a user action.
func markRequisitionPaid(ctx context.Context, tx TxRepository, id int64) (CheckRequisition, error) {
	cr, err := tx.GetRequisitionForUpdate(ctx, id)
	if err != nil {
		return CheckRequisition{}, err
	}
	if cr.Status != policy.RequisitionStatusProcessed {
		return CheckRequisition{}, fmt.Errorf("%w: requisition %d is %s, want processed", ErrInvalidState, id, cr.Status)
	}
	if err := tx.UpdateRequisitionStatus(ctx, id, policy.RequisitionStatusPaid); err != nil {
		return CheckRequisition{}, err
	}
	cr.Status = policy.RequisitionStatusPaid
	return cr, nil
}

func (s *RequisitionService) recordApproval(ctx context.Context, ref uuid.UUID, actor int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil || ref == uuid.Nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: policy.ModuleCheckRequisitions, RefID: ref, ActorID: actor, Action: action, Note: note})
}

func (s *RequisitionService) recordAudit(ctx context.Context, actor policy.Actor, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID(actor), Action: action, Entity: "check_requisition", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
