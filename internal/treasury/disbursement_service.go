package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceTransitions is the slice of the accounts payable service the
// release cascade needs. The transaction handle keeps the invoice flip
// atomic with the treasury side.
type InvoiceTransitions interface {
	MarkPendingDisbursement(ctx context.Context, tx ap.TxRepository, id int64) error
	MarkPaid(ctx context.Context, tx ap.TxRepository, id int64) error
}

// DisbursementService orchestrates disbursement flows.
type DisbursementService struct {
	repo        Repository
	policies    *policy.Registry
	audit       AuditPort
	invoices    InvoiceTransitions
	idempotency IdempotencyPort
}

// NewDisbursementService constructs the disbursement service.
func NewDisbursementService(repo Repository, policies *policy.Registry, audit AuditPort, invoices InvoiceTransitions, idempotency IdempotencyPort) *DisbursementService {
	return &DisbursementService{repo: repo, policies: policies, audit: audit, invoices: invoices, idempotency: idempotency}
}

// CreateDisbursementInput describes creation payload. Vendor, invoice and
// currency are taken from the requisition; amount defaults to it.
type CreateDisbursementInput struct {
	RequisitionID int64
	Amount        float64
	CheckNumber   string
	Note          string
}

// UpdateDisbursementInput carries editable fields.
type UpdateDisbursementInput struct {
	Amount      float64
	Currency    string
	CheckNumber string
	Note        string
}

func (s *DisbursementService) decide(actor policy.Actor, action policy.Action, entity any) error {
	decision, err := s.policies.Decide(policy.DocDisbursement, action, actor, entity)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

// List returns disbursements visible to the actor.
func (s *DisbursementService) List(ctx context.Context, filters DisbursementFilters) ([]Disbursement, int, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decide(actor, policy.ActionViewAny, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.ListDisbursements(ctx, filters)
}

// Get returns a single disbursement.
func (s *DisbursementService) Get(ctx context.Context, id int64) (Disbursement, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return Disbursement{}, err
	}
	d, err := s.repo.GetDisbursement(ctx, id)
	if err != nil {
		return Disbursement{}, err
	}
	if err := s.decide(actor, policy.ActionView, d.View()); err != nil {
		return Disbursement{}, err
	}
	return d, nil
}

// Create cuts a disbursement against an approved requisition. The
// requisition moves to processed and its invoice, when present, to
// pending_disbursement, all in one transaction.
func (s *DisbursementService) Create(ctx context.Context, input CreateDisbursementInput) (Disbursement, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return Disbursement{}, err
	}
	if err := s.decide(actor, policy.ActionCreate, nil); err != nil {
		return Disbursement{}, err
	}
	if input.RequisitionID == 0 || input.Amount < 0 {
		return Disbursement{}, ErrValidation
	}
	var d Disbursement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cr, err := markRequisitionProcessed(ctx, tx, input.RequisitionID)
		if err != nil {
			return err
		}
		amount := input.Amount
		if amount == 0 {
			amount = cr.Amount
		}
		d = Disbursement{
			Number:        generateNumber("DSB"),
			RequisitionID: cr.ID,
			InvoiceID:     cr.InvoiceID,
			VendorID:      cr.VendorID,
			Amount:        amount,
			Currency:      cr.Currency,
			CheckNumber:   input.CheckNumber,
			Note:          input.Note,
			CreatedBy:     actorID(actor),
		}
		id, err := tx.CreateDisbursement(ctx, d)
		if err != nil {
			return err
		}
		d.ID = id
		if cr.InvoiceID != nil {
			return s.invoices.MarkPendingDisbursement(ctx, tx.Invoices(), *cr.InvoiceID)
		}
		return nil
	})
	if err != nil {
		return Disbursement{}, err
	}
	s.recordAudit(ctx, actor, "disbursement.create", d.ID, map[string]any{"number": d.Number, "requisition_id": d.RequisitionID, "amount": shared.FormatAmount(d.Currency, d.Amount)})
	return d, nil
}

// Update edits a disbursement until the check is released.
func (s *DisbursementService) Update(ctx context.Context, id int64, input UpdateDisbursementInput) error {
	if input.Amount <= 0 {
		return ErrValidation
	}
	return s.transition(ctx, id, policy.ActionUpdate, "disbursement.update", func(ctx context.Context, tx TxRepository, d Disbursement) error {
		d.Amount = input.Amount
		d.Currency = defaultString(input.Currency, d.Currency)
		d.CheckNumber = input.CheckNumber
		d.Note = input.Note
		return tx.UpdateDisbursement(ctx, d)
	})
}

// UpdateCheckDates sets the scheduled and printed dates. A printed date
// requires a scheduled date at or before it; release happens only through
// ReleaseCheck.
func (s *DisbursementService) UpdateCheckDates(ctx context.Context, id int64, scheduled, printed *time.Time) error {
	if printed != nil {
		if scheduled == nil {
			return fmt.Errorf("%w: a check cannot be printed before it is scheduled", ErrValidation)
		}
		if printed.Before(*scheduled) {
			return fmt.Errorf("%w: printed date precedes scheduled date", ErrValidation)
		}
	}
	return s.transition(ctx, id, policy.ActionUpdateCheckDates, "disbursement.update_check_dates", func(ctx context.Context, tx TxRepository, d Disbursement) error {
		return tx.SetCheckDates(ctx, id, scheduled, printed)
	})
}

// ReleaseCheck hands the check to the vendor. The disbursement gets its
// released date, the requisition moves to paid and the invoice, when
// present, is marked paid, all under one commit. A repeated idempotency
// key short-circuits with shared.ErrIdempotencyConflict.
func (s *DisbursementService) ReleaseCheck(ctx context.Context, id int64, checkNumber, idempotencyKey string) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	d, err := s.repo.GetDisbursement(ctx, id)
	if err != nil {
		return err
	}
	if err := s.decide(actor, policy.ActionReleaseCheck, d.View()); err != nil {
		return err
	}
	if idempotencyKey != "" && s.idempotency != nil {
		key := fmt.Sprintf("disbursement:release:%s", idempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, policy.ModuleDisbursements); err != nil {
			return err
		}
		// Roll the key back if the release itself fails.
		defer func() {
			if err != nil {
				_ = s.idempotency.Delete(ctx, key)
			}
		}()
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDisbursementForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.decide(actor, policy.ActionReleaseCheck, current.View()); err != nil {
			return err
		}
		if current.CheckPrintedAt == nil {
			return fmt.Errorf("%w: check must be printed before release", ErrInvalidState)
		}
		if err := tx.SetCheckReleased(ctx, id, time.Now(), checkNumber); err != nil {
			return err
		}
		if _, err := markRequisitionPaid(ctx, tx, current.RequisitionID); err != nil {
			return err
		}
		if current.InvoiceID != nil {
			return s.invoices.MarkPaid(ctx, tx.Invoices(), *current.InvoiceID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "disbursement.release_check", id, map[string]any{"number": d.Number, "check_number": checkNumber, "amount": shared.FormatAmount(d.Currency, d.Amount)})
	return nil
}

// Delete soft-deletes a disbursement with no check activity.
func (s *DisbursementService) Delete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionDelete, "disbursement.delete", func(ctx context.Context, tx TxRepository, d Disbursement) error {
		return tx.SoftDeleteDisbursement(ctx, id)
	})
}

// Restore brings back a soft-deleted disbursement.
func (s *DisbursementService) Restore(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionRestore, "disbursement.restore", func(ctx context.Context, tx TxRepository, d Disbursement) error {
		return tx.RestoreDisbursement(ctx, id)
	})
}

// ForceDelete permanently removes the disbursement, admin only.
func (s *DisbursementService) ForceDelete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionForceDelete, "disbursement.force_delete", func(ctx context.Context, tx TxRepository, d Disbursement) error {
		return tx.ForceDeleteDisbursement(ctx, id)
	})
}

func (s *DisbursementService) transition(ctx context.Context, id int64, action policy.Action, auditAction string, mutate func(context.Context, TxRepository, Disbursement) error) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	d, err := s.repo.GetDisbursement(ctx, id)
	if err != nil {
		return err
	}
	if err := s.decide(actor, action, d.View()); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDisbursementForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.decide(actor, action, current.View()); err != nil {
			if disbursementStateChanged(d, current) {
				return fmt.Errorf("%w: %s", shared.ErrStateChanged, d.Number)
			}
			return err
		}
		return mutate(ctx, tx, current)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, auditAction, id, map[string]any{"number": d.Number})
	return nil
}

// disbursementStateChanged reports whether the check lifecycle dates moved
// between the snapshot read and the locked row.
func disbursementStateChanged(before, after Disbursement) bool {
	moved := func(a, b *time.Time) bool { return (a == nil) != (b == nil) }
	return moved(before.CheckScheduledAt, after.CheckScheduledAt) ||
		moved(before.CheckPrintedAt, after.CheckPrintedAt) ||
		moved(before.CheckReleasedAt, after.CheckReleasedAt)
}

func (s *DisbursementService) recordAudit(ctx context.Context, actor policy.Actor, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID(actor), Action: action, Entity: "disbursement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
