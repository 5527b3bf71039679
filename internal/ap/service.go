package ap

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates invoice flows.
type Service struct {
	repo     Repository
	policies *policy.Registry
	audit    AuditPort
}

// NewService constructs the invoice service.
func NewService(repo Repository, policies *policy.Registry, audit AuditPort) *Service {
	return &Service{repo: repo, policies: policies, audit: audit}
}

// CreateInvoiceInput describes creation payload.
type CreateInvoiceInput struct {
	Number      string
	POID        int64
	VendorID    int64
	Amount      float64
	Currency    string
	InvoiceDate time.Time
	DueDate     time.Time
	Note        string
}

// UpdateInvoiceInput carries editable fields.
type UpdateInvoiceInput struct {
	Number      string
	Amount      float64
	Currency    string
	InvoiceDate time.Time
	DueDate     time.Time
	Note        string
}

func (s *Service) actor(ctx context.Context) (policy.Actor, error) {
	actor := shared.ActorFromContext(ctx)
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return actor, nil
}

func (s *Service) decide(actor policy.Actor, action policy.Action, entity any) error {
	decision, err := s.policies.Decide(policy.DocInvoice, action, actor, entity)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

// List returns invoices visible to the actor.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decide(actor, policy.ActionViewAny, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.ListInvoices(ctx, filters)
}

// Get returns a single invoice.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return Invoice{}, err
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if err := s.decide(actor, policy.ActionView, policy.InvoiceView{Status: inv.Status}); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Create persists a new pending invoice against a purchase order.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return Invoice{}, err
	}
	if err := s.decide(actor, policy.ActionCreate, nil); err != nil {
		return Invoice{}, err
	}
	if input.Number == "" || input.POID == 0 || input.VendorID == 0 || input.Amount <= 0 {
		return Invoice{}, ErrValidation
	}
	inv := Invoice{
		Number:      input.Number,
		POID:        input.POID,
		VendorID:    input.VendorID,
		Status:      policy.InvoiceStatusPending,
		Amount:      input.Amount,
		Currency:    defaultString(input.Currency, "USD"),
		InvoiceDate: defaultTime(input.InvoiceDate),
		DueDate:     input.DueDate,
		Note:        input.Note,
		CreatedBy:   actorID(actor),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actor, "invoice.create", inv.ID, map[string]any{"number": inv.Number, "amount": inv.Amount})
	return inv, nil
}

// Update edits invoice fields while it is pending or rejected.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInvoiceInput) error {
	if input.Amount <= 0 {
		return ErrValidation
	}
	return s.transition(ctx, id, policy.ActionUpdate, "invoice.update", func(ctx context.Context, tx TxRepository, inv Invoice) error {
		inv.Number = defaultString(input.Number, inv.Number)
		inv.Amount = input.Amount
		inv.Currency = defaultString(input.Currency, inv.Currency)
		inv.InvoiceDate = defaultTime(input.InvoiceDate)
		inv.DueDate = input.DueDate
		inv.Note = input.Note
		return tx.UpdateInvoice(ctx, inv)
	})
}

// Delete soft-deletes a pending or rejected invoice.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionDelete, "invoice.delete", func(ctx context.Context, tx TxRepository, inv Invoice) error {
		return tx.SoftDeleteInvoice(ctx, id)
	})
}

// MarkReceived moves a pending invoice to received.
func (s *Service) MarkReceived(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionMarkReceived, "invoice.mark_received", func(ctx context.Context, tx TxRepository, inv Invoice) error {
		return tx.UpdateInvoiceStatus(ctx, id, policy.InvoiceStatusReceived)
	})
}

// Approve reviews a pending or received invoice into approved.
func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.review(ctx, id, policy.InvoiceStatusApproved, "invoice.approve")
}

// Reject reviews a pending or received invoice into rejected.
func (s *Service) Reject(ctx context.Context, id int64) error {
	return s.review(ctx, id, policy.InvoiceStatusRejected, "invoice.reject")
}

func (s *Service) review(ctx context.Context, id int64, outcome policy.InvoiceStatus, auditAction string) error {
	return s.transition(ctx, id, policy.ActionReview, auditAction, func(ctx context.Context, tx TxRepository, inv Invoice) error {
		return tx.SetInvoiceReview(ctx, id, outcome, actorID(shared.ActorFromContext(ctx)), time.Now())
	})
}

// Restore brings back a soft-deleted invoice.
func (s *Service) Restore(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionRestore, "invoice.restore", func(ctx context.Context, tx TxRepository, inv Invoice) error {
		return tx.RestoreInvoice(ctx, id)
	})
}

// ForceDelete permanently removes the invoice, admin only.
func (s *Service) ForceDelete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionForceDelete, "invoice.force_delete", func(ctx context.Context, tx TxRepository, inv Invoice) error {
		return tx.ForceDeleteInvoice(ctx, id)
	})
}

// MarkPendingDisbursement is the system transition taken when a
// disbursement is cut for the invoice. Not a user action; no policy check.
func (s *Service) MarkPendingDisbursement(ctx context.Context, tx TxRepository, id int64) error {
	inv, err := tx.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != policy.InvoiceStatusApproved {
		return fmt.Errorf("%w: invoice %d is %s, want approved", ErrInvalidState, id, inv.Status)
	}
	return tx.UpdateInvoiceStatus(ctx, id, policy.InvoiceStatusPendingDisbursement)
}

// MarkPaid is the system transition taken when the disbursement check is
// released. Not a user action; no policy check.
func (s *Service) MarkPaid(ctx context.Context, tx TxRepository, id int64) error {
	inv, err := tx.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != policy.InvoiceStatusPendingDisbursement && inv.Status != policy.InvoiceStatusApproved {
		return fmt.Errorf("%w: invoice %d is %s, want approved or pending_disbursement", ErrInvalidState, id, inv.Status)
	}
	return tx.UpdateInvoiceStatus(ctx, id, policy.InvoiceStatusPaid)
}

// MarkOverdue flags every unpaid invoice past its due date. Called by the
// background scan; this is the only way an invoice becomes overdue.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return 0, err
	}
	var count int
	for _, inv := range candidates {
		flipped := false
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetInvoiceForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}
			switch current.Status {
			case policy.InvoiceStatusPending, policy.InvoiceStatusReceived, policy.InvoiceStatusInProgress:
				if err := tx.UpdateInvoiceStatus(ctx, inv.ID, policy.InvoiceStatusOverdue); err != nil {
					return err
				}
				flipped = true
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		if flipped {
			count++
		}
	}
	return count, nil
}

// WithTx exposes the repository transaction boundary so the treasury
// cascade can update invoices atomically with the disbursement.
func (s *Service) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return s.repo.WithTx(ctx, fn)
}

func (s *Service) transition(ctx context.Context, id int64, action policy.Action, auditAction string, mutate func(context.Context, TxRepository, Invoice) error) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := s.decide(actor, action, policy.InvoiceView{Status: inv.Status}); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.decide(actor, action, policy.InvoiceView{Status: current.Status}); err != nil {
			if current.Status != inv.Status {
				return fmt.Errorf("%w: %s is now %s", shared.ErrStateChanged, inv.Number, current.Status)
			}
			return err
		}
		return mutate(ctx, tx, current)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, auditAction, id, map[string]any{"number": inv.Number})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor policy.Actor, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID(actor), Action: action, Entity: "invoice", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func actorID(actor policy.Actor) int64 {
	if ident, ok := actor.(interface{ UserIdentifier() int64 }); ok {
		return ident.UserIdentifier()
	}
	return 0
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
