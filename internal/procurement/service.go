package procurement

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

// Service orchestrates purchase order flows.
type Service struct {
	repo     Repository
	policies *policy.Registry
	audit    AuditPort
}

// NewService constructs procurement service.
func NewService(repo Repository, policies *policy.Registry, audit AuditPort) *Service {
	return &Service{repo: repo, policies: policies, audit: audit}
}

// CreatePOInput describes creation payload.
type CreatePOInput struct {
	Number       string
	VendorID     int64
	ProjectID    int64
	Currency     string
	OrderDate    time.Time
	ExpectedDate time.Time
	Note         string
	Lines        []POLineInput
}

// POLineInput describes an order line.
type POLineInput struct {
	Description string
	Qty         float64
	UnitPrice   float64
}

// UpdatePOInput carries editable header fields and replacement lines.
type UpdatePOInput struct {
	ProjectID    int64
	Currency     string
	OrderDate    time.Time
	ExpectedDate time.Time
	Note         string
	Lines        []POLineInput
}

func (s *Service) actor(ctx context.Context) (policy.Actor, error) {
	actor := shared.ActorFromContext(ctx)
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return actor, nil
}

// decide runs the policy for the given snapshot, mapping a denial to a
// forbidden error carrying the policy reason.
func (s *Service) decide(actor policy.Actor, action policy.Action, entity any) error {
	decision, err := s.policies.Decide(policy.DocPurchaseOrder, action, actor, entity)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return httpx.Forbidden(decision.Reason)
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, po PurchaseOrder) (policy.PurchaseOrderView, error) {
	count, err := s.repo.CountInvoices(ctx, po.ID)
	if err != nil {
		return policy.PurchaseOrderView{}, err
	}
	return policy.PurchaseOrderView{Status: po.Status, InvoiceCount: count}, nil
}

// List returns purchase orders visible to the actor.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decide(actor, policy.ActionViewAny, nil); err != nil {
		return nil, 0, err
	}
	return s.repo.ListPOs(ctx, filters)
}

// Get returns a single purchase order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, []POLine, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	po, lines, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	view, err := s.snapshot(ctx, po)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := s.decide(actor, policy.ActionView, view); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

// Create persists a new draft purchase order.
func (s *Service) Create(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.decide(actor, policy.ActionCreate, nil); err != nil {
		return PurchaseOrder{}, err
	}
	if input.VendorID == 0 || len(input.Lines) == 0 {
		return PurchaseOrder{}, ErrValidation
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	po := PurchaseOrder{
		Number:       input.Number,
		VendorID:     input.VendorID,
		ProjectID:    input.ProjectID,
		Status:       policy.POStatusDraft,
		Currency:     defaultString(input.Currency, "USD"),
		OrderDate:    defaultTime(input.OrderDate),
		ExpectedDate: input.ExpectedDate,
		Note:         input.Note,
		CreatedBy:    actorID(actor),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for _, line := range input.Lines {
			if line.Qty <= 0 || line.UnitPrice < 0 {
				return ErrValidation
			}
			if err := tx.InsertPOLine(ctx, POLine{POID: id, Description: line.Description, Qty: line.Qty, UnitPrice: line.UnitPrice}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, "po.create", po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// Update edits header fields and replaces lines while the order is editable.
func (s *Service) Update(ctx context.Context, id int64, input UpdatePOInput) error {
	return s.transition(ctx, id, policy.ActionUpdate, "po.update", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		po.ProjectID = input.ProjectID
		po.Currency = defaultString(input.Currency, po.Currency)
		po.OrderDate = defaultTime(input.OrderDate)
		po.ExpectedDate = input.ExpectedDate
		po.Note = input.Note
		if err := tx.UpdatePO(ctx, po); err != nil {
			return err
		}
		if input.Lines == nil {
			return nil
		}
		if err := tx.DeletePOLines(ctx, id); err != nil {
			return err
		}
		for _, line := range input.Lines {
			if line.Qty <= 0 || line.UnitPrice < 0 {
				return ErrValidation
			}
			if err := tx.InsertPOLine(ctx, POLine{POID: id, Description: line.Description, Qty: line.Qty, UnitPrice: line.UnitPrice}); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateVendor reassigns the vendor. The policy blocks reassignment once
// invoices reference the order.
func (s *Service) UpdateVendor(ctx context.Context, id, vendorID int64) error {
	if vendorID == 0 {
		return ErrValidation
	}
	return s.transition(ctx, id, policy.ActionUpdateVendor, "po.update_vendor", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.UpdatePOVendor(ctx, id, vendorID)
	})
}

// Finalize moves a draft order to open.
func (s *Service) Finalize(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionFinalize, "po.finalize", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.UpdatePOStatus(ctx, id, policy.POStatusOpen)
	})
}

// Close moves an open order to closed.
func (s *Service) Close(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionClose, "po.close", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.UpdatePOStatus(ctx, id, policy.POStatusClosed)
	})
}

// Cancel cancels a draft or open order.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionCancel, "po.cancel", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.UpdatePOStatus(ctx, id, policy.POStatusCancelled)
	})
}

// Delete soft-deletes a draft order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionDelete, "po.delete", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.SoftDeletePO(ctx, id)
	})
}

// Restore brings back a soft-deleted order.
func (s *Service) Restore(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionRestore, "po.restore", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.RestorePO(ctx, id)
	})
}

// ForceDelete permanently removes the order, admin only.
func (s *Service) ForceDelete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, policy.ActionForceDelete, "po.force_delete", func(ctx context.Context, tx TxRepository, po PurchaseOrder) error {
		return tx.ForceDeletePO(ctx, id)
	})
}

// transition runs the read-decide-write sequence for a state-guarded
// action. The policy is consulted twice: once on the snapshot outside the
// transaction for a fast denial, then again on the row locked FOR UPDATE
// so a concurrent transition cannot slip between decision and write.
func (s *Service) transition(ctx context.Context, id int64, action policy.Action, auditAction string, mutate func(context.Context, TxRepository, PurchaseOrder) error) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	po, _, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return err
	}
	view, err := s.snapshot(ctx, po)
	if err != nil {
		return err
	}
	if err := s.decide(actor, action, view); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPOForUpdate(ctx, id)
		if err != nil {
			return err
		}
		count, err := tx.CountInvoices(ctx, id)
		if err != nil {
			return err
		}
		if err := s.decide(actor, action, policy.PurchaseOrderView{Status: current.Status, InvoiceCount: count}); err != nil {
			if current.Status != view.Status || count != view.InvoiceCount {
				return fmt.Errorf("%w: %s is now %s", shared.ErrStateChanged, po.Number, current.Status)
			}
			return err
		}
		return mutate(ctx, tx, current)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, auditAction, id, map[string]any{"number": po.Number})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor policy.Actor, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID(actor), Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func actorID(actor policy.Actor) int64 {
	if ident, ok := actor.(interface{ UserIdentifier() int64 }); ok {
		return ident.UserIdentifier()
	}
	return 0
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
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
