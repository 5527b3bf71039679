package treasury

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryTreasuryRepo struct {
	reqs     map[int64]CheckRequisition
	disbs    map[int64]Disbursement
	invoices *memoryInvoices
	nextID   int64
}

type memoryTreasuryTx struct {
	repo *memoryTreasuryRepo
}

func newMemoryTreasuryRepo() *memoryTreasuryRepo {
	return &memoryTreasuryRepo{
		reqs:     make(map[int64]CheckRequisition),
		disbs:    make(map[int64]Disbursement),
		invoices: newMemoryInvoices(),
	}
}

func (r *memoryTreasuryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTreasuryTx{repo: r})
}

func (r *memoryTreasuryRepo) GetRequisition(ctx context.Context, id int64) (CheckRequisition, error) {
	cr, ok := r.reqs[id]
	if !ok {
		return CheckRequisition{}, ErrNotFound
	}
	return cr, nil
}

func (r *memoryTreasuryRepo) ListRequisitions(ctx context.Context, filters RequisitionFilters) ([]CheckRequisition, int, error) {
	var list []CheckRequisition
	for _, cr := range r.reqs {
		if cr.DeletedAt != nil && !filters.WithTrashed {
			continue
		}
		if filters.Status != "" && string(cr.Status) != filters.Status {
			continue
		}
		list = append(list, cr)
	}
	return list, len(list), nil
}

func (r *memoryTreasuryRepo) GetDisbursement(ctx context.Context, id int64) (Disbursement, error) {
	d, ok := r.disbs[id]
	if !ok {
		return Disbursement{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryTreasuryRepo) ListDisbursements(ctx context.Context, filters DisbursementFilters) ([]Disbursement, int, error) {
	var list []Disbursement
	for _, d := range r.disbs {
		if d.DeletedAt != nil && !filters.WithTrashed {
			continue
		}
		list = append(list, d)
	}
	return list, len(list), nil
}

func (tx *memoryTreasuryTx) Invoices() ap.TxRepository {
	return tx.repo.invoices
}

func (tx *memoryTreasuryTx) GetRequisitionForUpdate(ctx context.Context, id int64) (CheckRequisition, error) {
	return tx.repo.GetRequisition(ctx, id)
}

func (tx *memoryTreasuryTx) CreateRequisition(ctx context.Context, cr CheckRequisition) (int64, error) {
	tx.repo.nextID++
	cr.ID = tx.repo.nextID
	tx.repo.reqs[cr.ID] = cr
	return cr.ID, nil
}

func (tx *memoryTreasuryTx) UpdateRequisition(ctx context.Context, cr CheckRequisition) error {
	if _, ok := tx.repo.reqs[cr.ID]; !ok {
		return ErrNotFound
	}
	tx.repo.reqs[cr.ID] = cr
	return nil
}

func (tx *memoryTreasuryTx) UpdateRequisitionStatus(ctx context.Context, id int64, status policy.RequisitionStatus) error {
	cr, ok := tx.repo.reqs[id]
	if !ok {
		return ErrNotFound
	}
	cr.Status = status
	tx.repo.reqs[id] = cr
	return nil
}

func (tx *memoryTreasuryTx) SetRequisitionApproval(ctx context.Context, id int64, status policy.RequisitionStatus, approverID int64, at time.Time) error {
	cr, ok := tx.repo.reqs[id]
	if !ok {
		return ErrNotFound
	}
	cr.Status = status
	cr.ApprovedBy = &approverID
	cr.ApprovedAt = &at
	tx.repo.reqs[id] = cr
	return nil
}

func (tx *memoryTreasuryTx) SoftDeleteRequisition(ctx context.Context, id int64) error {
	cr, ok := tx.repo.reqs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	cr.DeletedAt = &now
	tx.repo.reqs[id] = cr
	return nil
}

func (tx *memoryTreasuryTx) RestoreRequisition(ctx context.Context, id int64) error {
	cr, ok := tx.repo.reqs[id]
	if !ok {
		return ErrNotFound
	}
	cr.DeletedAt = nil
	tx.repo.reqs[id] = cr
	return nil
}

func (tx *memoryTreasuryTx) ForceDeleteRequisition(ctx context.Context, id int64) error {
	if _, ok := tx.repo.reqs[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.reqs, id)
	return nil
}

func (tx *memoryTreasuryTx) GetDisbursementForUpdate(ctx context.Context, id int64) (Disbursement, error) {
	return tx.repo.GetDisbursement(ctx, id)
}

func (tx *memoryTreasuryTx) CreateDisbursement(ctx context.Context, d Disbursement) (int64, error) {
	tx.repo.nextID++
	d.ID = tx.repo.nextID
	tx.repo.disbs[d.ID] = d
	return d.ID, nil
}

func (tx *memoryTreasuryTx) UpdateDisbursement(ctx context.Context, d Disbursement) error {
	if _, ok := tx.repo.disbs[d.ID]; !ok {
		return ErrNotFound
	}
	tx.repo.disbs[d.ID] = d
	return nil
}

func (tx *memoryTreasuryTx) SetCheckDates(ctx context.Context, id int64, scheduled, printed *time.Time) error {
	d, ok := tx.repo.disbs[id]
	if !ok {
		return ErrNotFound
	}
	d.CheckScheduledAt = scheduled
	d.CheckPrintedAt = printed
	tx.repo.disbs[id] = d
	return nil
}

func (tx *memoryTreasuryTx) SetCheckReleased(ctx context.Context, id int64, at time.Time, checkNumber string) error {
	d, ok := tx.repo.disbs[id]
	if !ok {
		return ErrNotFound
	}
	d.CheckReleasedAt = &at
	if checkNumber != "" {
		d.CheckNumber = checkNumber
	}
	tx.repo.disbs[id] = d
	return nil
}

func (tx *memoryTreasuryTx) SoftDeleteDisbursement(ctx context.Context, id int64) error {
	d, ok := tx.repo.disbs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	d.DeletedAt = &now
	tx.repo.disbs[id] = d
	return nil
}

func (tx *memoryTreasuryTx) RestoreDisbursement(ctx context.Context, id int64) error {
	d, ok := tx.repo.disbs[id]
	if !ok {
		return ErrNotFound
	}
	d.DeletedAt = nil
	tx.repo.disbs[id] = d
	return nil
}

func (tx *memoryTreasuryTx) ForceDeleteDisbursement(ctx context.Context, id int64) error {
	if _, ok := tx.repo.disbs[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.disbs, id)
	return nil
}

// memoryInvoices implements the accounts payable transaction surface so
// the release cascade can be exercised end to end.
type memoryInvoices struct {
	invoices map[int64]ap.Invoice
	nextID   int64
}

func newMemoryInvoices() *memoryInvoices {
	return &memoryInvoices{invoices: make(map[int64]ap.Invoice)}
}

func (m *memoryInvoices) GetInvoiceForUpdate(ctx context.Context, id int64) (ap.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return ap.Invoice{}, ap.ErrNotFound
	}
	return inv, nil
}

func (m *memoryInvoices) CreateInvoice(ctx context.Context, inv ap.Invoice) (int64, error) {
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (m *memoryInvoices) UpdateInvoice(ctx context.Context, inv ap.Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return ap.ErrNotFound
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memoryInvoices) UpdateInvoiceStatus(ctx context.Context, id int64, status policy.InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ap.ErrNotFound
	}
	inv.Status = status
	m.invoices[id] = inv
	return nil
}

func (m *memoryInvoices) SetInvoiceReview(ctx context.Context, id int64, status policy.InvoiceStatus, reviewerID int64, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ap.ErrNotFound
	}
	inv.Status = status
	inv.ReviewedBy = &reviewerID
	inv.ReviewedAt = &at
	m.invoices[id] = inv
	return nil
}

func (m *memoryInvoices) SoftDeleteInvoice(ctx context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return ap.ErrNotFound
	}
	return nil
}

func (m *memoryInvoices) RestoreInvoice(ctx context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return ap.ErrNotFound
	}
	return nil
}

func (m *memoryInvoices) ForceDeleteInvoice(ctx context.Context, id int64) error {
	delete(m.invoices, id)
	return nil
}

// memoryApprovals captures the submit/approve/reject trail.
type memoryApprovals struct {
	logs []shared.ApprovalLog
}

func (m *memoryApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	m.logs = append(m.logs, log)
	return nil
}

// memoryIdempotency mimics the unique-key store.
type memoryIdempotency struct {
	keys map[string]struct{}
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]struct{})}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func treasurerCtx() context.Context {
	actor := rbac.NewActor(7, []string{
		"check_requisitions.view", "check_requisitions.edit",
		"disbursements.view", "disbursements.edit",
	}, false)
	return shared.ContextWithActor(context.Background(), actor)
}

func treasuryViewerCtx() context.Context {
	actor := rbac.NewActor(8, []string{"check_requisitions.view", "disbursements.view"}, false)
	return shared.ContextWithActor(context.Background(), actor)
}

func treasuryAdminCtx() context.Context {
	return shared.ContextWithActor(context.Background(), rbac.NewActor(1, nil, true))
}

func noPermActor() rbac.Actor {
	return rbac.NewActor(9, nil, false)
}
