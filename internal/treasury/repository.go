package treasury

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// RequisitionFilters narrows requisition listings.
type RequisitionFilters struct {
	Page        int
	Limit       int
	Status      string
	VendorID    int64
	Search      string
	WithTrashed bool
}

// DisbursementFilters narrows disbursement listings.
type DisbursementFilters struct {
	Page          int
	Limit         int
	VendorID      int64
	RequisitionID int64
	Released      *bool
	Search        string
	WithTrashed   bool
}

// TxRepository exposes mutations executed inside a transaction. Requisition
// and disbursement rows live in the same store so the release cascade can
// lock and update both under one commit.
type TxRepository interface {
	GetRequisitionForUpdate(ctx context.Context, id int64) (CheckRequisition, error)
	CreateRequisition(ctx context.Context, cr CheckRequisition) (int64, error)
	UpdateRequisition(ctx context.Context, cr CheckRequisition) error
	UpdateRequisitionStatus(ctx context.Context, id int64, status policy.RequisitionStatus) error
	SetRequisitionApproval(ctx context.Context, id int64, status policy.RequisitionStatus, approverID int64, at time.Time) error
	SoftDeleteRequisition(ctx context.Context, id int64) error
	RestoreRequisition(ctx context.Context, id int64) error
	ForceDeleteRequisition(ctx context.Context, id int64) error

	GetDisbursementForUpdate(ctx context.Context, id int64) (Disbursement, error)
	CreateDisbursement(ctx context.Context, d Disbursement) (int64, error)
	UpdateDisbursement(ctx context.Context, d Disbursement) error
	SetCheckDates(ctx context.Context, id int64, scheduled, printed *time.Time) error
	SetCheckReleased(ctx context.Context, id int64, at time.Time, checkNumber string) error
	SoftDeleteDisbursement(ctx context.Context, id int64) error
	RestoreDisbursement(ctx context.Context, id int64) error
	ForceDeleteDisbursement(ctx context.Context, id int64) error

	// Invoices returns the accounts payable view of the same transaction.
	Invoices() ap.TxRepository
}

// Repository describes treasury persistence used by the services.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequisition(ctx context.Context, id int64) (CheckRequisition, error)
	ListRequisitions(ctx context.Context, filters RequisitionFilters) ([]CheckRequisition, int, error)
	GetDisbursement(ctx context.Context, id int64) (Disbursement, error)
	ListDisbursements(ctx context.Context, filters DisbursementFilters) ([]Disbursement, int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const requisitionColumns = `id, number, ref, invoice_id, vendor_id, status, amount, currency, purpose, note, approved_by, approved_at, created_by, created_at, updated_at, deleted_at`

const disbursementColumns = `id, number, requisition_id, invoice_id, vendor_id, amount, currency, check_number, check_scheduled_at, check_printed_at, check_released_at, note, created_by, created_at, updated_at, deleted_at`

func scanRequisition(row pgx.Row) (CheckRequisition, error) {
	var cr CheckRequisition
	err := row.Scan(&cr.ID, &cr.Number, &cr.Ref, &cr.InvoiceID, &cr.VendorID, &cr.Status, &cr.Amount, &cr.Currency, &cr.Purpose, &cr.Note, &cr.ApprovedBy, &cr.ApprovedAt, &cr.CreatedBy, &cr.CreatedAt, &cr.UpdatedAt, &cr.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CheckRequisition{}, ErrNotFound
		}
		return CheckRequisition{}, err
	}
	return cr, nil
}

func scanDisbursement(row pgx.Row) (Disbursement, error) {
	var d Disbursement
	err := row.Scan(&d.ID, &d.Number, &d.RequisitionID, &d.InvoiceID, &d.VendorID, &d.Amount, &d.Currency, &d.CheckNumber, &d.CheckScheduledAt, &d.CheckPrintedAt, &d.CheckReleasedAt, &d.Note, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Disbursement{}, ErrNotFound
		}
		return Disbursement{}, err
	}
	return d, nil
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *pgRepository) GetRequisition(ctx context.Context, id int64) (CheckRequisition, error) {
	return scanRequisition(r.pool.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM check_requisitions WHERE id = $1`, id))
}

func (r *pgRepository) ListRequisitions(ctx context.Context, filters RequisitionFilters) ([]CheckRequisition, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if !filters.WithTrashed {
		where += ` AND deleted_at IS NULL`
	}
	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.VendorID > 0 {
		argCount++
		where += ` AND vendor_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.VendorID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (number ILIKE $` + strconv.Itoa(argCount) + ` OR purpose ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM check_requisitions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requisitionColumns + ` FROM check_requisitions` + where + ` ORDER BY created_at DESC`
	args, query = appendPaging(args, query, filters.Page, filters.Limit, argCount)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []CheckRequisition
	for rows.Next() {
		cr, err := scanRequisition(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, cr)
	}
	return list, total, rows.Err()
}

func (r *pgRepository) GetDisbursement(ctx context.Context, id int64) (Disbursement, error) {
	return scanDisbursement(r.pool.QueryRow(ctx, `SELECT `+disbursementColumns+` FROM disbursements WHERE id = $1`, id))
}

func (r *pgRepository) ListDisbursements(ctx context.Context, filters DisbursementFilters) ([]Disbursement, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if !filters.WithTrashed {
		where += ` AND deleted_at IS NULL`
	}
	if filters.VendorID > 0 {
		argCount++
		where += ` AND vendor_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.VendorID)
	}
	if filters.RequisitionID > 0 {
		argCount++
		where += ` AND requisition_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.RequisitionID)
	}
	if filters.Released != nil {
		if *filters.Released {
			where += ` AND check_released_at IS NOT NULL`
		} else {
			where += ` AND check_released_at IS NULL`
		}
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (number ILIKE $` + strconv.Itoa(argCount) + ` OR check_number ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM disbursements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + disbursementColumns + ` FROM disbursements` + where + ` ORDER BY created_at DESC`
	args, query = appendPaging(args, query, filters.Page, filters.Limit, argCount)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Disbursement
	for rows.Next() {
		d, err := scanDisbursement(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, d)
	}
	return list, total, rows.Err()
}

func appendPaging(args []interface{}, query string, page, limit, argCount int) ([]interface{}, string) {
	if limit <= 0 {
		return args, query
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, offset)
	return args, query
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) Invoices() ap.TxRepository {
	return ap.NewTxRepository(t.tx)
}

func (t *txRepo) GetRequisitionForUpdate(ctx context.Context, id int64) (CheckRequisition, error) {
	return scanRequisition(t.tx.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM check_requisitions WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) CreateRequisition(ctx context.Context, cr CheckRequisition) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO check_requisitions (number, ref, invoice_id, vendor_id, status, amount, currency, purpose, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING id`, cr.Number, cr.Ref, cr.InvoiceID, cr.VendorID, cr.Status, cr.Amount, cr.Currency, cr.Purpose, cr.Note, cr.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateRequisition(ctx context.Context, cr CheckRequisition) error {
	tag, err := t.tx.Exec(ctx, `UPDATE check_requisitions
SET invoice_id = $2, vendor_id = $3, amount = $4, currency = $5, purpose = $6, note = $7, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, cr.ID, cr.InvoiceID, cr.VendorID, cr.Amount, cr.Currency, cr.Purpose, cr.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdateRequisitionStatus(ctx context.Context, id int64, status policy.RequisitionStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE check_requisitions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetRequisitionApproval(ctx context.Context, id int64, status policy.RequisitionStatus, approverID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE check_requisitions
SET status = $2, approved_by = $3, approved_at = $4, updated_at = NOW()
WHERE id = $1`, id, status, approverID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SoftDeleteRequisition(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE check_requisitions SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) RestoreRequisition(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE check_requisitions SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ForceDeleteRequisition(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM check_requisitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) GetDisbursementForUpdate(ctx context.Context, id int64) (Disbursement, error) {
	return scanDisbursement(t.tx.QueryRow(ctx, `SELECT `+disbursementColumns+` FROM disbursements WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) CreateDisbursement(ctx context.Context, d Disbursement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO disbursements (number, requisition_id, invoice_id, vendor_id, amount, currency, check_number, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING id`, d.Number, d.RequisitionID, d.InvoiceID, d.VendorID, d.Amount, d.Currency, d.CheckNumber, d.Note, d.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateDisbursement(ctx context.Context, d Disbursement) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements
SET amount = $2, currency = $3, check_number = $4, note = $5, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, d.ID, d.Amount, d.Currency, d.CheckNumber, d.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetCheckDates(ctx context.Context, id int64, scheduled, printed *time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements
SET check_scheduled_at = $2, check_printed_at = $3, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, scheduled, printed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetCheckReleased(ctx context.Context, id int64, at time.Time, checkNumber string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements
SET check_released_at = $2, check_number = COALESCE(NULLIF($3, ''), check_number), updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, at, checkNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SoftDeleteDisbursement(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) RestoreDisbursement(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE disbursements SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ForceDeleteDisbursement(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM disbursements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
