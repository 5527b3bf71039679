package ap

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// ListFilters narrows invoice listings.
type ListFilters struct {
	Page        int
	Limit       int
	Status      string
	VendorID    int64
	POID        int64
	Search      string
	WithTrashed bool
}

// TxRepository exposes mutations executed inside a transaction.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	UpdateInvoiceStatus(ctx context.Context, id int64, status policy.InvoiceStatus) error
	SetInvoiceReview(ctx context.Context, id int64, status policy.InvoiceStatus, reviewerID int64, at time.Time) error
	SoftDeleteInvoice(ctx context.Context, id int64) error
	RestoreInvoice(ctx context.Context, id int64) error
	ForceDeleteInvoice(ctx context.Context, id int64) error
}

// Repository describes invoice persistence used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const invoiceColumns = `id, number, po_id, vendor_id, status, amount, currency, invoice_date, due_date, note, reviewed_by, reviewed_at, created_by, created_at, updated_at, deleted_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.POID, &inv.VendorID, &inv.Status, &inv.Amount, &inv.Currency, &inv.InvoiceDate, &inv.DueDate, &inv.Note, &inv.ReviewedBy, &inv.ReviewedAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt, &inv.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
}

func (r *pgRepository) ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
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
	if filters.POID > 0 {
		argCount++
		where += ` AND po_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.POID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND number ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where + ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, inv)
	}
	return list, total, rows.Err()
}

func (r *pgRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE deleted_at IS NULL AND due_date < $1 AND status = ANY($2)`,
		asOf, []string{string(policy.InvoiceStatusPending), string(policy.InvoiceStatusReceived), string(policy.InvoiceStatusInProgress)})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository adapts an already-open transaction. The treasury release
// cascade uses it to flip invoice status atomically with the check.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (number, po_id, vendor_id, status, amount, currency, invoice_date, due_date, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		inv.Number, inv.POID, inv.VendorID, inv.Status, inv.Amount, inv.Currency, inv.InvoiceDate, inv.DueDate, inv.Note, inv.CreatedBy).
		Scan(&id)
	return id, err
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET number = $1, amount = $2, currency = $3, invoice_date = $4, due_date = $5, note = $6, updated_at = NOW() WHERE id = $7`,
		inv.Number, inv.Amount, inv.Currency, inv.InvoiceDate, inv.DueDate, inv.Note, inv.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdateInvoiceStatus(ctx context.Context, id int64, status policy.InvoiceStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetInvoiceReview(ctx context.Context, id int64, status policy.InvoiceStatus, reviewerID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = NOW() WHERE id = $4`,
		status, reviewerID, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SoftDeleteInvoice(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) RestoreInvoice(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ForceDeleteInvoice(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
