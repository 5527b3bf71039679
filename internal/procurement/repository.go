package procurement

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

// ListFilters narrows purchase order listings.
type ListFilters struct {
	Page        int
	Limit       int
	Status      string
	VendorID    int64
	ProjectID   int64
	Search      string
	WithTrashed bool
}

// TxRepository exposes mutations executed inside a transaction.
type TxRepository interface {
	GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOLine(ctx context.Context, line POLine) error
	DeletePOLines(ctx context.Context, poID int64) error
	UpdatePO(ctx context.Context, po PurchaseOrder) error
	UpdatePOVendor(ctx context.Context, id, vendorID int64) error
	UpdatePOStatus(ctx context.Context, id int64, status policy.POStatus) error
	SoftDeletePO(ctx context.Context, id int64) error
	RestorePO(ctx context.Context, id int64) error
	ForceDeletePO(ctx context.Context, id int64) error
	CountInvoices(ctx context.Context, poID int64) (int, error)
}

// Repository describes purchase order persistence used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []POLine, error)
	ListPOs(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error)
	CountInvoices(ctx context.Context, poID int64) (int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const poColumns = `id, number, vendor_id, project_id, status, currency, order_date, expected_date, note, created_by, created_at, updated_at, deleted_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.VendorID, &po.ProjectID, &po.Status, &po.Currency, &po.OrderDate, &po.ExpectedDate, &po.Note, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt, &po.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *pgRepository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POLine, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, po_id, description, qty, unit_price FROM purchase_order_lines WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()

	var lines []POLine
	for rows.Next() {
		var line POLine
		if err := rows.Scan(&line.ID, &line.POID, &line.Description, &line.Qty, &line.UnitPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		lines = append(lines, line)
	}
	return po, lines, rows.Err()
}

func (r *pgRepository) ListPOs(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
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
	if filters.ProjectID > 0 {
		argCount++
		where += ` AND project_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.ProjectID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND number ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where + ` ORDER BY created_at DESC`
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

	var list []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, po)
	}
	return list, total, rows.Err()
}

func (r *pgRepository) CountInvoices(ctx context.Context, poID int64) (int, error) {
	return countInvoices(ctx, r.pool, poID)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countInvoices(ctx context.Context, q queryer, poID int64) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE po_id = $1 AND deleted_at IS NULL`, poID).Scan(&count)
	return count, err
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return scanPO(t.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, vendor_id, project_id, status, currency, order_date, expected_date, note, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		po.Number, po.VendorID, po.ProjectID, po.Status, po.Currency, po.OrderDate, po.ExpectedDate, po.Note, po.CreatedBy).
		Scan(&id)
	return id, err
}

func (t *txRepo) InsertPOLine(ctx context.Context, line POLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_lines (po_id, description, qty, unit_price) VALUES ($1, $2, $3, $4)`,
		line.POID, line.Description, line.Qty, line.UnitPrice)
	return err
}

func (t *txRepo) DeletePOLines(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE po_id = $1`, poID)
	return err
}

func (t *txRepo) UpdatePO(ctx context.Context, po PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET project_id = $1, currency = $2, order_date = $3, expected_date = $4, note = $5, updated_at = $6 WHERE id = $7`,
		po.ProjectID, po.Currency, po.OrderDate, po.ExpectedDate, po.Note, time.Now(), po.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdatePOVendor(ctx context.Context, id, vendorID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET vendor_id = $1, updated_at = NOW() WHERE id = $2`, vendorID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id int64, status policy.POStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SoftDeletePO(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) RestorePO(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ForceDeletePO(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE po_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) CountInvoices(ctx context.Context, poID int64) (int, error) {
	return countInvoices(ctx, t.tx, poID)
}
