package ap

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// Invoice domain model. User-facing transitions go through the invoice
// policy; pending_disbursement, paid and overdue are set by the system
// (disbursement cascade and the overdue scan).
type Invoice struct {
	ID          int64                `json:"id"`
	Number      string               `json:"number"`
	POID        int64                `json:"po_id"`
	VendorID    int64                `json:"vendor_id"`
	Status      policy.InvoiceStatus `json:"status"`
	Amount      float64              `json:"amount"`
	Currency    string               `json:"currency"`
	InvoiceDate time.Time            `json:"invoice_date"`
	DueDate     time.Time            `json:"due_date"`
	Note        string               `json:"note"`
	ReviewedBy  *int64               `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	CreatedBy   int64                `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   *time.Time           `json:"deleted_at,omitempty"`
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("ap: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("ap: invalid input")
	// ErrInvalidState occurs when a system transition meets an unexpected
	// status, e.g. marking an invoice paid that is not awaiting payment.
	ErrInvalidState = errors.New("ap: invalid state transition")
)
