package treasury

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// CheckRequisition is a request to cut a check for a vendor, usually
// backed by an approved invoice. It moves through draft, pending_approval,
// approved/rejected, processed (a disbursement was cut) and paid.
type CheckRequisition struct {
	ID         int64                    `json:"id"`
	Number     string                   `json:"number"`
	Ref        uuid.UUID                `json:"ref"`
	InvoiceID  *int64                   `json:"invoice_id,omitempty"`
	VendorID   int64                    `json:"vendor_id"`
	Status     policy.RequisitionStatus `json:"status"`
	Amount     float64                  `json:"amount"`
	Currency   string                   `json:"currency"`
	Purpose    string                   `json:"purpose"`
	Note       string                   `json:"note,omitempty"`
	ApprovedBy *int64                   `json:"approved_by,omitempty"`
	ApprovedAt *time.Time               `json:"approved_at,omitempty"`
	CreatedBy  int64                    `json:"created_by"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
	DeletedAt  *time.Time               `json:"deleted_at,omitempty"`
}

// View returns the snapshot the authorization layer reads.
func (cr CheckRequisition) View() policy.RequisitionView {
	return policy.RequisitionView{Status: cr.Status}
}

// Disbursement is the payment side of an approved requisition. It carries
// no status column; the lifecycle lives in three nullable check dates set
// in causal order: scheduled, printed, released.
type Disbursement struct {
	ID               int64      `json:"id"`
	Number           string     `json:"number"`
	RequisitionID    int64      `json:"requisition_id"`
	InvoiceID        *int64     `json:"invoice_id,omitempty"`
	VendorID         int64      `json:"vendor_id"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	CheckNumber      string     `json:"check_number,omitempty"`
	CheckScheduledAt *time.Time `json:"check_scheduled_at,omitempty"`
	CheckPrintedAt   *time.Time `json:"check_printed_at,omitempty"`
	CheckReleasedAt  *time.Time `json:"check_released_at,omitempty"`
	Note             string     `json:"note,omitempty"`
	CreatedBy        int64      `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// View returns the snapshot the authorization layer reads.
func (d Disbursement) View() policy.DisbursementView {
	return policy.DisbursementView{
		CheckScheduledAt: d.CheckScheduledAt,
		CheckPrintedAt:   d.CheckPrintedAt,
		CheckReleasedAt:  d.CheckReleasedAt,
	}
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("treasury: not found")
	// ErrValidation indicates the payload failed domain validation.
	ErrValidation = errors.New("treasury: validation failed")
	// ErrInvalidState indicates a system transition found the record in a
	// state it cannot move from.
	ErrInvalidState = errors.New("treasury: invalid state transition")
)
