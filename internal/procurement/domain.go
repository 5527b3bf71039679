package procurement

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// PurchaseOrder domain model. Status transitions are authorized by the
// purchase order policy; closed and cancelled are terminal.
type PurchaseOrder struct {
	ID           int64             `json:"id"`
	Number       string            `json:"number"`
	VendorID     int64             `json:"vendor_id"`
	ProjectID    int64             `json:"project_id"`
	Status       policy.POStatus   `json:"status"`
	Currency     string            `json:"currency"`
	OrderDate    time.Time         `json:"order_date"`
	ExpectedDate time.Time         `json:"expected_date"`
	Note         string            `json:"note"`
	CreatedBy    int64             `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    *time.Time        `json:"deleted_at,omitempty"`
}

// POLine represents an ordered item.
type POLine struct {
	ID          int64   `json:"id"`
	POID        int64   `json:"po_id"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total sums line amounts.
func Total(lines []POLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Qty * line.UnitPrice
	}
	return total
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
)
