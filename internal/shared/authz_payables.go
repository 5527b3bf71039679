package shared

// Payables permissions declared for RBAC. Invoice review is a scope of its
// own: approving invoices is a payables responsibility, entering them a
// purchasing one, and the two must not conflate.
const (
	PermInvoicesView = "invoices.view"
	PermInvoicesEdit = "invoices.edit"

	PermInvoiceReviewView = "invoice_review.view"
	PermInvoiceReviewEdit = "invoice_review.edit"
)

// PayablesScopes lists all permissions related to invoices.
func PayablesScopes() []string {
	return []string{
		PermInvoicesView,
		PermInvoicesEdit,
		PermInvoiceReviewView,
		PermInvoiceReviewEdit,
	}
}
