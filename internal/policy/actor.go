package policy

// Module names checked against the permission resolver. Each module is a
// named permission scope, independent of entity state.
const (
	ModuleVendors           = "vendors"
	ModuleProjects          = "projects"
	ModulePurchaseOrders    = "purchase_orders"
	ModuleInvoices          = "invoices"
	ModuleInvoiceReview     = "invoice_review"
	ModuleCheckRequisitions = "check_requisitions"
	ModuleDisbursements     = "disbursements"
)

// Actor is the capability view of the authenticated user. Implementations
// resolve module permissions however they like (RBAC tables, fixtures);
// the policies only ask these three questions.
type Actor interface {
	CanRead(module string) bool
	CanWrite(module string) bool
	IsAdmin() bool
}

type accessMode int

const (
	accessRead accessMode = iota
	accessWrite
)

// requirePermission checks the module capability before any state guard is
// consulted. The label is the human phrase interpolated into the denial,
// e.g. "edit vendors".
func requirePermission(actor Actor, module string, mode accessMode, label string) Decision {
	ok := false
	switch mode {
	case accessRead:
		ok = actor.CanRead(module)
	case accessWrite:
		ok = actor.CanWrite(module)
	}
	if ok {
		return Allow()
	}
	return Denyf("You do not have permission to %s.", label)
}

// requireAdmin gates force deletion. Admin override applies regardless of
// entity state.
func requireAdmin(actor Actor, noun string) Decision {
	if actor.IsAdmin() {
		return Allow()
	}
	return Denyf("Only administrators can permanently delete %s.", noun)
}

func statusIn[S ~string](status S, allowed []S) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}
