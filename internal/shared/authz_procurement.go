package shared

// Procurement permissions declared for RBAC.
const (
	PermPurchaseOrdersView = "purchase_orders.view"
	PermPurchaseOrdersEdit = "purchase_orders.edit"
)

// ProcurementScopes lists all permissions related to purchase orders.
func ProcurementScopes() []string {
	return []string{
		PermPurchaseOrdersView,
		PermPurchaseOrdersEdit,
	}
}
