package shared

// Treasury permissions declared for RBAC.
const (
	PermCheckRequisitionsView = "check_requisitions.view"
	PermCheckRequisitionsEdit = "check_requisitions.edit"

	PermDisbursementsView = "disbursements.view"
	PermDisbursementsEdit = "disbursements.edit"
)

// TreasuryScopes lists all permissions related to check requisitions and
// disbursements.
func TreasuryScopes() []string {
	return []string{
		PermCheckRequisitionsView,
		PermCheckRequisitionsEdit,
		PermDisbursementsView,
		PermDisbursementsEdit,
	}
}
