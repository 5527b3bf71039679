package shared

// Master data permissions declared for RBAC.
const (
	PermVendorsView = "vendors.view"
	PermVendorsEdit = "vendors.edit"

	PermProjectsView = "projects.view"
	PermProjectsEdit = "projects.edit"
)

// MasterDataScopes lists all permissions related to vendors and projects.
func MasterDataScopes() []string {
	return []string{
		PermVendorsView,
		PermVendorsEdit,
		PermProjectsView,
		PermProjectsEdit,
	}
}
