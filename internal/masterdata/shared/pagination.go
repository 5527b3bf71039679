package shared

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string

	// IsActive narrows vendors by their active flag.
	IsActive *bool
	// WithTrashed includes soft-deleted rows in the listing.
	WithTrashed bool

	// Entity specific filters
	VendorID  *int64
	ProjectID *int64
}
