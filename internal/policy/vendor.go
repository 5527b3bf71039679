package policy

// VendorPolicy authorizes actions on vendors. Vendors carry no lifecycle
// state, so every check is permission-only; the denial wording uses a
// per-action verb.
type VendorPolicy struct{}

var vendorActionLabels = map[Action]string{
	ActionViewAny:    "view vendors",
	ActionView:       "view vendors",
	ActionCreate:     "create vendors",
	ActionUpdate:     "edit vendors",
	ActionDelete:     "delete vendors",
	ActionRestore:    "restore vendors",
	ActionBulkManage: "bulk manage vendors",
}

// ViewAny authorizes listing vendors.
func (VendorPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessRead, vendorActionLabels[ActionViewAny])
}

// View authorizes reading a single vendor.
func (VendorPolicy) View(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessRead, vendorActionLabels[ActionView])
}

// Create authorizes creating a vendor.
func (VendorPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessWrite, vendorActionLabels[ActionCreate])
}

// Update authorizes editing a vendor.
func (VendorPolicy) Update(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessWrite, vendorActionLabels[ActionUpdate])
}

// Delete authorizes soft-deleting a vendor.
func (VendorPolicy) Delete(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessWrite, vendorActionLabels[ActionDelete])
}

// Restore authorizes restoring a soft-deleted vendor.
func (VendorPolicy) Restore(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessWrite, vendorActionLabels[ActionRestore])
}

// BulkManage authorizes bulk activate/deactivate of vendors.
func (VendorPolicy) BulkManage(actor Actor) Decision {
	return requirePermission(actor, ModuleVendors, accessWrite, vendorActionLabels[ActionBulkManage])
}

// ForceDelete authorizes permanent deletion, admin only.
func (VendorPolicy) ForceDelete(actor Actor) Decision {
	return requireAdmin(actor, "vendors")
}

// Decide dispatches a named action.
func (p VendorPolicy) Decide(action Action, actor Actor, _ any) (Decision, error) {
	switch action {
	case ActionViewAny:
		return p.ViewAny(actor), nil
	case ActionView:
		return p.View(actor), nil
	case ActionCreate:
		return p.Create(actor), nil
	case ActionUpdate:
		return p.Update(actor), nil
	case ActionDelete:
		return p.Delete(actor), nil
	case ActionRestore:
		return p.Restore(actor), nil
	case ActionBulkManage:
		return p.BulkManage(actor), nil
	case ActionForceDelete:
		return p.ForceDelete(actor), nil
	}
	return Decision{}, errUnknownAction(DocVendor, action)
}
