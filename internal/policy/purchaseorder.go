package policy

// Purchase order lifecycle statuses. closed and cancelled are terminal.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusOpen      POStatus = "open"
	POStatusClosed    POStatus = "closed"
	POStatusCancelled POStatus = "cancelled"
)

// PurchaseOrderView is the entity snapshot the purchase order policy reads.
// InvoiceCount is the number of invoices referencing the order, resolved by
// the data layer before the decision is requested.
type PurchaseOrderView struct {
	Status       POStatus
	InvoiceCount int
}

// poActionStates maps each state-guarded action to the statuses in which it
// is permitted. The table is the policy; the methods only consult it.
var poActionStates = map[Action][]POStatus{
	ActionUpdate:       {POStatusDraft, POStatusOpen},
	ActionUpdateVendor: {POStatusDraft, POStatusOpen},
	ActionCancel:       {POStatusDraft, POStatusOpen},
	ActionDelete:       {POStatusDraft},
	ActionFinalize:     {POStatusDraft},
	ActionClose:        {POStatusOpen},
}

var poDenyTemplates = map[Action]string{
	ActionUpdate:       "Cannot edit purchase order in '%s' status. Only draft or open purchase orders can be edited.",
	ActionUpdateVendor: "Cannot change vendor for purchase order in '%s' status. Only draft or open purchase orders can be modified.",
	ActionCancel:       "Cannot cancel purchase order in '%s' status. Closed or cancelled purchase orders cannot be cancelled.",
	ActionDelete:       "Cannot delete purchase order in '%s' status. Only draft purchase orders can be deleted.",
	ActionFinalize:     "Cannot finalize purchase order in '%s' status. Only draft purchase orders can be finalized.",
	ActionClose:        "Cannot close purchase order in '%s' status. Only open purchase orders can be closed.",
}

func poStateGuard(action Action, status POStatus) Decision {
	if statusIn(status, poActionStates[action]) {
		return Allow()
	}
	return Denyf(poDenyTemplates[action], status)
}

// PurchaseOrderPolicy authorizes actions on purchase orders.
type PurchaseOrderPolicy struct{}

// ViewAny authorizes listing purchase orders.
func (PurchaseOrderPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModulePurchaseOrders, accessRead, "view purchase orders")
}

// View authorizes reading a single purchase order.
func (PurchaseOrderPolicy) View(actor Actor, _ PurchaseOrderView) Decision {
	return requirePermission(actor, ModulePurchaseOrders, accessRead, "view purchase orders")
}

// Create authorizes creating a purchase order.
func (PurchaseOrderPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModulePurchaseOrders, accessWrite, "create purchase orders")
}

// Update authorizes editing order fields while the order is still open for edit.
func (PurchaseOrderPolicy) Update(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "edit purchase orders"); !d.Allowed {
		return d
	}
	return poStateGuard(ActionUpdate, po.Status)
}

// UpdateVendor authorizes reassigning the vendor. Reassignment is forbidden
// once any invoice references the order, even in draft.
func (PurchaseOrderPolicy) UpdateVendor(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "edit purchase orders"); !d.Allowed {
		return d
	}
	if d := poStateGuard(ActionUpdateVendor, po.Status); !d.Allowed {
		return d
	}
	if po.InvoiceCount > 0 {
		return Deny("Cannot change vendor on this purchase order because it has associated invoices. Remove the invoices first or create a new purchase order.")
	}
	return Allow()
}

// Delete authorizes soft deletion, draft orders only.
func (PurchaseOrderPolicy) Delete(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "delete purchase orders"); !d.Allowed {
		return d
	}
	return poStateGuard(ActionDelete, po.Status)
}

// Finalize authorizes the draft to open transition.
func (PurchaseOrderPolicy) Finalize(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "finalize purchase orders"); !d.Allowed {
		return d
	}
	return poStateGuard(ActionFinalize, po.Status)
}

// Close authorizes the open to closed transition.
func (PurchaseOrderPolicy) Close(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "close purchase orders"); !d.Allowed {
		return d
	}
	return poStateGuard(ActionClose, po.Status)
}

// Cancel authorizes cancellation from draft or open.
func (PurchaseOrderPolicy) Cancel(actor Actor, po PurchaseOrderView) Decision {
	if d := requirePermission(actor, ModulePurchaseOrders, accessWrite, "cancel purchase orders"); !d.Allowed {
		return d
	}
	return poStateGuard(ActionCancel, po.Status)
}

// Restore authorizes restoring a soft-deleted order. No state guard.
func (PurchaseOrderPolicy) Restore(actor Actor, _ PurchaseOrderView) Decision {
	return requirePermission(actor, ModulePurchaseOrders, accessWrite, "restore purchase orders")
}

// ForceDelete authorizes permanent deletion, admin only, regardless of state.
func (PurchaseOrderPolicy) ForceDelete(actor Actor, _ PurchaseOrderView) Decision {
	return requireAdmin(actor, "purchase orders")
}

// Decide dispatches a named action.
func (p PurchaseOrderPolicy) Decide(action Action, actor Actor, entity any) (Decision, error) {
	switch action {
	case ActionViewAny:
		return p.ViewAny(actor), nil
	case ActionCreate:
		return p.Create(actor), nil
	}
	po, err := snapshot[PurchaseOrderView](entity)
	if err != nil {
		return Decision{}, err
	}
	switch action {
	case ActionView:
		return p.View(actor, po), nil
	case ActionUpdate:
		return p.Update(actor, po), nil
	case ActionUpdateVendor:
		return p.UpdateVendor(actor, po), nil
	case ActionDelete:
		return p.Delete(actor, po), nil
	case ActionFinalize:
		return p.Finalize(actor, po), nil
	case ActionClose:
		return p.Close(actor, po), nil
	case ActionCancel:
		return p.Cancel(actor, po), nil
	case ActionRestore:
		return p.Restore(actor, po), nil
	case ActionForceDelete:
		return p.ForceDelete(actor, po), nil
	}
	return Decision{}, errUnknownAction(DocPurchaseOrder, action)
}
