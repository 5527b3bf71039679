package policy

// Invoice lifecycle statuses. Once an invoice leaves pending/rejected it is
// locked from edits; paid is terminal and overdue is set by the background
// scan, not by a user action.
type InvoiceStatus string

const (
	InvoiceStatusPending             InvoiceStatus = "pending"
	InvoiceStatusReceived            InvoiceStatus = "received"
	InvoiceStatusInProgress          InvoiceStatus = "in_progress"
	InvoiceStatusApproved            InvoiceStatus = "approved"
	InvoiceStatusPendingDisbursement InvoiceStatus = "pending_disbursement"
	InvoiceStatusRejected            InvoiceStatus = "rejected"
	InvoiceStatusPaid                InvoiceStatus = "paid"
	InvoiceStatusOverdue             InvoiceStatus = "overdue"
)

// InvoiceView is the entity snapshot the invoice policy reads.
type InvoiceView struct {
	Status InvoiceStatus
}

// invoiceActionStates maps each state-guarded action to the statuses in
// which it is permitted. review accepts received in addition to pending
// while markReceived accepts pending only; the dual entry is intentional.
var invoiceActionStates = map[Action][]InvoiceStatus{
	ActionUpdate:       {InvoiceStatusPending, InvoiceStatusRejected},
	ActionDelete:       {InvoiceStatusPending, InvoiceStatusRejected},
	ActionReview:       {InvoiceStatusPending, InvoiceStatusReceived},
	ActionMarkReceived: {InvoiceStatusPending},
}

var invoiceDenyTemplates = map[Action]string{
	ActionUpdate:       "Cannot edit invoice in '%s' status. Only pending or rejected invoices can be edited.",
	ActionDelete:       "Cannot delete invoice in '%s' status. Only pending or rejected invoices can be deleted.",
	ActionReview:       "Cannot review invoice in '%s' status. Only pending or received invoices can be reviewed.",
	ActionMarkReceived: "Cannot mark invoice as received in '%s' status. Only pending invoices can be marked as received.",
}

func invoiceStateGuard(action Action, status InvoiceStatus) Decision {
	if statusIn(status, invoiceActionStates[action]) {
		return Allow()
	}
	return Denyf(invoiceDenyTemplates[action], status)
}

// InvoicePolicy authorizes actions on invoices. Review and mark-received
// require the invoice_review module, a distinct permission scope from plain
// invoice data entry: approval belongs to payables, entry to purchasing.
type InvoicePolicy struct{}

// ViewAny authorizes listing invoices.
func (InvoicePolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModuleInvoices, accessRead, "view invoices")
}

// View authorizes reading a single invoice.
func (InvoicePolicy) View(actor Actor, _ InvoiceView) Decision {
	return requirePermission(actor, ModuleInvoices, accessRead, "view invoices")
}

// Create authorizes creating an invoice.
func (InvoicePolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModuleInvoices, accessWrite, "create invoices")
}

// Update authorizes editing while the invoice is pending or rejected.
func (InvoicePolicy) Update(actor Actor, inv InvoiceView) Decision {
	if d := requirePermission(actor, ModuleInvoices, accessWrite, "edit invoices"); !d.Allowed {
		return d
	}
	return invoiceStateGuard(ActionUpdate, inv.Status)
}

// Delete authorizes soft deletion while the invoice is pending or rejected.
func (InvoicePolicy) Delete(actor Actor, inv InvoiceView) Decision {
	if d := requirePermission(actor, ModuleInvoices, accessWrite, "delete invoices"); !d.Allowed {
		return d
	}
	return invoiceStateGuard(ActionDelete, inv.Status)
}

// Review authorizes approve/reject, pending or received invoices only.
func (InvoicePolicy) Review(actor Actor, inv InvoiceView) Decision {
	if d := requirePermission(actor, ModuleInvoiceReview, accessWrite, "review invoices"); !d.Allowed {
		return d
	}
	return invoiceStateGuard(ActionReview, inv.Status)
}

// MarkReceived authorizes the pending to received transition.
func (InvoicePolicy) MarkReceived(actor Actor, inv InvoiceView) Decision {
	if d := requirePermission(actor, ModuleInvoiceReview, accessWrite, "mark invoices as received"); !d.Allowed {
		return d
	}
	return invoiceStateGuard(ActionMarkReceived, inv.Status)
}

// Restore authorizes restoring a soft-deleted invoice. No state guard.
func (InvoicePolicy) Restore(actor Actor, _ InvoiceView) Decision {
	return requirePermission(actor, ModuleInvoices, accessWrite, "restore invoices")
}

// ForceDelete authorizes permanent deletion, admin only, regardless of state.
func (InvoicePolicy) ForceDelete(actor Actor, _ InvoiceView) Decision {
	return requireAdmin(actor, "invoices")
}

// Decide dispatches a named action.
func (p InvoicePolicy) Decide(action Action, actor Actor, entity any) (Decision, error) {
	switch action {
	case ActionViewAny:
		return p.ViewAny(actor), nil
	case ActionCreate:
		return p.Create(actor), nil
	}
	inv, err := snapshot[InvoiceView](entity)
	if err != nil {
		return Decision{}, err
	}
	switch action {
	case ActionView:
		return p.View(actor, inv), nil
	case ActionUpdate:
		return p.Update(actor, inv), nil
	case ActionDelete:
		return p.Delete(actor, inv), nil
	case ActionReview:
		return p.Review(actor, inv), nil
	case ActionMarkReceived:
		return p.MarkReceived(actor, inv), nil
	case ActionRestore:
		return p.Restore(actor, inv), nil
	case ActionForceDelete:
		return p.ForceDelete(actor, inv), nil
	}
	return Decision{}, errUnknownAction(DocInvoice, action)
}
