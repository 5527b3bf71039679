package policy

// Check requisition lifecycle statuses.
type RequisitionStatus string

const (
	RequisitionStatusDraft           RequisitionStatus = "draft"
	RequisitionStatusPendingApproval RequisitionStatus = "pending_approval"
	RequisitionStatusApproved        RequisitionStatus = "approved"
	RequisitionStatusRejected        RequisitionStatus = "rejected"
	RequisitionStatusProcessed       RequisitionStatus = "processed"
	RequisitionStatusPaid            RequisitionStatus = "paid"
)

// RequisitionView is the entity snapshot the requisition policy reads.
type RequisitionView struct {
	Status RequisitionStatus
}

// requisitionActionStates maps each state-guarded action to the statuses in
// which it is permitted. Note the asymmetry: rejected requisitions can be
// edited (revised before resubmission) but not deleted. The delete list is
// a whitelist on purpose.
var requisitionActionStates = map[Action][]RequisitionStatus{
	ActionUpdate:  {RequisitionStatusDraft, RequisitionStatusPendingApproval, RequisitionStatusRejected},
	ActionDelete:  {RequisitionStatusDraft, RequisitionStatusPendingApproval},
	ActionApprove: {RequisitionStatusPendingApproval},
	ActionReject:  {RequisitionStatusPendingApproval},
}

var requisitionDenyTemplates = map[Action]string{
	ActionUpdate:  "Cannot edit check requisition in '%s' status. Approved, processed, or paid requisitions cannot be edited.",
	ActionDelete:  "Cannot delete check requisition in '%s' status. Only draft or pending approval requisitions can be deleted.",
	ActionApprove: "Cannot approve check requisition in '%s' status. Only pending approval requisitions can be approved.",
	ActionReject:  "Cannot reject check requisition in '%s' status. Only pending approval requisitions can be rejected.",
}

func requisitionStateGuard(action Action, status RequisitionStatus) Decision {
	if statusIn(status, requisitionActionStates[action]) {
		return Allow()
	}
	return Denyf(requisitionDenyTemplates[action], status)
}

// RequisitionPolicy authorizes actions on check requisitions.
type RequisitionPolicy struct{}

// ViewAny authorizes listing requisitions.
func (RequisitionPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModuleCheckRequisitions, accessRead, "view check requisitions")
}

// View authorizes reading a single requisition.
func (RequisitionPolicy) View(actor Actor, _ RequisitionView) Decision {
	return requirePermission(actor, ModuleCheckRequisitions, accessRead, "view check requisitions")
}

// Create authorizes creating a requisition.
func (RequisitionPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModuleCheckRequisitions, accessWrite, "create check requisitions")
}

// Update authorizes editing before the requisition is approved.
func (RequisitionPolicy) Update(actor Actor, cr RequisitionView) Decision {
	if d := requirePermission(actor, ModuleCheckRequisitions, accessWrite, "edit check requisitions"); !d.Allowed {
		return d
	}
	return requisitionStateGuard(ActionUpdate, cr.Status)
}

// Delete authorizes soft deletion, draft or pending approval only.
func (RequisitionPolicy) Delete(actor Actor, cr RequisitionView) Decision {
	if d := requirePermission(actor, ModuleCheckRequisitions, accessWrite, "delete check requisitions"); !d.Allowed {
		return d
	}
	return requisitionStateGuard(ActionDelete, cr.Status)
}

// Approve authorizes the pending_approval to approved transition.
func (RequisitionPolicy) Approve(actor Actor, cr RequisitionView) Decision {
	if d := requirePermission(actor, ModuleCheckRequisitions, accessWrite, "approve check requisitions"); !d.Allowed {
		return d
	}
	return requisitionStateGuard(ActionApprove, cr.Status)
}

// Reject authorizes the pending_approval to rejected transition.
func (RequisitionPolicy) Reject(actor Actor, cr RequisitionView) Decision {
	if d := requirePermission(actor, ModuleCheckRequisitions, accessWrite, "reject check requisitions"); !d.Allowed {
		return d
	}
	return requisitionStateGuard(ActionReject, cr.Status)
}

// Restore authorizes restoring a soft-deleted requisition. No state guard.
func (RequisitionPolicy) Restore(actor Actor, _ RequisitionView) Decision {
	return requirePermission(actor, ModuleCheckRequisitions, accessWrite, "restore check requisitions")
}

// ForceDelete authorizes permanent deletion, admin only, regardless of state.
func (RequisitionPolicy) ForceDelete(actor Actor, _ RequisitionView) Decision {
	return requireAdmin(actor, "check requisitions")
}

// Decide dispatches a named action.
func (p RequisitionPolicy) Decide(action Action, actor Actor, entity any) (Decision, error) {
	switch action {
	case ActionViewAny:
		return p.ViewAny(actor), nil
	case ActionCreate:
		return p.Create(actor), nil
	}
	cr, err := snapshot[RequisitionView](entity)
	if err != nil {
		return Decision{}, err
	}
	switch action {
	case ActionView:
		return p.View(actor, cr), nil
	case ActionUpdate:
		return p.Update(actor, cr), nil
	case ActionDelete:
		return p.Delete(actor, cr), nil
	case ActionApprove:
		return p.Approve(actor, cr), nil
	case ActionReject:
		return p.Reject(actor, cr), nil
	case ActionRestore:
		return p.Restore(actor, cr), nil
	case ActionForceDelete:
		return p.ForceDelete(actor, cr), nil
	}
	return Decision{}, errUnknownAction(DocCheckRequisition, action)
}
