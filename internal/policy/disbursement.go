package policy

import "time"

// DisbursementView is the entity snapshot the disbursement policy reads.
// Disbursements have no status enum; the lifecycle is carried by three
// nullable check dates set in causal order: scheduled, printed, released.
// A non-nil released date is the terminal state.
type DisbursementView struct {
	CheckScheduledAt *time.Time
	CheckPrintedAt   *time.Time
	CheckReleasedAt  *time.Time
}

// Released reports whether the check has left the building.
func (d DisbursementView) Released() bool {
	return d.CheckReleasedAt != nil
}

// Pristine reports whether no check activity has been recorded at all.
func (d DisbursementView) Pristine() bool {
	return d.CheckScheduledAt == nil && d.CheckPrintedAt == nil && d.CheckReleasedAt == nil
}

func releasedOn(d DisbursementView) string {
	return d.CheckReleasedAt.Format("2006-01-02")
}

// DisbursementPolicy authorizes actions on disbursements.
type DisbursementPolicy struct{}

// ViewAny authorizes listing disbursements.
func (DisbursementPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModuleDisbursements, accessRead, "view disbursements")
}

// View authorizes reading a single disbursement.
func (DisbursementPolicy) View(actor Actor, _ DisbursementView) Decision {
	return requirePermission(actor, ModuleDisbursements, accessRead, "view disbursements")
}

// Create authorizes creating a disbursement.
func (DisbursementPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModuleDisbursements, accessWrite, "create disbursements")
}

// Update authorizes editing until the check is released.
func (DisbursementPolicy) Update(actor Actor, d DisbursementView) Decision {
	if dec := requirePermission(actor, ModuleDisbursements, accessWrite, "edit disbursements"); !dec.Allowed {
		return dec
	}
	if d.Released() {
		return Denyf("Cannot edit disbursement: the check was released to the vendor on %s.", releasedOn(d))
	}
	return Allow()
}

// Delete authorizes soft deletion only when no check activity exists.
func (DisbursementPolicy) Delete(actor Actor, d DisbursementView) Decision {
	if dec := requirePermission(actor, ModuleDisbursements, accessWrite, "delete disbursements"); !dec.Allowed {
		return dec
	}
	if d.Released() {
		return Denyf("Cannot delete disbursement: the check was released to the vendor on %s.", releasedOn(d))
	}
	if !d.Pristine() {
		return Deny("Cannot delete a disbursement with check activity. Only disbursements with no scheduled, printed, or released dates can be deleted.")
	}
	return Allow()
}

// UpdateCheckDates authorizes adjusting the scheduled/printed dates until
// the check is released.
func (DisbursementPolicy) UpdateCheckDates(actor Actor, d DisbursementView) Decision {
	if dec := requirePermission(actor, ModuleDisbursements, accessWrite, "update check dates"); !dec.Allowed {
		return dec
	}
	if d.Released() {
		return Denyf("Cannot update check dates: the check was released to the vendor on %s.", releasedOn(d))
	}
	return Allow()
}

// ReleaseCheck authorizes releasing the check to the vendor. The guard also
// makes release idempotent: a released check cannot be released again.
func (DisbursementPolicy) ReleaseCheck(actor Actor, d DisbursementView) Decision {
	if dec := requirePermission(actor, ModuleDisbursements, accessWrite, "release checks"); !dec.Allowed {
		return dec
	}
	if d.Released() {
		return Denyf("Cannot release check: it was already released to the vendor on %s.", releasedOn(d))
	}
	return Allow()
}

// Restore authorizes restoring a soft-deleted disbursement. No state guard.
func (DisbursementPolicy) Restore(actor Actor, _ DisbursementView) Decision {
	return requirePermission(actor, ModuleDisbursements, accessWrite, "restore disbursements")
}

// ForceDelete authorizes permanent deletion, admin only, regardless of state.
func (DisbursementPolicy) ForceDelete(actor Actor, _ DisbursementView) Decision {
	return requireAdmin(actor, "disbursements")
}

// Decide dispatches a named action.
func (p DisbursementPolicy) Decide(action Action, actor Actor, entity any) (Decision, error) {
	switch action {
	case ActionViewAny:
		return p.ViewAny(actor), nil
	case ActionCreate:
		return p.Create(actor), nil
	}
	d, err := snapshot[DisbursementView](entity)
	if err != nil {
		return Decision{}, err
	}
	switch action {
	case ActionView:
		return p.View(actor, d), nil
	case ActionUpdate:
		return p.Update(actor, d), nil
	case ActionDelete:
		return p.Delete(actor, d), nil
	case ActionUpdateCheckDates:
		return p.UpdateCheckDates(actor, d), nil
	case ActionReleaseCheck:
		return p.ReleaseCheck(actor, d), nil
	case ActionRestore:
		return p.Restore(actor, d), nil
	case ActionForceDelete:
		return p.ForceDelete(actor, d), nil
	}
	return Decision{}, errUnknownAction(DocDisbursement, action)
}
