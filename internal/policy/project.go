package policy

// ProjectPolicy authorizes actions on projects. Projects carry an
// informational status only; nothing about it gates actions, so the policy
// is permission-only. Unlike vendors the denial wording is a single generic
// phrase for all mutating actions.
type ProjectPolicy struct{}

// ViewAny authorizes listing projects.
func (ProjectPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessRead, "view projects")
}

// View authorizes reading a single project.
func (ProjectPolicy) View(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessRead, "view projects")
}

// Create authorizes creating a project.
func (ProjectPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessWrite, "manage projects")
}

// Update authorizes editing a project.
func (ProjectPolicy) Update(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessWrite, "manage projects")
}

// Delete authorizes soft-deleting a project.
func (ProjectPolicy) Delete(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessWrite, "manage projects")
}

// Restore authorizes restoring a soft-deleted project.
func (ProjectPolicy) Restore(actor Actor) Decision {
	return requirePermission(actor, ModuleProjects, accessWrite, "manage projects")
}

// ForceDelete authorizes permanent deletion, admin only.
func (ProjectPolicy) ForceDelete(actor Actor) Decision {
	return requireAdmin(actor, "projects")
}

// Decide dispatches a named action.
func (p ProjectPolicy) Decide(action Action, actor Actor, _ any) (Decision, error) {
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
	case ActionForceDelete:
		return p.ForceDelete(actor), nil
	}
	return Decision{}, errUnknownAction(DocProject, action)
}
