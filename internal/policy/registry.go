package policy

import (
	"errors"
	"fmt"
)

// Action names the operation being authorized. The names match the
// authorization gate's ability strings one to one.
type Action string

const (
	ActionViewAny     Action = "viewAny"
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionForceDelete Action = "forceDelete"

	// Vendor.
	ActionBulkManage Action = "bulkManage"

	// Purchase order.
	ActionUpdateVendor Action = "updateVendor"
	ActionFinalize     Action = "finalize"
	ActionClose        Action = "close"
	ActionCancel       Action = "cancel"

	// Invoice.
	ActionReview       Action = "review"
	ActionMarkReceived Action = "markReceived"

	// Check requisition.
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"

	// Disbursement.
	ActionUpdateCheckDates Action = "updateCheckDates"
	ActionReleaseCheck     Action = "releaseCheck"
)

// DocType tags a document type for registry dispatch.
type DocType string

const (
	DocVendor           DocType = "vendor"
	DocProject          DocType = "project"
	DocPurchaseOrder    DocType = "purchase_order"
	DocInvoice          DocType = "invoice"
	DocCheckRequisition DocType = "check_requisition"
	DocDisbursement     DocType = "disbursement"
)

var (
	// ErrUnknownDocType indicates no policy is registered for the tag.
	ErrUnknownDocType = errors.New("policy: unknown document type")
	// ErrUnknownAction indicates the action is not defined for the policy.
	// Unlike a denial this is a caller bug, not an authorization outcome.
	ErrUnknownAction = errors.New("policy: unknown action")
	// ErrSnapshot indicates the entity snapshot has the wrong type.
	ErrSnapshot = errors.New("policy: entity snapshot type mismatch")
)

type docPolicy interface {
	Decide(action Action, actor Actor, entity any) (Decision, error)
}

// Registry maps document-type tags to their policy modules. Dispatch is an
// explicit lookup; nothing is resolved from entity type names.
type Registry struct {
	policies   map[DocType]docPolicy
	denialHook func(doc DocType, action Action)
}

// NewRegistry returns a registry with every document policy installed.
func NewRegistry() *Registry {
	return &Registry{policies: map[DocType]docPolicy{
		DocVendor:           VendorPolicy{},
		DocProject:          ProjectPolicy{},
		DocPurchaseOrder:    PurchaseOrderPolicy{},
		DocInvoice:          InvoicePolicy{},
		DocCheckRequisition: RequisitionPolicy{},
		DocDisbursement:     DisbursementPolicy{},
	}}
}

// Decide routes the action to the policy registered for the document type.
// viewAny and create take a nil entity; every other action requires the
// document type's snapshot value.
func (r *Registry) Decide(doc DocType, action Action, actor Actor, entity any) (Decision, error) {
	p, ok := r.policies[doc]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownDocType, doc)
	}
	decision, err := p.Decide(action, actor, entity)
	if err == nil && !decision.Allowed && r.denialHook != nil {
		r.denialHook(doc, action)
	}
	return decision, err
}

// OnDenial installs an observer invoked for every denied decision. Used to
// feed the denial counter; must be set before the registry is shared.
func (r *Registry) OnDenial(fn func(doc DocType, action Action)) {
	r.denialHook = fn
}

func errUnknownAction(doc DocType, action Action) error {
	return fmt.Errorf("%w: %q on %s", ErrUnknownAction, action, doc)
}

func snapshot[V any](entity any) (V, error) {
	v, ok := entity.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: got %T", ErrSnapshot, entity)
	}
	return v, nil
}
