package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	actor := writerOf(ModulePurchaseOrders)

	d, err := reg.Decide(DocPurchaseOrder, ActionUpdate, actor, PurchaseOrderView{Status: POStatusOpen})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = reg.Decide(DocPurchaseOrder, ActionClose, actor, PurchaseOrderView{Status: POStatusDraft})
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// viewAny and create take no entity.
	d, err = reg.Decide(DocVendor, ActionCreate, writerOf(ModuleVendors), nil)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestRegistryUnknownDocAndAction(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Decide(DocType("shipment"), ActionView, nobody(), nil)
	require.ErrorIs(t, err, ErrUnknownDocType)

	_, err = reg.Decide(DocInvoice, ActionFinalize, writerOf(ModuleInvoices), InvoiceView{Status: InvoiceStatusPending})
	require.ErrorIs(t, err, ErrUnknownAction)

	_, err = reg.Decide(DocProject, ActionBulkManage, writerOf(ModuleProjects), nil)
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestRegistrySnapshotMismatch(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Decide(DocInvoice, ActionUpdate, writerOf(ModuleInvoices), PurchaseOrderView{Status: POStatusDraft})
	require.ErrorIs(t, err, ErrSnapshot)

	_, err = reg.Decide(DocDisbursement, ActionUpdate, writerOf(ModuleDisbursements), nil)
	require.ErrorIs(t, err, ErrSnapshot)
}

func TestDecisionsAreIdempotent(t *testing.T) {
	reg := NewRegistry()
	actor := writerOf(ModuleCheckRequisitions)
	view := RequisitionView{Status: RequisitionStatusPendingApproval}

	first, err := reg.Decide(DocCheckRequisition, ActionApprove, actor, view)
	require.NoError(t, err)
	second, err := reg.Decide(DocCheckRequisition, ActionApprove, actor, view)
	require.NoError(t, err)
	require.Equal(t, first, second)

	deniedFirst, err := reg.Decide(DocCheckRequisition, ActionApprove, nobody(), view)
	require.NoError(t, err)
	deniedSecond, err := reg.Decide(DocCheckRequisition, ActionApprove, nobody(), view)
	require.NoError(t, err)
	require.Equal(t, deniedFirst, deniedSecond)
}
