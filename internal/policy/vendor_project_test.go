package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVendorPerActionVerbs(t *testing.T) {
	p := VendorPolicy{}

	d := p.Update(nobody())
	require.Equal(t, "You do not have permission to edit vendors.", d.Reason)
	d = p.Delete(nobody())
	require.Equal(t, "You do not have permission to delete vendors.", d.Reason)
	d = p.BulkManage(nobody())
	require.Equal(t, "You do not have permission to bulk manage vendors.", d.Reason)
	d = p.View(nobody())
	require.Equal(t, "You do not have permission to view vendors.", d.Reason)

	actor := writerOf(ModuleVendors)
	require.True(t, p.Create(actor).Allowed)
	require.True(t, p.Update(actor).Allowed)
	require.True(t, p.Delete(actor).Allowed)
	require.True(t, p.Restore(actor).Allowed)
	require.True(t, p.BulkManage(actor).Allowed)
}

func TestVendorForceDelete(t *testing.T) {
	p := VendorPolicy{}

	d := p.ForceDelete(writerOf(ModuleVendors))
	require.False(t, d.Allowed)
	require.Equal(t, "Only administrators can permanently delete vendors.", d.Reason)
	require.True(t, p.ForceDelete(adminActor()).Allowed)
}

func TestProjectGenericPhrase(t *testing.T) {
	p := ProjectPolicy{}

	// All mutating actions share the one generic phrase.
	for _, d := range []Decision{
		p.Create(nobody()),
		p.Update(nobody()),
		p.Delete(nobody()),
		p.Restore(nobody()),
	} {
		require.False(t, d.Allowed)
		require.Equal(t, "You do not have permission to manage projects.", d.Reason)
	}
	d := p.ViewAny(nobody())
	require.Equal(t, "You do not have permission to view projects.", d.Reason)

	actor := writerOf(ModuleProjects)
	require.True(t, p.Update(actor).Allowed)
	require.True(t, p.Delete(actor).Allowed)

	d = p.ForceDelete(actor)
	require.False(t, d.Allowed)
	require.Equal(t, "Only administrators can permanently delete projects.", d.Reason)
	require.True(t, p.ForceDelete(adminActor()).Allowed)
}

func TestReadOnlyActorCannotWrite(t *testing.T) {
	// Read permission never satisfies a write-gated action, for any type.
	require.False(t, VendorPolicy{}.Update(readerOf(ModuleVendors)).Allowed)
	require.False(t, ProjectPolicy{}.Update(readerOf(ModuleProjects)).Allowed)
	require.False(t, PurchaseOrderPolicy{}.Update(readerOf(ModulePurchaseOrders), PurchaseOrderView{Status: POStatusDraft}).Allowed)
	require.False(t, InvoicePolicy{}.Update(readerOf(ModuleInvoices), InvoiceView{Status: InvoiceStatusPending}).Allowed)
	require.False(t, RequisitionPolicy{}.Update(readerOf(ModuleCheckRequisitions), RequisitionView{Status: RequisitionStatusDraft}).Allowed)
	require.False(t, DisbursementPolicy{}.Update(readerOf(ModuleDisbursements), DisbursementView{}).Allowed)
}
