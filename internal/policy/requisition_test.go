package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequisitionUpdateDeleteAsymmetry(t *testing.T) {
	p := RequisitionPolicy{}
	actor := writerOf(ModuleCheckRequisitions)

	// Rejected requisitions can be revised but not deleted.
	require.True(t, p.Update(actor, RequisitionView{Status: RequisitionStatusRejected}).Allowed)
	d := p.Delete(actor, RequisitionView{Status: RequisitionStatusRejected})
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot delete check requisition in 'rejected' status. Only draft or pending approval requisitions can be deleted.", d.Reason)
}

func TestRequisitionDeleteWhitelist(t *testing.T) {
	p := RequisitionPolicy{}
	actor := writerOf(ModuleCheckRequisitions)

	allowed := []RequisitionStatus{RequisitionStatusDraft, RequisitionStatusPendingApproval}
	for _, status := range allowed {
		require.True(t, p.Delete(actor, RequisitionView{Status: status}).Allowed, "delete in %s", status)
	}
	blocked := []RequisitionStatus{
		RequisitionStatusApproved,
		RequisitionStatusRejected,
		RequisitionStatusProcessed,
		RequisitionStatusPaid,
	}
	for _, status := range blocked {
		require.False(t, p.Delete(actor, RequisitionView{Status: status}).Allowed, "delete in %s", status)
	}
}

func TestRequisitionUpdateLockedStates(t *testing.T) {
	p := RequisitionPolicy{}
	actor := writerOf(ModuleCheckRequisitions)

	for _, status := range []RequisitionStatus{RequisitionStatusApproved, RequisitionStatusProcessed, RequisitionStatusPaid} {
		d := p.Update(actor, RequisitionView{Status: status})
		require.False(t, d.Allowed, "update in %s", status)
	}
	d := p.Update(actor, RequisitionView{Status: RequisitionStatusApproved})
	require.Equal(t, "Cannot edit check requisition in 'approved' status. Approved, processed, or paid requisitions cannot be edited.", d.Reason)
}

func TestRequisitionApproveReject(t *testing.T) {
	p := RequisitionPolicy{}
	actor := writerOf(ModuleCheckRequisitions)

	require.True(t, p.Approve(actor, RequisitionView{Status: RequisitionStatusPendingApproval}).Allowed)
	require.True(t, p.Reject(actor, RequisitionView{Status: RequisitionStatusPendingApproval}).Allowed)

	for _, status := range []RequisitionStatus{
		RequisitionStatusDraft,
		RequisitionStatusApproved,
		RequisitionStatusRejected,
		RequisitionStatusProcessed,
		RequisitionStatusPaid,
	} {
		require.False(t, p.Approve(actor, RequisitionView{Status: status}).Allowed, "approve in %s", status)
		require.False(t, p.Reject(actor, RequisitionView{Status: status}).Allowed, "reject in %s", status)
	}

	d := p.Approve(actor, RequisitionView{Status: RequisitionStatusApproved})
	require.Equal(t, "Cannot approve check requisition in 'approved' status. Only pending approval requisitions can be approved.", d.Reason)
	d = p.Reject(actor, RequisitionView{Status: RequisitionStatusDraft})
	require.Equal(t, "Cannot reject check requisition in 'draft' status. Only pending approval requisitions can be rejected.", d.Reason)
}

func TestRequisitionPermissionAndAdmin(t *testing.T) {
	p := RequisitionPolicy{}

	d := p.Approve(nobody(), RequisitionView{Status: RequisitionStatusPendingApproval})
	require.False(t, d.Allowed)
	require.Equal(t, "You do not have permission to approve check requisitions.", d.Reason)

	d = p.ForceDelete(writerOf(ModuleCheckRequisitions), RequisitionView{Status: RequisitionStatusPaid})
	require.False(t, d.Allowed)
	require.Equal(t, "Only administrators can permanently delete check requisitions.", d.Reason)
	require.True(t, p.ForceDelete(adminActor(), RequisitionView{Status: RequisitionStatusPaid}).Allowed)
}
