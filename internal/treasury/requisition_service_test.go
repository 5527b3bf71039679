package treasury

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newTestRequisitionService(repo Repository, approvals ApprovalPort) *RequisitionService {
	return NewRequisitionService(repo, policy.NewRegistry(), nil, approvals)
}

func createDraftRequisition(t *testing.T, svc *RequisitionService) CheckRequisition {
	t.Helper()
	cr, err := svc.Create(treasurerCtx(), CreateRequisitionInput{
		VendorID: 3,
		Amount:   1500,
		Purpose:  "Office fit-out progress billing",
	})
	require.NoError(t, err)
	return cr
}

func TestRequisitionCreateDraft(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})

	cr := createDraftRequisition(t, svc)
	assert.Equal(t, policy.RequisitionStatusDraft, cr.Status)
	assert.True(t, strings.HasPrefix(cr.Number, "CR-"))
	assert.NotZero(t, cr.Ref)
	assert.Equal(t, "USD", cr.Currency)
	assert.Equal(t, int64(7), cr.CreatedBy)
}

func TestRequisitionCreateRequiresEditPermission(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})

	_, err := svc.Create(treasuryViewerCtx(), CreateRequisitionInput{VendorID: 3, Amount: 100, Purpose: "x"})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "You do not have permission to create check requisitions.", err.Error())
}

func TestRequisitionCreateValidation(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})

	_, err := svc.Create(treasurerCtx(), CreateRequisitionInput{VendorID: 3, Amount: 0, Purpose: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(treasurerCtx(), CreateRequisitionInput{VendorID: 3, Amount: 50, Purpose: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequisitionSubmitAndApprove(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	approvals := &memoryApprovals{}
	svc := newTestRequisitionService(repo, approvals)
	cr := createDraftRequisition(t, svc)

	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, "please review"))
	got, err := repo.GetRequisition(context.Background(), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RequisitionStatusPendingApproval, got.Status)

	require.NoError(t, svc.Approve(treasurerCtx(), cr.ID, "ok to pay"))
	got, err = repo.GetRequisition(context.Background(), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RequisitionStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, int64(7), *got.ApprovedBy)
	assert.NotNil(t, got.ApprovedAt)

	require.Len(t, approvals.logs, 2)
	assert.Equal(t, shared.ApprovalSubmit, approvals.logs[0].Action)
	assert.Equal(t, shared.ApprovalApprove, approvals.logs[1].Action)
	assert.Equal(t, cr.Ref, approvals.logs[1].RefID)
}

func TestRequisitionSubmitRequiresDraftOrRejected(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})
	cr := createDraftRequisition(t, svc)

	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, ""))
	err := svc.Submit(treasurerCtx(), cr.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRequisitionApproveRequiresPending(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})
	cr := createDraftRequisition(t, svc)

	err := svc.Approve(treasurerCtx(), cr.ID, "")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot approve check requisition in 'draft' status. Only pending approval requisitions can be approved.", err.Error())

	err = svc.Reject(treasurerCtx(), cr.ID, "")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot reject check requisition in 'draft' status. Only pending approval requisitions can be rejected.", err.Error())
}

func TestRequisitionUpdateLockedAfterApproval(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})
	cr := createDraftRequisition(t, svc)

	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, ""))
	require.NoError(t, svc.Approve(treasurerCtx(), cr.ID, ""))

	err := svc.Update(treasurerCtx(), cr.ID, UpdateRequisitionInput{VendorID: 3, Amount: 2000, Purpose: "revised"})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot edit check requisition in 'approved' status. Approved, processed, or paid requisitions cannot be edited.", err.Error())
}

func TestRequisitionRejectedCanBeRevisedButNotDeleted(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})
	cr := createDraftRequisition(t, svc)

	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, ""))
	require.NoError(t, svc.Reject(treasurerCtx(), cr.ID, "wrong vendor"))

	// A rejected requisition can be revised and resubmitted.
	require.NoError(t, svc.Update(treasurerCtx(), cr.ID, UpdateRequisitionInput{VendorID: 4, Amount: 1500, Purpose: "Office fit-out progress billing"}))
	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, "resubmitting with correct vendor"))

	require.NoError(t, svc.Reject(treasurerCtx(), cr.ID, "still wrong"))
	err := svc.Delete(treasurerCtx(), cr.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot delete check requisition in 'rejected' status. Only draft or pending approval requisitions can be deleted.", err.Error())
}

func TestRequisitionDeleteWhitelist(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})

	draft := createDraftRequisition(t, svc)
	require.NoError(t, svc.Delete(treasurerCtx(), draft.ID))
	got, err := repo.GetRequisition(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)

	approved := createDraftRequisition(t, svc)
	require.NoError(t, svc.Submit(treasurerCtx(), approved.ID, ""))
	require.NoError(t, svc.Approve(treasurerCtx(), approved.ID, ""))
	err = svc.Delete(treasurerCtx(), approved.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot delete check requisition in 'approved' status. Only draft or pending approval requisitions can be deleted.", err.Error())
}

func TestRequisitionRestoreAndForceDelete(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})
	cr := createDraftRequisition(t, svc)

	require.NoError(t, svc.Delete(treasurerCtx(), cr.ID))
	require.NoError(t, svc.Restore(treasurerCtx(), cr.ID))
	got, err := repo.GetRequisition(context.Background(), cr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)

	err = svc.ForceDelete(treasurerCtx(), cr.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Only administrators can permanently delete check requisitions.", err.Error())

	require.NoError(t, svc.ForceDelete(treasuryAdminCtx(), cr.ID))
	_, err = repo.GetRequisition(context.Background(), cr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequisitionListRequiresViewPermission(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestRequisitionService(repo, &memoryApprovals{})

	noPerms := shared.ContextWithActor(context.Background(), noPermActor())
	_, _, err := svc.List(noPerms, RequisitionFilters{})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "You do not have permission to view check requisitions.", err.Error())
}

// staleRequisitionRepo serves a stale snapshot outside the transaction while
// the locked read inside it sees the live row.
type staleRequisitionRepo struct {
	Repository
	snapshot CheckRequisition
}

func (r staleRequisitionRepo) GetRequisition(context.Context, int64) (CheckRequisition, error) {
	return r.snapshot, nil
}

func TestRequisitionConcurrentTransitionConflict(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	approvals := &memoryApprovals{}
	svc := newTestRequisitionService(repo, approvals)

	cr := createDraftRequisition(t, svc)
	require.NoError(t, svc.Submit(treasurerCtx(), cr.ID, "please review"))
	require.NoError(t, svc.Approve(treasurerCtx(), cr.ID, "ok to pay"))

	stale := repo.reqs[cr.ID]
	stale.Status = policy.RequisitionStatusPendingApproval
	raced := newTestRequisitionService(staleRequisitionRepo{Repository: repo, snapshot: stale}, approvals)

	err := raced.Approve(treasurerCtx(), cr.ID, "again")
	require.ErrorIs(t, err, shared.ErrStateChanged)
	assert.Contains(t, err.Error(), string(policy.RequisitionStatusApproved))
}
