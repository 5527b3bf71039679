package treasury

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newTestDisbursementService(repo *memoryTreasuryRepo, idem IdempotencyPort) *DisbursementService {
	registry := policy.NewRegistry()
	invoices := ap.NewService(nil, registry, nil)
	return NewDisbursementService(repo, registry, nil, invoices, idem)
}

// approvedRequisition seeds an approved requisition backed by an approved
// invoice and returns it.
func approvedRequisition(t *testing.T, repo *memoryTreasuryRepo) CheckRequisition {
	t.Helper()
	invoiceID, err := repo.invoices.CreateInvoice(context.Background(), ap.Invoice{
		Number:   "INV-1001",
		VendorID: 3,
		Status:   policy.InvoiceStatusApproved,
		Amount:   1500,
	})
	require.NoError(t, err)

	reqSvc := newTestRequisitionService(repo, &memoryApprovals{})
	cr, err := reqSvc.Create(treasurerCtx(), CreateRequisitionInput{
		InvoiceID: &invoiceID,
		VendorID:  3,
		Amount:    1500,
		Currency:  "USD",
		Purpose:   "Office fit-out progress billing",
	})
	require.NoError(t, err)
	require.NoError(t, reqSvc.Submit(treasurerCtx(), cr.ID, ""))
	require.NoError(t, reqSvc.Approve(treasurerCtx(), cr.ID, ""))
	cr, err = repo.GetRequisition(context.Background(), cr.ID)
	require.NoError(t, err)
	return cr
}

func cutDisbursement(t *testing.T, repo *memoryTreasuryRepo, svc *DisbursementService) Disbursement {
	t.Helper()
	cr := approvedRequisition(t, repo)
	d, err := svc.Create(treasurerCtx(), CreateDisbursementInput{RequisitionID: cr.ID})
	require.NoError(t, err)
	return d
}

func scheduleAndPrint(t *testing.T, svc *DisbursementService, id int64) {
	t.Helper()
	scheduled := time.Now().Add(-48 * time.Hour)
	printed := time.Now().Add(-24 * time.Hour)
	require.NoError(t, svc.UpdateCheckDates(treasurerCtx(), id, &scheduled, &printed))
}

func TestDisbursementCreateCascades(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	cr := approvedRequisition(t, repo)

	d, err := svc.Create(treasurerCtx(), CreateDisbursementInput{RequisitionID: cr.ID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.Number, "DSB-"))
	assert.Equal(t, cr.VendorID, d.VendorID)
	assert.Equal(t, cr.Amount, d.Amount)
	assert.Equal(t, cr.Currency, d.Currency)
	require.NotNil(t, d.InvoiceID)
	assert.Equal(t, *cr.InvoiceID, *d.InvoiceID)

	gotCR, err := repo.GetRequisition(context.Background(), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RequisitionStatusProcessed, gotCR.Status)

	inv, err := repo.invoices.GetInvoiceForUpdate(context.Background(), *cr.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, policy.InvoiceStatusPendingDisbursement, inv.Status)
}

func TestDisbursementCreateRequiresApprovedRequisition(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)

	reqSvc := newTestRequisitionService(repo, &memoryApprovals{})
	draft, err := reqSvc.Create(treasurerCtx(), CreateRequisitionInput{VendorID: 3, Amount: 500, Purpose: "Courier retainer"})
	require.NoError(t, err)

	_, err = svc.Create(treasurerCtx(), CreateDisbursementInput{RequisitionID: draft.ID})
	assert.ErrorIs(t, err, ErrInvalidState)

	gotCR, err := repo.GetRequisition(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, policy.RequisitionStatusDraft, gotCR.Status)
}

func TestDisbursementCreateRequiresEditPermission(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)

	_, err := svc.Create(treasuryViewerCtx(), CreateDisbursementInput{RequisitionID: 1})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "You do not have permission to create disbursements.", err.Error())
}

func TestDisbursementCheckDatesCausalOrder(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)

	printed := time.Now()
	err := svc.UpdateCheckDates(treasurerCtx(), d.ID, nil, &printed)
	assert.ErrorIs(t, err, ErrValidation)

	early := printed.Add(-time.Hour)
	err = svc.UpdateCheckDates(treasurerCtx(), d.ID, &printed, &early)
	assert.ErrorIs(t, err, ErrValidation)

	scheduled := printed.Add(-24 * time.Hour)
	require.NoError(t, svc.UpdateCheckDates(treasurerCtx(), d.ID, &scheduled, nil))
	require.NoError(t, svc.UpdateCheckDates(treasurerCtx(), d.ID, &scheduled, &printed))

	got, err := repo.GetDisbursement(context.Background(), d.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CheckScheduledAt)
	assert.NotNil(t, got.CheckPrintedAt)
	assert.Nil(t, got.CheckReleasedAt)
}

func TestDisbursementReleaseCascades(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)
	scheduleAndPrint(t, svc, d.ID)

	require.NoError(t, svc.ReleaseCheck(treasurerCtx(), d.ID, "CHK-0099", ""))

	got, err := repo.GetDisbursement(context.Background(), d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CheckReleasedAt)
	assert.Equal(t, "CHK-0099", got.CheckNumber)

	cr, err := repo.GetRequisition(context.Background(), got.RequisitionID)
	require.NoError(t, err)
	assert.Equal(t, policy.RequisitionStatusPaid, cr.Status)

	inv, err := repo.invoices.GetInvoiceForUpdate(context.Background(), *got.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, policy.InvoiceStatusPaid, inv.Status)
}

func TestDisbursementReleaseRequiresPrintedCheck(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)

	err := svc.ReleaseCheck(treasurerCtx(), d.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDisbursementReleaseIsIdempotent(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)
	scheduleAndPrint(t, svc, d.ID)

	require.NoError(t, svc.ReleaseCheck(treasurerCtx(), d.ID, "CHK-0100", ""))

	err := svc.ReleaseCheck(treasurerCtx(), d.ID, "CHK-0100", "")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	want := fmt.Sprintf("Cannot release check: it was already released to the vendor on %s.", time.Now().Format("2006-01-02"))
	assert.Equal(t, want, err.Error())
}

func TestDisbursementReleaseIdempotencyKey(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	idem := newMemoryIdempotency()
	svc := newTestDisbursementService(repo, idem)

	first := cutDisbursement(t, repo, svc)
	scheduleAndPrint(t, svc, first.ID)
	second := cutDisbursement(t, repo, svc)
	scheduleAndPrint(t, svc, second.ID)

	require.NoError(t, svc.ReleaseCheck(treasurerCtx(), first.ID, "", "req-42"))
	err := svc.ReleaseCheck(treasurerCtx(), second.ID, "", "req-42")
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	// A key consumed by a failed release is rolled back and can be retried.
	third := cutDisbursement(t, repo, svc)
	err = svc.ReleaseCheck(treasurerCtx(), third.ID, "", "req-43")
	require.ErrorIs(t, err, ErrInvalidState)
	scheduleAndPrint(t, svc, third.ID)
	require.NoError(t, svc.ReleaseCheck(treasurerCtx(), third.ID, "", "req-43"))
}

func TestDisbursementEditLockedAfterRelease(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)
	scheduleAndPrint(t, svc, d.ID)
	require.NoError(t, svc.ReleaseCheck(treasurerCtx(), d.ID, "", ""))

	released := time.Now().Format("2006-01-02")

	err := svc.Update(treasurerCtx(), d.ID, UpdateDisbursementInput{Amount: 900})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, fmt.Sprintf("Cannot edit disbursement: the check was released to the vendor on %s.", released), err.Error())

	scheduled := time.Now()
	err = svc.UpdateCheckDates(treasurerCtx(), d.ID, &scheduled, nil)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, fmt.Sprintf("Cannot update check dates: the check was released to the vendor on %s.", released), err.Error())

	err = svc.Delete(treasurerCtx(), d.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, fmt.Sprintf("Cannot delete disbursement: the check was released to the vendor on %s.", released), err.Error())
}

func TestDisbursementDeletePristineOnly(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)

	pristine := cutDisbursement(t, repo, svc)
	require.NoError(t, svc.Delete(treasurerCtx(), pristine.ID))
	got, err := repo.GetDisbursement(context.Background(), pristine.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)

	scheduled := cutDisbursement(t, repo, svc)
	at := time.Now()
	require.NoError(t, svc.UpdateCheckDates(treasurerCtx(), scheduled.ID, &at, nil))
	err = svc.Delete(treasurerCtx(), scheduled.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Cannot delete a disbursement with check activity. Only disbursements with no scheduled, printed, or released dates can be deleted.", err.Error())
}

func TestDisbursementRestoreAndForceDelete(t *testing.T) {
	repo := newMemoryTreasuryRepo()
	svc := newTestDisbursementService(repo, nil)
	d := cutDisbursement(t, repo, svc)

	require.NoError(t, svc.Delete(treasurerCtx(), d.ID))
	require.NoError(t, svc.Restore(treasurerCtx(), d.ID))
	got, err := repo.GetDisbursement(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)

	err = svc.ForceDelete(treasurerCtx(), d.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Only administrators can permanently delete disbursements.", err.Error())

	require.NoError(t, svc.ForceDelete(treasuryAdminCtx(), d.ID))
	_, err = repo.GetDisbursement(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
