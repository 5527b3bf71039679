package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDisbursementReleaseLocksEverything(t *testing.T) {
	p := DisbursementPolicy{}
	actor := writerOf(ModuleDisbursements)
	released := DisbursementView{
		CheckScheduledAt: datePtr(2024, time.January, 1),
		CheckPrintedAt:   datePtr(2024, time.January, 2),
		CheckReleasedAt:  datePtr(2024, time.January, 3),
	}

	d := p.Update(actor, released)
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot edit disbursement: the check was released to the vendor on 2024-01-03.", d.Reason)

	d = p.UpdateCheckDates(actor, released)
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot update check dates: the check was released to the vendor on 2024-01-03.", d.Reason)

	d = p.ReleaseCheck(actor, released)
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot release check: it was already released to the vendor on 2024-01-03.", d.Reason)

	d = p.Delete(actor, released)
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot delete disbursement: the check was released to the vendor on 2024-01-03.", d.Reason)
}

func TestDisbursementDeleteRequiresPristine(t *testing.T) {
	p := DisbursementPolicy{}
	actor := writerOf(ModuleDisbursements)

	require.True(t, p.Delete(actor, DisbursementView{}).Allowed)

	// A scheduled date alone already blocks deletion, but editing stays open.
	scheduled := DisbursementView{CheckScheduledAt: datePtr(2024, time.January, 1)}
	d := p.Delete(actor, scheduled)
	require.False(t, d.Allowed)
	require.Equal(t, "Cannot delete a disbursement with check activity. Only disbursements with no scheduled, printed, or released dates can be deleted.", d.Reason)
	require.True(t, p.Update(actor, scheduled).Allowed)
	require.True(t, p.UpdateCheckDates(actor, scheduled).Allowed)
	require.True(t, p.ReleaseCheck(actor, scheduled).Allowed)

	printed := DisbursementView{
		CheckScheduledAt: datePtr(2024, time.January, 1),
		CheckPrintedAt:   datePtr(2024, time.January, 2),
	}
	require.False(t, p.Delete(actor, printed).Allowed)
	require.True(t, p.ReleaseCheck(actor, printed).Allowed)
}

func TestDisbursementPermissionAndAdmin(t *testing.T) {
	p := DisbursementPolicy{}

	d := p.ReleaseCheck(nobody(), DisbursementView{})
	require.False(t, d.Allowed)
	require.Equal(t, "You do not have permission to release checks.", d.Reason)

	require.True(t, p.ViewAny(readerOf(ModuleDisbursements)).Allowed)
	require.False(t, p.Create(readerOf(ModuleDisbursements)).Allowed)
	require.True(t, p.Create(writerOf(ModuleDisbursements)).Allowed)
	require.True(t, p.Restore(writerOf(ModuleDisbursements), DisbursementView{}).Allowed)

	released := DisbursementView{CheckReleasedAt: datePtr(2024, time.March, 15)}
	d = p.ForceDelete(writerOf(ModuleDisbursements), released)
	require.False(t, d.Allowed)
	require.Equal(t, "Only administrators can permanently delete disbursements.", d.Reason)
	require.True(t, p.ForceDelete(adminActor(), released).Allowed)
}
