package gym_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitcore/gym-engine/gym"
	"github.com/fitcore/gym-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Demo seed: employees 1-3 (active), members on 0711111111 and
	// 0722222222, services 1-4.
	require.NoError(t, store.Seed(context.Background()))
	return store
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) Set(t time.Time)         { c.t = t }

func newTestLedger(t *testing.T) (*gym.AttendanceLedger, *sqlite.Store, *fakeClock) {
	store := newTestStore(t)
	clock := &fakeClock{t: time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)}
	ledger := gym.NewAttendanceLedger(store, zap.NewNop()).WithClock(clock.Now)
	return ledger, store, clock
}

// =============================================================================
// CHECK-IN
// =============================================================================

func TestCheckIn_CreatesPresentRecord(t *testing.T) {
	ledger, store, clock := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.EmployeeID)
	assert.Equal(t, gym.StatusPresent, rec.Status)
	assert.Equal(t, gym.DayKey(clock.Now()), rec.Date)
	assert.Nil(t, rec.CheckOutTime)

	stored, err := store.GetAttendance(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Open())
}

func TestCheckIn_UnknownEmployee_NotFound(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.CheckIn(context.Background(), 999)
	assert.ErrorIs(t, err, gym.ErrEmployeeNotFound)
}

func TestCheckIn_InactiveEmployee_NotFound(t *testing.T) {
	ledger, store, _ := newTestLedger(t)
	ctx := context.Background()

	former := &gym.Employee{Name: "Former Staff", Role: "trainer", Active: false}
	require.NoError(t, store.SaveEmployee(ctx, former))

	_, err := ledger.CheckIn(ctx, former.ID)
	assert.ErrorIs(t, err, gym.ErrEmployeeNotFound)
}

func TestCheckIn_TwicePerDay_Allowed(t *testing.T) {
	// Break-and-return: a second check-in opens a second record.
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	_, err = ledger.CheckOut(ctx, 1, nil)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	second, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	records, err := ledger.Today(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// =============================================================================
// CHECK-OUT AND THE DWELL RULE
// =============================================================================

func TestCheckOut_BeforeMinDwell_RejectedAndUnmodified(t *testing.T) {
	// GIVEN: A fresh check-in
	// WHEN: Checking out 60 seconds later
	// THEN: PolicyViolation, and the record is still open

	ledger, store, clock := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	clock.Advance(60 * time.Second)
	_, err = ledger.CheckOut(ctx, 1, nil)

	assert.ErrorIs(t, err, gym.ErrCheckoutTooSoon)
	var tooSoon *gym.CheckoutTooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Equal(t, gym.MinDwell, tooSoon.Required)

	stored, err := store.GetAttendance(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Open(), "record must be unmodified after a rejected checkout")
	assert.Equal(t, gym.StatusPresent, stored.Status)
}

func TestCheckOut_AfterMinDwell_ClosesRecord(t *testing.T) {
	// The kiosk scenario: check in at 10:00:00, double-tap at 10:01:00 is
	// rejected, the real checkout at 10:02:01 lands.

	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()
	clock.Set(time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC))

	_, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	clock.Set(time.Date(2025, time.June, 2, 10, 1, 0, 0, time.UTC))
	_, err = ledger.CheckOut(ctx, 1, nil)
	require.ErrorIs(t, err, gym.ErrCheckoutTooSoon)

	clock.Set(time.Date(2025, time.June, 2, 10, 2, 1, 0, time.UTC))
	rec, err := ledger.CheckOut(ctx, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, gym.StatusLeave, rec.Status)
	require.NotNil(t, rec.CheckOutTime)
	assert.True(t, rec.CheckOutTime.After(rec.CheckInTime))

	_, summary, err := ledger.TodaySummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalPresentMinutes)
	assert.Equal(t, "0h 2m", summary.TotalPresent)
	assert.Equal(t, 0, summary.TotalAbsentMinutes)
}

func TestCheckOut_NoOpenSession(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	// No records at all.
	_, err := ledger.CheckOut(ctx, 1, nil)
	assert.ErrorIs(t, err, gym.ErrNoOpenSession)

	// All of today's records already closed.
	_, err = ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = ledger.CheckOut(ctx, 1, nil)
	require.NoError(t, err)

	_, err = ledger.CheckOut(ctx, 1, nil)
	assert.ErrorIs(t, err, gym.ErrNoOpenSession)
}

func TestCheckOut_SpecificRecord(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	closed, err := ledger.CheckOut(ctx, 1, &rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, closed.ID)
}

func TestCheckOut_SpecificRecord_WrongEmployee(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	// Employee 2 cannot close employee 1's record.
	_, err = ledger.CheckOut(ctx, 2, &rec.ID)
	assert.ErrorIs(t, err, gym.ErrNoOpenSession)
}

func TestCheckOut_ResolvesMostRecentOpenRecord(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	clock.Advance(1 * time.Hour)
	second, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	closed, err := ledger.CheckOut(ctx, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, second.ID, closed.ID, "most recent open record wins")
	assert.NotEqual(t, first.ID, closed.ID)
}

// =============================================================================
// SUMMARY AGGREGATION
// =============================================================================

func TestSummarize_MixedStatuses(t *testing.T) {
	in := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	out := in.Add(90 * time.Minute)
	absentOut := in.Add(30 * time.Minute)

	records := []gym.AttendanceRecord{
		{CheckInTime: in, CheckOutTime: &out, Status: gym.StatusLeave},
		// Absent record carrying timestamps: tolerated, counts as absent.
		{CheckInTime: in, CheckOutTime: &absentOut, Status: gym.StatusAbsent},
		// Absent record without a checkout contributes nothing.
		{CheckInTime: in, Status: gym.StatusAbsent},
		// Open present record contributes nothing.
		{CheckInTime: in, Status: gym.StatusPresent},
	}

	summary := gym.Summarize(records)
	assert.Equal(t, 90, summary.TotalPresentMinutes)
	assert.Equal(t, "1h 30m", summary.TotalPresent)
	assert.Equal(t, 30, summary.TotalAbsentMinutes)
	assert.Equal(t, "0h 30m", summary.TotalAbsent)
}

func TestToday_ChronologicalOrder(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)
	_, err = ledger.CheckOut(ctx, 1, nil)
	require.NoError(t, err)

	clock.Advance(1 * time.Hour)
	second, err := ledger.CheckIn(ctx, 1)
	require.NoError(t, err)

	records, err := ledger.Today(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
}
