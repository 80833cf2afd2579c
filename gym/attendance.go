/*
attendance.go - Attendance ledger: check-in, check-out, daily summaries

PURPOSE:
  Records employee check-in/check-out events and computes daily presence
  summaries. This is where the minimum dwell rule lives.

RULES:
  - Check-in requires an existing, active employee (checked inside the same
    transaction to avoid racing a deactivation).
  - Multiple check-ins per day are valid: break-and-return creates a second
    open record.
  - Check-out resolves a specific record when one is named, otherwise the
    most recent open record for today.
  - Check-out before MinDwell has elapsed fails with CheckoutTooSoonError.
    The rule exists because shared kiosk devices get double-tapped; without
    it a stray second tap instantly closes a fresh session.
  - The close is conditional (check_out_time still NULL), so two concurrent
    check-outs of the same record cannot both win.

SEE ALSO:
  - store.go: CloseAttendance conditional-update contract
*/
package gym

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MinDwell is the minimum elapsed time between check-in and check-out.
const MinDwell = 2 * time.Minute

// AttendanceLedger records check-in/check-out events per employee per day.
type AttendanceLedger struct {
	store TxStore
	log   *zap.Logger
	now   func() time.Time
}

// NewAttendanceLedger creates a ledger over the given store.
func NewAttendanceLedger(store TxStore, log *zap.Logger) *AttendanceLedger {
	return &AttendanceLedger{store: store, log: log, now: time.Now}
}

// WithClock overrides the ledger's time source. Tests use this to exercise
// dwell-time scenarios without sleeping.
func (l *AttendanceLedger) WithClock(now func() time.Time) *AttendanceLedger {
	l.now = now
	return l
}

// CheckIn opens a new attendance record for the employee, dated today.
func (l *AttendanceLedger) CheckIn(ctx context.Context, employeeID int64) (*AttendanceRecord, error) {
	var rec *AttendanceRecord

	err := l.store.WithTx(ctx, func(s Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}
		if emp == nil || !emp.Active {
			return ErrEmployeeNotFound
		}

		now := l.now()
		rec = &AttendanceRecord{
			EmployeeID:  employeeID,
			Date:        DayKey(now),
			CheckInTime: now,
			Status:      StatusPresent,
		}
		return s.InsertAttendance(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("employee checked in",
		zap.Int64("employee_id", employeeID),
		zap.Int64("record_id", rec.ID))
	return rec, nil
}

// CheckOut closes an open attendance record. When recordID is nil the most
// recent open record for today is resolved; otherwise the named record must
// belong to the employee and still be open. All steps run in one transaction.
func (l *AttendanceLedger) CheckOut(ctx context.Context, employeeID int64, recordID *int64) (*AttendanceRecord, error) {
	var rec *AttendanceRecord

	err := l.store.WithTx(ctx, func(s Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}
		if emp == nil || !emp.Active {
			return ErrEmployeeNotFound
		}

		now := l.now()

		var open *AttendanceRecord
		if recordID != nil {
			open, err = s.GetAttendance(ctx, *recordID)
			if err != nil {
				return fmt.Errorf("get attendance: %w", err)
			}
			if open == nil || open.EmployeeID != employeeID || !open.Open() {
				return ErrNoOpenSession
			}
		} else {
			open, err = s.LatestOpenAttendance(ctx, employeeID, DayKey(now))
			if err != nil {
				return fmt.Errorf("resolve open attendance: %w", err)
			}
			if open == nil {
				return ErrNoOpenSession
			}
		}

		if elapsed := now.Sub(open.CheckInTime); elapsed < MinDwell {
			return &CheckoutTooSoonError{RecordID: open.ID, Elapsed: elapsed, Required: MinDwell}
		}

		affected, err := s.CloseAttendance(ctx, open.ID, now, StatusLeave)
		if err != nil {
			return fmt.Errorf("close attendance: %w", err)
		}
		if affected == 0 {
			// Lost the race: someone closed this record between the read
			// and the update.
			return ErrNoOpenSession
		}

		out := now
		open.CheckOutTime = &out
		open.Status = StatusLeave
		rec = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("employee checked out",
		zap.Int64("employee_id", employeeID),
		zap.Int64("record_id", rec.ID))
	return rec, nil
}

// Today returns all of the employee's attendance records for today in
// chronological order. Read-only, no transaction required.
func (l *AttendanceLedger) Today(ctx context.Context, employeeID int64) ([]AttendanceRecord, error) {
	return l.store.AttendanceForDay(ctx, employeeID, DayKey(l.now()))
}

// TodaySummary returns today's records plus aggregated present/absent
// minutes over the completed intervals.
func (l *AttendanceLedger) TodaySummary(ctx context.Context, employeeID int64) ([]AttendanceRecord, *DaySummary, error) {
	records, err := l.Today(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	return records, Summarize(records), nil
}

// Summarize aggregates completed records into present and absent minutes.
// Only records with both timestamps contribute; an absent record carrying
// timestamps is an edge case the source data permits, and counts toward
// absent minutes rather than crashing the aggregation.
func Summarize(records []AttendanceRecord) *DaySummary {
	var present, absent int
	for _, r := range records {
		if r.CheckOutTime == nil {
			continue
		}
		minutes := int(r.CheckOutTime.Sub(r.CheckInTime).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		if r.Status == StatusAbsent {
			absent += minutes
		} else {
			present += minutes
		}
	}
	return &DaySummary{
		TotalPresent:        FormatMinutes(present),
		TotalAbsent:         FormatMinutes(absent),
		TotalPresentMinutes: present,
		TotalAbsentMinutes:  absent,
	}
}
