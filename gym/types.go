/*
Package gym provides the workflow engine for the gym management backend.

PURPOSE:
  This package contains the domain types and the three workflow components
  that carry actual business rules:
  - AttendanceLedger: employee check-in/check-out with the minimum dwell rule
  - RequestManager:   client service requests and their accept/reject lifecycle
  - AssignmentQueries: read-side joins over trainer-client assignments

KEY CONCEPTS IN THIS FILE (types.go):
  - AttendanceRecord: one check-in/check-out interval per employee per day
  - ServiceRequest:   a client's request for one or more services, pending a
                      trainer's decision
  - TrainerAssignment: the durable trainer-client link created on acceptance

DESIGN PRINCIPLES:
  1. All state lives in the relational store; no in-memory caching
  2. Every multi-statement operation runs inside one store transaction
  3. Status transitions are guarded by conditional updates, not read-then-write

SEE ALSO:
  - store.go:      Persistence interfaces (Store, TxStore)
  - attendance.go: Check-in/check-out rules
  - requests.go:   Request lifecycle rules
*/
package gym

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUSES
// =============================================================================

// AttendanceStatus is the state of an attendance record.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present" // checked in, session open
	StatusLeave   AttendanceStatus = "leave"   // checked out
	StatusAbsent  AttendanceStatus = "absent"  // marked absent by staff
)

// RequestStatus is the lifecycle state of a service request.
// Transitions: pending -> accepted or pending -> rejected, exactly once.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// =============================================================================
// DIRECTORY ENTITIES
// =============================================================================

// Employee is a staff member (receptionist, trainer, admin).
type Employee struct {
	ID        int64
	Name      string
	Phone     string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// User is a registered gym member. Service requests reference members by
// phone number, which may or may not resolve to a User row.
type User struct {
	ID       int64
	Name     string
	Phone    string
	JoinedAt time.Time
}

// Service is an entry in the offerable service catalog.
type Service struct {
	ID           int64
	Name         string
	Description  string
	MonthlyPrice decimal.Decimal
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRecord is one check-in/check-out interval. Multiple records per
// employee per day are valid (break-and-return).
type AttendanceRecord struct {
	ID           int64
	EmployeeID   int64
	Date         string // calendar day, YYYY-MM-DD
	CheckInTime  time.Time
	CheckOutTime *time.Time // nil while the session is open
	Status       AttendanceStatus
}

// Open reports whether the record still has no check-out.
func (r *AttendanceRecord) Open() bool { return r.CheckOutTime == nil }

// DaySummary aggregates an employee's completed attendance intervals for
// one calendar day.
type DaySummary struct {
	TotalPresent        string // "Xh Ym"
	TotalAbsent         string
	TotalPresentMinutes int
	TotalAbsentMinutes  int
}

// DayKey returns the calendar-day key used for attendance grouping.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatMinutes renders whole minutes as "Xh Ym".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// =============================================================================
// SERVICE REQUESTS
// =============================================================================

// ServiceRequest is a client's request for one or more gym services,
// created by staff and awaiting a trainer's accept/reject decision.
type ServiceRequest struct {
	ID          int64
	Reference   string // external tracking number (uuid)
	ClientPhone string
	ClientName  string // resolved from users by phone; empty when unregistered
	CreatedBy   int64
	CreatedName string // staff name, joined in
	Notes       string
	Status      RequestStatus
	AcceptedBy  *int64
	AcceptedAt  *time.Time
	CreatedAt   time.Time
	Services    []Service
}

// CreateRequestInput carries the fields needed to open a request.
type CreateRequestInput struct {
	ClientPhone string
	ServiceIDs  []int64
	CreatedBy   int64
	Notes       string
}

// =============================================================================
// TRAINER ASSIGNMENTS
// =============================================================================

// TrainerAssignment links a trainer to a client, created when a service
// request is accepted and the client phone resolves to a registered user.
type TrainerAssignment struct {
	ID         int64
	TrainerID  int64
	ClientID   int64
	RequestID  int64
	AssignedAt time.Time
	IsActive   bool
}

// TrainerClient is a read-model row for "this trainer's current clients":
// the member plus the services from the originating request.
type TrainerClient struct {
	User
	RequestID  int64
	AssignedAt time.Time
	Services   []Service
}
