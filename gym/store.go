/*
store.go - Persistence interfaces for the workflow engine

PURPOSE:
  Defines the boundary between the workflow components and the database.
  The engine never touches SQL; it asks the Store for rows and the TxStore
  for transaction scopes. Implementations live outside this package so tests
  can substitute doubles.

KEY INTERFACES:
  Store:   Parameterized queries against one connection or one transaction
  TxStore: Store plus WithTx, the scoped-transaction capability

TRANSACTION CONTRACT:
  WithTx(ctx, fn) begins a transaction, passes a Store bound to it into fn,
  rolls back if fn errors, commits otherwise. Every multi-statement engine
  operation runs entirely inside one WithTx call; partial writes are never
  observable.

CONDITIONAL UPDATES:
  MarkRequestProcessed and CloseAttendance return affected-row counts. The
  WHERE clause re-checks the precondition (status still pending, check-out
  still null) so concurrent writers serialize: only one wins, the loser sees
  zero rows affected.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (goose-migrated schema)
*/
package gym

import (
	"context"
	"time"
)

// Store executes parameterized queries. Lookups return (nil, nil) when the
// row does not exist; the engine owns the not-found decision.
type Store interface {
	// Employees (staff)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	SaveEmployee(ctx context.Context, e *Employee) error

	// Users (gym members)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveUser(ctx context.Context, u *User) error

	// Service catalog
	ListServices(ctx context.Context) ([]Service, error)
	GetServices(ctx context.Context, ids []int64) ([]Service, error)

	// Attendance
	InsertAttendance(ctx context.Context, rec *AttendanceRecord) error
	GetAttendance(ctx context.Context, id int64) (*AttendanceRecord, error)
	LatestOpenAttendance(ctx context.Context, employeeID int64, day string) (*AttendanceRecord, error)
	// CloseAttendance sets check-out time and status iff the record is still
	// open. Returns the number of rows affected.
	CloseAttendance(ctx context.Context, id int64, at time.Time, status AttendanceStatus) (int64, error)
	AttendanceForDay(ctx context.Context, employeeID int64, day string) ([]AttendanceRecord, error)

	// Service requests
	InsertRequest(ctx context.Context, req *ServiceRequest) error
	InsertRequestService(ctx context.Context, requestID, serviceID int64) error
	// GetRequest returns the request hydrated with staff name, resolved
	// client name, and its services.
	GetRequest(ctx context.Context, id int64) (*ServiceRequest, error)
	// ListRequests returns hydrated requests, newest first. A nil status
	// means all statuses.
	ListRequests(ctx context.Context, status *RequestStatus) ([]ServiceRequest, error)
	// MarkRequestProcessed applies the decision iff the request is still
	// pending. Returns the number of rows affected.
	MarkRequestProcessed(ctx context.Context, id int64, status RequestStatus, trainerID int64, at time.Time) (int64, error)

	// Trainer assignments
	InsertAssignment(ctx context.Context, a *TrainerAssignment) error
	TrainerClients(ctx context.Context, trainerID int64) ([]TrainerClient, error)
	// DeactivateAssignment clears is_active for the trainer's assignment on
	// the given request iff it is still active. Returns rows affected.
	DeactivateAssignment(ctx context.Context, trainerID, requestID int64) (int64, error)
}

// TxStore wraps Store with transaction scoping.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
