/*
Package sqlite provides the SQLite-backed implementation of gym.TxStore.

PURPOSE:
  Implements every query the workflow engine needs using database/sql and
  parameterized statements. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  Managed by goose with embedded migrations (see migrations.go). Tables:
  employee, users, service_types, employee_attendance,
  client_service_requests, request_services, trainer_assignments.
  Relations are enforced at the application layer via existence checks,
  matching the engine's precondition contracts.

TRANSACTIONS:
  WithTx begins a transaction, hands the engine a Store bound to it, rolls
  back on error and commits on success. Every method is written against the
  DBTX interface so the same code serves both the pool and a transaction.

CONDITIONAL UPDATES:
  MarkRequestProcessed and CloseAttendance embed their precondition in the
  WHERE clause and report affected rows. This is what serializes concurrent
  processing attempts: the engine never does read-then-write for a status
  transition.

CONNECTIONS:
  The pool is capped at one open connection. SQLite allows one writer at a
  time, and with ":memory:" every pooled connection would otherwise get its
  own private database.

SEE ALSO:
  - gym/store.go: interface contracts
  - migrations.go: schema management
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fitcore/gym-engine/gym"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements gym.TxStore over SQLite.
type Store struct {
	db *sql.DB
	queries
}

// New opens (or creates) the database at dbPath and applies migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, queries: queries{db: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(gym.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// queries holds every Store method, bound to either the pool or a transaction.
type queries struct {
	db DBTX
}

// =============================================================================
// TIME ENCODING
// =============================================================================

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (q *queries) GetEmployee(ctx context.Context, id int64) (*gym.Employee, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, phone, role, active, created_at
		FROM employee WHERE id = ?`, id)

	var (
		e         gym.Employee
		createdAt string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Role, &e.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (q *queries) ListEmployees(ctx context.Context) ([]gym.Employee, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, phone, role, active, created_at
		FROM employee ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []gym.Employee
	for rows.Next() {
		var (
			e         gym.Employee
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.Role, &e.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (q *queries) SaveEmployee(ctx context.Context, e *gym.Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO employee (name, phone, role, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Phone, e.Role, e.Active, fmtTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// =============================================================================
// USERS (MEMBERS)
// =============================================================================

func (q *queries) GetUser(ctx context.Context, id int64) (*gym.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `
		SELECT id, name, phone, joined_at FROM users WHERE id = ?`, id))
}

func (q *queries) GetUserByPhone(ctx context.Context, phone string) (*gym.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `
		SELECT id, name, phone, joined_at FROM users WHERE phone = ?`, phone))
}

func scanUser(row *sql.Row) (*gym.User, error) {
	var (
		u        gym.User
		joinedAt string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &joinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.JoinedAt = parseTime(joinedAt)
	return &u, nil
}

func (q *queries) ListUsers(ctx context.Context) ([]gym.User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, phone, joined_at FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []gym.User
	for rows.Next() {
		var (
			u        gym.User
			joinedAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.JoinedAt = parseTime(joinedAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *queries) SaveUser(ctx context.Context, u *gym.User) error {
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now()
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (name, phone, joined_at) VALUES (?, ?, ?)`,
		u.Name, u.Phone, fmtTime(u.JoinedAt))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	u.ID, _ = res.LastInsertId()
	return nil
}

// =============================================================================
// SERVICE CATALOG
// =============================================================================

func (q *queries) ListServices(ctx context.Context) ([]gym.Service, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, description, monthly_price
		FROM service_types ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func (q *queries) GetServices(ctx context.Context, ids []int64) ([]gym.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, description, monthly_price
		FROM service_types WHERE id IN (`+placeholders+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("get services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func scanServices(rows *sql.Rows) ([]gym.Service, error) {
	var services []gym.Service
	for rows.Next() {
		var (
			s     gym.Service
			price string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &price); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		s.MonthlyPrice, _ = decimal.NewFromString(price)
		services = append(services, s)
	}
	return services, rows.Err()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

const attendanceColumns = `attendance_id, employee_id, attendance_date, check_in_time, check_out_time, status`

func (q *queries) InsertAttendance(ctx context.Context, rec *gym.AttendanceRecord) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO employee_attendance (employee_id, attendance_date, check_in_time, check_out_time, status)
		VALUES (?, ?, ?, NULL, ?)`,
		rec.EmployeeID, rec.Date, fmtTime(rec.CheckInTime), rec.Status)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

func (q *queries) GetAttendance(ctx context.Context, id int64) (*gym.AttendanceRecord, error) {
	rec, err := scanAttendanceRow(q.db.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM employee_attendance WHERE attendance_id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return rec, nil
}

func (q *queries) LatestOpenAttendance(ctx context.Context, employeeID int64, day string) (*gym.AttendanceRecord, error) {
	rec, err := scanAttendanceRow(q.db.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM employee_attendance
		WHERE employee_id = ? AND attendance_date = ? AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1`, employeeID, day))
	if err != nil {
		return nil, fmt.Errorf("latest open attendance: %w", err)
	}
	return rec, nil
}

func (q *queries) CloseAttendance(ctx context.Context, id int64, at time.Time, status gym.AttendanceStatus) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE employee_attendance
		SET check_out_time = ?, status = ?
		WHERE attendance_id = ? AND check_out_time IS NULL`,
		fmtTime(at), status, id)
	if err != nil {
		return 0, fmt.Errorf("close attendance: %w", err)
	}
	return res.RowsAffected()
}

func (q *queries) AttendanceForDay(ctx context.Context, employeeID int64, day string) ([]gym.AttendanceRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM employee_attendance
		WHERE employee_id = ? AND attendance_date = ?
		ORDER BY check_in_time ASC`, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("attendance for day: %w", err)
	}
	defer rows.Close()

	var records []gym.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(sc rowScanner) (*gym.AttendanceRecord, error) {
	var (
		rec      gym.AttendanceRecord
		checkIn  string
		checkOut sql.NullString
	)
	err := sc.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &checkIn, &checkOut, &rec.Status)
	if err != nil {
		return nil, err
	}
	rec.CheckInTime = parseTime(checkIn)
	if checkOut.Valid {
		t := parseTime(checkOut.String)
		rec.CheckOutTime = &t
	}
	return &rec, nil
}

func scanAttendanceRow(row *sql.Row) (*gym.AttendanceRecord, error) {
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// =============================================================================
// SERVICE REQUESTS
// =============================================================================

const requestSelect = `
	SELECT r.request_id, r.reference, r.client_phone, COALESCE(u.name, ''),
	       r.created_by, e.name, r.notes, r.status,
	       r.accepted_by, r.accepted_at, r.created_at
	FROM client_service_requests r
	JOIN employee e ON e.id = r.created_by
	LEFT JOIN users u ON u.phone = r.client_phone`

func (q *queries) InsertRequest(ctx context.Context, req *gym.ServiceRequest) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO client_service_requests
			(reference, client_phone, created_by, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.Reference, req.ClientPhone, req.CreatedBy, req.Notes, req.Status, fmtTime(req.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	req.ID, _ = res.LastInsertId()
	return nil
}

func (q *queries) InsertRequestService(ctx context.Context, requestID, serviceID int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO request_services (request_id, service_id) VALUES (?, ?)`,
		requestID, serviceID)
	if err != nil {
		return fmt.Errorf("insert request service: %w", err)
	}
	return nil
}

func (q *queries) GetRequest(ctx context.Context, id int64) (*gym.ServiceRequest, error) {
	req, err := scanRequestRow(q.db.QueryRowContext(ctx, requestSelect+` WHERE r.request_id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, nil
	}
	reqs := []gym.ServiceRequest{*req}
	if err := q.attachRequestServices(ctx, reqs); err != nil {
		return nil, err
	}
	return &reqs[0], nil
}

func (q *queries) ListRequests(ctx context.Context, status *gym.RequestStatus) ([]gym.ServiceRequest, error) {
	query := requestSelect
	var args []any
	if status != nil {
		query += ` WHERE r.status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY r.created_at DESC, r.request_id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []gym.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := q.attachRequestServices(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (q *queries) MarkRequestProcessed(ctx context.Context, id int64, status gym.RequestStatus, trainerID int64, at time.Time) (int64, error) {
	// The WHERE clause is the concurrency guard: of two concurrent
	// decisions, the loser affects zero rows.
	res, err := q.db.ExecContext(ctx, `
		UPDATE client_service_requests
		SET status = ?, accepted_by = ?, accepted_at = ?
		WHERE request_id = ? AND status = 'pending'`,
		status, trainerID, fmtTime(at), id)
	if err != nil {
		return 0, fmt.Errorf("mark request processed: %w", err)
	}
	return res.RowsAffected()
}

func scanRequest(sc rowScanner) (*gym.ServiceRequest, error) {
	var (
		req        gym.ServiceRequest
		acceptedBy sql.NullInt64
		acceptedAt sql.NullString
		createdAt  string
	)
	err := sc.Scan(&req.ID, &req.Reference, &req.ClientPhone, &req.ClientName,
		&req.CreatedBy, &req.CreatedName, &req.Notes, &req.Status,
		&acceptedBy, &acceptedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	if acceptedBy.Valid {
		v := acceptedBy.Int64
		req.AcceptedBy = &v
	}
	if acceptedAt.Valid {
		t := parseTime(acceptedAt.String)
		req.AcceptedAt = &t
	}
	req.CreatedAt = parseTime(createdAt)
	return &req, nil
}

func scanRequestRow(row *sql.Row) (*gym.ServiceRequest, error) {
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return req, err
}

// attachRequestServices loads the selected services for every request in
// one query.
func (q *queries) attachRequestServices(ctx context.Context, requests []gym.ServiceRequest) error {
	if len(requests) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(requests)), ",")
	args := make([]any, len(requests))
	index := make(map[int64]int, len(requests))
	for i := range requests {
		args[i] = requests[i].ID
		index[requests[i].ID] = i
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT rs.request_id, s.id, s.name, s.description, s.monthly_price
		FROM request_services rs
		JOIN service_types s ON s.id = rs.service_id
		WHERE rs.request_id IN (`+placeholders+`)
		ORDER BY s.id ASC`, args...)
	if err != nil {
		return fmt.Errorf("load request services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			requestID int64
			svc       gym.Service
			price     string
		)
		if err := rows.Scan(&requestID, &svc.ID, &svc.Name, &svc.Description, &price); err != nil {
			return fmt.Errorf("scan request service: %w", err)
		}
		svc.MonthlyPrice, _ = decimal.NewFromString(price)
		i := index[requestID]
		requests[i].Services = append(requests[i].Services, svc)
	}
	return rows.Err()
}

// =============================================================================
// TRAINER ASSIGNMENTS
// =============================================================================

func (q *queries) InsertAssignment(ctx context.Context, a *gym.TrainerAssignment) error {
	// OR IGNORE keeps assignment creation idempotent: one assignment per
	// accepted request, enforced by the unique request_id index.
	res, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trainer_assignments
			(trainer_id, client_id, request_id, assigned_at, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		a.TrainerID, a.ClientID, a.RequestID, fmtTime(a.AssignedAt), a.IsActive)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

func (q *queries) DeactivateAssignment(ctx context.Context, trainerID, requestID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE trainer_assignments
		SET is_active = 0
		WHERE trainer_id = ? AND request_id = ? AND is_active = 1`,
		trainerID, requestID)
	if err != nil {
		return 0, fmt.Errorf("deactivate assignment: %w", err)
	}
	return res.RowsAffected()
}

func (q *queries) TrainerClients(ctx context.Context, trainerID int64) ([]gym.TrainerClient, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.phone, u.joined_at, ta.request_id, ta.assigned_at
		FROM trainer_assignments ta
		JOIN users u ON u.id = ta.client_id
		WHERE ta.trainer_id = ? AND ta.is_active = 1
		ORDER BY ta.assigned_at DESC, ta.id DESC`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("trainer clients: %w", err)
	}
	defer rows.Close()

	var clients []gym.TrainerClient
	for rows.Next() {
		var (
			c          gym.TrainerClient
			joinedAt   string
			assignedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &joinedAt, &c.RequestID, &assignedAt); err != nil {
			return nil, fmt.Errorf("scan trainer client: %w", err)
		}
		c.JoinedAt = parseTime(joinedAt)
		c.AssignedAt = parseTime(assignedAt)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := q.attachClientServices(ctx, clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (q *queries) attachClientServices(ctx context.Context, clients []gym.TrainerClient) error {
	if len(clients) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(clients)), ",")
	args := make([]any, len(clients))
	index := make(map[int64][]int, len(clients))
	for i := range clients {
		args[i] = clients[i].RequestID
		index[clients[i].RequestID] = append(index[clients[i].RequestID], i)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT rs.request_id, s.id, s.name, s.description, s.monthly_price
		FROM request_services rs
		JOIN service_types s ON s.id = rs.service_id
		WHERE rs.request_id IN (`+placeholders+`)
		ORDER BY s.id ASC`, args...)
	if err != nil {
		return fmt.Errorf("load client services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			requestID int64
			svc       gym.Service
			price     string
		)
		if err := rows.Scan(&requestID, &svc.ID, &svc.Name, &svc.Description, &price); err != nil {
			return fmt.Errorf("scan client service: %w", err)
		}
		svc.MonthlyPrice, _ = decimal.NewFromString(price)
		for _, i := range index[requestID] {
			clients[i].Services = append(clients[i].Services, svc)
		}
	}
	return rows.Err()
}
