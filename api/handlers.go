/*
handlers.go - HTTP handlers for the gym workflow API

PURPOSE:
  Exposes the workflow engine over REST. Handles JSON parsing, DTO
  validation, and delegates every rule to the engine; no business logic
  lives here.

ENDPOINTS:
  Attendance:
    POST /api/attendance/check-in          Open an attendance record
    POST /api/attendance/check-out         Close the open record
    GET  /api/attendance/today             Today's records
    GET  /api/attendance/today/summary     Records + present/absent summary

  Requests:
    POST /api/requests                     Create a service request
    GET  /api/requests                     All requests
    GET  /api/requests/pending             Pending only
    POST /api/requests/{id}/process        Accept or reject

  Trainer (bearer token):
    GET  /api/trainer/clients              Active client list

  Directory:
    GET/POST /api/employees, /api/users; GET /api/services

ERROR MAPPING:
  gym.IsNotFound         -> 404
  gym.IsInvalidState     -> 400
  gym.IsPolicyViolation  -> 400
  gym.ErrValidation      -> 400
  anything else          -> 500 (persistence failure; detail logged, not leaked)

SEE ALSO:
  - dto.go: envelope and DTO shapes
  - server.go: routing and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitcore/gym-engine/gym"
)

// Handler holds the workflow components and shared plumbing.
type Handler struct {
	Attendance  *gym.AttendanceLedger
	Requests    *gym.RequestManager
	Assignments *gym.AssignmentQueries
	Store       gym.TxStore
	Log         *zap.Logger

	validate *validator.Validate
}

// NewHandler wires the workflow components over one store.
func NewHandler(store gym.TxStore, log *zap.Logger) *Handler {
	return &Handler{
		Attendance:  gym.NewAttendanceLedger(store, log),
		Requests:    gym.NewRequestManager(store, log),
		Assignments: gym.NewAssignmentQueries(store, log),
		Store:       store,
		Log:         log,
		validate:    validator.New(),
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn opens an attendance record for the employee.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Attendance.CheckIn(r.Context(), req.EmployeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toAttendanceDTO(*rec))
}

// CheckOut closes an open attendance record.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Attendance.CheckOut(r.Context(), req.EmployeeID, req.RecordID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toAttendanceDTO(*rec))
}

// TodayAttendance returns the employee's records for today.
func (h *Handler) TodayAttendance(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := queryID(w, r, "employee_id")
	if !ok {
		return
	}

	records, err := h.Attendance.Today(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toAttendanceDTOs(records))
}

// TodaySummary returns today's records plus the present/absent aggregate.
func (h *Handler) TodaySummary(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := queryID(w, r, "employee_id")
	if !ok {
		return
	}

	records, summary, err := h.Attendance.TodaySummary(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, TodaySummaryDTO{
		Records: toAttendanceDTOs(records),
		Summary: DaySummaryDTO{
			TotalPresent:        summary.TotalPresent,
			TotalAbsent:         summary.TotalAbsent,
			TotalPresentMinutes: summary.TotalPresentMinutes,
			TotalAbsentMinutes:  summary.TotalAbsentMinutes,
		},
	})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest opens a pending service request with its services.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	req, err := h.Requests.Create(r.Context(), gym.CreateRequestInput{
		ClientPhone: body.ClientPhone,
		ServiceIDs:  body.Services,
		CreatedBy:   body.CreatedBy,
		Notes:       body.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toRequestDTO(*req))
}

// ListRequests returns all requests, newest first.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Requests.ListAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toRequestDTOs(requests))
}

// ListPendingRequests returns requests still awaiting a decision.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Requests.ListPending(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toRequestDTOs(requests))
}

// ProcessRequest applies an accept/reject decision to a pending request.
func (h *Handler) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body ProcessRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	req, err := h.Requests.Process(r.Context(), id, gym.RequestStatus(body.Status), body.TrainerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// TRAINER HANDLERS
// =============================================================================

// TrainerClients returns the authenticated trainer's active client list.
func (h *Handler) TrainerClients(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := TrainerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "trainer identity missing")
		return
	}

	clients, err := h.Assignments.TrainerClients(r.Context(), trainerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTrainerClientDTOs(clients))
}

// ReleaseClient deactivates the assignment behind one of the trainer's
// clients, identified by the originating request.
func (h *Handler) ReleaseClient(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := TrainerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "trainer identity missing")
		return
	}
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if err := h.Assignments.Release(r.Context(), trainerID, requestID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"released": requestID})
}

// =============================================================================
// DIRECTORY HANDLERS (thin store-backed plumbing)
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeSuccess(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var body CreateEmployeeRequest
	if !h.decode(w, r, &body) {
		return
	}

	e := &gym.Employee{Name: body.Name, Phone: body.Phone, Role: body.Role, Active: true}
	if err := h.Store.SaveEmployee(r.Context(), e); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toEmployeeDTO(*e))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeSuccess(w, http.StatusOK, dtos)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body CreateUserRequest
	if !h.decode(w, r, &body) {
		return
	}

	u := &gym.User{Name: body.Name, Phone: body.Phone}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toUserDTO(*u))
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toServiceDTOs(services))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toEmployeeDTO(e gym.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Role:      e.Role,
		Active:    e.Active,
		CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toUserDTO(u gym.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Name:     u.Name,
		Phone:    u.Phone,
		JoinedAt: u.JoinedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// =============================================================================
// PLUMBING
// =============================================================================

// decode parses and validates a JSON body; on failure it writes the error
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" query parameter required")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case gym.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case gym.IsInvalidState(err), gym.IsPolicyViolation(err), errors.Is(err, gym.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("persistence failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Status: status, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Status: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
