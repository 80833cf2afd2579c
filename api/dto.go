/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the workflow engine's domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

ENVELOPE:
  Every endpoint answers with the same envelope:
    {success, status, message?, data?}
  Domain errors map to 400, missing entities to 404, store failures to 500.

VALIDATION:
  Request types carry validate struct tags; handlers run them through a
  shared validator instance before touching the engine.

SEE ALSO:
  - handlers.go: envelope writers and error mapping
*/
package api

import (
	"time"

	"github.com/fitcore/gym-engine/gym"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Response is the uniform envelope for every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CheckInRequest struct {
	EmployeeID int64 `json:"employee_id" validate:"required,gt=0"`
}

type CheckOutRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	RecordID   *int64 `json:"record_id,omitempty"`
}

type CreateRequestBody struct {
	ClientPhone string  `json:"client_phone" validate:"required"`
	Services    []int64 `json:"services" validate:"required,min=1"`
	CreatedBy   int64   `json:"created_by" validate:"required,gt=0"`
	Notes       string  `json:"notes,omitempty"`
}

type ProcessRequestBody struct {
	Status    string `json:"status" validate:"required,oneof=accepted rejected"`
	TrainerID int64  `json:"trainer_id" validate:"required,gt=0"`
}

type CreateEmployeeRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role" validate:"required,oneof=receptionist trainer admin staff"`
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type AttendanceRecordDTO struct {
	ID           int64   `json:"attendance_id"`
	EmployeeID   int64   `json:"employee_id"`
	Date         string  `json:"attendance_date"`
	CheckInTime  string  `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time,omitempty"`
	Status       string  `json:"status"`
}

type DaySummaryDTO struct {
	TotalPresent        string `json:"totalPresent"`
	TotalAbsent         string `json:"totalAbsent"`
	TotalPresentMinutes int    `json:"totalPresentMinutes"`
	TotalAbsentMinutes  int    `json:"totalAbsentMinutes"`
}

type TodaySummaryDTO struct {
	Records []AttendanceRecordDTO `json:"records"`
	Summary DaySummaryDTO         `json:"summary"`
}

type ServiceDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	MonthlyPrice string `json:"monthly_price"`
}

type RequestDTO struct {
	ID          int64        `json:"request_id"`
	Reference   string       `json:"reference"`
	ClientPhone string       `json:"client_phone"`
	ClientName  string       `json:"client_name,omitempty"`
	CreatedBy   int64        `json:"created_by"`
	CreatedName string       `json:"created_by_name"`
	Notes       string       `json:"notes,omitempty"`
	Status      string       `json:"status"`
	AcceptedBy  *int64       `json:"accepted_by,omitempty"`
	AcceptedAt  *string      `json:"accepted_at,omitempty"`
	CreatedAt   string       `json:"created_at"`
	Services    []ServiceDTO `json:"services"`
}

type TrainerClientDTO struct {
	ClientID   int64        `json:"client_id"`
	Name       string       `json:"name"`
	Phone      string       `json:"phone"`
	JoinedAt   string       `json:"joined_at"`
	RequestID  int64        `json:"request_id"`
	AssignedAt string       `json:"assigned_at"`
	Services   []ServiceDTO `json:"services"`
}

type EmployeeDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	JoinedAt string `json:"joined_at"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAttendanceDTO(r gym.AttendanceRecord) AttendanceRecordDTO {
	dto := AttendanceRecordDTO{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		Date:        r.Date,
		CheckInTime: r.CheckInTime.UTC().Format(time.RFC3339),
		Status:      string(r.Status),
	}
	if r.CheckOutTime != nil {
		out := r.CheckOutTime.UTC().Format(time.RFC3339)
		dto.CheckOutTime = &out
	}
	return dto
}

func toAttendanceDTOs(records []gym.AttendanceRecord) []AttendanceRecordDTO {
	dtos := make([]AttendanceRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toAttendanceDTO(r)
	}
	return dtos
}

func toServiceDTOs(services []gym.Service) []ServiceDTO {
	dtos := make([]ServiceDTO, len(services))
	for i, s := range services {
		dtos[i] = ServiceDTO{
			ID:           s.ID,
			Name:         s.Name,
			Description:  s.Description,
			MonthlyPrice: s.MonthlyPrice.StringFixed(2),
		}
	}
	return dtos
}

func toRequestDTO(r gym.ServiceRequest) RequestDTO {
	dto := RequestDTO{
		ID:          r.ID,
		Reference:   r.Reference,
		ClientPhone: r.ClientPhone,
		ClientName:  r.ClientName,
		CreatedBy:   r.CreatedBy,
		CreatedName: r.CreatedName,
		Notes:       r.Notes,
		Status:      string(r.Status),
		AcceptedBy:  r.AcceptedBy,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		Services:    toServiceDTOs(r.Services),
	}
	if r.AcceptedAt != nil {
		at := r.AcceptedAt.UTC().Format(time.RFC3339)
		dto.AcceptedAt = &at
	}
	return dto
}

func toRequestDTOs(requests []gym.ServiceRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(requests))
	for i, r := range requests {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toTrainerClientDTOs(clients []gym.TrainerClient) []TrainerClientDTO {
	dtos := make([]TrainerClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = TrainerClientDTO{
			ClientID:   c.ID,
			Name:       c.Name,
			Phone:      c.Phone,
			JoinedAt:   c.JoinedAt.UTC().Format(time.RFC3339),
			RequestID:  c.RequestID,
			AssignedAt: c.AssignedAt.UTC().Format(time.RFC3339),
			Services:   toServiceDTOs(c.Services),
		}
	}
	return dtos
}
