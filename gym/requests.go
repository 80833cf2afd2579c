/*
requests.go - Service request lifecycle: create, list, process

PURPOSE:
  Creates client service requests with their selected services, lists them
  by status, and transitions a request from pending to accepted/rejected
  exactly once. Acceptance spawns a trainer-client assignment when the
  client phone resolves to a registered member.

AT-MOST-ONE-OUTCOME CONTRACT:
  Process never reads the status and then writes. The decision is applied
  with a single conditional UPDATE whose predicate re-checks
  status = 'pending'; the affected-row count decides between success,
  not-found, and already-processed. Two concurrent Process calls on the
  same request therefore serialize: exactly one wins.

ATOMICITY:
  Create inserts the request row and one join row per service inside one
  transaction; a request is never observable without its services.
  Process updates the status and inserts the assignment in one transaction;
  either both happen or neither does.

UNRESOLVED-PHONE BEHAVIOR:
  Accepting a request whose phone matches no registered user still marks
  the request accepted and creates no assignment. Phone-only clients who
  have not registered yet are expected data.

SEE ALSO:
  - store.go: MarkRequestProcessed conditional-update contract
  - assignments.go: read side of trainer assignments
*/
package gym

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestManager owns the service request lifecycle.
type RequestManager struct {
	store TxStore
	log   *zap.Logger
	now   func() time.Time
}

// NewRequestManager creates a manager over the given store.
func NewRequestManager(store TxStore, log *zap.Logger) *RequestManager {
	return &RequestManager{store: store, log: log, now: time.Now}
}

// WithClock overrides the manager's time source for tests.
func (m *RequestManager) WithClock(now func() time.Time) *RequestManager {
	m.now = now
	return m
}

// Create opens a pending request with its selected services, all-or-nothing.
// Duplicate service ids in the input are collapsed: a request carries each
// selected service once.
func (m *RequestManager) Create(ctx context.Context, in CreateRequestInput) (*ServiceRequest, error) {
	if in.ClientPhone == "" {
		return nil, &ValidationError{Field: "client_phone", Message: "required"}
	}
	if in.CreatedBy == 0 {
		return nil, &ValidationError{Field: "created_by", Message: "required"}
	}
	serviceIDs := dedupe(in.ServiceIDs)
	if len(serviceIDs) == 0 {
		return nil, &ValidationError{Field: "services", Message: "at least one service required"}
	}

	var created *ServiceRequest
	err := m.store.WithTx(ctx, func(s Store) error {
		staff, err := s.GetEmployee(ctx, in.CreatedBy)
		if err != nil {
			return fmt.Errorf("get staff: %w", err)
		}
		if staff == nil || !staff.Active {
			return ErrEmployeeNotFound
		}

		services, err := s.GetServices(ctx, serviceIDs)
		if err != nil {
			return fmt.Errorf("get services: %w", err)
		}
		if len(services) != len(serviceIDs) {
			return ErrServiceNotFound
		}

		req := &ServiceRequest{
			Reference:   uuid.NewString(),
			ClientPhone: in.ClientPhone,
			CreatedBy:   in.CreatedBy,
			Notes:       in.Notes,
			Status:      RequestPending,
			CreatedAt:   m.now(),
		}
		if err := s.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		for _, id := range serviceIDs {
			if err := s.InsertRequestService(ctx, req.ID, id); err != nil {
				return fmt.Errorf("insert request service %d: %w", id, err)
			}
		}

		created, err = s.GetRequest(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("service request created",
		zap.Int64("request_id", created.ID),
		zap.String("reference", created.Reference),
		zap.Int("services", len(created.Services)))
	return created, nil
}

// ListAll returns all requests, newest first, hydrated with staff name,
// resolved client name, and services.
func (m *RequestManager) ListAll(ctx context.Context) ([]ServiceRequest, error) {
	return m.store.ListRequests(ctx, nil)
}

// ListPending returns only requests still awaiting a decision.
func (m *RequestManager) ListPending(ctx context.Context) ([]ServiceRequest, error) {
	pending := RequestPending
	return m.store.ListRequests(ctx, &pending)
}

// Process applies an accept/reject decision to a pending request. The second
// decision on the same request always fails with AlreadyProcessedError and
// leaves the first outcome untouched. On acceptance, a trainer assignment is
// created in the same transaction when the client phone resolves to a member.
func (m *RequestManager) Process(ctx context.Context, requestID int64, decision RequestStatus, trainerID int64) (*ServiceRequest, error) {
	if decision != RequestAccepted && decision != RequestRejected {
		return nil, &ValidationError{Field: "status", Message: "must be accepted or rejected"}
	}
	if trainerID == 0 {
		return nil, &ValidationError{Field: "trainer_id", Message: "required"}
	}

	var updated *ServiceRequest
	err := m.store.WithTx(ctx, func(s Store) error {
		now := m.now()

		affected, err := s.MarkRequestProcessed(ctx, requestID, decision, trainerID, now)
		if err != nil {
			return fmt.Errorf("mark request processed: %w", err)
		}
		if affected == 0 {
			existing, err := s.GetRequest(ctx, requestID)
			if err != nil {
				return fmt.Errorf("get request: %w", err)
			}
			if existing == nil {
				return ErrRequestNotFound
			}
			return &AlreadyProcessedError{RequestID: requestID, Status: existing.Status}
		}

		updated, err = s.GetRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}

		if decision == RequestAccepted {
			client, err := s.GetUserByPhone(ctx, updated.ClientPhone)
			if err != nil {
				return fmt.Errorf("resolve client: %w", err)
			}
			if client != nil {
				a := &TrainerAssignment{
					TrainerID:  trainerID,
					ClientID:   client.ID,
					RequestID:  requestID,
					AssignedAt: now,
					IsActive:   true,
				}
				if err := s.InsertAssignment(ctx, a); err != nil {
					return fmt.Errorf("insert assignment: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("service request processed",
		zap.Int64("request_id", requestID),
		zap.String("decision", string(decision)),
		zap.Int64("trainer_id", trainerID))
	return updated, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
