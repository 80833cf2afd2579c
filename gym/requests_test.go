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

func newTestManager(t *testing.T) (*gym.RequestManager, *sqlite.Store, *fakeClock) {
	store := newTestStore(t)
	clock := &fakeClock{t: time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)}
	manager := gym.NewRequestManager(store, zap.NewNop()).WithClock(clock.Now)
	return manager, store, clock
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateRequest_Success(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()

	req, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111",
		ServiceIDs:  []int64{1, 2},
		CreatedBy:   1,
		Notes:       "wants morning sessions",
	})
	require.NoError(t, err)

	assert.NotZero(t, req.ID)
	assert.NotEmpty(t, req.Reference)
	assert.Equal(t, gym.RequestPending, req.Status)
	assert.True(t, req.CreatedAt.Equal(clock.Now()))
	assert.Len(t, req.Services, 2)

	// Hydration: staff name from employee, client name resolved by phone.
	assert.Equal(t, "Dana Reyes", req.CreatedName)
	assert.Equal(t, "Sam Kiprotich", req.ClientName)
}

func TestCreateRequest_EmptyServices_Rejected(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Create(context.Background(), gym.CreateRequestInput{
		ClientPhone: "0711111111",
		ServiceIDs:  nil,
		CreatedBy:   1,
	})
	assert.ErrorIs(t, err, gym.ErrValidation)
}

func TestCreateRequest_DuplicateServices_Collapsed(t *testing.T) {
	manager, _, _ := newTestManager(t)

	req, err := manager.Create(context.Background(), gym.CreateRequestInput{
		ClientPhone: "0711111111",
		ServiceIDs:  []int64{1, 2, 2, 1},
		CreatedBy:   1,
	})
	require.NoError(t, err)
	assert.Len(t, req.Services, 2)
}

func TestCreateRequest_UnknownService_NothingPersisted(t *testing.T) {
	// One bad service id rolls back the whole request.
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111",
		ServiceIDs:  []int64{1, 999},
		CreatedBy:   1,
	})
	assert.ErrorIs(t, err, gym.ErrServiceNotFound)

	all, err := manager.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateRequest_UnknownStaff_Rejected(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Create(context.Background(), gym.CreateRequestInput{
		ClientPhone: "0711111111",
		ServiceIDs:  []int64{1},
		CreatedBy:   999,
	})
	assert.ErrorIs(t, err, gym.ErrEmployeeNotFound)
}

func TestCreateRequest_UnregisteredPhone_Allowed(t *testing.T) {
	// Walk-in clients may not be registered members yet.
	manager, _, _ := newTestManager(t)

	req, err := manager.Create(context.Background(), gym.CreateRequestInput{
		ClientPhone: "0799999999",
		ServiceIDs:  []int64{3},
		CreatedBy:   1,
	})
	require.NoError(t, err)
	assert.Empty(t, req.ClientName)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListRequests_PendingFilter(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111", ServiceIDs: []int64{1}, CreatedBy: 1,
	})
	require.NoError(t, err)
	second, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0722222222", ServiceIDs: []int64{2}, CreatedBy: 1,
	})
	require.NoError(t, err)

	_, err = manager.Process(ctx, first.ID, gym.RequestRejected, 2)
	require.NoError(t, err)

	pending, err := manager.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	all, err := manager.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// PROCESS: EXACTLY-ONCE DECISIONS
// =============================================================================

func TestProcess_Accept_CreatesAssignment(t *testing.T) {
	manager, store, clock := newTestManager(t)
	ctx := context.Background()

	req, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111", ServiceIDs: []int64{1, 2}, CreatedBy: 1,
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	updated, err := manager.Process(ctx, req.ID, gym.RequestAccepted, 2)
	require.NoError(t, err)

	assert.Equal(t, gym.RequestAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedBy)
	assert.Equal(t, int64(2), *updated.AcceptedBy)
	require.NotNil(t, updated.AcceptedAt)

	clients, err := store.TrainerClients(ctx, 2)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Sam Kiprotich", clients[0].Name)
	assert.Equal(t, req.ID, clients[0].RequestID)
	assert.Len(t, clients[0].Services, 2)
}

func TestProcess_Accept_UnregisteredPhone_NoAssignment(t *testing.T) {
	// The request still gets accepted; there is just no member to assign.
	manager, store, _ := newTestManager(t)
	ctx := context.Background()

	req, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0799999999", ServiceIDs: []int64{1}, CreatedBy: 1,
	})
	require.NoError(t, err)

	updated, err := manager.Process(ctx, req.ID, gym.RequestAccepted, 2)
	require.NoError(t, err)
	assert.Equal(t, gym.RequestAccepted, updated.Status)

	clients, err := store.TrainerClients(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestProcess_Reject(t *testing.T) {
	manager, store, _ := newTestManager(t)
	ctx := context.Background()

	req, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111", ServiceIDs: []int64{1}, CreatedBy: 1,
	})
	require.NoError(t, err)

	updated, err := manager.Process(ctx, req.ID, gym.RequestRejected, 2)
	require.NoError(t, err)
	assert.Equal(t, gym.RequestRejected, updated.Status)

	// Rejection never creates an assignment.
	clients, err := store.TrainerClients(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestProcess_SecondDecision_Fails(t *testing.T) {
	// GIVEN: A request accepted by trainer 2
	// WHEN: Trainer 3 tries to reject it
	// THEN: AlreadyProcessedError, and the first outcome is untouched

	manager, store, _ := newTestManager(t)
	ctx := context.Background()

	req, err := manager.Create(ctx, gym.CreateRequestInput{
		ClientPhone: "0711111111", ServiceIDs: []int64{1}, CreatedBy: 1,
	})
	require.NoError(t, err)

	_, err = manager.Process(ctx, req.ID, gym.RequestAccepted, 2)
	require.NoError(t, err)

	_, err = manager.Process(ctx, req.ID, gym.RequestRejected, 3)
	assert.ErrorIs(t, err, gym.ErrAlreadyProcessed)
	var already *gym.AlreadyProcessedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, gym.RequestAccepted, already.Status)

	stored, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, gym.RequestAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Equal(t, int64(2), *stored.AcceptedBy)
}

func TestProcess_UnknownRequest_NotFound(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Process(context.Background(), 999, gym.RequestAccepted, 2)
	assert.ErrorIs(t, err, gym.ErrRequestNotFound)
}

func TestProcess_InvalidDecision_Rejected(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Process(ctx, 1, gym.RequestStatus("approved"), 2)
	assert.ErrorIs(t, err, gym.ErrValidation)

	_, err = manager.Process(ctx, 1, gym.RequestPending, 2)
	assert.ErrorIs(t, err, gym.ErrValidation)

	_, err = manager.Process(ctx, 1, gym.RequestAccepted, 0)
	assert.ErrorIs(t, err, gym.ErrValidation)
}
