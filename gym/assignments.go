/*
assignments.go - Read-side queries over trainer-client assignments

PURPOSE:
  Answers "who is this trainer's active client list" by joining active
  assignments to members and to the services of the originating request.
  Pure reads; the implicit consistency of the joins is enough, so no
  transaction is opened.

SEE ALSO:
  - requests.go: where assignments are created (Process, on acceptance)
*/
package gym

import (
	"context"

	"go.uber.org/zap"
)

// AssignmentQueries serves trainer-scoped read models.
type AssignmentQueries struct {
	store TxStore
	log   *zap.Logger
}

// NewAssignmentQueries creates the query service over the given store.
func NewAssignmentQueries(store TxStore, log *zap.Logger) *AssignmentQueries {
	return &AssignmentQueries{store: store, log: log}
}

// TrainerClients returns the trainer's current clients, newest assignment
// first. Inactive assignments are excluded.
func (q *AssignmentQueries) TrainerClients(ctx context.Context, trainerID int64) ([]TrainerClient, error) {
	clients, err := q.store.TrainerClients(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	q.log.Debug("trainer clients resolved",
		zap.Int64("trainer_id", trainerID),
		zap.Int("count", len(clients)))
	return clients, nil
}

// Release deactivates the trainer's assignment for the given request. The
// request and its history stay untouched; the client just leaves the
// trainer's current list. Already-inactive or foreign assignments fail with
// ErrAssignmentNotFound.
func (q *AssignmentQueries) Release(ctx context.Context, trainerID, requestID int64) error {
	affected, err := q.store.DeactivateAssignment(ctx, trainerID, requestID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAssignmentNotFound
	}
	q.log.Info("assignment released",
		zap.Int64("trainer_id", trainerID),
		zap.Int64("request_id", requestID))
	return nil
}
