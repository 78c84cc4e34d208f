// Package interrupt suspends document workflows at their input points and resumes them
// with the user's reply, possibly in a later request or another process.
package interrupt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/workflow"
)

var (
	// ErrNoPendingSuspension is returned by Resume for threads that are not waiting on input.
	ErrNoPendingSuspension = errors.New("thread has no pending suspension")

	ErrInvalidReplyKind = errors.New("invalid reply kind")
	ErrNotASuspendPoint = errors.New("node is not a suspend point")
)

// Runner is the part of the workflow engine the controller drives.
type Runner interface {
	Start(ctx context.Context, request string) (workflow.Outcome, error)
	RunFrom(ctx context.Context, start workflow.NodeID, state models.WorkflowState) (workflow.Outcome, error)
}

// Controller owns the snapshot of every thread. Calls on one thread run one at a time
// in arrival order; different threads proceed in parallel.
type Controller struct {
	runner    Runner
	snapshots persistence.SnapshotRepository
	locks     *KeyedMutex
	logger    *slog.Logger
}

func NewController(logger *slog.Logger, runner Runner, snapshots persistence.SnapshotRepository) *Controller {
	return &Controller{
		runner:    runner,
		snapshots: snapshots,
		locks:     NewKeyedMutex(),
		logger:    logger.With("module", "interrupt_controller"),
	}
}

// Start runs a fresh conversation on threadID and records where it stopped.
func (c *Controller) Start(ctx context.Context, threadID, request string) (workflow.Outcome, error) {
	if err := persistence.ValidateID(threadID); err != nil {
		return workflow.Outcome{}, err
	}

	unlock := c.locks.Lock(threadID)
	defer unlock()

	outcome, err := c.runner.Start(ctx, request)
	if err != nil {
		return workflow.Outcome{}, err
	}

	if err := c.record(ctx, threadID, outcome); err != nil {
		return workflow.Outcome{}, err
	}

	return outcome, nil
}

// Suspend persists state as waiting before the suspend point at.
func (c *Controller) Suspend(ctx context.Context, threadID string, at workflow.NodeID, state models.WorkflowState) error {
	if !at.IsSuspendPoint() {
		return fmt.Errorf("%w: %s", ErrNotASuspendPoint, at)
	}

	return c.save(ctx, threadID, at.String(), state)
}

// Resume injects reply into the suspended thread and runs it to the next suspend
// point or to the end. A thread that is not suspended is left untouched.
func (c *Controller) Resume(ctx context.Context, threadID, reply string, kind workflow.ReplyKind) (workflow.Outcome, error) {
	if !kind.IsValid() {
		return workflow.Outcome{}, fmt.Errorf("%w: %q", ErrInvalidReplyKind, kind)
	}

	unlock := c.locks.Lock(threadID)
	defer unlock()

	node, snapshot, err := c.pending(ctx, threadID)
	if err != nil {
		return workflow.Outcome{}, err
	}

	if kind != node.ReplyKind() {
		c.logger.DebugContext(ctx, "Reply kind differs from the pending node", "thread_id", threadID, "kind", kind, "next_node", node.String())
	}

	c.logger.InfoContext(ctx, "Resuming workflow", "thread_id", threadID, "next_node", node.String())

	outcome, err := c.runner.RunFrom(ctx, node, workflow.WithReply(snapshot.State, kind, reply))
	if err != nil {
		return workflow.Outcome{}, err
	}

	if err := c.record(ctx, threadID, outcome); err != nil {
		return workflow.Outcome{}, err
	}

	return outcome, nil
}

// Pending returns the node a thread is waiting on.
func (c *Controller) Pending(ctx context.Context, threadID string) (workflow.NodeID, *models.Snapshot, error) {
	return c.pending(ctx, threadID)
}

func (c *Controller) pending(ctx context.Context, threadID string) (workflow.NodeID, *models.Snapshot, error) {
	snapshot, err := c.snapshots.LoadSnapshot(ctx, threadID)
	if err != nil {
		if persistence.IsSnapshotNotFound(err) {
			return 0, nil, fmt.Errorf("%w: %s", ErrNoPendingSuspension, threadID)
		}

		return 0, nil, err
	}

	if snapshot.NextNode == "" {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoPendingSuspension, threadID)
	}

	node, err := workflow.ParseNodeID(snapshot.NextNode)
	if err != nil || !node.IsSuspendPoint() {
		return 0, nil, fmt.Errorf("%w: %s stored at %q", ErrNoPendingSuspension, threadID, snapshot.NextNode)
	}

	return node, snapshot, nil
}

// record keeps the final state of finished threads with no next node so they cannot be resumed.
func (c *Controller) record(ctx context.Context, threadID string, outcome workflow.Outcome) error {
	if suspended, ok := outcome.Suspension(); ok {
		return c.Suspend(ctx, threadID, suspended.At, outcome.State)
	}

	return c.save(ctx, threadID, "", outcome.State)
}

func (c *Controller) save(ctx context.Context, threadID, nextNode string, state models.WorkflowState) error {
	err := c.snapshots.SaveSnapshot(ctx, &models.Snapshot{
		ThreadID: threadID,
		NextNode: nextNode,
		State:    state,
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot for thread %s: %w", threadID, err)
	}

	return nil
}
