// Package orchestrator connects pipeline events to the background work
// they trigger. It owns the dispatch rules: which workflow starts on
// which event, under which workflow ID, and which start failures are
// expected rather than errors.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/store"
	"github.com/clinicore/consultd/internal/workflows"
)

// WorkflowStarter is the slice of the Temporal client the orchestrator
// needs. client.Client satisfies it.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Orchestrator dispatches workflows in response to pipeline events.
type Orchestrator struct {
	starter   WorkflowStarter
	store     store.Store
	taskQueue string
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTaskQueue overrides the default task queue.
func WithTaskQueue(queue string) Option {
	return func(o *Orchestrator) {
		o.taskQueue = queue
	}
}

// New creates an orchestrator. The starter is usually a Temporal
// client; tests substitute a fake.
func New(starter WorkflowStarter, st store.Store, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if starter == nil {
		return nil, fmt.Errorf("workflow starter is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		starter:   starter,
		store:     st,
		taskQueue: workflows.TaskQueue,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// OnRecordingPersisted advances the schedule to recorded and dispatches
// the transcription workflow.
//
// The workflow ID is derived from the schedule alone, so while one
// attempt is in flight a second recording for the same schedule cannot
// start another: Temporal rejects the duplicate start and the event is
// deliberately dropped. A later recording is picked up by the next
// dispatch once the running attempt finishes, which always reads the
// latest recording anyway.
func (o *Orchestrator) OnRecordingPersisted(ctx context.Context, scheduleID uint) error {
	if err := o.store.AdvanceSchedule(ctx, scheduleID, clinical.ScheduleRecorded); err != nil {
		return fmt.Errorf("advance schedule %d: %w", scheduleID, err)
	}

	opts := client.StartWorkflowOptions{
		ID:        workflows.TranscriptionWorkflowID(scheduleID),
		TaskQueue: o.taskQueue,
	}
	_, err := o.starter.ExecuteWorkflow(ctx, opts, workflows.TranscriptionWorkflow, workflows.TranscriptionInput{
		ScheduleID: scheduleID,
	})
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			o.logger.Debug("transcription already in flight, dropping dispatch",
				zap.Uint("schedule.id", scheduleID),
				zap.String("workflow.id", opts.ID))
			return nil
		}
		return fmt.Errorf("start transcription workflow: %w", err)
	}

	o.logger.Info("transcription dispatched",
		zap.Uint("schedule.id", scheduleID),
		zap.String("workflow.id", opts.ID))
	return nil
}

// OnReportRequested dispatches a report workflow for the schedule and
// returns the workflow ID. Every request runs: report generation is
// re-runnable on demand and later runs simply overwrite the document.
func (o *Orchestrator) OnReportRequested(ctx context.Context, scheduleID uint) (string, error) {
	if _, err := o.store.GetSchedule(ctx, scheduleID); err != nil {
		return "", fmt.Errorf("fetch schedule %d: %w", scheduleID, err)
	}

	opts := client.StartWorkflowOptions{
		ID:        workflows.ReportWorkflowID(scheduleID),
		TaskQueue: o.taskQueue,
	}
	_, err := o.starter.ExecuteWorkflow(ctx, opts, workflows.ReportWorkflow, workflows.ReportInput{
		ScheduleID: scheduleID,
	})
	if err != nil {
		return "", fmt.Errorf("start report workflow: %w", err)
	}

	o.logger.Info("report generation dispatched",
		zap.Uint("schedule.id", scheduleID),
		zap.String("workflow.id", opts.ID))
	return opts.ID, nil
}
