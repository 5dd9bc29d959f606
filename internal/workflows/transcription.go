package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clinicore/consultd/internal/clinical"
)

// Activity method references for workflow code. The pointer is never
// dereferenced; Temporal resolves methods by name against the instance
// registered on the worker.
var a *Activities

// TranscriptionWorkflow runs one speech-to-text attempt for a schedule.
//
// The attempt row is written before the capability call, so every run
// leaves a queryable trace. A capability failure is recorded on the row
// and absorbed: the workflow itself completes normally, because the
// failed attempt is the outcome, not an error in the orchestration.
func TranscriptionWorkflow(ctx workflow.Context, input TranscriptionInput) (*TranscriptionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting transcription", "schedule_id", input.ScheduleID)

	// Store activities are short and safe to retry.
	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var begin BeginTranscriptionResult
	err := workflow.ExecuteActivity(storeCtx, a.BeginTranscription, BeginTranscriptionInput{
		ScheduleID: input.ScheduleID,
	}).Get(ctx, &begin)
	if err != nil {
		return nil, WrapActivityError("begin transcription", err)
	}

	if !begin.ScheduleFound {
		logger.Info("Schedule no longer exists, nothing to do", "schedule_id", input.ScheduleID)
		return &TranscriptionResult{Skipped: true, Reason: "schedule not found"}, nil
	}

	result := &TranscriptionResult{TranscriptionID: begin.TranscriptionID}

	if !begin.RecordingFound {
		logger.Warn("No recording to transcribe", "schedule_id", input.ScheduleID)
		if err := failAttempt(storeCtx, begin.TranscriptionID); err != nil {
			return nil, err
		}
		result.Status = clinical.TranscriptionFailed
		result.Reason = "no recording for schedule"
		return result, nil
	}

	// The capability call gets one shot with a generous timeout. A
	// retry would re-run a long external job against the same media;
	// re-dispatching a fresh attempt is the recovery path instead.
	transcribeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var transcribed TranscribeRecordingResult
	err = workflow.ExecuteActivity(transcribeCtx, a.TranscribeRecording, TranscribeRecordingInput{
		TranscriptionID: begin.TranscriptionID,
		RecordingID:     begin.RecordingID,
		StorageRef:      begin.StorageRef,
	}).Get(ctx, &transcribed)
	if err != nil {
		logger.Warn("Transcription capability failed", "schedule_id", input.ScheduleID, "error", err)
		if failErr := failAttempt(storeCtx, begin.TranscriptionID); failErr != nil {
			return nil, failErr
		}
		result.Status = clinical.TranscriptionFailed
		result.Reason = err.Error()
		return result, nil
	}

	err = workflow.ExecuteActivity(storeCtx, a.CompleteTranscription, CompleteTranscriptionInput{
		TranscriptionID: begin.TranscriptionID,
		Text:            transcribed.Text,
	}).Get(ctx, nil)
	if err != nil {
		return nil, WrapActivityError("complete transcription", err)
	}

	logger.Info("Transcription complete",
		"schedule_id", input.ScheduleID,
		"transcription_id", begin.TranscriptionID,
		"language", transcribed.Language,
		"segments", transcribed.Segments)

	result.Status = clinical.TranscriptionCompleted
	return result, nil
}

func failAttempt(ctx workflow.Context, transcriptionID uint) error {
	err := workflow.ExecuteActivity(ctx, a.FailTranscription, FailTranscriptionInput{
		TranscriptionID: transcriptionID,
	}).Get(ctx, nil)
	if err != nil {
		return WrapActivityError("fail transcription", err)
	}
	return nil
}
