package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/report"
	"github.com/clinicore/consultd/internal/store"
	"github.com/clinicore/consultd/internal/transcribe"
)

// Activities bundles the side-effecting dependencies the workflows call
// through Temporal. All persistence goes through the store; the only
// external capability is the transcriber.
type Activities struct {
	store       store.Store
	transcriber transcribe.Transcriber
	logger      *zap.Logger
}

// NewActivities creates the activity set registered on the worker.
func NewActivities(st store.Store, tr transcribe.Transcriber, logger *zap.Logger) (*Activities, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{store: st, transcriber: tr, logger: logger}, nil
}

// BeginTranscription inserts the pending attempt row and resolves the
// recording it should consume. The row is written before the capability
// call so failed attempts stay queryable. When the schedule has vanished
// nothing is written at all.
func (a *Activities) BeginTranscription(ctx context.Context, in BeginTranscriptionInput) (*BeginTranscriptionResult, error) {
	if _, err := a.store.GetSchedule(ctx, in.ScheduleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Info("schedule gone before transcription started",
				zap.Uint("schedule.id", in.ScheduleID))
			return &BeginTranscriptionResult{ScheduleFound: false}, nil
		}
		return nil, WrapActivityError("fetch schedule", err)
	}

	result := &BeginTranscriptionResult{ScheduleFound: true}

	rec, err := a.store.LatestRecording(ctx, in.ScheduleID)
	switch {
	case err == nil:
		result.RecordingFound = true
		result.RecordingID = rec.ID
		result.StorageRef = rec.StorageRef
	case errors.Is(err, store.ErrNotFound):
		// Leave RecordingFound false; the workflow fails the attempt.
	default:
		return nil, WrapActivityError("resolve latest recording", err)
	}

	tr := &clinical.Transcription{
		ScheduleID: in.ScheduleID,
		Status:     clinical.TranscriptionPending,
	}
	if result.RecordingFound {
		id := result.RecordingID
		tr.RecordingID = &id
	}
	if err := a.store.CreateTranscription(ctx, tr); err != nil {
		return nil, WrapActivityError("create pending transcription", err)
	}
	result.TranscriptionID = tr.ID

	a.logger.Debug("transcription attempt opened",
		zap.Uint("schedule.id", in.ScheduleID),
		zap.Uint("transcription.id", tr.ID),
		zap.Bool("recording_found", result.RecordingFound))

	return result, nil
}

// TranscribeRecording runs the speech-to-text capability. It also
// backfills the recording duration from the final segment when the
// capability reports timestamps and no duration is known yet.
func (a *Activities) TranscribeRecording(ctx context.Context, in TranscribeRecordingInput) (*TranscribeRecordingResult, error) {
	start := time.Now()
	res, err := a.transcriber.Transcribe(ctx, in.StorageRef)
	transcriptionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Bool("error", err != nil)))
	if err != nil {
		return nil, NewWorkflowError("transcribe recording", ErrorSeverityHigh, err)
	}

	a.backfillDuration(ctx, in.RecordingID, res.Segments)

	return &TranscribeRecordingResult{
		Text:     res.Text,
		Language: res.Language,
		Segments: len(res.Segments),
	}, nil
}

func (a *Activities) backfillDuration(ctx context.Context, recordingID uint, segments []transcribe.Segment) {
	if recordingID == 0 || len(segments) == 0 {
		return
	}
	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil || rec.DurationSeconds != nil {
		return
	}
	end := segments[len(segments)-1].End
	if end <= 0 {
		return
	}
	if err := a.store.UpdateRecordingDuration(ctx, recordingID, end); err != nil {
		a.logger.Warn("duration backfill failed",
			zap.Uint("recording.id", recordingID), zap.Error(err))
	}
}

// CompleteTranscription stores the transcript and advances the schedule,
// both in one store transaction.
func (a *Activities) CompleteTranscription(ctx context.Context, in CompleteTranscriptionInput) error {
	if err := a.store.CompleteTranscription(ctx, in.TranscriptionID, in.Text); err != nil {
		return WrapActivityError("complete transcription", err)
	}
	transcriptionAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", "completed")))
	return nil
}

// FailTranscription marks the attempt failed. The owning schedule keeps
// whatever status it had.
func (a *Activities) FailTranscription(ctx context.Context, in FailTranscriptionInput) error {
	if err := a.store.FailTranscription(ctx, in.TranscriptionID); err != nil {
		return WrapActivityError("fail transcription", err)
	}
	transcriptionAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", "failed")))
	return nil
}

// FetchReportContext loads everything the report renderer needs: the
// schedule fields and, when one exists, the latest completed transcript.
func (a *Activities) FetchReportContext(ctx context.Context, in FetchReportContextInput) (*FetchReportContextResult, error) {
	sched, err := a.store.GetSchedule(ctx, in.ScheduleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &FetchReportContextResult{ScheduleFound: false}, nil
		}
		return nil, WrapActivityError("fetch schedule", err)
	}

	fields := report.Fields{
		PatientName:   sched.PatientName,
		ClinicianName: sched.ClinicianName,
		ScheduledAt:   sched.ScheduledAt,
	}
	if sched.PatientIdentifier != nil {
		fields.PatientIdentifier = *sched.PatientIdentifier
	}
	result := &FetchReportContextResult{
		ScheduleFound: true,
		Fields:        fields,
	}

	tr, err := a.store.LatestTranscription(ctx, in.ScheduleID)
	switch {
	case err == nil:
		if tr.Status == clinical.TranscriptionCompleted {
			if tr.Text == nil {
				// Text is non-nil iff the attempt completed; a row that
				// breaks this gets the placeholder and a loud log.
				a.logger.DPanic("completed transcription without text",
					zap.Uint("transcription.id", tr.ID),
					zap.Uint("schedule.id", in.ScheduleID))
			} else {
				result.Transcript = *tr.Text
				result.HasTranscript = true
			}
		}
	case errors.Is(err, store.ErrNotFound):
		// No attempt yet; the renderer falls back to the placeholder.
	default:
		return nil, WrapActivityError("fetch latest transcription", err)
	}

	return result, nil
}

// SaveReport upserts the report row and moves the schedule to reported in
// one store transaction.
func (a *Activities) SaveReport(ctx context.Context, in SaveReportInput) (*SaveReportResult, error) {
	rep, err := a.store.SaveReport(ctx, in.ScheduleID, in.Text)
	if err != nil {
		return nil, WrapActivityError("save report", err)
	}
	reportGenerations.Add(ctx, 1)
	return &SaveReportResult{ReportID: rep.ID, Status: rep.Status}, nil
}
