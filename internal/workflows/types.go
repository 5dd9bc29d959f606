// Package workflows provides Temporal workflow definitions for the
// consultation pipeline: one workflow per transcription attempt and one
// per report generation request.
package workflows

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/report"
)

// TaskQueue is the default task queue both binaries agree on.
const TaskQueue = "consultd"

// TranscriptionWorkflowID returns the workflow ID for a schedule's
// transcription. The ID is a pure function of the schedule so Temporal
// rejects a second start while one attempt is still running.
func TranscriptionWorkflowID(scheduleID uint) string {
	return fmt.Sprintf("transcription-%d", scheduleID)
}

// ReportWorkflowID returns a fresh workflow ID for a report request.
// Report generation is re-runnable on demand, so every request gets its
// own execution.
func ReportWorkflowID(scheduleID uint) string {
	return fmt.Sprintf("report-%d-%s", scheduleID, uuid.NewString())
}

// TranscriptionInput starts a transcription workflow.
type TranscriptionInput struct {
	ScheduleID uint
}

// TranscriptionResult reports what a transcription workflow did.
type TranscriptionResult struct {
	TranscriptionID uint
	Status          clinical.TranscriptionStatus
	Skipped         bool   // schedule no longer exists, nothing recorded
	Reason          string // human-readable note for skipped or failed runs
}

// ReportInput starts a report workflow.
type ReportInput struct {
	ScheduleID uint
}

// ReportResult reports what a report workflow did.
type ReportResult struct {
	ReportID        uint
	Generated       bool
	PlaceholderUsed bool // no completed transcript existed at render time
	Skipped         bool // schedule no longer exists
}

// Activity input and output types.

type BeginTranscriptionInput struct {
	ScheduleID uint
}

// BeginTranscriptionResult carries the pending attempt row plus what the
// activity could resolve around it. ScheduleFound false means nothing was
// written at all; RecordingFound false means a pending row exists that the
// workflow must fail.
type BeginTranscriptionResult struct {
	ScheduleFound   bool
	RecordingFound  bool
	TranscriptionID uint
	RecordingID     uint
	StorageRef      string
}

type TranscribeRecordingInput struct {
	TranscriptionID uint
	RecordingID     uint
	StorageRef      string
}

type TranscribeRecordingResult struct {
	Text     string
	Language string
	Segments int
}

type CompleteTranscriptionInput struct {
	TranscriptionID uint
	Text            string
}

type FailTranscriptionInput struct {
	TranscriptionID uint
}

type FetchReportContextInput struct {
	ScheduleID uint
}

type FetchReportContextResult struct {
	ScheduleFound bool
	Fields        report.Fields
	Transcript    string
	HasTranscript bool
}

type SaveReportInput struct {
	ScheduleID uint
	Text       string
}

type SaveReportResult struct {
	ReportID uint
	Status   clinical.ReportStatus
}
