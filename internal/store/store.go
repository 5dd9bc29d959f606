// Package store provides durable persistence for the consultation pipeline.
//
// The Store contract is the only coordination surface shared between the
// orchestrator and the workers: every status transition and every derived
// artifact goes through it, and the multi-row steps (transcription completion
// plus schedule advance, report upsert plus schedule advance) commit
// atomically so readers never observe them half-applied.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/consultd/internal/clinical"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a concurrent update lost a race.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence contract for the four pipeline entities.
//
// "Latest" queries order by creation time descending with the primary key as
// tie-break, so "most recent" stays well-defined under same-instant inserts.
type Store interface {
	// CreateSchedule inserts a new schedule. Status defaults to planned.
	CreateSchedule(ctx context.Context, schedule *clinical.Schedule) error

	// GetSchedule returns the schedule or ErrNotFound.
	GetSchedule(ctx context.Context, id uint) (*clinical.Schedule, error)

	// ListSchedules returns all schedules ordered by scheduled time descending.
	ListSchedules(ctx context.Context) ([]clinical.Schedule, error)

	// AdvanceSchedule moves the schedule's status forward to target. It is a
	// no-op when the schedule is already at or past target; it never moves
	// status backward. Returns ErrNotFound if the schedule does not exist.
	AdvanceSchedule(ctx context.Context, id uint, target clinical.ScheduleStatus) error

	// CreateRecording inserts a recording for an existing schedule.
	CreateRecording(ctx context.Context, recording *clinical.Recording) error

	// GetRecording returns the recording or ErrNotFound.
	GetRecording(ctx context.Context, id uint) (*clinical.Recording, error)

	// LatestRecording returns the most recently created recording for the
	// schedule, or ErrNotFound when none exists.
	LatestRecording(ctx context.Context, scheduleID uint) (*clinical.Recording, error)

	// UpdateRecordingDuration backfills the duration of a recording, the only
	// mutation recordings allow after creation.
	UpdateRecordingDuration(ctx context.Context, id uint, seconds float64) error

	// CreateTranscription inserts a new pending attempt.
	CreateTranscription(ctx context.Context, transcription *clinical.Transcription) error

	// LatestTranscription returns the most recently created transcription for
	// the schedule regardless of status, or ErrNotFound when none exists.
	LatestTranscription(ctx context.Context, scheduleID uint) (*clinical.Transcription, error)

	// CompleteTranscription marks the attempt completed with the given text
	// and, in the same transaction, advances the owning schedule to
	// transcribed when its status still precedes it.
	CompleteTranscription(ctx context.Context, id uint, text string) error

	// FailTranscription marks the attempt failed with nil text. The owning
	// schedule is left untouched.
	FailTranscription(ctx context.Context, id uint) error

	// SweepStaleTranscriptions reclassifies pending attempts created before
	// cutoff as failed and returns how many rows changed.
	SweepStaleTranscriptions(ctx context.Context, cutoff time.Time) (int64, error)

	// SaveReport upserts the single report row for the schedule with the given
	// text, resets its status to draft, and in the same transaction sets the
	// schedule status to reported. Returns ErrNotFound if the schedule does
	// not exist.
	SaveReport(ctx context.Context, scheduleID uint, text string) (*clinical.Report, error)

	// GetReport returns the schedule's current report or ErrNotFound.
	GetReport(ctx context.Context, scheduleID uint) (*clinical.Report, error)

	// Close releases the underlying connection.
	Close() error
}
