package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicore/consultd/internal/clinical"
)

// Memory is an in-memory Store with the same semantics as the PostgreSQL
// implementation. It backs unit tests of the workers and the orchestrator;
// a single mutex stands in for transactions, so the multi-row steps are
// atomic here too.
type Memory struct {
	mu sync.Mutex

	schedules      map[uint]*clinical.Schedule
	recordings     map[uint]*clinical.Recording
	transcriptions map[uint]*clinical.Transcription
	reports        map[uint]*clinical.Report // keyed by schedule ID

	nextSchedule      uint
	nextRecording     uint
	nextTranscription uint
	nextReport        uint
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		schedules:      make(map[uint]*clinical.Schedule),
		recordings:     make(map[uint]*clinical.Recording),
		transcriptions: make(map[uint]*clinical.Transcription),
		reports:        make(map[uint]*clinical.Report),
	}
}

func (m *Memory) CreateSchedule(_ context.Context, schedule *clinical.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSchedule++
	schedule.ID = m.nextSchedule
	if schedule.Status == "" {
		schedule.Status = clinical.SchedulePlanned
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	clone := *schedule
	m.schedules[schedule.ID] = &clone
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, id uint) (*clinical.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	schedule, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *schedule
	return &clone, nil
}

func (m *Memory) ListSchedules(_ context.Context) ([]clinical.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]clinical.Schedule, 0, len(m.schedules))
	for _, schedule := range m.schedules {
		out = append(out, *schedule)
	}
	// Scheduled time descending, matching the SQL ordering.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ScheduledAt.After(out[j-1].ScheduledAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *Memory) AdvanceSchedule(_ context.Context, id uint, target clinical.ScheduleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceLocked(id, target)
}

func (m *Memory) advanceLocked(id uint, target clinical.ScheduleStatus) error {
	if !target.Valid() {
		return fmt.Errorf("advancing schedule %d: invalid status %q", id, target)
	}
	schedule, ok := m.schedules[id]
	if !ok {
		return ErrNotFound
	}
	if schedule.Status.Before(target) {
		schedule.Status = target
	}
	return nil
}

func (m *Memory) CreateRecording(_ context.Context, recording *clinical.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRecording++
	recording.ID = m.nextRecording
	if recording.MediaKind == "" {
		recording.MediaKind = clinical.MediaAudio
	}
	if recording.CreatedAt.IsZero() {
		recording.CreatedAt = time.Now().UTC()
	}
	clone := *recording
	m.recordings[recording.ID] = &clone
	return nil
}

func (m *Memory) GetRecording(_ context.Context, id uint) (*clinical.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recording, ok := m.recordings[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *recording
	return &clone, nil
}

func (m *Memory) LatestRecording(_ context.Context, scheduleID uint) (*clinical.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *clinical.Recording
	for _, recording := range m.recordings {
		if recording.ScheduleID != scheduleID {
			continue
		}
		if latest == nil || newer(recording.CreatedAt, recording.ID, latest.CreatedAt, latest.ID) {
			latest = recording
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *Memory) UpdateRecordingDuration(_ context.Context, id uint, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recording, ok := m.recordings[id]
	if !ok {
		return ErrNotFound
	}
	recording.DurationSeconds = &seconds
	return nil
}

func (m *Memory) CreateTranscription(_ context.Context, transcription *clinical.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTranscription++
	transcription.ID = m.nextTranscription
	if transcription.Status == "" {
		transcription.Status = clinical.TranscriptionPending
	}
	now := time.Now().UTC()
	if transcription.CreatedAt.IsZero() {
		transcription.CreatedAt = now
	}
	transcription.UpdatedAt = now
	clone := *transcription
	m.transcriptions[transcription.ID] = &clone
	return nil
}

func (m *Memory) LatestTranscription(_ context.Context, scheduleID uint) (*clinical.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *clinical.Transcription
	for _, transcription := range m.transcriptions {
		if transcription.ScheduleID != scheduleID {
			continue
		}
		if latest == nil || newer(transcription.CreatedAt, transcription.ID, latest.CreatedAt, latest.ID) {
			latest = transcription
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *Memory) CompleteTranscription(_ context.Context, id uint, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	transcription, ok := m.transcriptions[id]
	if !ok {
		return ErrNotFound
	}
	transcription.Text = &text
	transcription.Status = clinical.TranscriptionCompleted
	transcription.UpdatedAt = time.Now().UTC()

	return m.advanceLocked(transcription.ScheduleID, clinical.ScheduleTranscribed)
}

func (m *Memory) FailTranscription(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	transcription, ok := m.transcriptions[id]
	if !ok {
		return ErrNotFound
	}
	transcription.Text = nil
	transcription.Status = clinical.TranscriptionFailed
	transcription.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SweepStaleTranscriptions(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var swept int64
	for _, transcription := range m.transcriptions {
		if transcription.Status == clinical.TranscriptionPending && transcription.CreatedAt.Before(cutoff) {
			transcription.Status = clinical.TranscriptionFailed
			transcription.UpdatedAt = time.Now().UTC()
			swept++
		}
	}
	return swept, nil
}

func (m *Memory) SaveReport(_ context.Context, scheduleID uint, text string) (*clinical.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[scheduleID]; !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	report, ok := m.reports[scheduleID]
	if !ok {
		m.nextReport++
		report = &clinical.Report{
			ID:         m.nextReport,
			ScheduleID: scheduleID,
			CreatedAt:  now,
		}
		m.reports[scheduleID] = report
	}
	report.Text = &text
	report.Status = clinical.ReportDraft
	report.UpdatedAt = now

	if err := m.advanceLocked(scheduleID, clinical.ScheduleReported); err != nil {
		return nil, err
	}
	clone := *report
	return &clone, nil
}

func (m *Memory) GetReport(_ context.Context, scheduleID uint) (*clinical.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report, ok := m.reports[scheduleID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (m *Memory) Close() error {
	return nil
}

// newer reports whether (createdA, idA) sorts after (createdB, idB) under the
// "latest" ordering: creation time first, primary key as tie-break.
func newer(createdA time.Time, idA uint, createdB time.Time, idB uint) bool {
	if createdA.Equal(createdB) {
		return idA > idB
	}
	return createdA.After(createdB)
}
