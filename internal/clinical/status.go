package clinical

// ScheduleStatus tracks how far a visit has progressed through the pipeline.
// Transitions are forward-only: the orchestrator never regresses a schedule,
// and a failed stage leaves the status where it was.
type ScheduleStatus string

const (
	SchedulePlanned     ScheduleStatus = "planned"
	ScheduleRecorded    ScheduleStatus = "recorded"
	ScheduleTranscribed ScheduleStatus = "transcribed"
	ScheduleReported    ScheduleStatus = "reported"
)

// scheduleRank orders statuses along the pipeline.
var scheduleRank = map[ScheduleStatus]int{
	SchedulePlanned:     0,
	ScheduleRecorded:    1,
	ScheduleTranscribed: 2,
	ScheduleReported:    3,
}

// Valid reports whether s is a known schedule status.
func (s ScheduleStatus) Valid() bool {
	_, ok := scheduleRank[s]
	return ok
}

// Before reports whether s precedes other in the pipeline. Unknown statuses
// never precede anything, so a corrupt row can only be overwritten forward
// by an explicit repair, not by the orchestrator.
func (s ScheduleStatus) Before(other ScheduleStatus) bool {
	sr, ok := scheduleRank[s]
	if !ok {
		return false
	}
	or, ok := scheduleRank[other]
	if !ok {
		return false
	}
	return sr < or
}

// StatusesBefore returns every status strictly preceding s, in pipeline
// order. Used for conditional advance queries.
func StatusesBefore(s ScheduleStatus) []ScheduleStatus {
	target, ok := scheduleRank[s]
	if !ok {
		return nil
	}
	out := make([]ScheduleStatus, 0, target)
	for _, candidate := range []ScheduleStatus{SchedulePlanned, ScheduleRecorded, ScheduleTranscribed, ScheduleReported} {
		if scheduleRank[candidate] < target {
			out = append(out, candidate)
		}
	}
	return out
}

// TranscriptionStatus is the lifecycle of a single speech-to-text attempt.
type TranscriptionStatus string

const (
	TranscriptionPending   TranscriptionStatus = "pending"
	TranscriptionCompleted TranscriptionStatus = "completed"
	TranscriptionFailed    TranscriptionStatus = "failed"
)

// ReportStatus is the editorial state of the generated report. Regeneration
// always resets a report to draft.
type ReportStatus string

const (
	ReportDraft ReportStatus = "draft"
	ReportFinal ReportStatus = "final"
)
