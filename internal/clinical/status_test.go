package clinical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleStatusBefore(t *testing.T) {
	tests := []struct {
		name     string
		from     ScheduleStatus
		to       ScheduleStatus
		expected bool
	}{
		{"planned precedes recorded", SchedulePlanned, ScheduleRecorded, true},
		{"planned precedes reported", SchedulePlanned, ScheduleReported, true},
		{"recorded precedes transcribed", ScheduleRecorded, ScheduleTranscribed, true},
		{"transcribed precedes reported", ScheduleTranscribed, ScheduleReported, true},
		{"reported precedes nothing", ScheduleReported, SchedulePlanned, false},
		{"status never precedes itself", ScheduleRecorded, ScheduleRecorded, false},
		{"transcribed does not precede recorded", ScheduleTranscribed, ScheduleRecorded, false},
		{"unknown status precedes nothing", ScheduleStatus("bogus"), ScheduleReported, false},
		{"nothing precedes unknown status", SchedulePlanned, ScheduleStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.Before(tt.to))
		})
	}
}

func TestScheduleStatusValid(t *testing.T) {
	for _, s := range []ScheduleStatus{SchedulePlanned, ScheduleRecorded, ScheduleTranscribed, ScheduleReported} {
		assert.True(t, s.Valid(), "expected %q to be valid", s)
	}
	assert.False(t, ScheduleStatus("").Valid())
	assert.False(t, ScheduleStatus("archived").Valid())
}

func TestStatusesBefore(t *testing.T) {
	assert.Empty(t, StatusesBefore(SchedulePlanned))
	assert.Equal(t, []ScheduleStatus{SchedulePlanned}, StatusesBefore(ScheduleRecorded))
	assert.Equal(t, []ScheduleStatus{SchedulePlanned, ScheduleRecorded}, StatusesBefore(ScheduleTranscribed))
	assert.Equal(t, []ScheduleStatus{SchedulePlanned, ScheduleRecorded, ScheduleTranscribed}, StatusesBefore(ScheduleReported))
	assert.Nil(t, StatusesBefore(ScheduleStatus("bogus")))
}
