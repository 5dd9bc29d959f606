// Package report renders the consultation summary document. Rendering is a
// pure function of the schedule fields and the transcript text: the same
// inputs always produce byte-identical output, which is what makes report
// regeneration idempotent.
package report

import (
	"strings"
	"time"
)

const (
	// PlaceholderTranscript is substituted when a schedule has no usable
	// transcript. Report generation never fails on missing input; it degrades
	// to this marker instead.
	PlaceholderTranscript = "Transcript unavailable."

	// unknownIdentifier stands in for a missing patient identifier.
	unknownIdentifier = "N/A"

	// excerptRunes is how much of the transcript the chief-complaint section
	// quotes.
	excerptRunes = 180

	dateTimeLayout = "02/01/2006 15:04"
)

// Fields carries the schedule data embedded in the rendered document.
type Fields struct {
	PatientName       string    `json:"patientName"`
	PatientIdentifier string    `json:"patientIdentifier"` // empty means unknown
	ClinicianName     string    `json:"clinicianName"`
	ScheduledAt       time.Time `json:"scheduledAt"`
}

// Render composes the report text from the schedule fields and transcript.
func Render(f Fields, transcript string) string {
	identifier := f.PatientIdentifier
	if identifier == "" {
		identifier = unknownIdentifier
	}

	var b strings.Builder
	b.WriteString("Consultation report\n")
	b.WriteString("Patient: " + f.PatientName + " (" + identifier + ")\n")
	b.WriteString("Clinician: " + f.ClinicianName + "\n")
	b.WriteString("Date/Time: " + f.ScheduledAt.Format(dateTimeLayout) + "\n\n")

	b.WriteString("Chief complaint: " + excerpt(transcript) + "...\n\n")
	b.WriteString("History/Key points: " + transcript + "\n\n")
	b.WriteString("Clinical exam: Unremarkable unless noted.\n\n")
	b.WriteString("Plan: Continue treatment if indicated.\n")

	return b.String()
}

// excerpt returns the first excerptRunes runes of the transcript. Counting
// runes rather than bytes keeps multi-byte text intact.
func excerpt(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= excerptRunes {
		return transcript
	}
	return string(runes[:excerptRunes])
}
