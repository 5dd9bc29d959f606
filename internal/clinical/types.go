// Package clinical defines the persistent entities of the consultation
// pipeline: a Schedule is the root record for one planned visit, and
// Recording, Transcription and Report reference it by foreign key.
package clinical

import (
	"time"
)

// MediaKind identifies the captured media type of a recording.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Schedule is the root record for one planned clinical visit and its
// processing status.
type Schedule struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	PatientName       string         `gorm:"size:255;not null" json:"patientName"`
	PatientIdentifier *string        `gorm:"size:64" json:"patientIdentifier,omitempty"`
	ClinicianName     string         `gorm:"size:255;not null" json:"clinicianName"`
	ScheduledAt       time.Time      `gorm:"index" json:"scheduledAt"`
	Notes             *string        `gorm:"type:text" json:"notes,omitempty"`
	Status            ScheduleStatus `gorm:"size:16;not null;default:planned;index" json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Recording is one captured media artifact tied to exactly one schedule.
// A schedule may accumulate several recordings; the most recently created
// one drives the next transcription. Rows are immutable after creation
// except for duration backfill.
type Recording struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ScheduleID      uint      `gorm:"index;not null" json:"scheduleId"`
	StorageRef      string    `gorm:"size:512;not null" json:"storageRef"`
	MediaKind       MediaKind `gorm:"size:8;not null;default:audio" json:"mediaKind"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Transcription is one speech-to-text attempt for a schedule. The row is
// created with status pending before the capability call so failed attempts
// stay queryable. Text is non-nil iff the attempt completed. RecordingID is
// nullable so transcriptions survive recording deletion.
type Transcription struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	ScheduleID  uint                `gorm:"index;not null" json:"scheduleId"`
	RecordingID *uint               `gorm:"index" json:"recordingId,omitempty"`
	Text        *string             `gorm:"type:text" json:"text,omitempty"`
	Status      TranscriptionStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Report is the current generated summary document for a schedule. Unlike
// Transcription it is not an attempt log: the unique index keeps exactly one
// row per schedule and regeneration overwrites it.
type Report struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	ScheduleID uint         `gorm:"uniqueIndex;not null" json:"scheduleId"`
	Text       *string      `gorm:"type:text" json:"text,omitempty"`
	Status     ReportStatus `gorm:"size:8;not null;default:draft" json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
