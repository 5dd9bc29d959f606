package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinicore/consultd/internal/clinical"
)

// openTestGorm connects to the PostgreSQL instance named by CONSULTD_TEST_DSN
// and migrates into a throwaway schema. Skipped when the variable is unset so
// the suite runs without external infrastructure.
func openTestGorm(t *testing.T) *Gorm {
	t.Helper()

	dsn := os.Getenv("CONSULTD_TEST_DSN")
	if dsn == "" {
		t.Skip("CONSULTD_TEST_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	schema := fmt.Sprintf("consultd_test_%d", time.Now().UnixNano())
	require.NoError(t, db.Exec("CREATE SCHEMA "+schema).Error)
	require.NoError(t, db.Exec("SET search_path TO "+schema).Error)
	t.Cleanup(func() {
		_ = db.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.AutoMigrate(
		&clinical.Schedule{},
		&clinical.Recording{},
		&clinical.Transcription{},
		&clinical.Report{},
	))
	return NewGorm(db)
}

func TestGormScheduleAdvanceIsConditional(t *testing.T) {
	s := openTestGorm(t)
	ctx := context.Background()

	schedule := newTestSchedule(t, s)
	require.NoError(t, s.AdvanceSchedule(ctx, schedule.ID, clinical.ScheduleTranscribed))
	require.NoError(t, s.AdvanceSchedule(ctx, schedule.ID, clinical.ScheduleRecorded))

	loaded, err := s.GetSchedule(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, clinical.ScheduleTranscribed, loaded.Status)

	assert.ErrorIs(t, s.AdvanceSchedule(ctx, 999999, clinical.ScheduleRecorded), ErrNotFound)
}

func TestGormCompleteTranscriptionCommitsWithScheduleAdvance(t *testing.T) {
	s := openTestGorm(t)
	ctx := context.Background()

	schedule := newTestSchedule(t, s)
	require.NoError(t, s.AdvanceSchedule(ctx, schedule.ID, clinical.ScheduleRecorded))

	transcription := &clinical.Transcription{ScheduleID: schedule.ID}
	require.NoError(t, s.CreateTranscription(ctx, transcription))
	require.NoError(t, s.CompleteTranscription(ctx, transcription.ID, "patient fine"))

	loaded, err := s.LatestTranscription(ctx, schedule.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Text)
	assert.Equal(t, "patient fine", *loaded.Text)
	assert.Equal(t, clinical.TranscriptionCompleted, loaded.Status)

	advanced, err := s.GetSchedule(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, clinical.ScheduleTranscribed, advanced.Status)
}

func TestGormSaveReportKeepsSingleRow(t *testing.T) {
	s := openTestGorm(t)
	ctx := context.Background()

	schedule := newTestSchedule(t, s)
	first, err := s.SaveReport(ctx, schedule.ID, "v1")
	require.NoError(t, err)
	second, err := s.SaveReport(ctx, schedule.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	loaded, err := s.GetReport(ctx, schedule.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Text)
	assert.Equal(t, "v2", *loaded.Text)
}
