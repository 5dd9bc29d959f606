package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinicore/consultd/internal/clinical"
)

// Options configures the PostgreSQL connection.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// DataDir is where the embedded instance keeps its files. Only used in
	// embedded mode.
	DataDir string

	// LogQueries enables GORM query logging.
	LogQueries bool
}

const embeddedPort = 5433

// Gorm is the PostgreSQL-backed Store.
type Gorm struct {
	db       *gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

var _ Store = (*Gorm)(nil)

// Connect opens a PostgreSQL-backed store. When Host is localhost and no
// password is configured, an embedded PostgreSQL instance is started so the
// service runs without external infrastructure; otherwise it connects to the
// configured server. The schema for the four entities is migrated on open.
func Connect(opts Options) (*Gorm, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	password := opts.Password
	port := opts.Port
	if opts.Host == "localhost" && opts.Password == "" {
		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(opts.DataDir).
			Port(uint32(embeddedPort)).
			Database(opts.Name).
			Username(opts.User).
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("starting embedded postgres: %w", err)
		}
		password = "postgres"
		port = embeddedPort
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		opts.Host, strconv.Itoa(port), opts.User, password, opts.Name,
	)

	logLevel := logger.Silent
	if opts.LogQueries {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(
		&clinical.Schedule{},
		&clinical.Recording{},
		&clinical.Transcription{},
		&clinical.Report{},
	); err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Gorm{db: db, embedded: embedded}, nil
}

// NewGorm wraps an existing GORM handle. Used by tests that manage their own
// database lifecycle.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) CreateSchedule(ctx context.Context, schedule *clinical.Schedule) error {
	if schedule.Status == "" {
		schedule.Status = clinical.SchedulePlanned
	}
	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("creating schedule: %w", err)
	}
	return nil
}

func (s *Gorm) GetSchedule(ctx context.Context, id uint) (*clinical.Schedule, error) {
	var schedule clinical.Schedule
	if err := s.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, asStoreError(err)
	}
	return &schedule, nil
}

func (s *Gorm) ListSchedules(ctx context.Context) ([]clinical.Schedule, error) {
	var schedules []clinical.Schedule
	if err := s.db.WithContext(ctx).Order("scheduled_at DESC").Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	return schedules, nil
}

func (s *Gorm) AdvanceSchedule(ctx context.Context, id uint, target clinical.ScheduleStatus) error {
	return advanceSchedule(s.db.WithContext(ctx), id, target)
}

// advanceSchedule is the conditional forward-only status update, shared with
// the transactional paths. The WHERE clause makes the read-modify-write a
// single atomic statement.
func advanceSchedule(db *gorm.DB, id uint, target clinical.ScheduleStatus) error {
	if !target.Valid() {
		return fmt.Errorf("advancing schedule %d: invalid status %q", id, target)
	}

	res := db.Model(&clinical.Schedule{}).
		Where("id = ? AND status IN ?", id, clinical.StatusesBefore(target)).
		Update("status", target)
	if res.Error != nil {
		return fmt.Errorf("advancing schedule %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the schedule is already at or past target,
	// which is fine, or it does not exist.
	var count int64
	if err := db.Model(&clinical.Schedule{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("advancing schedule %d: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) CreateRecording(ctx context.Context, recording *clinical.Recording) error {
	if recording.MediaKind == "" {
		recording.MediaKind = clinical.MediaAudio
	}
	if err := s.db.WithContext(ctx).Create(recording).Error; err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	return nil
}

func (s *Gorm) GetRecording(ctx context.Context, id uint) (*clinical.Recording, error) {
	var recording clinical.Recording
	if err := s.db.WithContext(ctx).First(&recording, id).Error; err != nil {
		return nil, asStoreError(err)
	}
	return &recording, nil
}

func (s *Gorm) LatestRecording(ctx context.Context, scheduleID uint) (*clinical.Recording, error) {
	var recording clinical.Recording
	err := s.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC, id DESC").
		First(&recording).Error
	if err != nil {
		return nil, asStoreError(err)
	}
	return &recording, nil
}

func (s *Gorm) UpdateRecordingDuration(ctx context.Context, id uint, seconds float64) error {
	res := s.db.WithContext(ctx).Model(&clinical.Recording{}).
		Where("id = ?", id).
		Update("duration_seconds", seconds)
	if res.Error != nil {
		return fmt.Errorf("updating recording %d duration: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) CreateTranscription(ctx context.Context, transcription *clinical.Transcription) error {
	if transcription.Status == "" {
		transcription.Status = clinical.TranscriptionPending
	}
	if err := s.db.WithContext(ctx).Create(transcription).Error; err != nil {
		return fmt.Errorf("creating transcription: %w", err)
	}
	return nil
}

func (s *Gorm) LatestTranscription(ctx context.Context, scheduleID uint) (*clinical.Transcription, error) {
	var transcription clinical.Transcription
	err := s.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC, id DESC").
		First(&transcription).Error
	if err != nil {
		return nil, asStoreError(err)
	}
	return &transcription, nil
}

func (s *Gorm) CompleteTranscription(ctx context.Context, id uint, text string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transcription clinical.Transcription
		if err := tx.First(&transcription, id).Error; err != nil {
			return asStoreError(err)
		}

		updates := map[string]any{
			"text":   text,
			"status": clinical.TranscriptionCompleted,
		}
		if err := tx.Model(&transcription).Updates(updates).Error; err != nil {
			return fmt.Errorf("completing transcription %d: %w", id, err)
		}

		// The schedule advance must land in the same commit so a reader never
		// sees a completed transcription next to a stale schedule status.
		return advanceSchedule(tx, transcription.ScheduleID, clinical.ScheduleTranscribed)
	})
}

func (s *Gorm) FailTranscription(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&clinical.Transcription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"text":   nil,
			"status": clinical.TranscriptionFailed,
		})
	if res.Error != nil {
		return fmt.Errorf("failing transcription %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) SweepStaleTranscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&clinical.Transcription{}).
		Where("status = ? AND created_at < ?", clinical.TranscriptionPending, cutoff).
		Update("status", clinical.TranscriptionFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("sweeping stale transcriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Gorm) SaveReport(ctx context.Context, scheduleID uint, text string) (*clinical.Report, error) {
	var report clinical.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule clinical.Schedule
		if err := tx.First(&schedule, scheduleID).Error; err != nil {
			return asStoreError(err)
		}

		err := tx.Where("schedule_id = ?", scheduleID).First(&report).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			report = clinical.Report{
				ScheduleID: scheduleID,
				Text:       &text,
				Status:     clinical.ReportDraft,
			}
			if err := tx.Create(&report).Error; err != nil {
				// A concurrent report run can win the unique-index race
				// on schedule_id between the read and this insert.
				return fmt.Errorf("creating report: %w", asStoreError(err))
			}
		case err != nil:
			return fmt.Errorf("loading report: %w", err)
		default:
			updates := map[string]any{
				"text":   text,
				"status": clinical.ReportDraft,
			}
			if err := tx.Model(&report).Updates(updates).Error; err != nil {
				return fmt.Errorf("updating report %d: %w", report.ID, err)
			}
			report.Text = &text
			report.Status = clinical.ReportDraft
		}

		return advanceSchedule(tx, scheduleID, clinical.ScheduleReported)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Gorm) GetReport(ctx context.Context, scheduleID uint) (*clinical.Report, error) {
	var report clinical.Report
	err := s.db.WithContext(ctx).Where("schedule_id = ?", scheduleID).First(&report).Error
	if err != nil {
		return nil, asStoreError(err)
	}
	return &report, nil
}

// Close shuts down the connection and, in embedded mode, the PostgreSQL
// process.
func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if s.embedded != nil {
		if stopErr := s.embedded.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}

func asStoreError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
