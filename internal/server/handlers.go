package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/logging"
	"github.com/clinicore/consultd/internal/store"
)

// CreateScheduleRequest is the request body for POST /api/schedules.
type CreateScheduleRequest struct {
	PatientName       string    `json:"patientName"`
	PatientIdentifier *string   `json:"patientIdentifier,omitempty"`
	ClinicianName     string    `json:"clinicianName"`
	ScheduledAt       time.Time `json:"scheduledAt"`
	Notes             *string   `json:"notes,omitempty"`
}

// CreateRecordingRequest is the request body for
// POST /api/schedules/:id/recordings. The media itself is already
// persisted elsewhere; this registers its storage reference.
type CreateRecordingRequest struct {
	StorageRef      string             `json:"storageRef"`
	MediaKind       clinical.MediaKind `json:"mediaKind,omitempty"`
	DurationSeconds *float64           `json:"durationSeconds,omitempty"`
}

// ReportRequestedResponse is the response body for
// POST /api/schedules/:id/report.
type ReportRequestedResponse struct {
	WorkflowID string `json:"workflowId"`
}

func (s *Server) handleCreateSchedule(c echo.Context) error {
	var req CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patientName is required")
	}
	if req.ClinicianName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "clinicianName is required")
	}
	if req.ScheduledAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduledAt is required")
	}

	sched := &clinical.Schedule{
		PatientName:       req.PatientName,
		PatientIdentifier: req.PatientIdentifier,
		ClinicianName:     req.ClinicianName,
		ScheduledAt:       req.ScheduledAt,
		Notes:             req.Notes,
		Status:            clinical.SchedulePlanned,
	}
	if err := s.store.CreateSchedule(c.Request().Context(), sched); err != nil {
		return s.storeError(c, err)
	}

	s.logger.Info("schedule created",
		zap.Uint("schedule.id", sched.ID),
		zap.Time("scheduled_at", sched.ScheduledAt))

	return c.JSON(http.StatusCreated, sched)
}

func (s *Server) handleListSchedules(c echo.Context) error {
	schedules, err := s.store.ListSchedules(c.Request().Context())
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, schedules)
}

func (s *Server) handleGetSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sched, err := s.store.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (s *Server) handleCreateRecording(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req CreateRecordingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StorageRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "storageRef is required")
	}
	switch req.MediaKind {
	case "", clinical.MediaAudio, clinical.MediaVideo:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "mediaKind must be audio or video")
	}

	ctx := logging.WithScheduleID(c.Request().Context(), id)
	if _, err := s.store.GetSchedule(ctx, id); err != nil {
		return s.storeError(c, err)
	}

	rec := &clinical.Recording{
		ScheduleID:      id,
		StorageRef:      req.StorageRef,
		MediaKind:       req.MediaKind,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.store.CreateRecording(ctx, rec); err != nil {
		return s.storeError(c, err)
	}

	if err := s.orch.OnRecordingPersisted(ctx, id); err != nil {
		// The recording row exists; surface the dispatch failure so the
		// caller can retry the event.
		s.logger.Error("recording persisted but dispatch failed",
			zap.Uint("schedule.id", id),
			zap.Uint("recording.id", rec.ID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "recording stored but transcription dispatch failed")
	}

	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleRequestReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx := logging.WithScheduleID(c.Request().Context(), id)
	workflowID, err := s.orch.OnReportRequested(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
		}
		s.logger.Error("report dispatch failed", zap.Uint("schedule.id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "report dispatch failed")
	}

	return c.JSON(http.StatusAccepted, ReportRequestedResponse{WorkflowID: workflowID})
}

func (s *Server) handleGetTranscription(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	tr, err := s.store.LatestTranscription(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (s *Server) handleGetReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rep, err := s.store.GetReport(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func parseID(c echo.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (s *Server) storeError(c echo.Context, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	fields := append(logging.ContextFields(c.Request().Context()),
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err))
	s.logger.Error("store operation failed", fields...)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
