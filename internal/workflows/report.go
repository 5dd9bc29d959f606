package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clinicore/consultd/internal/report"
)

// ReportWorkflow generates or regenerates the report document for a
// schedule. The renderer is a pure function, so it runs inline; only the
// reads and the final upsert go through activities. When no completed
// transcript exists the document is rendered around a placeholder, which
// keeps report generation available before transcription finishes.
func ReportWorkflow(ctx workflow.Context, input ReportInput) (*ReportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting report generation", "schedule_id", input.ScheduleID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var rc FetchReportContextResult
	err := workflow.ExecuteActivity(ctx, a.FetchReportContext, FetchReportContextInput{
		ScheduleID: input.ScheduleID,
	}).Get(ctx, &rc)
	if err != nil {
		return nil, WrapActivityError("fetch report context", err)
	}

	if !rc.ScheduleFound {
		logger.Info("Schedule no longer exists, nothing to do", "schedule_id", input.ScheduleID)
		return &ReportResult{Skipped: true}, nil
	}

	transcript := rc.Transcript
	if !rc.HasTranscript {
		transcript = report.PlaceholderTranscript
	}
	text := report.Render(rc.Fields, transcript)

	var saved SaveReportResult
	err = workflow.ExecuteActivity(ctx, a.SaveReport, SaveReportInput{
		ScheduleID: input.ScheduleID,
		Text:       text,
	}).Get(ctx, &saved)
	if err != nil {
		return nil, WrapActivityError("save report", err)
	}

	logger.Info("Report saved",
		"schedule_id", input.ScheduleID,
		"report_id", saved.ReportID,
		"placeholder", !rc.HasTranscript)

	return &ReportResult{
		ReportID:        saved.ReportID,
		Generated:       true,
		PlaceholderUsed: !rc.HasTranscript,
	}, nil
}
