package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/store"
)

// fakeStarter records dispatch attempts and simulates Temporal's
// duplicate-start rejection for IDs it has already seen.
type fakeStarter struct {
	started []client.StartWorkflowOptions
	seen    map[string]bool
	err     error
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{seen: map[string]bool{}}
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ interface{}, _ ...interface{}) (client.WorkflowRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.seen[options.ID] {
		return nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "")
	}
	f.seen[options.ID] = true
	f.started = append(f.started, options)
	return nil, nil
}

func seedSchedule(t *testing.T, st store.Store) *clinical.Schedule {
	t.Helper()
	sched := &clinical.Schedule{
		PatientName:   "Ada Q.",
		ClinicianName: "Dr. Osei",
		ScheduledAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateSchedule(context.Background(), sched))
	return sched
}

func TestOnRecordingPersisted(t *testing.T) {
	ctx := context.Background()

	t.Run("advances the schedule and dispatches transcription", func(t *testing.T) {
		mem := store.NewMemory()
		starter := newFakeStarter()
		orc, err := New(starter, mem, zap.NewNop())
		require.NoError(t, err)

		sched := seedSchedule(t, mem)
		require.NoError(t, orc.OnRecordingPersisted(ctx, sched.ID))

		got, err := mem.GetSchedule(ctx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, clinical.ScheduleRecorded, got.Status)

		require.Len(t, starter.started, 1)
		assert.Equal(t, "transcription-1", starter.started[0].ID)
		assert.Equal(t, "consultd", starter.started[0].TaskQueue)
	})

	t.Run("drops the event while an attempt is in flight", func(t *testing.T) {
		mem := store.NewMemory()
		starter := newFakeStarter()
		orc, err := New(starter, mem, zap.NewNop())
		require.NoError(t, err)

		sched := seedSchedule(t, mem)
		require.NoError(t, orc.OnRecordingPersisted(ctx, sched.ID))
		// Second recording lands while the first attempt is running.
		require.NoError(t, orc.OnRecordingPersisted(ctx, sched.ID))

		assert.Len(t, starter.started, 1)
	})

	t.Run("rejects a missing schedule", func(t *testing.T) {
		mem := store.NewMemory()
		orc, err := New(newFakeStarter(), mem, zap.NewNop())
		require.NoError(t, err)

		err = orc.OnRecordingPersisted(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("propagates other dispatch failures", func(t *testing.T) {
		mem := store.NewMemory()
		starter := newFakeStarter()
		starter.err = errors.New("temporal unreachable")
		orc, err := New(starter, mem, zap.NewNop())
		require.NoError(t, err)

		sched := seedSchedule(t, mem)
		err = orc.OnRecordingPersisted(ctx, sched.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "temporal unreachable")
	})
}

func TestOnReportRequested(t *testing.T) {
	ctx := context.Background()

	t.Run("every request dispatches its own run", func(t *testing.T) {
		mem := store.NewMemory()
		starter := newFakeStarter()
		orc, err := New(starter, mem, zap.NewNop(), WithTaskQueue("custom-queue"))
		require.NoError(t, err)

		sched := seedSchedule(t, mem)

		first, err := orc.OnReportRequested(ctx, sched.ID)
		require.NoError(t, err)
		second, err := orc.OnReportRequested(ctx, sched.ID)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		require.Len(t, starter.started, 2)
		assert.Equal(t, "custom-queue", starter.started[0].TaskQueue)
	})

	t.Run("rejects a missing schedule without dispatching", func(t *testing.T) {
		mem := store.NewMemory()
		starter := newFakeStarter()
		orc, err := New(starter, mem, zap.NewNop())
		require.NoError(t, err)

		_, err = orc.OnReportRequested(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Empty(t, starter.started)
	})
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, store.NewMemory(), zap.NewNop())
	assert.Error(t, err)

	_, err = New(newFakeStarter(), nil, zap.NewNop())
	assert.Error(t, err)
}
