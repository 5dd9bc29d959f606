package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/clinical"
	"github.com/clinicore/consultd/internal/store"
)

func seedTranscription(t *testing.T, mem *store.Memory, scheduleID uint, status clinical.TranscriptionStatus, age time.Duration) *clinical.Transcription {
	t.Helper()
	tr := &clinical.Transcription{
		ScheduleID: scheduleID,
		Status:     status,
		CreatedAt:  time.Now().UTC().Add(-age),
	}
	require.NoError(t, mem.CreateTranscription(context.Background(), tr))
	return tr
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	mem := store.NewMemory()
	staleSched := seedSchedule(t, mem)
	freshSched := seedSchedule(t, mem)
	doneSched := seedSchedule(t, mem)

	seedTranscription(t, mem, staleSched.ID, clinical.TranscriptionPending, time.Hour)
	seedTranscription(t, mem, freshSched.ID, clinical.TranscriptionPending, time.Minute)
	seedTranscription(t, mem, doneSched.ID, clinical.TranscriptionCompleted, time.Hour)

	sweeper, err := NewSweeper(mem, zap.NewNop(), WithStaleAfter(10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, int64(1), sweeper.SweepOnce(ctx))

	wantStatus := func(scheduleID uint, want clinical.TranscriptionStatus) {
		tr, err := mem.LatestTranscription(ctx, scheduleID)
		require.NoError(t, err)
		assert.Equal(t, want, tr.Status)
	}
	wantStatus(staleSched.ID, clinical.TranscriptionFailed)
	wantStatus(freshSched.ID, clinical.TranscriptionPending)
	wantStatus(doneSched.ID, clinical.TranscriptionCompleted)

	// A second pass finds nothing left to do.
	assert.Zero(t, sweeper.SweepOnce(ctx))
}

func TestSweeperLifecycle(t *testing.T) {
	mem := store.NewMemory()
	sched := seedSchedule(t, mem)
	seedTranscription(t, mem, sched.ID, clinical.TranscriptionPending, time.Hour)

	sweeper, err := NewSweeper(mem, zap.NewNop(),
		WithStaleAfter(10*time.Minute),
		WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, sweeper.Start())
	assert.Error(t, sweeper.Start(), "second start must be rejected")

	// Wait for at least one tick to fire.
	deadline := time.After(2 * time.Second)
	for {
		latest, err := mem.LatestTranscription(context.Background(), sched.ID)
		require.NoError(t, err)
		if latest.Status == clinical.TranscriptionFailed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never reclassified the stale attempt")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sweeper.Stop()
	sweeper.Stop() // idempotent
}

func TestNewSweeperValidation(t *testing.T) {
	_, err := NewSweeper(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewSweeper(store.NewMemory(), zap.NewNop(), WithInterval(0))
	assert.Error(t, err)

	_, err = NewSweeper(store.NewMemory(), zap.NewNop(), WithStaleAfter(-time.Minute))
	assert.Error(t, err)
}
