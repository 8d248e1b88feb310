package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/store"
)

func TestEnqueueStatusDependsOnSchedule(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)

	immediate, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, immediate.Status)

	at := time.Now().Add(time.Hour)
	later, err := sched.Enqueue(ctx, "org1", "https://d.ca/2", "u1", &at)
	require.NoError(t, err)
	assert.Equal(t, models.JobScheduled, later.Status)
	assert.Equal(t, "u1", later.AssignedUser)
}

func TestSweepGraceWindow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sched := NewJobScheduler(mem, 2*time.Minute, nil)
	now := time.Now()

	over := now.Add(-3 * time.Minute)
	within := now.Add(-1 * time.Minute)
	stale, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", &over)
	require.NoError(t, err)
	fresh, err := sched.Enqueue(ctx, "org1", "https://d.ca/2", "", &within)
	require.NoError(t, err)

	n, err := sched.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := sched.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStuck, got.Status)
	assert.Empty(t, got.Error, "a never-claimed job carries no error payload")

	got, err = sched.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobScheduled, got.Status)
}

func TestSweepIdempotent(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)
	now := time.Now()

	at := now.Add(-10 * time.Minute)
	_, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", &at)
	require.NoError(t, err)

	n, err := sched.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sched.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second sweep must be a no-op")
}

func TestSweepSkipsClaimedJob(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)
	now := time.Now()

	at := now.Add(-10 * time.Minute)
	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", &at)
	require.NoError(t, err)

	claimed, err := sched.Claim(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = sched.Sweep(ctx, now)
	require.NoError(t, err)

	got, err := sched.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, got.Status, "sweep must not overwrite a claimed job")
}

func TestClaimOnlyWinsOnce(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)

	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", nil)
	require.NoError(t, err)

	first, err := sched.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := sched.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestFailCapturesError(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)

	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", nil)
	require.NoError(t, err)
	_, err = sched.Claim(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, sched.Fail(ctx, job.ID, assert.AnError))

	got, err := sched.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, assert.AnError.Error(), got.Error)
	assert.Empty(t, got.VehicleID)
}

func TestRequeueStuckJob(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)
	now := time.Now()

	at := now.Add(-10 * time.Minute)
	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", &at)
	require.NoError(t, err)
	_, err = sched.Sweep(ctx, now)
	require.NoError(t, err)

	requeued, err := sched.Requeue(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, requeued.Status)
	assert.Nil(t, requeued.ScheduledTime)
}

func TestRequeueRejectsRunningJob(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)

	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "", nil)
	require.NoError(t, err)
	_, err = sched.Claim(ctx, job.ID)
	require.NoError(t, err)

	_, err = sched.Requeue(ctx, job.ID)
	assert.Error(t, err)
}

func TestUpdateAssignedUserRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	sched := NewJobScheduler(store.NewMemory(), 2*time.Minute, nil)

	job, err := sched.Enqueue(ctx, "org1", "https://d.ca/1", "u1", nil)
	require.NoError(t, err)

	u2 := "u2"
	_, err = sched.Update(ctx, job.ID, JobPatch{AssignedUser: &u2}, false)
	assert.ErrorIs(t, err, ErrAdminRequired)

	updated, err := sched.Update(ctx, job.ID, JobPatch{AssignedUser: &u2}, true)
	require.NoError(t, err)
	assert.Equal(t, "u2", updated.AssignedUser)
}
