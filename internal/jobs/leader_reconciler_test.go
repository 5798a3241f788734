package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/repository"
	"github.com/kashyap0729/good-will-hunting/internal/service"
	"github.com/kashyap0729/good-will-hunting/internal/testing/fixtures"
)

type mockRecomputer struct {
	recomputeAllFunc func(ctx context.Context) ([]*model.LeaderChange, error)
}

func (m *mockRecomputer) RecomputeAll(ctx context.Context) ([]*model.LeaderChange, error) {
	if m.recomputeAllFunc != nil {
		return m.recomputeAllFunc(ctx)
	}
	return nil, nil
}

type recordedPass struct {
	duration time.Duration
	success  bool
}

type mockRecorder struct {
	mu     sync.Mutex
	passes []recordedPass
	notify chan struct{}
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{notify: make(chan struct{}, 16)}
}

func (m *mockRecorder) RecordReconcile(duration time.Duration, success bool) {
	m.mu.Lock()
	m.passes = append(m.passes, recordedPass{duration, success})
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.passes)
}

func TestLeaderReconciler_RunOnce_CountsChanges(t *testing.T) {
	leader := "user-1"
	rec := newMockRecorder()
	job := NewLeaderReconciler(LeaderReconcilerConfig{
		Leaders: &mockRecomputer{recomputeAllFunc: func(ctx context.Context) ([]*model.LeaderChange, error) {
			return []*model.LeaderChange{
				{LocationID: "a", LeaderID: &leader, LeaderPoints: 40, Changed: true},
				{LocationID: "b", Changed: false},
				nil,
			}, nil
		}},
		Recorder: rec,
	})

	changed, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	require.Equal(t, 1, rec.count())
	assert.True(t, rec.passes[0].success)
}

func TestLeaderReconciler_RunOnce_RecordsFailure(t *testing.T) {
	rec := newMockRecorder()
	job := NewLeaderReconciler(LeaderReconcilerConfig{
		Leaders: &mockRecomputer{recomputeAllFunc: func(ctx context.Context) ([]*model.LeaderChange, error) {
			return []*model.LeaderChange{{LocationID: "a", Changed: true}}, errors.New("location b: repository unavailable")
		}},
		Recorder: rec,
	})

	changed, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, changed, "partial results are still reported")
	require.Equal(t, 1, rec.count())
	assert.False(t, rec.passes[0].success)
}

func TestLeaderReconciler_StartStop(t *testing.T) {
	rec := newMockRecorder()
	job := NewLeaderReconciler(LeaderReconcilerConfig{
		Leaders:    &mockRecomputer{},
		Recorder:   rec,
		Interval:   10 * time.Millisecond,
		StartDelay: -1,
	})

	job.Start()
	job.Start() // second start is a no-op
	assert.True(t, job.IsRunning())

	for i := 0; i < 2; i++ {
		select {
		case <-rec.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("pass %d did not run", i+1)
		}
	}

	job.Stop()
	job.Stop()
	assert.False(t, job.IsRunning())

	after := rec.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.count(), "no passes after Stop")
}

func TestLeaderReconciler_StopDuringStartDelay(t *testing.T) {
	rec := newMockRecorder()
	job := NewLeaderReconciler(LeaderReconcilerConfig{
		Leaders:    &mockRecomputer{},
		Recorder:   rec,
		StartDelay: time.Hour,
	})

	job.Start()
	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on start delay")
	}
	assert.Zero(t, rec.count())
}

func TestLeaderReconciler_CorrectsStaleLeader(t *testing.T) {
	store := repository.NewMemoryDonationRepository()
	f := fixtures.New(store)
	ana := f.CreateUser(t)
	ben := f.CreateUser(t)
	hub := f.CreateLocation(t)
	f.CreateDonation(t, ana, hub, 30, f.Now())
	f.CreateDonation(t, ben, hub, 50, f.Now().Add(time.Minute))

	leaderboard := service.NewLeaderboardService(service.LeaderboardServiceConfig{Store: store})
	job := NewLeaderReconciler(LeaderReconcilerConfig{Leaders: leaderboard})

	changed, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	loc := f.LoadLocation(t, hub.ID)
	require.NotNil(t, loc.LeaderID)
	assert.Equal(t, ben.ID, *loc.LeaderID)
	assert.Equal(t, 50, loc.LeaderPoints)

	changed, err = job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed, "second pass finds nothing to correct")
}
