package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// LeaderRecomputer recomputes the leader of every location from the ledger
type LeaderRecomputer interface {
	RecomputeAll(ctx context.Context) ([]*model.LeaderChange, error)
}

// ReconcileRecorder receives one observation per reconciliation pass
type ReconcileRecorder interface {
	RecordReconcile(duration time.Duration, success bool)
}

// LeaderReconciler periodically recomputes location leaders so that a
// cache left stale by an out-of-band ledger change converges.
type LeaderReconciler struct {
	leaders    LeaderRecomputer
	recorder   ReconcileRecorder
	interval   time.Duration
	startDelay time.Duration
	timeout    time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

// LeaderReconcilerConfig holds configuration for the reconciler
type LeaderReconcilerConfig struct {
	Leaders    LeaderRecomputer
	Recorder   ReconcileRecorder // optional
	Interval   time.Duration     // default 10m
	StartDelay time.Duration     // delay before the first pass (default 5s)
	Timeout    time.Duration     // per pass (default 2m)
}

// NewLeaderReconciler creates a new leader reconciliation job
func NewLeaderReconciler(cfg LeaderReconcilerConfig) *LeaderReconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.StartDelay < 0 {
		cfg.StartDelay = 0
	} else if cfg.StartDelay == 0 {
		cfg.StartDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &LeaderReconciler{
		leaders:    cfg.Leaders,
		recorder:   cfg.Recorder,
		interval:   cfg.Interval,
		startDelay: cfg.StartDelay,
		timeout:    cfg.Timeout,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (j *LeaderReconciler) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run()
	slog.Info("leader reconciler started", slog.Duration("interval", j.interval))
}

// Stop gracefully stops the loop, waiting for an in-flight pass
func (j *LeaderReconciler) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopCh)
	j.wg.Wait()
	slog.Info("leader reconciler stopped")
}

func (j *LeaderReconciler) run() {
	defer j.wg.Done()

	select {
	case <-time.After(j.startDelay):
	case <-j.stopCh:
		return
	}
	j.pass()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.pass()
		case <-j.stopCh:
			return
		}
	}
}

func (j *LeaderReconciler) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	// stop cancels an in-flight pass
	go func() {
		select {
		case <-j.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := j.RunOnce(ctx); err != nil {
		slog.Error("leader reconciliation failed", slog.String("error", err.Error()))
	}
}

// RunOnce reconciles every location once and returns the number of
// leaders that changed
func (j *LeaderReconciler) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	changes, err := j.leaders.RecomputeAll(ctx)
	elapsed := time.Since(started)

	changed := 0
	for _, c := range changes {
		if c == nil || !c.Changed {
			continue
		}
		changed++
		leader := ""
		if c.LeaderID != nil {
			leader = *c.LeaderID
		}
		slog.Warn("stale leader corrected",
			slog.String("location_id", c.LocationID),
			slog.String("leader_id", leader),
			slog.Int("leader_points", c.LeaderPoints),
		)
	}

	if j.recorder != nil {
		j.recorder.RecordReconcile(elapsed, err == nil)
	}
	slog.Info("leader reconciliation finished",
		slog.Int("locations", len(changes)),
		slog.Int("changed", changed),
		slog.Duration("duration", elapsed),
	)
	return changed, err
}

// IsRunning returns whether the loop is running
func (j *LeaderReconciler) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
