// Package jobs implements background work that runs beside the HTTP
// server.
//
// # LeaderReconciler
//
// Every donation recomputes its location's leader inside its own unit of
// work, so the cached leader is normally exact. The reconciler re-derives
// every location's leader from the ledger on a ticker, correcting caches
// touched by imports or manual ledger edits:
//
//	job := jobs.NewLeaderReconciler(jobs.LeaderReconcilerConfig{
//	    Leaders:  leaderboardService,
//	    Recorder: metrics,
//	    Interval: cfg.Jobs.LeaderReconcileInterval,
//	})
//	job.Start()
//	defer job.Stop()
//
// Failures are logged and recorded; the next tick tries again.
package jobs
