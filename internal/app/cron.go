package app

import (
	"context"
	"time"

	pkgcron "github.com/voxroom/core/internal/pkg/cron"
)

// registerCronJobs registers the scheduled background jobs.
func (a *App) registerCronJobs() {
	reapInterval := time.Duration(a.cfg.Gateway.ReapIntervalSec) * time.Second

	a.sched.Register(pkgcron.Job{
		Name:        "reap_stale_connections",
		Description: "Disconnect connections whose heartbeat went silent",
		Interval:    reapInterval,
		Fn: func(jobCtx context.Context) error {
			a.hub.ReapStale(jobCtx)
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "record_peak_online",
		Description: "Flush the daily concurrent-connection high-water mark",
		Interval:    time.Minute,
		Fn: func(context.Context) error {
			a.hub.RecordPeakOnline()
			return nil
		},
	})
}
