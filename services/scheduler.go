// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: discarding
// watch-session markers that fell out of the recovery window, and (when R2 is
// configured) nightly collection backups.
func StartMaintenanceScheduler(watch *WatchService, backup func()) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: drop sessions idle past the recovery window
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if swept := watch.SweepStaleSessions(); swept > 0 {
				log.Printf("[Scheduler] Swept %d stale watch sessions", swept)
			}
		}),
	)

	if backup != nil {
		// Daily at 03:00: snapshot collections to object storage
		_, _ = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
			gocron.NewTask(backup),
		)
	}
}
