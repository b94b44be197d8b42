// services/scheduler.go
package services

import (
	"log"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs SweepAll on a fixed cadence. The interval must be
// at least as fine as the smallest configured turn timeout so a stalled match
// is resolved within one extra turn allotment at worst. Re-running a sweep
// that crashed halfway is safe — it simply re-discovers the leftover work.
func (s *SweeperService) StartSweepScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(s.Policy.SweepInterval),
		gocron.NewTask(func() {
			outcomes, err := s.SweepAll()
			if err != nil {
				log.Printf("[Sweeper] DB error: %v", err)
				return
			}

			counts := map[SweepStatus]int{}
			for _, out := range outcomes {
				counts[out.Status]++
				if out.Status == SweepFailed {
					log.Printf("[Sweeper] Match %s failed: %s", out.MatchID, out.Error)
				}
			}
			if counts[SweepSkipped] > 0 || counts[SweepForfeited] > 0 {
				log.Printf("⏱️ Sweep: %d skipped, %d forfeited (of %d active)",
					counts[SweepSkipped], counts[SweepForfeited], len(outcomes))
			}
		}),
	)
}
