// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: finishing
// any referral left pending, expiring overdue invoices, and zeroing lapsed
// streaks.
func StartMaintenanceScheduler(referrals *ReferralService, payments *PaymentService, streaks *StreakService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			verified, err := referrals.VerifyPending(2 * time.Minute)
			if err != nil {
				log.Printf("[Scheduler] Referral sweep error: %v", err)
				return
			}
			if verified > 0 {
				log.Printf("✅ Referral sweep verified %d pending record(s)", verified)
			}
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			expired, err := payments.ExpireStale()
			if err != nil {
				log.Printf("[Scheduler] Invoice expiry error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("🧾 Expired %d stale invoice(s)", expired)
			}
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			reset, err := streaks.ResetLapsed()
			if err != nil {
				log.Printf("[Scheduler] Streak reset error: %v", err)
				return
			}
			if reset > 0 {
				log.Printf("🔥 Reset %d lapsed streak(s)", reset)
			}
		}),
	)
}
