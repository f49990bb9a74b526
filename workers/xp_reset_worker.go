// workers/xp_reset_worker.go
package workers

import (
	"log"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/models"
)

// StartXPResetWorker clears the rolling XP counters on their boundaries:
// xp_today at local midnight, xp_month on the first of the month. Progress
// rows and xp_total are never touched.
func StartXPResetWorker(db *gorm.DB) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 * * *", false),
		gocron.NewTask(func() {
			res := db.Model(&models.User{}).Where("xp_today <> 0").Update("xp_today", 0)
			if res.Error != nil {
				log.Printf("[XPReset] daily reset failed: %v", res.Error)
				return
			}
			log.Printf("🔄 Daily XP reset: %d users", res.RowsAffected)
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 1 * *", false),
		gocron.NewTask(func() {
			res := db.Model(&models.User{}).Where("xp_month <> 0").Update("xp_month", 0)
			if res.Error != nil {
				log.Printf("[XPReset] monthly reset failed: %v", res.Error)
				return
			}
			log.Printf("🔄 Monthly XP reset: %d users", res.RowsAffected)
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
