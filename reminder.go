package studymcq

import (
	"context"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

// Notifier delivers a message to a user outside of a conversation turn.
type Notifier interface {
	Notify(ctx context.Context, owner int64, text string) error
}

// Reminder sends the daily quiz reminder and sweeps idle conversation state.
type Reminder struct {
	store    Store
	notifier Notifier
	states   *StateStore
	cron     *cron.Cron
	now      func() time.Time
}

// NewReminder creates a reminder. states may be nil when no sweeping is wanted.
func NewReminder(store Store, notifier Notifier, states *StateStore) *Reminder {
	return &Reminder{
		store:    store,
		notifier: notifier,
		states:   states,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}
}

// Start schedules the jobs and starts the scheduler in the background.
func (r *Reminder) Start() error {
	if _, err := r.cron.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			log.Printf("[ERROR] Daily reminder run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	if r.states != nil {
		if _, err := r.cron.AddFunc("@every 5m", func() { r.states.Sweep() }); err != nil {
			return fmt.Errorf("failed to schedule state sweep: %w", err)
		}
	}

	r.cron.Start()
	log.Printf("[INFO] Reminder scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (r *Reminder) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce notifies every user whose quiz time is the current minute in their
// timezone and who has at least one question. It returns how many were notified.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	schedules, err := r.store.ListSchedules(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now()
	sent := 0
	for _, sch := range schedules {
		if !isDue(sch, now) {
			continue
		}
		count, err := r.store.CountQuestions(ctx, sch.OwnerID)
		if err != nil {
			return sent, err
		}
		if count == 0 {
			continue
		}
		if err := r.notifier.Notify(ctx, sch.OwnerID, msgDailyReminder); err != nil {
			log.Printf("[WARN] Failed to notify user %d: %v", sch.OwnerID, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Printf("[INFO] Sent %d daily reminders", sent)
	}
	return sent, nil
}

func isDue(sch UserSchedule, now time.Time) bool {
	loc, err := time.LoadLocation(sch.Timezone)
	if err != nil {
		VerboseLog("Unknown timezone %q for user %d, using UTC", sch.Timezone, sch.OwnerID)
		loc = time.UTC
	}
	return now.In(loc).Format("15:04") == sch.QuizTime
}
