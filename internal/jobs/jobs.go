package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-co-op/gocron/v2"

	"villabook/internal/config"
)

const (
	CompleteStays   = "complete-stays"
	BalanceReminder = "balance-reminders"
	CRMSync         = "crm-sync"

	crmSyncBatch = 100
	runTimeout   = 5 * time.Minute
)

var ErrUnknownJob = errors.New("unknown job")

type BookingJobs interface {
	CompleteFinishedStays(ctx context.Context, now time.Time) (int, error)
	SendBalanceReminders(ctx context.Context, now time.Time, days int) (int, error)
}

type CRMSyncer interface {
	Enabled() bool
	SyncPending(ctx context.Context, limit int) (int, error)
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (int, error)
}

// Runner owns the periodic maintenance tasks. The same tasks back the
// scheduler and the one-off CLI invocation.
type Runner struct {
	jobs    map[string]job
	sched   gocron.Scheduler
	now     func() time.Time
	loggerf func(format string, args ...interface{})
}

// New registers the booking jobs and, when the CRM is enabled, the CRM sync.
// crm may be nil.
func New(cfg config.JobsConfig, bookings BookingJobs, crm CRMSyncer) *Runner {
	r := &Runner{
		jobs:    make(map[string]job),
		now:     time.Now,
		loggerf: log.Printf,
	}
	r.add(CompleteStays, cfg.CompleteInterval, func(ctx context.Context) (int, error) {
		return bookings.CompleteFinishedStays(ctx, r.now())
	})
	r.add(BalanceReminder, cfg.ReminderInterval, func(ctx context.Context) (int, error) {
		return bookings.SendBalanceReminders(ctx, r.now(), cfg.BalanceDueDays)
	})
	if crm != nil && crm.Enabled() {
		r.add(CRMSync, cfg.CRMSyncInterval, func(ctx context.Context) (int, error) {
			return crm.SyncPending(ctx, crmSyncBatch)
		})
	}
	return r
}

func (r *Runner) add(name string, interval time.Duration, run func(ctx context.Context) (int, error)) {
	r.jobs[name] = job{name: name, interval: interval, run: run}
}

// Names lists the registered jobs in a stable order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOnce executes a job synchronously and reports how many items it touched.
func (r *Runner) RunOnce(ctx context.Context, name string) (int, error) {
	j, ok := r.jobs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.execute(ctx, j)
}

func (r *Runner) execute(ctx context.Context, j job) (int, error) {
	started := r.now()
	n, err := j.run(ctx)
	if err != nil {
		r.loggerf("level=error msg=job failed job=%s err=%v", j.name, err)
		return n, fmt.Errorf("job %s: %w", j.name, err)
	}
	r.loggerf("level=info msg=job done job=%s affected=%d took=%s", j.name, n, r.now().Sub(started))
	return n, nil
}

// Start schedules every job on its interval. Overlapping runs of one job are skipped.
func (r *Runner) Start() error {
	if r.sched != nil {
		return nil
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	for _, name := range r.Names() {
		j := r.jobs[name]
		_, err := sched.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
				defer cancel()
				_, _ = r.execute(ctx, j)
			}),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
		r.loggerf("level=info msg=job scheduled job=%s every=%s", j.name, j.interval)
	}
	sched.Start()
	r.sched = sched
	return nil
}

func (r *Runner) Shutdown() error {
	if r.sched == nil {
		return nil
	}
	err := r.sched.Shutdown()
	r.sched = nil
	return err
}
