package background

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"voxbank/internal/ratelimit"
	"voxbank/internal/repositories"
	"voxbank/internal/services"
)

// JobScheduler runs the housekeeping jobs: expiring overdue previews,
// deleting stale authorization grants, compacting the in-memory rate limiter
// and archiving closed audit days to object storage.
type JobScheduler struct {
	scheduler       gocron.Scheduler
	paymentPreviews repositories.PaymentPreviewRepository
	billPreviews    repositories.BillPreviewRepository
	grants          repositories.GrantRepository
	limiter         *ratelimit.MemoryLimiter
	archive         services.ArchiveService
}

// grantRetention keeps exchanged/expired grants around for a while so replay
// attempts fail with already-used instead of code-not-found.
const grantRetention = 24 * time.Hour

func NewJobScheduler(paymentPreviews repositories.PaymentPreviewRepository, billPreviews repositories.BillPreviewRepository,
	grants repositories.GrantRepository, limiter *ratelimit.MemoryLimiter, archive services.ArchiveService) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:       scheduler,
		paymentPreviews: paymentPreviews,
		billPreviews:    billPreviews,
		grants:          grants,
		limiter:         limiter,
		archive:         archive,
	}
	js.registerJobs()
	return js, nil
}

func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(js.expireOverduePreviews),
		gocron.WithName("preview-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		log.Printf("Failed to create preview expiry job: %v", err)
	}

	if _, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.cleanupStaleGrants),
		gocron.WithName("grant-cleanup"),
	); err != nil {
		log.Printf("Failed to create grant cleanup job: %v", err)
	}

	if js.limiter != nil {
		if _, err := js.scheduler.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(js.compactLimiter),
			gocron.WithName("rate-limit-compaction"),
		); err != nil {
			log.Printf("Failed to create limiter compaction job: %v", err)
		}
	}

	if js.archive != nil {
		if _, err := js.scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(1, 0, 0))),
			gocron.NewTask(js.archiveAuditLogs),
			gocron.WithName("audit-archive"),
		); err != nil {
			log.Printf("Failed to create audit archive job: %v", err)
		}
	}
}

// expireOverduePreviews flips PENDING/CONFIRMED previews past their deadline
// to EXPIRED. Read paths also check expiry, so this is cleanup, not the
// correctness mechanism.
func (js *JobScheduler) expireOverduePreviews() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n, err := js.paymentPreviews.ExpireOverdue(ctx); err != nil {
		log.Printf("payment preview expiry sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("expired %d overdue payment previews", n)
	}
	if n, err := js.billPreviews.ExpireOverdue(ctx); err != nil {
		log.Printf("bill preview expiry sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("expired %d overdue bill previews", n)
	}
}

func (js *JobScheduler) cleanupStaleGrants() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n, err := js.grants.DeleteStale(ctx, grantRetention); err != nil {
		log.Printf("grant cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("deleted %d stale authorization grants", n)
	}
}

func (js *JobScheduler) compactLimiter() {
	if n := js.limiter.Compact(); n > 0 {
		log.Printf("compacted %d expired rate-limit windows", n)
	}
}

func (js *JobScheduler) archiveAuditLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	yesterday := time.Now().AddDate(0, 0, -1)
	if n, err := js.archive.ArchiveDay(ctx, yesterday); err != nil {
		log.Printf("audit archive failed: %v", err)
	} else if n > 0 {
		log.Printf("archived %d audit rows for %s", n, yesterday.Format("2006-01-02"))
	}
}
