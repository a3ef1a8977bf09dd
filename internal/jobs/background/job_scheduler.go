package background

import (
	"context"
	"log"
	"time"

	"gstmate/internal/repositories"
	"gstmate/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages recurring background jobs
type JobScheduler struct {
	scheduler  gocron.Scheduler
	otpSvc     services.OtpService
	returnRepo repositories.ReturnRepository
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(otpSvc services.OtpService, returnRepo repositories.ReturnRepository) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		otpSvc:     otpSvc,
		returnRepo: returnRepo,
	}
	js.registerJobs()
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Expired verification codes, hourly. Rows are kept for an hour past
	// expiry so resend throttling keeps its attempt count.
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(js.purgeExpiredOtps),
		gocron.WithName("otp-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create OTP purge job: %v", err)
	}

	// Open the current month's filing records shortly after midnight.
	// Idempotent, so running it daily only inserts on the 1st or for
	// clients added since the last run.
	_, err = js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 15, 0))),
		gocron.NewTask(js.openCurrentMonth),
		gocron.WithName("return-month-open"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create month-open job: %v", err)
	}
}

func (js *JobScheduler) purgeExpiredOtps() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := js.otpSvc.PurgeExpired(ctx); err != nil {
		log.Printf("OTP purge failed: %v", err)
	}
}

func (js *JobScheduler) openCurrentMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	month := time.Now().UTC().Format("2006-01")
	inserted, err := js.returnRepo.OpenMonthForAll(ctx, month)
	if err != nil {
		log.Printf("Month open for %s failed: %v", month, err)
		return
	}
	if inserted > 0 {
		log.Printf("Opened %s filing records for %d clients", month, inserted)
	}
}
