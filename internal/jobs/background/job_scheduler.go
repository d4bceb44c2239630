package background

import (
	"context"
	"sync"
	"time"

	"gstbill/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// JobScheduler runs periodic maintenance: coupon expiry sweeps and low
// stock alerts.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	couponRepo  repositories.CouponRepository
	productRepo repositories.ProductRepository
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

func NewJobScheduler(couponRepo repositories.CouponRepository, productRepo repositories.ProductRepository) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		couponRepo:  couponRepo,
		productRepo: productRepo,
		jobs:        make(map[string]gocron.Job),
	}

	js.registerJobs()
	return js, nil
}

func (js *JobScheduler) Start() {
	log.Info().Int("jobs", len(js.jobs)).Msg("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Expired coupons are also rejected at validation time; the sweep only
	// keeps the stored status in line with the calendar.
	expiryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.deactivateExpiredCoupons, context.Background()),
		gocron.WithName("coupon-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create coupon expiry job")
	} else {
		js.jobs["coupon-expiry-sweep"] = expiryJob
	}

	alertsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(js.reportLowStock, context.Background()),
		gocron.WithName("low-stock-alerts"),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create low stock alerts job")
	} else {
		js.jobs["low-stock-alerts"] = alertsJob
	}
}

func (js *JobScheduler) deactivateExpiredCoupons(ctx context.Context) error {
	swept, err := js.couponRepo.DeactivateExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("coupon expiry sweep failed")
		return err
	}
	if swept > 0 {
		log.Info().Int64("deactivated", swept).Msg("coupon expiry sweep completed")
	}
	return nil
}

func (js *JobScheduler) reportLowStock(ctx context.Context) error {
	products, err := js.productRepo.ListBelowMinStock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("low stock check failed")
		return err
	}

	for _, p := range products {
		log.Warn().
			Str("product_id", p.ID.String()).
			Str("name", p.Name).
			Str("stock", p.StockQuantity.String()).
			Str("min_level", p.MinStockLevel.String()).
			Msg("product below minimum stock level")
	}
	return nil
}

// GetJobStatus reports the registered jobs, for the health surface.
func (js *JobScheduler) GetJobStatus() map[string]any {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return map[string]any{"total_jobs": len(js.jobs), "jobs": names}
}
