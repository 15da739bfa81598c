package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"rental-price-tracker/config"
	"rental-price-tracker/models"
	"rental-price-tracker/notify"
	"rental-price-tracker/scraper/costco"
	"rental-price-tracker/services"
	"rental-price-tracker/storage"
	"rental-price-tracker/utils"
)

func main() {
	// ================== Bootstrap ====================
	logger := utils.NewLogger()
	cfg := config.Load()

	store := storage.NewJSONStore(cfg.HistoryFile, logger)
	tracker, err := services.NewBookingTracker(store, logger)
	if err != nil {
		logger.Error("Cannot load booking registry: %v", err)
		os.Exit(1)
	}

	cmd := "check"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "check":
		runCheck(cfg, logger, tracker)
	case "add":
		runAdd(logger, tracker, args)
	case "delete":
		runDelete(logger, tracker, args)
	case "archive":
		runArchive(logger, tracker, args)
	case "holding":
		runHolding(logger, tracker, args)
	case "report":
		runReport(cfg, logger, tracker)
	case "cleanup":
		runCleanup(logger, tracker)
	case "sync":
		runSync(cfg, logger, tracker)
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s [check|add|delete|archive|holding|report|cleanup|sync]\n", os.Args[0])
		os.Exit(2)
	}
}

// runCheck is the scheduled batch run: sweep expired bookings, scrape each
// active booking, record the observation, evaluate alerts, then report
func runCheck(cfg *config.Config, logger *utils.Logger, tracker *services.BookingTracker) {
	logger.Info("Rental Car Price Tracker")
	logger.Info("Drop threshold: $%.2f | Rate delay: %dms | Retries: %d",
		cfg.PriceDropThreshold, cfg.RateLimitDelay, cfg.MaxRetries)

	removed, err := tracker.CleanupExpired()
	if err != nil {
		logger.Error("Expired-booking sweep failed: %v", err)
		os.Exit(1)
	}

	active := tracker.ActiveBookings()
	if len(active) == 0 {
		logger.Warn("No active bookings to check — add one with the 'add' command")
		services.PrintRunReport(nil, removed)
		return
	}

	scraper := costco.NewCostcoScraper(cfg, logger)
	ctx, cancel := scraper.Start()
	defer cancel()

	alertSvc := services.NewAlertService(cfg.PriceDropThreshold, logger)
	runTracker := utils.NewRunTracker()
	var reports []*models.BookingReport

	for _, booking := range active {
		id := booking.ID()
		if !runTracker.Add(id) {
			logger.Warn("Booking %s listed twice in the active set, skipping duplicate", id)
			continue
		}

		prices, err := scraper.FetchPrices(ctx, booking)
		if err != nil {
			logger.Error("Failed to get prices for %s: %v", booking.Location, err)
			continue
		}

		if _, err := tracker.AppendObservation(id, prices); err != nil {
			logger.Error("Failed to record observation for %s: %v", id, err)
			continue
		}

		report, err := alertSvc.Evaluate(id, booking, prices, services.ComputeTrends(booking))
		if err != nil {
			if errors.Is(err, models.ErrBookingExpired) {
				logger.Warn("Skipping alert evaluation: %v", err)
			} else {
				logger.Error("Alert evaluation failed for %s: %v", id, err)
			}
			continue
		}
		reports = append(reports, report)
		logger.Info("Prices updated for %s", booking.Location)
	}

	services.PrintRunReport(reports, removed)

	// ========= Email alert ===========================
	notifier := notify.NewEmailNotifier(cfg, logger)
	if notifier.Enabled() && len(reports) > 0 {
		if err := notifier.SendPriceAlert(reports); err != nil {
			logger.Error("Failed to send alert email: %v", err)
			// Non-fatal: prices are already persisted
		}
	} else if len(reports) > 0 {
		logger.Info("Email not configured, skipping alert send")
	}

	// ========= PostgreSQL mirror =====================
	if cfg.DatabaseURL != "" {
		syncMirror(cfg, logger, tracker.Registry())
	}
}

func runAdd(logger *utils.Logger, tracker *services.BookingTracker, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	location := fs.String("location", "", "3-letter airport code (required)")
	pickup := fs.String("pickup", "", "pickup date MM/DD/YYYY (required)")
	dropoff := fs.String("dropoff", "", "dropoff date MM/DD/YYYY (required)")
	category := fs.String("category", "", "vehicle category to track (required)")
	pickupTime := fs.String("pickup-time", "12:00 PM", "pickup time")
	dropoffTime := fs.String("dropoff-time", "12:00 PM", "dropoff time")
	holding := fs.Float64("holding", 0, "already-reserved price (optional)")
	fs.Parse(args)

	if *location == "" || *pickup == "" || *dropoff == "" || *category == "" {
		fs.Usage()
		os.Exit(2)
	}

	var holdingPrice *float64
	if *holding > 0 {
		holdingPrice = holding
	}

	id, err := tracker.AddBooking(*location, *pickup, *dropoff, *category, *pickupTime, *dropoffTime, holdingPrice)
	if err != nil {
		logger.Error("Failed to add booking: %v", err)
		os.Exit(1)
	}
	fmt.Println("Tracking booking:", id)
}

func runDelete(logger *utils.Logger, tracker *services.BookingTracker, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "booking id (required)")
	fs.Parse(args)

	if *id == "" {
		fs.Usage()
		os.Exit(2)
	}
	if err := tracker.DeleteBooking(*id); err != nil {
		logger.Error("Failed to delete booking: %v", err)
		os.Exit(1)
	}
	fmt.Println("Deleted booking:", *id)
}

func runArchive(logger *utils.Logger, tracker *services.BookingTracker, args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	id := fs.String("id", "", "booking id (required)")
	fs.Parse(args)

	if *id == "" {
		fs.Usage()
		os.Exit(2)
	}
	if err := tracker.ArchiveBooking(*id); err != nil {
		logger.Error("Failed to archive booking: %v", err)
		os.Exit(1)
	}
	fmt.Println("Archived booking (history retained):", *id)
}

func runHolding(logger *utils.Logger, tracker *services.BookingTracker, args []string) {
	fs := flag.NewFlagSet("holding", flag.ExitOnError)
	id := fs.String("id", "", "booking id (required)")
	price := fs.Float64("price", 0, "reserved price (required)")
	fs.Parse(args)

	if *id == "" || *price <= 0 {
		fs.Usage()
		os.Exit(2)
	}
	if err := tracker.SetHoldingPrice(*id, *price); err != nil {
		logger.Error("Failed to set holding price: %v", err)
		os.Exit(1)
	}

	if details, err := tracker.HoldingPriceDetails(*id); err == nil && details != nil {
		fmt.Printf("Holding price now $%.2f (started at $%.2f, %d changes)\n",
			details.CurrentPrice, details.InitialPrice, details.TotalChanges)
	}
}

// runReport re-evaluates every active booking from its stored history
// without scraping
func runReport(cfg *config.Config, logger *utils.Logger, tracker *services.BookingTracker) {
	alertSvc := services.NewAlertService(cfg.PriceDropThreshold, logger)
	var reports []*models.BookingReport

	for _, booking := range tracker.ActiveBookings() {
		id := booking.ID()
		if len(booking.PriceHistory) == 0 {
			logger.Info("Booking %s has no observations yet", id)
			continue
		}

		latest := booking.PriceHistory[len(booking.PriceHistory)-1]
		report, err := alertSvc.Evaluate(id, booking, latest.Prices, services.ComputeTrends(booking))
		if err != nil {
			logger.Warn("Skipping %s: %v", id, err)
			continue
		}
		reports = append(reports, report)
	}

	services.PrintRunReport(reports, nil)
}

func runCleanup(logger *utils.Logger, tracker *services.BookingTracker) {
	removed, err := tracker.CleanupExpired()
	if err != nil {
		logger.Error("Expired-booking sweep failed: %v", err)
		os.Exit(1)
	}
	if len(removed) == 0 {
		fmt.Println("No expired bookings.")
		return
	}
	for _, id := range removed {
		fmt.Println("Removed:", id)
	}
}

func runSync(cfg *config.Config, logger *utils.Logger, tracker *services.BookingTracker) {
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set — nothing to sync to")
		os.Exit(1)
	}
	syncMirror(cfg, logger, tracker.Registry())
}

func syncMirror(cfg *config.Config, logger *utils.Logger, reg *models.Registry) {
	mirror, err := storage.NewPostgresMirror(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Cannot connect to PostgreSQL mirror: %v", err)
		return
	}
	defer mirror.Close()

	if err := mirror.CreateTables(); err != nil {
		logger.Error("Mirror schema setup failed: %v", err)
		return
	}
	if err := mirror.Sync(reg); err != nil {
		logger.Error("Mirror sync failed: %v", err)
	}
}
