package costco

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"rental-price-tracker/config"
	"rental-price-tracker/models"
	"rental-price-tracker/utils"

	"github.com/chromedp/chromedp"
)

var resultsURLRegex = regexp.MustCompile(`(?i)results|vehicles`)

// CostcoScraper drives the Costco Travel rental-car search form and
// extracts the lowest price per vehicle category from the results grid
type CostcoScraper struct {
	cfg         *config.Config
	logger      *utils.Logger
	rateLimiter *utils.RateLimiter
}

// NewCostcoScraper creates a new CostcoScraper
func NewCostcoScraper(cfg *config.Config, logger *utils.Logger) *CostcoScraper {
	return &CostcoScraper{
		cfg:         cfg,
		logger:      logger,
		rateLimiter: utils.NewRateLimiter(time.Duration(cfg.RateLimitDelay) * time.Millisecond),
	}
}

// Start creates the browser context shared by all bookings in a run.
// Costco's bot detection flags automation, so the allocator carries the
// same stealth flags a real Chrome session would show.
func (s *CostcoScraper) Start() (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// FetchPrices runs one full search cycle for a booking and returns the
// raw {category: price} snapshot
func (s *CostcoScraper) FetchPrices(ctx context.Context, booking *models.Booking) (map[string]float64, error) {
	s.rateLimiter.Wait()

	s.logger.Info("Checking prices for %s (%s to %s, focus: %s)",
		booking.Location, booking.PickupDate, booking.DropoffDate, booking.FocusCategory)

	var prices map[string]float64
	err := utils.RetryWithBackoff(booking.Location, s.cfg.MaxRetries, func() error {
		var attemptErr error
		prices, attemptErr = s.searchOnce(ctx, booking)
		return attemptErr
	}, s.logger)
	if err != nil {
		s.captureScreenshot(ctx, "error", booking.Location)
		return nil, err
	}

	if _, ok := prices[booking.FocusCategory]; !ok {
		s.logger.Warn("Focus category %q not in results for %s (available: %s)",
			booking.FocusCategory, booking.Location, strings.Join(categoryNames(prices), ", "))
	}
	return prices, nil
}

// searchOnce performs a single navigate → fill → search → extract pass
func (s *CostcoScraper) searchOnce(ctx context.Context, booking *models.Booking) (map[string]float64, error) {
	timeout := time.Duration(s.cfg.SearchTimeout) * time.Second
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.cfg.CostcoURL),
		chromedp.Sleep(randDelay(2000, 4000)),
		// Stealth: hide the webdriver flag before any site JS inspects it
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`, nil),
	)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	if err := s.enterLocation(navCtx, booking.Location); err != nil {
		return nil, err
	}
	if err := s.enterDate(navCtx, "pickUpDateWidget", booking.PickupDate); err != nil {
		return nil, err
	}
	if err := s.enterDate(navCtx, "dropOffDateWidget", booking.DropoffDate); err != nil {
		return nil, err
	}
	if err := s.setTimes(navCtx, booking.PickupTime, booking.DropoffTime); err != nil {
		return nil, err
	}
	if err := s.checkAgeBox(navCtx); err != nil {
		return nil, err
	}

	if err := s.clickSearch(navCtx); err != nil {
		return nil, err
	}
	if err := s.waitForResults(ctx, timeout); err != nil {
		return nil, err
	}

	s.captureScreenshot(ctx, "results", booking.Location)
	return s.extractPrices(ctx)
}

// enterLocation types the location code and picks it from the autocomplete
func (s *CostcoScraper) enterLocation(ctx context.Context, location string) error {
	dropdownXPath := fmt.Sprintf(`//li[contains(text(), %q)]`, location)
	err := chromedp.Run(ctx,
		chromedp.WaitVisible("#pickupLocationTextWidget", chromedp.ByQuery),
		chromedp.Click("#pickupLocationTextWidget", chromedp.ByQuery),
		chromedp.Sleep(randDelay(500, 1000)),
		chromedp.SendKeys("#pickupLocationTextWidget", location, chromedp.ByQuery),
		chromedp.Sleep(randDelay(1500, 2500)),
		chromedp.WaitVisible(dropdownXPath, chromedp.BySearch),
		chromedp.Sleep(randDelay(500, 1000)),
		chromedp.Click(dropdownXPath, chromedp.BySearch),
		chromedp.Sleep(randDelay(1000, 2000)),
	)
	if err != nil {
		return fmt.Errorf("location entry failed for %s: %w", location, err)
	}
	return nil
}

// enterDate clears a date field via JS, types the value and verifies it
// stuck, retrying a few times — the widget intermittently eats keystrokes
func (s *CostcoScraper) enterDate(ctx context.Context, fieldID, date string) error {
	const maxAttempts = 3
	clearJS := fmt.Sprintf(`document.getElementById(%q).value = ''`, fieldID)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var entered string
		err := chromedp.Run(ctx,
			chromedp.Evaluate(clearJS, nil),
			chromedp.Sleep(randDelay(300, 700)),
			chromedp.SendKeys("#"+fieldID, date, chromedp.ByQuery),
			chromedp.SendKeys("#"+fieldID, "\t", chromedp.ByQuery),
			chromedp.Sleep(randDelay(1000, 1500)),
			chromedp.Value("#"+fieldID, &entered, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("date entry failed for %s: %w", fieldID, err)
		}
		if entered == date {
			return nil
		}
		s.logger.Warn("Date entry mismatch for %s (got %q, want %q), attempt %d/%d",
			fieldID, entered, date, attempt, maxAttempts)
	}
	return fmt.Errorf("date entry failed for %s after %d attempts", fieldID, maxAttempts)
}

// setTimes selects pickup and dropoff times, firing change events the way
// the page's own handlers expect
func (s *CostcoScraper) setTimes(ctx context.Context, pickupTime, dropoffTime string) error {
	selectJS := func(id, value string) string {
		return fmt.Sprintf(`(() => {
			const el = document.getElementById(%q);
			el.value = %q;
			el.dispatchEvent(new Event('change', {bubbles: true}));
		})()`, id, value)
	}
	err := chromedp.Run(ctx,
		chromedp.Evaluate(selectJS("pickupTimeWidget", pickupTime), nil),
		chromedp.Sleep(randDelay(500, 1000)),
		chromedp.Evaluate(selectJS("dropoffTimeWidget", dropoffTime), nil),
		chromedp.Sleep(randDelay(500, 1000)),
	)
	if err != nil {
		return fmt.Errorf("time selection failed: %w", err)
	}
	return nil
}

// checkAgeBox ensures the 25+ driver age checkbox is checked
func (s *CostcoScraper) checkAgeBox(ctx context.Context) error {
	js := `(() => {
		const box = document.getElementById('driversAgeWidget');
		if (box && !box.checked) box.click();
	})()`
	err := chromedp.Run(ctx,
		chromedp.Evaluate(js, nil),
		chromedp.Sleep(randDelay(500, 1000)),
	)
	if err != nil {
		return fmt.Errorf("age checkbox failed: %w", err)
	}
	return nil
}

// clickSearch submits the form via JS. A scripted scroll-and-click lands
// the button under the sticky header, so the click is dispatched directly
// to the element instead.
func (s *CostcoScraper) clickSearch(ctx context.Context) error {
	err := chromedp.Run(ctx,
		chromedp.WaitVisible("#findMyCarButton", chromedp.ByQuery),
		chromedp.Sleep(randDelay(500, 1000)),
		chromedp.Evaluate(`document.getElementById('findMyCarButton').click()`, nil),
	)
	if err != nil {
		return fmt.Errorf("search click failed: %w", err)
	}
	return nil
}

// waitForResults polls the page URL until it looks like a results page,
// then gives prices time to finish rendering
func (s *CostcoScraper) waitForResults(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var url string
		if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
			return fmt.Errorf("failed to read page URL: %w", err)
		}
		if resultsURLRegex.MatchString(url) {
			return chromedp.Run(ctx, chromedp.Sleep(5*time.Second))
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("results page did not load within %s", timeout)
}

// extractPrices pulls the lowest price per category from the results grid
func (s *CostcoScraper) extractPrices(ctx context.Context) (map[string]float64, error) {
	js := `(() => {
		const out = {};
		for (const row of document.querySelectorAll('div[role="row"]')) {
			const name = row.querySelector('div.inner.text-center.h3-tag-style');
			const card = row.querySelector('a.card.car-result-card.lowest-price');
			if (!name || !card) continue;
			const price = parseFloat(card.getAttribute('data-price'));
			if (!isNaN(price)) out[name.textContent.trim()] = price;
		}
		return out;
	})()`

	var prices map[string]float64
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &prices)); err != nil {
		return nil, fmt.Errorf("price extraction failed: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no category prices found on results page")
	}

	for cat, price := range prices {
		s.logger.Debug("Found %s: $%.2f", cat, price)
	}
	return prices, nil
}

// captureScreenshot saves a page screenshot for debugging; failures are
// logged and ignored
func (s *CostcoScraper) captureScreenshot(ctx context.Context, kind, location string) {
	if s.cfg.ScreenshotDir == "" {
		return
	}
	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0755); err != nil {
		s.logger.Warn("Cannot create screenshot dir: %v", err)
		return
	}

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		s.logger.Warn("Screenshot failed: %v", err)
		return
	}

	name := fmt.Sprintf("%s_%s_%s.png", kind, location, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.cfg.ScreenshotDir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		s.logger.Warn("Cannot write screenshot: %v", err)
		return
	}
	s.logger.Debug("Screenshot saved: %s", path)
}

func categoryNames(prices map[string]float64) []string {
	names := make([]string, 0, len(prices))
	for cat := range prices {
		names = append(names, cat)
	}
	return names
}

func randDelay(minMs, maxMs int) time.Duration {
	return time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
}
