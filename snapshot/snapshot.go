package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"madrid-dashboard/config"
	"madrid-dashboard/dashboard"
	"madrid-dashboard/utils"
)

const (
	viewportWidth  = 1440
	viewportHeight = 900
	pageTimeout    = 60 * time.Second
	pngQuality     = 90
)

// Snapshotter captures full-page screenshots of a running dashboard, one per
// tab, through a headless browser.
type Snapshotter struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Snapshotter.
func New(cfg *config.Config, logger *utils.Logger) *Snapshotter {
	return &Snapshotter{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Capture screenshots every tab and returns the written file paths, sorted.
// Tabs that keep failing after retries are reported in the joined error;
// the others are still written.
func (s *Snapshotter) Capture(ctx context.Context, tabs []dashboard.Tab) ([]string, error) {
	if err := os.MkdirAll(s.cfg.SnapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: create output dir: %w", err)
	}

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[snapshot] Using browser binary: %s", orDefault(chromeBin))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Start the browser once so tabs can open in parallel.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("snapshot: start browser: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	var (
		mu    sync.Mutex
		paths []string
	)
	for _, tab := range tabs {
		tab := tab
		s.pool.Submit(func() error {
			path := filepath.Join(s.cfg.SnapshotDir, fileName(tab, stamp))
			err := s.retry.DoContext(ctx, "snapshot "+string(tab), func() error {
				return s.captureTab(browserCtx, tabURL(s.cfg.SnapshotBaseURL, tab), path)
			})
			if err != nil {
				s.logger.Error("[snapshot] Tab %s failed: %v", tab, err)
				return err
			}

			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			s.logger.Info("[snapshot] Saved %s", path)
			return nil
		})
	}
	err := s.pool.Wait()

	sort.Strings(paths)
	return paths, err
}

func (s *Snapshotter) captureTab(browserCtx context.Context, pageURL, path string) error {
	ctx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, pageTimeout)
	defer cancelTimeout()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("main", chromedp.ByQuery),
		// Charts are separate requests; give them a moment to paint.
		chromedp.Sleep(time.Duration(s.cfg.RateLimitMs)*time.Millisecond),
		chromedp.FullScreenshot(&buf, pngQuality),
	)
	if err != nil {
		return fmt.Errorf("capture %s: %w", pageURL, err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func tabURL(base string, tab dashboard.Tab) string {
	return base + "/?tab=" + url.QueryEscape(string(tab))
}

func fileName(tab dashboard.Tab, stamp string) string {
	return fmt.Sprintf("dashboard-%s-%s.png", tab, stamp)
}

func orDefault(bin string) string {
	if bin == "" {
		return "(chromedp default)"
	}
	return bin
}

// findChromeBinary locates Chrome/Chromium binary. An explicit configured
// path wins.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
