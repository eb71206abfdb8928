package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/rank-tracker/internal/repository"
	"go.uber.org/zap"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`

// blockedURLPatterns drops non-essential subresources before navigation.
// Page scripts still run, so the listing DOM is produced without paying for
// images, fonts or tracking payloads.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3",
	"*google-analytics.com*", "*googletagmanager.com*", "*doubleclick.net*",
	"*facebook.net*", "*hotjar.com*", "*criteo.com*",
}

// SessionManager launches one headless browser scope per task. Pages are
// never reused across tasks, so a crashed or hung page cannot corrupt the
// next one.
type SessionManager struct {
	pageLoadTimeout time.Duration
	logger          *zap.Logger
}

// NewSessionManager creates a new browser session manager.
func NewSessionManager(pageLoadTimeout time.Duration, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		pageLoadTimeout: pageLoadTimeout,
		logger:          logger,
	}
}

func allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-sync", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("disable-http2", true),
		chromedp.Flag("disable-quic", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.UserAgent(userAgent),
	)
}

// WithPage runs fn with a fresh browser and page scope. The whole browser
// process is torn down when fn returns, on success, error and panic alike;
// teardown failures are logged, never propagated.
func (m *SessionManager) WithPage(ctx context.Context, fn func(page repository.PageFetcher) error) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions()...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	defer func() {
		if err := chromedp.Cancel(taskCtx); err != nil {
			m.logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	// Starts the browser process and installs the subresource block list
	// before any navigation happens.
	if err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedURLPatterns),
	); err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}

	return fn(&page{ctx: taskCtx, timeout: m.pageLoadTimeout})
}

// page renders search-result pages inside one task's browser scope.
type page struct {
	ctx     context.Context
	timeout time.Duration
}

// FetchHTML navigates to url under the page-load timeout and returns the
// rendered document once the body is ready.
func (p *page) FetchHTML(ctx context.Context, url string) (string, error) {
	navCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	// Stop early if the caller's context was cancelled mid-task.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-navCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", repository.ErrPageTimeout, url)
		}
		return "", fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	return html, nil
}
