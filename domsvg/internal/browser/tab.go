package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab is a stealth page navigated to the URL under capture.
type Tab struct {
	Page    *rod.Page
	PageURL string
	router  *rod.HijackRouter
	release func()
	logger  *slog.Logger
}

// OpenTab creates a stealth tab, applies resource blocking and navigates
// to pageURL, waiting for the load event within the navigate timeout.
// The tab leases the browser until it is closed.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b, release, err := mgr.Lease()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	tab := &Tab{Page: page, PageURL: pageURL, release: release, logger: mgr.cfg.Logger}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		tab.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return tab, nil
}

// Close stops request interception, closes the tab and releases its
// browser lease.
func (t *Tab) Close() error {
	if t.release != nil {
		defer t.release()
	}
	if t.router != nil {
		if err := t.router.Stop(); err != nil {
			t.logger.Warn("browser: stop hijack router", "error", err)
		}
		t.router = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
