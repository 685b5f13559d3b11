// Package browse is the page-control capability: a narrow Page interface
// over a real Chrome tab, plus the Manager owning the Chrome lifecycle.
// Callers never touch Rod types directly, so the engine can be tested
// against a fake Page.
package browse

import (
	"context"
	"fmt"
	"time"
)

// Page is one controlled browser tab. All blocking calls honour their
// context. Close releases the tab and is safe to call more than once.
type Page interface {
	// Navigate loads the URL and waits for the load event, bounded by
	// timeout. Timeouts surface as *TransientError.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Eval runs a JS function expression and returns its result as text.
	Eval(ctx context.Context, js string) (string, error)
	// SetCookies replays a DevTools-shaped cookie blob into the tab.
	SetCookies(blob []byte) error
	// Cookies captures the tab's current cookies as a DevTools-shaped blob.
	Cookies(ctx context.Context) ([]byte, error)
	// Content returns the full rendered document as HTML.
	Content(ctx context.Context) (string, error)
	Close() error
}

// TransientError marks a browse failure worth retrying later: navigation
// timeout, tab crash, detached target. It never indicates bad input.
type TransientError struct {
	URL string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("browse: transient failure for %s: %v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
