package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// tab adapts a Rod page to the Page interface.
type tab struct {
	page      *rod.Page
	closeOnce sync.Once
	closeErr  error
}

func (t *tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := t.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return &TransientError{URL: url, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &TransientError{URL: url, Err: err}
	}
	return nil
}

func (t *tab) Eval(ctx context.Context, js string) (string, error) {
	res, err := t.page.Context(ctx).Eval(js)
	if err != nil {
		return "", fmt.Errorf("browse: eval: %w", err)
	}
	return res.Value.Str(), nil
}

func (t *tab) SetCookies(blob []byte) error {
	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(blob, &cookies); err != nil {
		return fmt.Errorf("browse: decode cookie blob: %w", err)
	}
	if err := t.page.SetCookies(cookies); err != nil {
		return fmt.Errorf("browse: set cookies: %w", err)
	}
	return nil
}

func (t *tab) Cookies(ctx context.Context) ([]byte, error) {
	cookies, err := t.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("browse: read cookies: %w", err)
	}
	blob, err := json.Marshal(cookies)
	if err != nil {
		return nil, fmt.Errorf("browse: encode cookie blob: %w", err)
	}
	return blob, nil
}

func (t *tab) Content(ctx context.Context) (string, error) {
	return t.Eval(ctx, `() => document.documentElement.outerHTML`)
}

func (t *tab) Close() error {
	t.closeOnce.Do(func() { t.closeErr = t.page.Close() })
	return t.closeErr
}
