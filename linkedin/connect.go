package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksriv/leadflow/session"
)

// fillLoginJS fills the credential form and submits it. Returns a short
// status token instead of throwing so a missing form is a plain outcome.
const fillLoginJS = `() => {
	const user = document.querySelector("input#username");
	const pass = document.querySelector("input#password");
	if (!user || !pass) return "no-form";
	user.value = %s;
	user.dispatchEvent(new Event("input", {bubbles: true}));
	pass.value = %s;
	pass.dispatchEvent(new Event("input", {bubbles: true}));
	const btn = document.querySelector("button[type='submit']");
	if (!btn) return "no-submit";
	btn.click();
	return "submitted";
}`

// verifyLoginJS decides the login outcome by fallback checks: first the
// URL, then logged-in chrome markers, then known failure markers.
const verifyLoginJS = `() => {
	const path = location.pathname;
	if (!path.includes("/login") && !path.includes("/uas/login")) return "ok:url";
	if (document.querySelector("nav.global-nav, [class*='global-nav']")) return "ok:nav";
	if (document.querySelector("a[href*='/feed']")) return "ok:feed";
	if (document.querySelector("[data-test-id='checkpoint'], .challenge-dialog")) return "checkpoint";
	const err = document.querySelector(".alert--error, .form__label--error");
	if (err && err.textContent.trim()) return "error:" + err.textContent.trim();
	return "still-login";
}`

// Connect performs a credential login for the owner and persists the
// captured cookies as a Connected session. The credentials pass through
// to the page and are never logged or stored.
func (e *Engine) Connect(ctx context.Context, ownerID, email, password string) (*session.Session, error) {
	if email == "" || password == "" {
		return nil, &session.NotAuthenticatedError{OwnerID: ownerID, Reason: "missing credentials"}
	}

	release, err := e.flights.acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.beginConnecting(ctx, ownerID); err != nil {
		return nil, err
	}

	sess, err := e.login(ctx, ownerID, email, password)
	if err != nil {
		if tErr := e.sessions.Transition(ctx, ownerID, session.StateDisconnected); tErr != nil {
			e.log.Warn("login failure rollback", "owner", ownerID, "error", tErr)
		}
		return nil, err
	}
	return sess, nil
}

// beginConnecting moves the owner into Connecting. A Connected or
// Expired session is logged out first so the transition stays legal.
func (e *Engine) beginConnecting(ctx context.Context, ownerID string) error {
	err := e.sessions.Transition(ctx, ownerID, session.StateConnecting)
	if err == nil {
		return nil
	}
	if _, ok := err.(*session.InvalidTransitionError); !ok {
		return err
	}
	if err := e.sessions.Invalidate(ctx, ownerID); err != nil {
		return err
	}
	return e.sessions.Transition(ctx, ownerID, session.StateConnecting)
}

func (e *Engine) login(ctx context.Context, ownerID, email, password string) (*session.Session, error) {
	p, err := e.pages.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkedin: open login page: %w", err)
	}
	defer p.Close()

	if err := p.Navigate(ctx, e.cfg.BaseURL+"login", e.cfg.NavigateTimeout); err != nil {
		return nil, err
	}
	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	fill := fmt.Sprintf(fillLoginJS, jsString(email), jsString(password))
	out, err := p.Eval(ctx, fill)
	if err != nil {
		return nil, fmt.Errorf("linkedin: submit login form: %w", err)
	}
	if out != "submitted" {
		return nil, &session.NotAuthenticatedError{OwnerID: ownerID, Reason: "login form not found (" + out + ")"}
	}

	if err := e.wait(ctx, e.cfg.LoginWait); err != nil {
		return nil, err
	}

	verdict, err := p.Eval(ctx, verifyLoginJS)
	if err != nil {
		return nil, fmt.Errorf("linkedin: verify login: %w", err)
	}
	switch {
	case strings.HasPrefix(verdict, "ok:"):
		e.log.Info("login verified", "owner", ownerID, "check", strings.TrimPrefix(verdict, "ok:"))
	case verdict == "checkpoint":
		return nil, &session.NotAuthenticatedError{OwnerID: ownerID, Reason: "blocked by verification checkpoint"}
	case strings.HasPrefix(verdict, "error:"):
		return nil, &session.NotAuthenticatedError{OwnerID: ownerID, Reason: strings.TrimPrefix(verdict, "error:")}
	default:
		return nil, &session.NotAuthenticatedError{OwnerID: ownerID, Reason: "credentials rejected"}
	}

	blob, err := p.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkedin: capture cookies: %w", err)
	}
	return e.sessions.Save(ctx, ownerID, blob, e.cfg.SessionTTL)
}

// jsString renders a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
