package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register all browser cookie stores
)

// essentialCookies is the minimum upstream cookie set needed for an
// authenticated browse: auth token, session id, routing, browser id.
var essentialCookies = map[string]bool{
	"li_at":      true,
	"JSESSIONID": true,
	"lidc":       true,
	"bcookie":    true,
}

// importedCookie is the blob entry format shared with the page-control
// layer. Field names follow the DevTools cookie shape so the blob can be
// replayed directly.
type importedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
}

// ImportFromBrowser bootstraps a session from the operator's local browser
// cookies instead of a credential login. It reads every supported browser
// store, filters to the essential upstream cookies, and saves the blob
// under the owner. Fails when no usable cookies are found.
func (s *Store) ImportFromBrowser(ctx context.Context, ownerID string, ttl time.Duration) (*Session, error) {
	found, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix("linkedin.com"))
	if err != nil {
		return nil, fmt.Errorf("session: read browser cookies: %w", err)
	}

	var imported []importedCookie
	for _, c := range found {
		if !essentialCookies[c.Name] {
			continue
		}
		imported = append(imported, importedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires.Unix()),
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	if len(imported) == 0 {
		return nil, &NotAuthenticatedError{OwnerID: ownerID, Reason: "no linkedin cookies in local browsers"}
	}

	blob, err := json.Marshal(imported)
	if err != nil {
		return nil, fmt.Errorf("session: encode cookie blob: %w", err)
	}
	s.log.Info("browser cookies imported", "owner", ownerID, "count", len(imported))
	return s.Save(ctx, ownerID, blob, ttl)
}
