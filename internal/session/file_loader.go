package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"postline/internal/config"
	"postline/internal/health"
	"postline/internal/services"
)

// DefaultRequiredCookies lists the cookie names that identify a logged-in
// session. Any one of them is sufficient.
var DefaultRequiredCookies = []string{"sessionid", "sid_tt", "ssid_ucp_v1", "uid_tt"}

// FileLoader reads a JSON cookie jar from disk.
type FileLoader struct {
	Path     string
	Required []string
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// NewFileLoader builds a loader for the configured cookie jar.
func NewFileLoader(cfg *config.Config) *FileLoader {
	return &FileLoader{
		Path:     cfg.Session.CookiesPath,
		Required: append([]string(nil), DefaultRequiredCookies...),
	}
}

func (l *FileLoader) clock() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Load reads the jar, drops expired cookies, and requires at least one
// session cookie to remain.
func (l *FileLoader) Load(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return Handle{}, unavailable("load", "cookies path is not configured", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Handle{}, unavailable("load", fmt.Sprintf("cookie jar %s not found; run the login helper", path), err)
		}
		return Handle{}, unavailable("load", "read cookie jar", err)
	}
	cookies, err := parseCookies(data)
	if err != nil {
		return Handle{}, unavailable("load", fmt.Sprintf("parse cookie jar %s", path), err)
	}
	if len(cookies) == 0 {
		return Handle{}, unavailable("load", fmt.Sprintf("cookie jar %s is empty", path), nil)
	}

	now := l.clock()
	live := make([]Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		if strings.TrimSpace(cookie.Name) == "" || cookie.Expired(now) {
			continue
		}
		live = append(live, cookie)
	}
	if len(live) == 0 {
		return Handle{}, unavailable("load", "every cookie in the jar has expired; log in again", nil)
	}
	handle := Handle{Source: path, Cookies: live, LoadedAt: now}
	if !l.hasRequired(handle, now) {
		return Handle{}, unavailable("load", "no session cookie found in jar; log in again", nil)
	}
	return handle, nil
}

// Verify reports whether the handle still carries an unexpired session cookie.
func (l *FileLoader) Verify(ctx context.Context, handle Handle) bool {
	if ctx.Err() != nil || handle.Empty() {
		return false
	}
	return l.hasRequired(handle, l.clock())
}

func (l *FileLoader) hasRequired(handle Handle, now time.Time) bool {
	required := l.Required
	if len(required) == 0 {
		required = DefaultRequiredCookies
	}
	for _, cookie := range handle.Cookies {
		if cookie.Expired(now) || cookie.Value == "" {
			continue
		}
		for _, name := range required {
			if cookie.Name == name {
				return true
			}
		}
	}
	return false
}

// HealthCheck loads and verifies the jar without keeping the handle.
func (l *FileLoader) HealthCheck(ctx context.Context) health.Health {
	const name = "session"
	handle, err := l.Load(ctx)
	if err != nil {
		return health.Unhealthy(name, err.Error())
	}
	if !l.Verify(ctx, handle) {
		return health.Unhealthy(name, "session cookie failed verification")
	}
	if exp := handle.ExpiresAt(); !exp.IsZero() {
		return health.Health{Name: name, Ready: true, Detail: fmt.Sprintf("%d cookies, earliest expiry %s", len(handle.Cookies), exp.UTC().Format(time.RFC3339))}
	}
	return health.Health{Name: name, Ready: true, Detail: fmt.Sprintf("%d cookies", len(handle.Cookies))}
}

// rawCookie accepts both browser export formats: "expires" (Playwright) and
// "expirationDate" (Cookie-Editor).
type rawCookie struct {
	Cookie
	ExpirationDate float64 `json:"expirationDate,omitempty"`
	Expiry         float64 `json:"expiry,omitempty"`
}

func parseCookies(data []byte) ([]Cookie, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var raw []rawCookie
	if data[0] == '{' {
		var wrapper struct {
			Cookies []rawCookie `json:"cookies"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		raw = wrapper.Cookies
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, entry := range raw {
		cookie := entry.Cookie
		if cookie.Expires <= 0 {
			switch {
			case entry.ExpirationDate > 0:
				cookie.Expires = entry.ExpirationDate
			case entry.Expiry > 0:
				cookie.Expires = entry.Expiry
			}
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func unavailable(operation, message string, err error) error {
	return services.Wrap(services.ErrSessionUnavailable, "session", operation, message, err)
}
