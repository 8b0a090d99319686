package session

import (
	"context"
	"time"

	"postline/internal/services"
)

// ErrUnavailable marks a session that could not be loaded or verified.
var ErrUnavailable = services.ErrSessionUnavailable

// Cookie is one entry from a saved browser cookie jar.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
}

// ExpiresAt returns the cookie expiry. Session cookies report the zero time.
func (c Cookie) ExpiresAt() time.Time {
	if c.Expires <= 0 {
		return time.Time{}
	}
	sec := int64(c.Expires)
	nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Expired reports whether the cookie expired before now.
func (c Cookie) Expired(now time.Time) bool {
	exp := c.ExpiresAt()
	return !exp.IsZero() && exp.Before(now)
}

// Handle is an opaque, reusable publishing session.
type Handle struct {
	Source   string
	Cookies  []Cookie
	LoadedAt time.Time
}

// Empty reports whether the handle carries no credentials.
func (h Handle) Empty() bool {
	return len(h.Cookies) == 0
}

// ExpiresAt returns the earliest expiry among the handle's persistent cookies.
func (h Handle) ExpiresAt() time.Time {
	var earliest time.Time
	for _, cookie := range h.Cookies {
		exp := cookie.ExpiresAt()
		if exp.IsZero() {
			continue
		}
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	return earliest
}

// Loader provides sessions to upload attempts.
type Loader interface {
	Load(ctx context.Context) (Handle, error)
	Verify(ctx context.Context, handle Handle) bool
}
