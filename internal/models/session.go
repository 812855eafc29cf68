package models

import "time"

// Cookie is one browser cookie captured from an authenticated context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // seconds since epoch, 0 for session cookies
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// Session holds the authentication state of one browser context.
// A unit of work owns its Session value; it is never shared between units.
type Session struct {
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// IsStale returns true if the session is empty or older than maxAge.
func (s *Session) IsStale(now time.Time, maxAge time.Duration) bool {
	if s == nil || len(s.Cookies) == 0 {
		return true
	}
	if maxAge <= 0 || s.SavedAt.IsZero() {
		return false
	}
	return now.Sub(s.SavedAt) > maxAge
}

// Clone returns a deep copy so callers can hand a session to a unit without aliasing.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{SavedAt: s.SavedAt}
	out.Cookies = append([]Cookie(nil), s.Cookies...)
	return out
}

// Credentials is the simulator login used by the interactive login fallback.
type Credentials struct {
	Email    string
	Password string
}

// Empty reports whether either field is missing.
func (c Credentials) Empty() bool {
	return c.Email == "" || c.Password == ""
}
