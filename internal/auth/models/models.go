package models

import (
	"time"

	id "estekhdam/pkg/domain"
)

// FlashKind selects how a flash message is styled.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashInfo    FlashKind = "info"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// Session is a server-side login. The cookie only carries a signed reference
// to it, so logging out takes effect immediately.
type Session struct {
	ID                    id.SessionID `json:"id"`
	UserID                id.UserID    `json:"user_id"`
	Role                  id.Role      `json:"role"`
	Username              string       `json:"username"`
	DeviceDisplayName     string       `json:"device_display_name"`
	DeviceFingerprintHash string       `json:"device_fingerprint_hash"`
	ClientIP              string       `json:"client_ip"`
	Flashes               []Flash      `json:"flashes,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	ExpiresAt             time.Time    `json:"expires_at"`
	LastSeenAt            time.Time    `json:"last_seen_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string
	Session *Session
}

// LoginFailures counts failed logins for one username and client IP pair
// within a window that starts at the first failure.
type LoginFailures struct {
	Key         string     `json:"key"`
	Count       int        `json:"count"`
	FirstAt     time.Time  `json:"first_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func (l *LoginFailures) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}
