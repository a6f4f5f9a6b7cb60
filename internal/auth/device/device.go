// Package device derives a display label and a coarse fingerprint from the
// User-Agent header for session bookkeeping.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

type Service struct {
	fingerprintEnabled bool
}

func NewService(fingerprintEnabled bool) *Service {
	return &Service{fingerprintEnabled: fingerprintEnabled}
}

// ParseUserAgent returns a label such as "Chrome on Windows 10".
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
}

// ComputeFingerprint hashes browser, major version, OS and platform so that
// patch-level browser updates keep the same fingerprint.
func (s *Service) ComputeFingerprint(raw string) string {
	if !s.fingerprintEnabled {
		return ""
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	sum := sha256.Sum256([]byte(strings.Join([]string{browser, major, ua.OS(), ua.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether the stored and current fingerprints
// match, and whether a mismatch should be treated as drift.
func (s *Service) CompareFingerprints(stored, current string) (matched bool, drift bool) {
	if stored == current {
		return true, false
	}
	return false, stored != "" && current != ""
}
