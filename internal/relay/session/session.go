// Package session issues upload-session identifiers and derives the handoff
// URL a secondary device opens. Neither operation performs I/O, so the URL can
// be rendered as a QR code immediately after the id is minted.
package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Prefix marks relay session ids so they are recognizable in logs and URLs.
const Prefix = "up_"

// New returns a fresh session id. Each call yields a new id; uniqueness comes
// from a cryptographically random UUID rather than clock granularity.
func New() string {
	return Prefix + uuid.NewString()
}

// HandoffURL builds the absolute URL a secondary device opens for sid. The
// origin must be absolute (scheme + host) because the URL is rendered outside
// the originating page context, on another device.
func HandoffURL(origin, sid string) (string, error) {
	if sid == "" {
		return "", fmt.Errorf("session id must not be empty")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("origin must use http or https, got %q", origin)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin must include a host, got %q", origin)
	}
	return strings.TrimRight(origin, "/") + "/upload/" + url.PathEscape(sid), nil
}
