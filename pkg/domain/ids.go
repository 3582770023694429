package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ECID identifies an emergency contact. It is generated once when the contact
// is created and never changes afterwards.
type ECID string

// RID identifies a responsibility link. It is embedded in outbound email links,
// so it must stay URL-safe.
type RID string

// GreenID identifies the referring green user. It is supplied by the upstream
// system and only checked for shape here.
type GreenID string

// NewECID returns a fresh random contact identifier.
func NewECID() ECID {
	return ECID(uuid.NewString())
}

// NewRID returns a fresh link identifier: the URL-safe base64 encoding of a
// random UUID string.
func NewRID() RID {
	return RID(base64.URLEncoding.EncodeToString([]byte(uuid.NewString())))
}

// ParseECID validates a stored contact identifier.
func ParseECID(s string) (ECID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ECID %q: %w", s, err)
	}
	if parsed == uuid.Nil {
		return "", fmt.Errorf("invalid ECID: nil uuid")
	}
	return ECID(parsed.String()), nil
}

// ParseRID validates a link identifier produced by NewRID.
func ParseRID(s string) (RID, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid RID: %w", err)
	}
	if _, err := uuid.Parse(string(raw)); err != nil {
		return "", fmt.Errorf("invalid RID payload: %w", err)
	}
	return RID(s), nil
}

// ParseGreenID rejects empty ids and ids carrying whitespace or control
// characters. Anything else is the upstream system's business.
func ParseGreenID(s string) (GreenID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("green id is required")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("green id contains invalid character %q", r)
		}
	}
	return GreenID(s), nil
}

func (id ECID) String() string    { return string(id) }
func (id RID) String() string     { return string(id) }
func (id GreenID) String() string { return string(id) }

// IsNil reports whether the identifier is unset.
func (id ECID) IsNil() bool { return id == "" }
