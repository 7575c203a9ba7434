// Package upload dispatches an enriched SBOM to every configured
// destination and reports one result per destination.
package upload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFormat means a payload was built with an unknown format tag.
	ErrInvalidFormat = errors.New("invalid SBOM format")
	// ErrUnknownDestination means a destination was requested by a name
	// nothing was registered under.
	ErrUnknownDestination = errors.New("unknown destination")
	// ErrInvalidResult means a result claimed success and failure at once,
	// or failure without a message.
	ErrInvalidResult = errors.New("invalid upload result")
)

// Format is the SBOM document format.
type Format string

const (
	CycloneDX Format = "cyclonedx"
	SPDX      Format = "spdx"
)

// ParseFormat accepts "cyclonedx" or "spdx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CycloneDX, SPDX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// Payload is one upload request.
type Payload struct {
	Path             string // SBOM file on disk
	Format           Format
	ComponentName    string // optional
	ComponentVersion string // optional
}

// NewPayload validates the format and builds a payload.
func NewPayload(path string, format Format, name, version string) (Payload, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return Payload{}, err
	}
	if strings.TrimSpace(path) == "" {
		return Payload{}, fmt.Errorf("payload path is required")
	}
	return Payload{Path: path, Format: f, ComponentName: name, ComponentVersion: version}, nil
}
