// Package sbom loads CycloneDX and SPDX JSON documents, applies enrichment to
// them and writes them back. Documents are held as generic JSON so fields the
// enricher does not know survive a load/save round trip.
package sbom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// ErrUnknownFormat is returned for JSON that is neither CycloneDX nor SPDX.
var ErrUnknownFormat = errors.New("unrecognised SBOM format")

// Format names a document format.
type Format string

const (
	CycloneDX Format = "cyclonedx"
	SPDX      Format = "spdx"
)

// Document is a loaded SBOM.
type Document interface {
	Format() Format
	// Components returns the package components in document order. The
	// returned values are views; SyncHashes writes their hashes back.
	Components() []*model.Component
	SyncHashes(components []*model.Component)
	// ApplyMetadata fills document fields the record has data for and the
	// document lacks. It returns the record fields that were applied.
	ApplyMetadata(rec *model.MetadataRecord) []string
	// AddDependencies records discovered dependencies that are not yet in
	// the document and returns how many were added.
	AddDependencies(deps []model.DiscoveredDependency) int
	RootComponent() (name, version string)
	Save(path string) error
}

// Load reads an SBOM file and detects its format.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes an SBOM document.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse SBOM JSON: %w", err)
	}

	switch {
	case getString(raw, "bomFormat") == "CycloneDX":
		return newCycloneDX(raw), nil
	case getString(raw, "spdxVersion") != "":
		return newSPDX(raw), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// writeJSON marshals v as indented JSON and writes it to path (or stdout if "-").
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal SBOM JSON: %w", err)
	}

	if path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ---- generic JSON helpers ----

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func getMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// ensureMap returns m[key], creating it when missing.
func ensureMap(m map[string]any, key string) map[string]any {
	if v := getMap(m, key); v != nil {
		return v
	}
	v := map[string]any{}
	m[key] = v
	return v
}

func getMaps(m map[string]any, key string) []map[string]any {
	items, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if mm, ok := it.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

func appendItem(m map[string]any, key string, item any) {
	items, _ := m[key].([]any)
	m[key] = append(items, item)
}

func isUnset(s string) bool {
	return s == "" || s == "NOASSERTION" || s == "NONE"
}
