package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// PackageJSONSource reads author, contributors and license from package.json.
type PackageJSONSource struct{}

func (s *PackageJSONSource) Name() string  { return "package-json" }
func (s *PackageJSONSource) Priority() int { return 31 }

func (s *PackageJSONSource) Supports(sctx Context) bool {
	return sctx.fileExists("package.json")
}

type packageJSON struct {
	Author       json.RawMessage   `json:"author"`
	Contributors []json.RawMessage `json:"contributors"`
	License      json.RawMessage   `json:"license"`
	Licenses     json.RawMessage   `json:"licenses"`
}

func (s *PackageJSONSource) Fetch(_ context.Context, sctx Context) (*model.MetadataRecord, error) {
	path := sctx.Path("package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc packageJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rec := &model.MetadataRecord{Source: s.Name()}
	for _, raw := range append([]json.RawMessage{doc.Author}, doc.Contributors...) {
		if c, ok := decodeNpmPerson(raw); ok {
			rec.Authors = appendContact(rec.Authors, c)
		}
	}
	rec.Licenses = decodeJSONLicenses(doc.License)
	if len(rec.Licenses) == 0 {
		// Deprecated "licenses": [{"type": "MIT", "url": ...}]
		rec.Licenses = decodeJSONLicenses(doc.Licenses)
	}
	return rec, nil
}

// decodeNpmPerson handles both "Name <email> (url)" strings and
// {"name", "email", "url"} objects.
func decodeNpmPerson(raw json.RawMessage) (model.Contact, bool) {
	if len(raw) == 0 {
		return model.Contact{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		c := parsePerson(s)
		return c, c.HasData()
	}
	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		c := model.Contact{Name: strings.TrimSpace(obj.Name), Email: strings.TrimSpace(obj.Email)}
		return c, c.HasData()
	}
	return model.Contact{}, false
}
