package sources

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// PyProjectSource reads authors and license from pyproject.toml, both the
// PEP 621 [project] table and the legacy [tool.poetry] table.
type PyProjectSource struct{}

func (s *PyProjectSource) Name() string  { return "pyproject" }
func (s *PyProjectSource) Priority() int { return 30 }

func (s *PyProjectSource) Supports(sctx Context) bool {
	return sctx.fileExists("pyproject.toml")
}

type pyprojectPerson struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type pyprojectFile struct {
	Project struct {
		Name        string            `toml:"name"`
		Authors     []pyprojectPerson `toml:"authors"`
		Maintainers []pyprojectPerson `toml:"maintainers"`
		// string (PEP 639) or table {text = "..."} / {file = "..."}
		License any `toml:"license"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Authors []string `toml:"authors"`
			License string   `toml:"license"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (s *PyProjectSource) Fetch(_ context.Context, sctx Context) (*model.MetadataRecord, error) {
	path := sctx.Path("pyproject.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc pyprojectFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rec := &model.MetadataRecord{Source: s.Name()}
	for _, p := range append(doc.Project.Authors, doc.Project.Maintainers...) {
		c := model.Contact{Name: strings.TrimSpace(p.Name), Email: strings.TrimSpace(p.Email)}
		if c.HasData() {
			rec.Authors = appendContact(rec.Authors, c)
		}
	}
	for _, a := range doc.Tool.Poetry.Authors {
		if c := parsePerson(a); c.HasData() {
			rec.Authors = appendContact(rec.Authors, c)
		}
	}

	switch lic := doc.Project.License.(type) {
	case string:
		if lic = strings.TrimSpace(lic); lic != "" {
			rec.Licenses = append(rec.Licenses, model.StringLicense(lic))
		}
	case map[string]any:
		if text, ok := lic["text"].(string); ok && strings.TrimSpace(text) != "" {
			rec.Licenses = append(rec.Licenses, model.StringLicense(strings.TrimSpace(text)))
		}
	}
	if len(rec.Licenses) == 0 && strings.TrimSpace(doc.Tool.Poetry.License) != "" {
		rec.Licenses = append(rec.Licenses, model.StringLicense(strings.TrimSpace(doc.Tool.Poetry.License)))
	}
	return rec, nil
}

func appendContact(list []model.Contact, c model.Contact) []model.Contact {
	if c.Email != "" {
		for _, existing := range list {
			if existing.Email == c.Email {
				return list
			}
		}
	}
	return append(list, c)
}
