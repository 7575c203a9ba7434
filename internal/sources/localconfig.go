package sources

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// localConfigNames are tried in order when no override is configured.
// JSON is a subset of YAML, so one decoder serves all three.
var localConfigNames = []string{"sbomify.yaml", "sbomify.yml", "sbomify.json"}

// LocalConfigSource reads metadata from a config file in the project:
//
//	supplier:
//	  name: Acme Corp
//	  url: [https://acme.example]
//	  contact:
//	    - {name: Ops, email: ops@acme.example}
//	authors:
//	  - {name: Jane Doe, email: jane@acme.example}
//	licenses: [MIT]
type LocalConfigSource struct{}

func (s *LocalConfigSource) Name() string  { return "local-config" }
func (s *LocalConfigSource) Priority() int { return 10 }

func (s *LocalConfigSource) Supports(sctx Context) bool {
	return s.resolve(sctx) != ""
}

func (s *LocalConfigSource) resolve(sctx Context) string {
	if override := sctx.Get(KeyLocalConfig); override != "" {
		if sctx.fileExists(override) {
			return sctx.Path(override)
		}
		return ""
	}
	for _, name := range localConfigNames {
		if sctx.fileExists(name) {
			return sctx.Path(name)
		}
	}
	return ""
}

func (s *LocalConfigSource) Fetch(_ context.Context, sctx Context) (*model.MetadataRecord, error) {
	path := s.resolve(sctx)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc metadataDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.toRecord(s.Name()), nil
}
