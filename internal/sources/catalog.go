package sources

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile maps ecosystem -> package name -> metadata.
type catalogFile map[string]map[string]metadataDoc

// CatalogSource looks the component up in a local catalog of well-known
// packages: the embedded one, extended by catalog_file when configured.
// Results are memoized in Cache for the lifetime of the source.
type CatalogSource struct {
	Cache Cache

	once    sync.Once
	loadErr error
	entries map[string]metadataDoc // key: ecosystem + ":" + normalized name
}

// NewCatalogSource creates a catalog source owning the given cache.
func NewCatalogSource(cache Cache) *CatalogSource {
	if cache == nil {
		cache = NewCache()
	}
	return &CatalogSource{Cache: cache}
}

func (s *CatalogSource) Name() string  { return "catalog" }
func (s *CatalogSource) Priority() int { return 50 }

func (s *CatalogSource) Supports(sctx Context) bool {
	return sctx.Get(KeyComponentName) != ""
}

func (s *CatalogSource) Fetch(_ context.Context, sctx Context) (*model.MetadataRecord, error) {
	key := catalogKey(catalogEcosystem(sctx), sctx.Get(KeyComponentName))

	if rec, ok := s.Cache.Get(key); ok {
		return cloneRecord(rec), nil
	}

	s.once.Do(func() { s.loadErr = s.load(sctx) })
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	var rec *model.MetadataRecord
	if doc, ok := s.entries[key]; ok {
		rec = doc.toRecord(s.Name())
	}
	s.Cache.Add(key, rec)
	return cloneRecord(rec), nil
}

func (s *CatalogSource) load(sctx Context) error {
	s.entries = map[string]metadataDoc{}
	if err := s.merge(builtinCatalog); err != nil {
		return fmt.Errorf("builtin catalog: %w", err)
	}
	if extra := sctx.Get(KeyCatalogFile); extra != "" {
		data, err := os.ReadFile(sctx.Path(extra))
		if err != nil {
			return fmt.Errorf("read catalog %s: %w", extra, err)
		}
		if err := s.merge(data); err != nil {
			return fmt.Errorf("parse catalog %s: %w", extra, err)
		}
	}
	return nil
}

// merge adds entries from data; later files override earlier ones per package.
func (s *CatalogSource) merge(data []byte) error {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return err
	}
	for ecoName, pkgs := range cf {
		eco := ecosystem.Parse(ecoName)
		for name, doc := range pkgs {
			s.entries[catalogKey(eco, name)] = doc
		}
	}
	return nil
}

// catalogEcosystem returns the configured ecosystem, or the one owning the
// first manifest found in the working directory.
func catalogEcosystem(sctx Context) ecosystem.Ecosystem {
	if name := sctx.Get(KeyEcosystem); name != "" {
		return ecosystem.Parse(name)
	}
	entries, err := os.ReadDir(sctx.WorkDir)
	if err != nil {
		return ecosystem.Generic
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if eco, ok := ecosystem.ForManifest(e.Name()); ok {
			return eco
		}
	}
	return ecosystem.Generic
}

func catalogKey(eco ecosystem.Ecosystem, name string) string {
	return string(eco) + ":" + ecosystem.Normalize(name, eco)
}

func cloneRecord(rec *model.MetadataRecord) *model.MetadataRecord {
	if rec == nil {
		return nil
	}
	c := rec.Clone()
	return &c
}
