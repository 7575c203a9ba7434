package sbom

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func load(t *testing.T, name string) Document {
	t.Helper()
	doc, err := Load(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return doc
}

// saveAndDecode writes doc to a temp file and decodes it back as generic JSON.
func saveAndDecode(t *testing.T, doc Document) (map[string]any, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.json")
	if err := doc.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read output file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v\nContent:\n%s", err, string(data))
	}
	return raw, string(data)
}

func find(comps []*model.Component, name string) *model.Component {
	for _, c := range comps {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sampleRecord() *model.MetadataRecord {
	return &model.MetadataRecord{
		Supplier: &model.Entity{Name: "Acme Corp", URLs: []string{"https://acme.example"},
			Contacts: []model.Contact{{Name: "Ops", Email: "ops@acme.example"}}},
		Manufacturer: &model.Entity{Name: "Acme Manufacturing"},
		Authors:      []model.Contact{{Name: "Jane Doe", Email: "jane@acme.example"}},
		Licenses:     []model.License{model.StringLicense("MIT"), model.StringLicense("Apache-2.0")},
		Source:       "local-config",
	}
}

// ============================================================
// Detection
// ============================================================

func TestLoadDetectsFormat(t *testing.T) {
	if f := load(t, "app.cdx.json").Format(); f != CycloneDX {
		t.Errorf("cdx fixture detected as %q", f)
	}
	if f := load(t, "app.spdx.json").Format(); f != SPDX {
		t.Errorf("spdx fixture detected as %q", f)
	}

	if _, err := Parse([]byte(`{"hello": "world"}`)); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

// ============================================================
// CycloneDX
// ============================================================

func TestCycloneDXComponents(t *testing.T) {
	doc := load(t, "app.cdx.json")
	comps := doc.Components()

	if len(comps) != 3 {
		t.Fatalf("expected 3 components (nested included), got %d", len(comps))
	}
	req := find(comps, "requests")
	if req == nil || len(req.Hashes) != 1 {
		t.Fatalf("requests: expected one known hash, got %+v", req)
	}
	if req.Hashes[0].Algorithm != model.SHA1 || req.Hashes[0].Value != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Errorf("requests hash = %+v", req.Hashes[0])
	}
	if find(comps, "django-contrib-thing") == nil {
		t.Error("nested component not listed")
	}

	name, version := doc.RootComponent()
	if name != "app" || version != "1.0.0" {
		t.Errorf("RootComponent = (%q, %q)", name, version)
	}
}

func TestCycloneDXSyncHashesPreservesUnknownFields(t *testing.T) {
	doc := load(t, "app.cdx.json")
	comps := doc.Components()
	django := find(comps, "Django")
	django.Hashes = append(django.Hashes, model.Hash{Algorithm: model.SHA256, Value: helloSHA256})
	doc.SyncHashes(comps)

	raw, text := saveAndDecode(t, doc)
	if _, ok := raw["x-vendor-extension"]; !ok {
		t.Error("unknown top-level field was dropped")
	}
	if !strings.Contains(text, "12345678901234567890") {
		t.Error("large number lost precision")
	}
	if !strings.Contains(text, `"SHA-999"`) {
		t.Error("hash entry with unknown algorithm was dropped")
	}
	if !strings.Contains(text, `"custom"`) {
		t.Error("component properties were dropped")
	}

	back, err := Parse([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	got := find(back.Components(), "Django")
	if len(got.Hashes) != 1 || got.Hashes[0].Value != helloSHA256 {
		t.Errorf("Django hashes after round trip = %+v", got.Hashes)
	}
}

func TestCycloneDXApplyMetadata(t *testing.T) {
	doc := load(t, "app.cdx.json")
	applied := doc.ApplyMetadata(sampleRecord())

	want := []string{model.FieldSupplier, model.FieldManufacturer, model.FieldAuthors, model.FieldLicenses}
	if strings.Join(applied, ",") != strings.Join(want, ",") {
		t.Errorf("applied = %v, want %v", applied, want)
	}

	raw, _ := saveAndDecode(t, doc)
	meta := raw["metadata"].(map[string]any)
	supplier := meta["supplier"].(map[string]any)
	if supplier["name"] != "Acme Corp" {
		t.Errorf("supplier = %v", supplier)
	}
	if _, ok := meta["manufacturer"]; !ok {
		t.Error("1.6 documents use metadata.manufacturer")
	}
	root := meta["component"].(map[string]any)
	if _, ok := root["supplier"]; !ok {
		t.Error("root component supplier not set")
	}
	licenses := meta["licenses"].([]any)
	if len(licenses) != 2 {
		t.Errorf("expected MIT kept and Apache-2.0 added, got %v", licenses)
	}

	// A second application finds everything already present.
	if again := doc.ApplyMetadata(sampleRecord()); len(again) != 0 {
		t.Errorf("second ApplyMetadata applied %v", again)
	}
	if none := doc.ApplyMetadata(nil); none != nil {
		t.Errorf("nil record applied %v", none)
	}
}

func TestCycloneDXAddDependencies(t *testing.T) {
	doc := load(t, "app.cdx.json")
	deps := []model.DiscoveredDependency{
		{Name: "urllib3", Version: "2.2.3", PURL: "pkg:pypi/urllib3@2.2.3", Parent: "requests", Depth: 1, Ecosystem: ecosystem.PyPI},
		{Name: "brotli", Version: "1.1.0", Parent: "urllib3", Depth: 2, Ecosystem: ecosystem.PyPI},
		{Name: "django", Version: "5.1.1", Parent: "app", Depth: 1, Ecosystem: ecosystem.PyPI},
		{Name: "orphan", Version: "1.0", Parent: "unknown-parent", Depth: 3, Ecosystem: ecosystem.PyPI},
	}

	if added := doc.AddDependencies(deps); added != 3 {
		t.Fatalf("added = %d, want 3 (django already present)", added)
	}
	if again := doc.AddDependencies(deps); again != 0 {
		t.Errorf("second AddDependencies added %d", again)
	}

	raw, _ := saveAndDecode(t, doc)
	edges := map[string][]string{}
	for _, it := range raw["dependencies"].([]any) {
		dep := it.(map[string]any)
		for _, child := range dep["dependsOn"].([]any) {
			edges[dep["ref"].(string)] = append(edges[dep["ref"].(string)], child.(string))
		}
	}
	if got := edges["pkg:pypi/requests@2.32.3"]; len(got) != 1 || got[0] != "pkg:pypi/urllib3@2.2.3" {
		t.Errorf("requests edges = %v", got)
	}
	if got := edges["pkg:pypi/urllib3@2.2.3"]; len(got) != 1 || got[0] != "pkg:pypi/brotli@1.1.0" {
		t.Errorf("urllib3 edges = %v", got)
	}
	rootEdges := edges["pkg:pypi/app@1.0.0"]
	if rootEdges[len(rootEdges)-1] != "pkg:pypi/orphan@1.0" {
		t.Errorf("dependency with unknown parent should hang off the root, got %v", rootEdges)
	}
}

// ============================================================
// SPDX
// ============================================================

func TestSPDXComponentsAndHashes(t *testing.T) {
	doc := load(t, "app.spdx.json")
	comps := doc.Components()
	if len(comps) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(comps))
	}
	req := find(comps, "requests")
	if req.PURL != "pkg:pypi/requests@2.32.3" || len(req.Hashes) != 0 {
		t.Errorf("requests = %+v", req)
	}

	req.Hashes = append(req.Hashes, model.Hash{Algorithm: model.SHA256, Value: helloSHA256})
	doc.SyncHashes(comps)

	_, text := saveAndDecode(t, doc)
	if !strings.Contains(text, `"ADLER32"`) {
		t.Error("checksum with unknown algorithm was dropped")
	}
	if !strings.Contains(text, `"SHA256"`) || !strings.Contains(text, helloSHA256) {
		t.Error("SHA256 checksum not written with the SPDX spelling")
	}

	name, version := doc.RootComponent()
	if name != "app" || version != "1.0.0" {
		t.Errorf("RootComponent = (%q, %q)", name, version)
	}
}

func TestSPDXApplyMetadata(t *testing.T) {
	doc := load(t, "app.spdx.json")
	applied := doc.ApplyMetadata(sampleRecord())
	if len(applied) != 4 {
		t.Errorf("applied = %v, want all four fields", applied)
	}

	raw, _ := saveAndDecode(t, doc)
	app := raw["packages"].([]any)[0].(map[string]any)
	if app["supplier"] != "Organization: Acme Corp (ops@acme.example)" {
		t.Errorf("supplier = %v", app["supplier"])
	}
	if app["originator"] != "Organization: Acme Manufacturing" {
		t.Errorf("originator = %v", app["originator"])
	}
	if app["licenseDeclared"] != "MIT AND Apache-2.0" {
		t.Errorf("licenseDeclared = %v", app["licenseDeclared"])
	}
	creators := raw["creationInfo"].(map[string]any)["creators"].([]any)
	if len(creators) != 2 || creators[1] != "Person: Jane Doe (jane@acme.example)" {
		t.Errorf("creators = %v", creators)
	}
}

func TestSPDXAddDependencies(t *testing.T) {
	doc := load(t, "app.spdx.json")
	deps := []model.DiscoveredDependency{
		{Name: "urllib3", Version: "2.2.3", Parent: "requests", Depth: 1, Ecosystem: ecosystem.PyPI},
		{Name: "Requests", Version: "2.32.3", Parent: "app", Depth: 1, Ecosystem: ecosystem.PyPI},
	}
	if added := doc.AddDependencies(deps); added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	raw, _ := saveAndDecode(t, doc)
	found := false
	for _, it := range raw["relationships"].([]any) {
		rel := it.(map[string]any)
		if rel["spdxElementId"] == "SPDXRef-Package-requests" &&
			rel["relationshipType"] == "DEPENDS_ON" &&
			rel["relatedSpdxElement"] == "SPDXRef-Package-urllib3-2.2.3" {
			found = true
		}
	}
	if !found {
		t.Errorf("DEPENDS_ON relationship from requests to urllib3 missing: %v", raw["relationships"])
	}
}

func TestSPDXExpression(t *testing.T) {
	tests := []struct {
		in   []model.License
		want string
	}{
		{[]model.License{model.StringLicense("MIT")}, "MIT"},
		{[]model.License{model.StringLicense("MIT OR Apache-2.0"), model.StringLicense("BSD-3-Clause")}, "(MIT OR Apache-2.0) AND BSD-3-Clause"},
		{[]model.License{model.ObjectLicense(map[string]string{"name": "Acme Proprietary"})}, "LicenseRef-Acme-Proprietary"},
		{[]model.License{model.StringLicense("MIT"), model.ObjectLicense(map[string]string{"id": "MIT"})}, "MIT"},
	}
	for _, tt := range tests {
		if got := spdxExpression(tt.in); got != tt.want {
			t.Errorf("spdxExpression(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
