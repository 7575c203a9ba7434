package sbom

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// spdxDocument is an SPDX 2.x JSON document.
type spdxDocument struct {
	raw map[string]any
}

func newSPDX(raw map[string]any) *spdxDocument {
	return &spdxDocument{raw: raw}
}

func (d *spdxDocument) Format() Format { return SPDX }

func (d *spdxDocument) packages() []map[string]any {
	return getMaps(d.raw, "packages")
}

func spdxPURL(pkg map[string]any) string {
	for _, ref := range getMaps(pkg, "externalRefs") {
		if getString(ref, "referenceType") == "purl" {
			return getString(ref, "referenceLocator")
		}
	}
	return ""
}

func (d *spdxDocument) Components() []*model.Component {
	pkgs := d.packages()
	out := make([]*model.Component, 0, len(pkgs))
	for i, pkg := range pkgs {
		c := &model.Component{
			Name:    getString(pkg, "name"),
			Version: getString(pkg, "versionInfo"),
			PURL:    spdxPURL(pkg),
			Type:    strings.ToLower(getString(pkg, "primaryPackagePurpose")),
			Ref:     i,
		}
		for _, cs := range getMaps(pkg, "checksums") {
			alg, ok := model.ParseHashAlgorithm(getString(cs, "algorithm"))
			if !ok {
				continue
			}
			c.Hashes = append(c.Hashes, model.Hash{Algorithm: alg, Value: strings.ToLower(getString(cs, "checksumValue"))})
		}
		out = append(out, c)
	}
	return out
}

func (d *spdxDocument) SyncHashes(components []*model.Component) {
	pkgs := d.packages()
	for _, c := range components {
		if c.Ref < 0 || c.Ref >= len(pkgs) {
			continue
		}
		pkg := pkgs[c.Ref]
		var checksums []any
		for _, cs := range getMaps(pkg, "checksums") {
			if _, ok := model.ParseHashAlgorithm(getString(cs, "algorithm")); !ok {
				checksums = append(checksums, cs)
			}
		}
		for _, h := range c.Hashes {
			checksums = append(checksums, map[string]any{"algorithm": h.Algorithm.SPDX(), "checksumValue": h.Value})
		}
		if len(checksums) > 0 {
			pkg["checksums"] = checksums
		}
	}
}

// describedID returns the SPDXID of the package the document describes.
func (d *spdxDocument) describedID() string {
	if items, ok := d.raw["documentDescribes"].([]any); ok && len(items) > 0 {
		if s, ok := items[0].(string); ok {
			return s
		}
	}
	docID := getString(d.raw, "SPDXID")
	if docID == "" {
		docID = "SPDXRef-DOCUMENT"
	}
	for _, rel := range getMaps(d.raw, "relationships") {
		if getString(rel, "spdxElementId") == docID && getString(rel, "relationshipType") == "DESCRIBES" {
			return getString(rel, "relatedSpdxElement")
		}
	}
	return ""
}

func (d *spdxDocument) described() map[string]any {
	id := d.describedID()
	if id == "" {
		return nil
	}
	for _, pkg := range d.packages() {
		if getString(pkg, "SPDXID") == id {
			return pkg
		}
	}
	return nil
}

// spdxActor renders "Organization: name (email)" or "Person: ...".
func spdxActor(kind, name, email string) string {
	s := kind + ": " + name
	if email != "" {
		s += " (" + email + ")"
	}
	return s
}

func entityActor(e *model.Entity) string {
	name := e.Name
	email := ""
	for _, c := range e.Contacts {
		if c.Email != "" {
			email = c.Email
			break
		}
	}
	if name == "" {
		if len(e.Contacts) == 0 || e.Contacts[0].Name == "" {
			return ""
		}
		return spdxActor("Person", e.Contacts[0].Name, e.Contacts[0].Email)
	}
	return spdxActor("Organization", name, email)
}

func (d *spdxDocument) ApplyMetadata(rec *model.MetadataRecord) []string {
	if !rec.HasData() {
		return nil
	}
	var applied []string
	pkg := d.described()

	if pkg != nil && rec.Supplier.HasData() && isUnset(getString(pkg, "supplier")) {
		if actor := entityActor(rec.Supplier); actor != "" {
			pkg["supplier"] = actor
			applied = append(applied, model.FieldSupplier)
		}
	}
	if pkg != nil && rec.Manufacturer.HasData() && isUnset(getString(pkg, "originator")) {
		if actor := entityActor(rec.Manufacturer); actor != "" {
			pkg["originator"] = actor
			applied = append(applied, model.FieldManufacturer)
		}
	}

	if len(rec.Authors) > 0 {
		info := ensureMap(d.raw, "creationInfo")
		existing := map[string]bool{}
		creators, _ := info["creators"].([]any)
		for _, c := range creators {
			if s, ok := c.(string); ok {
				existing[s] = true
			}
		}
		added := false
		for _, a := range rec.Authors {
			name := a.Name
			if name == "" {
				name = a.Email
			}
			actor := spdxActor("Person", name, a.Email)
			if existing[actor] {
				continue
			}
			existing[actor] = true
			creators = append(creators, actor)
			added = true
		}
		if added {
			info["creators"] = creators
			applied = append(applied, model.FieldAuthors)
		}
	}

	if pkg != nil && len(rec.Licenses) > 0 && isUnset(getString(pkg, "licenseDeclared")) {
		if expr := spdxExpression(rec.Licenses); expr != "" {
			pkg["licenseDeclared"] = expr
			applied = append(applied, model.FieldLicenses)
		}
	}
	return applied
}

var reSPDXIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9.\-]+`)

func spdxID(name, version string) string {
	return "SPDXRef-Package-" + strings.Trim(reSPDXIDUnsafe.ReplaceAllString(name+"-"+version, "-"), "-")
}

func (d *spdxDocument) AddDependencies(deps []model.DiscoveredDependency) int {
	ids := map[string]bool{}
	present := map[ecosystem.Key]bool{}
	byName := map[string]string{}
	pkgs := d.packages()
	comps := d.Components()

	ecos := map[ecosystem.Ecosystem]bool{}
	for _, dep := range deps {
		ecos[dep.Ecosystem] = true
	}
	for i, c := range comps {
		id := getString(pkgs[i], "SPDXID")
		ids[id] = true
		for eco := range ecos {
			present[ecosystem.KeyOf(c.Name, c.Version, eco)] = true
			n := string(eco) + ":" + ecosystem.Normalize(c.Name, eco)
			if _, ok := byName[n]; !ok {
				byName[n] = id
			}
		}
	}
	rootID := d.describedID()

	added := 0
	for _, dep := range deps {
		if present[dep.Key()] {
			continue
		}
		present[dep.Key()] = true

		id := spdxID(dep.Name, dep.Version)
		base := id
		for i := 2; ids[id]; i++ {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		ids[id] = true

		purl := dep.PURL
		if purl == "" {
			purl = ecosystem.PURL(dep.Ecosystem, dep.Name, dep.Version)
		}
		appendItem(d.raw, "packages", map[string]any{
			"SPDXID":           id,
			"name":             dep.Name,
			"versionInfo":      dep.Version,
			"downloadLocation": "NOASSERTION",
			"filesAnalyzed":    false,
			"externalRefs": []any{map[string]any{
				"referenceCategory": "PACKAGE-MANAGER",
				"referenceType":     "purl",
				"referenceLocator":  purl,
			}},
		})
		added++

		parentID := rootID
		if p, ok := byName[string(dep.Ecosystem)+":"+ecosystem.Normalize(dep.Parent, dep.Ecosystem)]; ok && p != "" {
			parentID = p
		}
		n := string(dep.Ecosystem) + ":" + ecosystem.Normalize(dep.Name, dep.Ecosystem)
		if _, ok := byName[n]; !ok {
			byName[n] = id
		}
		if parentID != "" {
			appendItem(d.raw, "relationships", map[string]any{
				"spdxElementId":      parentID,
				"relationshipType":   "DEPENDS_ON",
				"relatedSpdxElement": id,
			})
		}
	}
	return added
}

func (d *spdxDocument) RootComponent() (string, string) {
	if pkg := d.described(); pkg != nil {
		return getString(pkg, "name"), getString(pkg, "versionInfo")
	}
	return getString(d.raw, "name"), ""
}

func (d *spdxDocument) Save(path string) error {
	return writeJSON(path, d.raw)
}
