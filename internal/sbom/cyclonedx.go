package sbom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// cdxDocument is a CycloneDX JSON document (specVersion 1.3 through 1.6).
type cdxDocument struct {
	raw map[string]any
	// nodes holds every component object, nested ones included, in
	// document order. Component.Ref indexes into it.
	nodes   []map[string]any
	indexes map[ecosystem.Ecosystem]cdxIndex
}

func newCycloneDX(raw map[string]any) *cdxDocument {
	d := &cdxDocument{raw: raw}
	var walk func(parent map[string]any)
	walk = func(parent map[string]any) {
		for _, c := range getMaps(parent, "components") {
			d.nodes = append(d.nodes, c)
			walk(c)
		}
	}
	walk(raw)
	return d
}

func (d *cdxDocument) Format() Format { return CycloneDX }

// minorVersion returns the minor part of specVersion ("1.6" -> 6).
func (d *cdxDocument) minorVersion() int {
	_, minor, _ := strings.Cut(getString(d.raw, "specVersion"), ".")
	n, err := strconv.Atoi(minor)
	if err != nil {
		return 0
	}
	return n
}

func (d *cdxDocument) Components() []*model.Component {
	out := make([]*model.Component, 0, len(d.nodes))
	for i, node := range d.nodes {
		c := &model.Component{
			Name:    getString(node, "name"),
			Version: getString(node, "version"),
			PURL:    getString(node, "purl"),
			Type:    getString(node, "type"),
			Ref:     i,
		}
		if group := getString(node, "group"); group != "" && strings.HasPrefix(c.PURL, "pkg:npm/") {
			c.Name = group + "/" + c.Name
		}
		for _, h := range getMaps(node, "hashes") {
			alg, ok := model.ParseHashAlgorithm(getString(h, "alg"))
			if !ok {
				continue
			}
			c.Hashes = append(c.Hashes, model.Hash{Algorithm: alg, Value: strings.ToLower(getString(h, "content"))})
		}
		out = append(out, c)
	}
	return out
}

func (d *cdxDocument) SyncHashes(components []*model.Component) {
	for _, c := range components {
		if c.Ref < 0 || c.Ref >= len(d.nodes) {
			continue
		}
		node := d.nodes[c.Ref]
		var hashes []any
		// Entries with algorithms we do not model are kept as they are.
		for _, h := range getMaps(node, "hashes") {
			if _, ok := model.ParseHashAlgorithm(getString(h, "alg")); !ok {
				hashes = append(hashes, h)
			}
		}
		for _, h := range c.Hashes {
			hashes = append(hashes, map[string]any{"alg": h.Algorithm.CycloneDX(), "content": h.Value})
		}
		if len(hashes) > 0 {
			node["hashes"] = hashes
		}
	}
}

func (d *cdxDocument) ApplyMetadata(rec *model.MetadataRecord) []string {
	if !rec.HasData() {
		return nil
	}
	meta := ensureMap(d.raw, "metadata")
	root := getMap(meta, "component")
	var applied []string

	if rec.Supplier.HasData() {
		set := false
		if getMap(meta, "supplier") == nil {
			meta["supplier"] = cdxEntity(rec.Supplier)
			set = true
		}
		if root != nil && getMap(root, "supplier") == nil {
			root["supplier"] = cdxEntity(rec.Supplier)
			set = true
		}
		if set {
			applied = append(applied, model.FieldSupplier)
		}
	}

	if rec.Manufacturer.HasData() {
		// CycloneDX 1.6 renamed metadata.manufacture to manufacturer.
		key := "manufacture"
		if d.minorVersion() >= 6 {
			key = "manufacturer"
		}
		if getMap(meta, key) == nil {
			meta[key] = cdxEntity(rec.Manufacturer)
			applied = append(applied, model.FieldManufacturer)
		}
	}

	if len(rec.Authors) > 0 && len(getMaps(meta, "authors")) == 0 {
		var authors []any
		for _, a := range rec.Authors {
			authors = append(authors, cdxContact(a))
		}
		meta["authors"] = authors
		applied = append(applied, model.FieldAuthors)
	}

	if len(rec.Licenses) > 0 {
		seen := map[string]bool{}
		for _, choice := range getMaps(meta, "licenses") {
			seen[cdxLicenseKey(choice)] = true
		}
		added := false
		for _, l := range rec.Licenses {
			choice := cdxLicense(l)
			key := cdxLicenseKey(choice)
			if seen[key] {
				continue
			}
			seen[key] = true
			appendItem(meta, "licenses", choice)
			added = true
		}
		if added {
			applied = append(applied, model.FieldLicenses)
		}
	}
	return applied
}

func cdxEntity(e *model.Entity) map[string]any {
	out := map[string]any{}
	if e.Name != "" {
		out["name"] = e.Name
	}
	if len(e.URLs) > 0 {
		urls := make([]any, 0, len(e.URLs))
		for _, u := range e.URLs {
			urls = append(urls, u)
		}
		out["url"] = urls
	}
	var contacts []any
	for _, c := range e.Contacts {
		if c.HasData() {
			contacts = append(contacts, cdxContact(c))
		}
	}
	if len(contacts) > 0 {
		out["contact"] = contacts
	}
	return out
}

func cdxContact(c model.Contact) map[string]any {
	out := map[string]any{}
	if c.Name != "" {
		out["name"] = c.Name
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Phone != "" {
		out["phone"] = c.Phone
	}
	return out
}

func (d *cdxDocument) AddDependencies(deps []model.DiscoveredDependency) int {
	refs := map[string]bool{}
	for _, node := range d.nodes {
		if ref := getString(node, "bom-ref"); ref != "" {
			refs[ref] = true
		}
	}
	rootRef := ""
	if root := getMap(getMap(d.raw, "metadata"), "component"); root != nil {
		rootRef = getString(root, "bom-ref")
	}

	added := 0
	for _, dep := range deps {
		idx := d.index(dep.Ecosystem)
		if _, ok := idx.byKey[dep.Key()]; ok {
			continue
		}

		purl := dep.PURL
		if purl == "" {
			purl = ecosystem.PURL(dep.Ecosystem, dep.Name, dep.Version)
		}
		ref := purl
		for i := 2; refs[ref]; i++ {
			ref = fmt.Sprintf("%s#%d", purl, i)
		}
		refs[ref] = true

		node := map[string]any{
			"type":    "library",
			"bom-ref": ref,
			"name":    dep.Name,
			"version": dep.Version,
			"purl":    purl,
		}
		appendItem(d.raw, "components", node)
		d.nodes = append(d.nodes, node)
		for eco, ix := range d.indexes {
			ix.add(dep.Name, dep.Version, eco, ref)
		}
		added++

		parentRef := rootRef
		if p, ok := idx.byName[ecosystem.Normalize(dep.Parent, dep.Ecosystem)]; ok && p != "" {
			parentRef = p
		}
		d.ensureDependency(ref)
		if parentRef != "" {
			d.addEdge(parentRef, ref)
		}
	}
	return added
}

type cdxIndex struct {
	byKey  map[ecosystem.Key]string
	byName map[string]string // normalized name -> bom-ref of the first match
}

// index maps the current components by identity for one ecosystem.
func (d *cdxDocument) index(eco ecosystem.Ecosystem) cdxIndex {
	if idx, ok := d.indexes[eco]; ok {
		return idx
	}
	idx := cdxIndex{byKey: map[ecosystem.Key]string{}, byName: map[string]string{}}
	for _, c := range d.Components() {
		idx.add(c.Name, c.Version, eco, getString(d.nodes[c.Ref], "bom-ref"))
	}
	if d.indexes == nil {
		d.indexes = map[ecosystem.Ecosystem]cdxIndex{}
	}
	d.indexes[eco] = idx
	return idx
}

func (ix cdxIndex) add(name, version string, eco ecosystem.Ecosystem, ref string) {
	ix.byKey[ecosystem.KeyOf(name, version, eco)] = ref
	n := ecosystem.Normalize(name, eco)
	if _, ok := ix.byName[n]; !ok {
		ix.byName[n] = ref
	}
}

func (d *cdxDocument) dependency(ref string) map[string]any {
	for _, dep := range getMaps(d.raw, "dependencies") {
		if getString(dep, "ref") == ref {
			return dep
		}
	}
	return nil
}

func (d *cdxDocument) ensureDependency(ref string) map[string]any {
	if dep := d.dependency(ref); dep != nil {
		return dep
	}
	dep := map[string]any{"ref": ref, "dependsOn": []any{}}
	appendItem(d.raw, "dependencies", dep)
	return dep
}

func (d *cdxDocument) addEdge(parent, child string) {
	dep := d.ensureDependency(parent)
	items, _ := dep["dependsOn"].([]any)
	for _, it := range items {
		if s, _ := it.(string); s == child {
			return
		}
	}
	dep["dependsOn"] = append(items, child)
}

func (d *cdxDocument) RootComponent() (string, string) {
	root := getMap(getMap(d.raw, "metadata"), "component")
	if root == nil {
		return "", ""
	}
	return getString(root, "name"), getString(root, "version")
}

func (d *cdxDocument) Save(path string) error {
	return writeJSON(path, d.raw)
}
