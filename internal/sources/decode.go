package sources

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// stringList accepts either a scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if v := strings.TrimSpace(node.Value); v != "" {
			*s = stringList{v}
		}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// licenseList accepts a single license or a list; each entry is either a
// string or a mapping of string fields.
type licenseList []model.License

func (l *licenseList) UnmarshalYAML(node *yaml.Node) error {
	nodes := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		nodes = node.Content
	}
	var out []model.License
	for _, n := range nodes {
		switch n.Kind {
		case yaml.ScalarNode:
			if v := strings.TrimSpace(n.Value); v != "" {
				out = append(out, model.StringLicense(v))
			}
		case yaml.MappingNode:
			var fields map[string]string
			if err := n.Decode(&fields); err != nil {
				return err
			}
			lic := model.ObjectLicense(fields)
			if !lic.IsEmpty() {
				out = append(out, lic)
			}
		default:
			return fmt.Errorf("line %d: unsupported license entry", n.Line)
		}
	}
	*l = out
	return nil
}

type contactDoc struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
	Phone string `yaml:"phone" json:"phone"`
}

func (c contactDoc) toModel() model.Contact {
	return model.Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

type entityDoc struct {
	Name     string       `yaml:"name"`
	URL      stringList   `yaml:"url"`
	URLs     stringList   `yaml:"urls"`
	Contact  []contactDoc `yaml:"contact"`
	Contacts []contactDoc `yaml:"contacts"`
}

func (e *entityDoc) toModel() *model.Entity {
	if e == nil {
		return nil
	}
	out := &model.Entity{Name: strings.TrimSpace(e.Name)}
	for _, u := range append(append([]string{}, e.URL...), e.URLs...) {
		out.URLs = appendUniqueStr(out.URLs, strings.TrimSpace(u))
	}
	for _, c := range append(append([]contactDoc{}, e.Contact...), e.Contacts...) {
		if mc := c.toModel(); mc.HasData() {
			out.Contacts = append(out.Contacts, mc)
		}
	}
	if !out.HasData() {
		return nil
	}
	return out
}

// metadataDoc is the on-disk shape shared by the local config file and the
// catalog entries.
type metadataDoc struct {
	Supplier     *entityDoc   `yaml:"supplier"`
	Manufacturer *entityDoc   `yaml:"manufacturer"`
	Authors      []contactDoc `yaml:"authors"`
	Licenses     licenseList  `yaml:"licenses"`
	License      licenseList  `yaml:"license"`
}

func (d metadataDoc) toRecord(source string) *model.MetadataRecord {
	rec := &model.MetadataRecord{
		Supplier:     d.Supplier.toModel(),
		Manufacturer: d.Manufacturer.toModel(),
		Source:       source,
	}
	for _, a := range d.Authors {
		if c := a.toModel(); c.HasData() {
			rec.Authors = append(rec.Authors, c)
		}
	}
	rec.Licenses = append(rec.Licenses, d.Licenses...)
	rec.Licenses = append(rec.Licenses, d.License...)
	return rec
}

// decodeJSONLicenses handles the license shapes used by JSON APIs and
// package.json: a string, an object, or a list of either.
func decodeJSONLicenses(raw json.RawMessage) []model.License {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []model.License{model.StringLicense(s)}
		}
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		fields := map[string]string{}
		for k, v := range obj {
			if sv, ok := v.(string); ok && strings.TrimSpace(sv) != "" {
				fields[k] = strings.TrimSpace(sv)
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return []model.License{model.ObjectLicense(fields)}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []model.License
		for _, item := range list {
			out = append(out, decodeJSONLicenses(item)...)
		}
		return out
	}
	return nil
}

// rePersonString matches "Name <email> (url)" author strings used by npm,
// Cargo and Poetry.
var rePersonString = regexp.MustCompile(`^\s*([^<(]*?)\s*(?:<([^>]*)>)?\s*(?:\(([^)]*)\))?\s*$`)

// parsePerson splits an author string into a contact.
func parsePerson(s string) model.Contact {
	m := rePersonString.FindStringSubmatch(s)
	if m == nil {
		return model.Contact{Name: strings.TrimSpace(s)}
	}
	return model.Contact{Name: strings.TrimSpace(m[1]), Email: strings.TrimSpace(m[2])}
}

func appendUniqueStr(slice []string, s string) []string {
	if s == "" {
		return slice
	}
	for _, v := range slice {
		if v == s {
			return slice
		}
	}
	return append(slice, s)
}
