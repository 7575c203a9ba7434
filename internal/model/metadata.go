// Package model defines the internal data structures used by the enricher.
package model

import "strings"

// Field names used as FieldSources keys.
const (
	FieldSupplier     = "supplier"
	FieldManufacturer = "manufacturer"
	FieldAuthors      = "authors"
	FieldLicenses     = "licenses"
)

// Contact is a person or mailbox attached to an entity or listed as author.
type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// HasData reports whether the contact names someone. A phone number alone
// does not count.
func (c Contact) HasData() bool {
	return strings.TrimSpace(c.Name) != "" || strings.TrimSpace(c.Email) != ""
}

// Entity is an organization (supplier or manufacturer).
type Entity struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	URLs     []string  `json:"url,omitempty" yaml:"url,omitempty"`
	Contacts []Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// HasData reports whether the entity carries a name, a URL or a contact with data.
func (e *Entity) HasData() bool {
	if e == nil {
		return false
	}
	if strings.TrimSpace(e.Name) != "" || len(e.URLs) > 0 {
		return true
	}
	for _, c := range e.Contacts {
		if c.HasData() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. A nil entity clones to nil.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	return &Entity{
		Name:     e.Name,
		URLs:     cloneSlice(e.URLs),
		Contacts: cloneSlice(e.Contacts),
	}
}

// merge combines two entities that both have data. The receiver wins on the
// name; URLs and contacts are unioned with the receiver's items first.
func (e *Entity) merge(other *Entity) *Entity {
	out := e.Clone()
	if strings.TrimSpace(out.Name) == "" {
		out.Name = other.Name
	}
	for _, u := range other.URLs {
		out.URLs = appendUniqueStr(out.URLs, u)
	}
	for _, c := range other.Contacts {
		out.Contacts = appendContact(out.Contacts, c)
	}
	return out
}

// License is either a plain license string (SPDX id or expression) or a
// license object with id/name/url/text fields.
type License struct {
	Expression string
	Fields     map[string]string
}

// StringLicense builds a plain license value.
func StringLicense(expr string) License {
	return License{Expression: expr}
}

// ObjectLicense builds a structured license value.
func ObjectLicense(fields map[string]string) License {
	m := make(map[string]string, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return License{Fields: m}
}

// IsObject reports whether the license is the structured form.
func (l License) IsObject() bool { return l.Fields != nil }

// IsEmpty reports whether the license carries no text at all.
func (l License) IsEmpty() bool {
	if l.IsObject() {
		for _, v := range l.Fields {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(l.Expression) == ""
}

// Equal is structural equality. A string license never equals an object one.
func (l License) Equal(other License) bool {
	if l.IsObject() != other.IsObject() {
		return false
	}
	if !l.IsObject() {
		return l.Expression == other.Expression
	}
	if len(l.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range l.Fields {
		if ov, ok := other.Fields[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the license for logs and for formats that only take text.
func (l License) String() string {
	if !l.IsObject() {
		return l.Expression
	}
	for _, k := range []string{"id", "expression", "name", "url"} {
		if v := l.Fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func (l License) clone() License {
	if l.IsObject() {
		return ObjectLicense(l.Fields)
	}
	return l
}

// MetadataRecord holds organizational metadata produced by one source, or by
// merging several. FieldSources maps a field name to the source that filled
// it in during a merge; fields coming from the record's own Source are left
// unattributed.
//
// Records are values: Merge and Clone never share slices or maps with their
// inputs.
type MetadataRecord struct {
	Supplier     *Entity
	Manufacturer *Entity
	Authors      []Contact
	Licenses     []License
	Source       string
	FieldSources map[string]string
}

// HasData reports whether at least one of supplier, manufacturer, authors or
// licenses is non-empty.
func (r *MetadataRecord) HasData() bool {
	if r == nil {
		return false
	}
	return r.Supplier.HasData() || r.Manufacturer.HasData() ||
		len(r.Authors) > 0 || len(r.Licenses) > 0
}

// Clone returns a deep copy of the record.
func (r MetadataRecord) Clone() MetadataRecord {
	out := MetadataRecord{
		Supplier:     r.Supplier.Clone(),
		Manufacturer: r.Manufacturer.Clone(),
		Authors:      cloneSlice(r.Authors),
		Source:       r.Source,
	}
	if r.Licenses != nil {
		out.Licenses = make([]License, 0, len(r.Licenses))
		for _, l := range r.Licenses {
			out.Licenses = append(out.Licenses, l.clone())
		}
	}
	if r.FieldSources != nil {
		out.FieldSources = make(map[string]string, len(r.FieldSources))
		for k, v := range r.FieldSources {
			out.FieldSources[k] = v
		}
	}
	return out
}

// Merge returns a new record combining r (higher precedence) with other
// (lower precedence):
//   - a field present on r is kept verbatim; supplier and manufacturer merge
//     recursively when both sides have data (name kept, urls and contacts unioned)
//   - authors are unioned by email, licenses by structural equality
//   - a field that was empty on r and filled from other is attributed to
//     other.Source in FieldSources
//
// Merge is asymmetric and only meaningful when applied in priority order.
func (r MetadataRecord) Merge(other MetadataRecord) MetadataRecord {
	out := r.Clone()

	attribute := func(field string) {
		if out.FieldSources == nil {
			out.FieldSources = map[string]string{}
		}
		out.FieldSources[field] = other.Source
	}

	out.Supplier = mergeEntity(r.Supplier, other.Supplier, func() { attribute(FieldSupplier) })
	out.Manufacturer = mergeEntity(r.Manufacturer, other.Manufacturer, func() { attribute(FieldManufacturer) })

	if len(other.Authors) > 0 {
		if len(out.Authors) == 0 {
			attribute(FieldAuthors)
		}
		for _, a := range other.Authors {
			out.Authors = appendContact(out.Authors, a)
		}
	}

	if len(other.Licenses) > 0 {
		if len(out.Licenses) == 0 {
			attribute(FieldLicenses)
		}
		for _, l := range other.Licenses {
			out.Licenses = appendUniqueLicense(out.Licenses, l.clone())
		}
	}

	return out
}

func mergeEntity(left, right *Entity, filled func()) *Entity {
	switch {
	case left.HasData() && right.HasData():
		return left.merge(right)
	case left.HasData():
		return left.Clone()
	case right.HasData():
		filled()
		return right.Clone()
	default:
		return left.Clone()
	}
}

// appendContact adds c unless a contact with the same email is already
// present. Contacts without email are always appended.
func appendContact(list []Contact, c Contact) []Contact {
	if c.Email != "" {
		for _, existing := range list {
			if existing.Email == c.Email {
				return list
			}
		}
	}
	return append(list, c)
}

func appendUniqueLicense(list []License, l License) []License {
	for _, existing := range list {
		if existing.Equal(l) {
			return list
		}
	}
	return append(list, l)
}

func appendUniqueStr(slice []string, s string) []string {
	for _, v := range slice {
		if v == s {
			return slice
		}
	}
	return append(slice, s)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
