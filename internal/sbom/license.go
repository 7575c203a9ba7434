package sbom

import (
	"regexp"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

var (
	reSPDXID         = regexp.MustCompile(`^[A-Za-z0-9.+\-]+$`)
	reSPDXExpression = regexp.MustCompile(`\s(AND|OR|WITH)\s`)
)

// cdxLicense renders a license as a CycloneDX license choice.
func cdxLicense(l model.License) map[string]any {
	if !l.IsObject() {
		expr := strings.TrimSpace(l.Expression)
		switch {
		case reSPDXExpression.MatchString(expr):
			return map[string]any{"expression": expr}
		case reSPDXID.MatchString(expr):
			return map[string]any{"license": map[string]any{"id": expr}}
		default:
			return map[string]any{"license": map[string]any{"name": expr}}
		}
	}
	if expr := l.Fields["expression"]; expr != "" {
		return map[string]any{"expression": expr}
	}
	lic := map[string]any{}
	if id := l.Fields["id"]; id != "" {
		lic["id"] = id
	} else if name := l.Fields["name"]; name != "" {
		lic["name"] = name
	}
	if u := l.Fields["url"]; u != "" {
		lic["url"] = u
	}
	if text := l.Fields["text"]; text != "" {
		lic["text"] = map[string]any{"content": text}
	}
	return map[string]any{"license": lic}
}

// cdxLicenseKey identifies a CycloneDX license choice for de-duplication.
func cdxLicenseKey(choice map[string]any) string {
	if expr := getString(choice, "expression"); expr != "" {
		return "expr:" + expr
	}
	lic := getMap(choice, "license")
	if lic == nil {
		return ""
	}
	if id := getString(lic, "id"); id != "" {
		return "id:" + id
	}
	return "name:" + getString(lic, "name")
}

// spdxExpression joins licenses into one SPDX license expression. Licenses
// without an SPDX identifier become LicenseRef- references.
func spdxExpression(licenses []model.License) string {
	var parts []string
	seen := map[string]bool{}
	for _, l := range licenses {
		term := spdxTerm(l)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		parts = append(parts, term)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	for i, p := range parts {
		if reSPDXExpression.MatchString(p) {
			parts[i] = "(" + p + ")"
		}
	}
	return strings.Join(parts, " AND ")
}

func spdxTerm(l model.License) string {
	text := strings.TrimSpace(l.Expression)
	if l.IsObject() {
		text = firstField(l.Fields, "expression", "id")
		if text == "" {
			if name := l.Fields["name"]; name != "" {
				return licenseRef(name)
			}
			return ""
		}
	}
	if text == "" {
		return ""
	}
	if reSPDXExpression.MatchString(text) || reSPDXID.MatchString(text) {
		return text
	}
	return licenseRef(text)
}

var reLicenseRefUnsafe = regexp.MustCompile(`[^A-Za-z0-9.\-]+`)

func licenseRef(name string) string {
	return "LicenseRef-" + strings.Trim(reLicenseRefUnsafe.ReplaceAllString(name, "-"), "-")
}

func firstField(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}
