package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// DefaultAPIBaseURL is used when no api_base_url is configured.
const DefaultAPIBaseURL = "https://app.sbomify.com"

// APISource fetches component metadata from the sbomify API. It requires a
// token and a component id.
type APISource struct {
	Client *http.Client
}

func (s *APISource) Name() string  { return "sbomify-api" }
func (s *APISource) Priority() int { return 20 }

func (s *APISource) Supports(sctx Context) bool {
	return sctx.Get(KeyToken) != "" && sctx.Get(KeyComponentID) != ""
}

type apiContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type apiEntity struct {
	Name     string       `json:"name"`
	URL      []string     `json:"url"`
	Contacts []apiContact `json:"contacts"`
}

type apiMetadata struct {
	Supplier     *apiEntity      `json:"supplier"`
	Manufacturer *apiEntity      `json:"manufacturer"`
	Authors      []apiContact    `json:"authors"`
	Licenses     json.RawMessage `json:"licenses"`
}

func (s *APISource) Fetch(ctx context.Context, sctx Context) (*model.MetadataRecord, error) {
	base := sctx.Get(KeyAPIBaseURL)
	if base == "" {
		base = DefaultAPIBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/api/v1/sboms/component/" +
		url.PathEscape(sctx.Get(KeyComponentID)) + "/meta"

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sctx.Get(KeyToken))
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sbomify API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var meta apiMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	rec := &model.MetadataRecord{
		Supplier:     meta.Supplier.toModel(),
		Manufacturer: meta.Manufacturer.toModel(),
		Licenses:     decodeJSONLicenses(meta.Licenses),
		Source:       s.Name(),
	}
	for _, a := range meta.Authors {
		if c := a.toModel(); c.HasData() {
			rec.Authors = append(rec.Authors, c)
		}
	}
	return rec, nil
}

func (c apiContact) toModel() model.Contact {
	return contactDoc(c).toModel()
}

func (e *apiEntity) toModel() *model.Entity {
	if e == nil {
		return nil
	}
	doc := entityDoc{Name: e.Name, URL: e.URL}
	for _, c := range e.Contacts {
		doc.Contacts = append(doc.Contacts, contactDoc(c))
	}
	return doc.toModel()
}
