package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// DefaultSbomifyURL is the public sbomify instance.
const DefaultSbomifyURL = "https://app.sbomify.com"

// SbomifyDestination uploads the SBOM as an artifact of a sbomify component.
type SbomifyDestination struct {
	BaseURL     string
	Token       string
	ComponentID string
	Client      *http.Client
}

func (d *SbomifyDestination) Name() string { return "sbomify" }

func (d *SbomifyDestination) IsConfigured() bool {
	return strings.TrimSpace(d.Token) != "" && strings.TrimSpace(d.ComponentID) != ""
}

func (d *SbomifyDestination) Execute(ctx context.Context, p Payload) (Result, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read SBOM: %w", err)
	}
	base := strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
	if base == "" {
		base = DefaultSbomifyURL
	}
	endpoint := fmt.Sprintf("%s/api/v1/sboms/artifact/%s/%s", base, p.Format, url.PathEscape(d.ComponentID))

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var resp struct {
		ID string `json:"id"`
	}
	if err := sendJSON(ctx, d.Client, req, &resp); err != nil {
		return Result{}, err
	}
	return Succeeded(d.Name(), resp.ID, map[string]string{"component_id": d.ComponentID}), nil
}
