package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// DependencyTrackDestination uploads CycloneDX BOMs to a Dependency-Track
// server, creating the project on first upload when AutoCreate is set.
type DependencyTrackDestination struct {
	URL         string
	APIKey      string
	ProjectUUID string
	// ProjectName and ProjectVersion fall back to the payload's component.
	ProjectName    string
	ProjectVersion string
	AutoCreate     bool
	Client         *http.Client
}

func (d *DependencyTrackDestination) Name() string { return "dependency-track" }

func (d *DependencyTrackDestination) IsConfigured() bool {
	return strings.TrimSpace(d.URL) != "" && strings.TrimSpace(d.APIKey) != ""
}

type dtrackBOMRequest struct {
	Project        string `json:"project,omitempty"`
	ProjectName    string `json:"projectName,omitempty"`
	ProjectVersion string `json:"projectVersion,omitempty"`
	AutoCreate     bool   `json:"autoCreate,omitempty"`
	BOM            string `json:"bom"`
}

func (d *DependencyTrackDestination) Execute(ctx context.Context, p Payload) (Result, error) {
	if p.Format != CycloneDX {
		return Failed(d.Name(), fmt.Sprintf("Dependency-Track only accepts CycloneDX, got %s", p.Format)), nil
	}

	body := dtrackBOMRequest{Project: d.ProjectUUID, AutoCreate: d.AutoCreate}
	if body.Project == "" {
		body.ProjectName = firstNonEmpty(d.ProjectName, p.ComponentName)
		body.ProjectVersion = firstNonEmpty(d.ProjectVersion, p.ComponentVersion)
		if body.ProjectName == "" {
			return Failed(d.Name(), "project UUID or project name is required"), nil
		}
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read SBOM: %w", err)
	}
	body.BOM = base64.StdEncoding.EncodeToString(data)
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	endpoint := strings.TrimRight(d.URL, "/") + "/api/v1/bom"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", d.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Token string `json:"token"`
	}
	if err := sendJSON(ctx, d.Client, req, &resp); err != nil {
		return Result{}, err
	}

	meta := map[string]string{}
	if body.Project != "" {
		meta["project"] = body.Project
	} else {
		meta["project_name"] = body.ProjectName
		if body.ProjectVersion != "" {
			meta["project_version"] = body.ProjectVersion
		}
	}
	return Succeeded(d.Name(), resp.Token, meta), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
