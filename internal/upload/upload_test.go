package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDestination struct {
	name       string
	configured bool
	result     Result
	err        error
	panicWith  any
	// checkPanics makes IsConfigured panic.
	checkPanics bool
	calls       int
}

func (f *fakeDestination) Name() string { return f.name }

func (f *fakeDestination) IsConfigured() bool {
	if f.checkPanics {
		panic("settings not loaded")
	}
	return f.configured
}

func (f *fakeDestination) Execute(ctx context.Context, p Payload) (Result, error) {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.result, f.err
}

func writeSBOM(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bom.cdx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bomFormat":"CycloneDX","specVersion":"1.6"}`), 0o644))
	return path
}

func TestNewPayload(t *testing.T) {
	p, err := NewPayload("bom.json", "CycloneDX", "app", "1.0")
	require.NoError(t, err)
	assert.Equal(t, CycloneDX, p.Format)

	_, err = NewPayload("bom.json", "swid", "", "")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewPayload("", SPDX, "", "")
	assert.Error(t, err)
}

func TestNewResultExclusivity(t *testing.T) {
	_, err := NewResult(true, "d", "id", "boom", nil)
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = NewResult(false, "d", "", "", nil)
	assert.ErrorIs(t, err, ErrInvalidResult)

	r, err := NewResult(false, "d", "", "boom", nil)
	require.NoError(t, err)
	assert.False(t, r.Success)

	assert.NoError(t, Succeeded("d", "id", nil).Validate())
	assert.NoError(t, Failed("d", "").Validate())
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	ok1 := &fakeDestination{name: "ok1", configured: true, result: Succeeded("ok1", "a1", nil)}
	broken := &fakeDestination{name: "broken", configured: true, err: errors.New("connection refused")}
	panics := &fakeDestination{name: "panics", configured: true, panicWith: "nil map"}
	invalid := &fakeDestination{name: "invalid", configured: true, result: Result{Success: true, Error: "both"}}
	off := &fakeDestination{name: "off", configured: false}
	ok2 := &fakeDestination{name: "ok2", configured: true, result: Succeeded("whatever", "a2", nil)}

	o := NewOrchestrator(zerolog.Nop())
	for _, d := range []*fakeDestination{ok1, broken, panics, invalid, off, ok2} {
		o.Register(d)
	}

	p, err := NewPayload(writeSBOM(t), CycloneDX, "", "")
	require.NoError(t, err)
	results := o.DispatchAll(context.Background(), p)

	require.Len(t, results, 5)
	var names []string
	for _, r := range results {
		names = append(names, r.Destination)
		assert.NoError(t, r.Validate())
	}
	assert.Equal(t, []string{"ok1", "broken", "panics", "invalid", "ok2"}, names)

	assert.True(t, results[0].Success)
	assert.Equal(t, "connection refused", results[1].Error)
	assert.Contains(t, results[2].Error, "panic")
	assert.False(t, results[3].Success)
	assert.True(t, results[4].Success)
	assert.Equal(t, "a2", results[4].ArtifactID)
	assert.Equal(t, 0, off.calls)
}

func TestPanickingConfigurationCheckIsIsolated(t *testing.T) {
	bad := &fakeDestination{name: "bad", checkPanics: true}
	good := &fakeDestination{name: "good", configured: true, result: Succeeded("good", "g1", nil)}
	o := NewOrchestrator(zerolog.Nop())
	o.Register(bad)
	o.Register(good)

	p, err := NewPayload(writeSBOM(t), CycloneDX, "", "")
	require.NoError(t, err)

	results := o.DispatchAll(context.Background(), p)
	require.Len(t, results, 2)
	assert.Equal(t, "bad", results[0].Destination)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "panicked")
	assert.True(t, results[1].Success)
	assert.Equal(t, 0, bad.calls)

	assert.Len(t, o.Configured(), 1)

	r, err := o.DispatchOne(context.Background(), p, "bad")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "panicked")
}

func TestDispatchOne(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop())
	o.Register(&fakeDestination{name: "off"})
	o.Register(&fakeDestination{name: "on", configured: true, result: Succeeded("on", "x", nil)})

	p, err := NewPayload(writeSBOM(t), SPDX, "", "")
	require.NoError(t, err)

	_, err = o.DispatchOne(context.Background(), p, "missing")
	assert.ErrorIs(t, err, ErrUnknownDestination)

	r, err := o.DispatchOne(context.Background(), p, "off")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "not configured")

	r, err = o.DispatchOne(context.Background(), p, "on")
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Len(t, o.Destinations(), 2)
	assert.Len(t, o.Configured(), 1)
}

func TestSbomifyDestination(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/sboms/artifact/{format}/{component}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad token"}`))
			return
		}
		assert.Equal(t, "cyclonedx", vars["format"])
		assert.Equal(t, "comp-1", vars["component"])
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sbom-42"})
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	defer srv.Close()

	p, err := NewPayload(writeSBOM(t), CycloneDX, "", "")
	require.NoError(t, err)

	d := &SbomifyDestination{BaseURL: srv.URL, Token: "secret", ComponentID: "comp-1"}
	require.True(t, d.IsConfigured())
	r, err := d.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "sbom-42", r.ArtifactID)

	d.Token = "wrong"
	_, err = d.Execute(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	assert.False(t, (&SbomifyDestination{Token: "x"}).IsConfigured())
}

func TestDependencyTrackDestination(t *testing.T) {
	sbomPath := writeSBOM(t)
	raw, err := os.ReadFile(sbomPath)
	require.NoError(t, err)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/bom", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dt-key", r.Header.Get("X-Api-Key"))
		var body dtrackBOMRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app", body.ProjectName)
		assert.Equal(t, "2.0", body.ProjectVersion)
		assert.True(t, body.AutoCreate)
		assert.Equal(t, base64.StdEncoding.EncodeToString(raw), body.BOM)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}).Methods(http.MethodPut)
	srv := httptest.NewServer(router)
	defer srv.Close()

	d := &DependencyTrackDestination{URL: srv.URL, APIKey: "dt-key", AutoCreate: true}
	require.True(t, d.IsConfigured())

	p, err := NewPayload(sbomPath, CycloneDX, "app", "2.0")
	require.NoError(t, err)
	r, err := d.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "tok-1", r.ArtifactID)
	assert.Equal(t, "app", r.Metadata["project_name"])

	spdx, err := NewPayload(sbomPath, SPDX, "app", "2.0")
	require.NoError(t, err)
	r, err = d.Execute(context.Background(), spdx)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "CycloneDX")

	anonymous, err := NewPayload(sbomPath, CycloneDX, "", "")
	require.NoError(t, err)
	r, err = d.Execute(context.Background(), anonymous)
	require.NoError(t, err)
	assert.False(t, r.Success)
}

func TestDirectoryDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	d := &DirectoryDestination{Dir: dir}
	require.True(t, d.IsConfigured())

	p, err := NewPayload(writeSBOM(t), CycloneDX, "", "")
	require.NoError(t, err)

	first, err := d.Execute(context.Background(), p)
	require.NoError(t, err)
	second, err := d.Execute(context.Background(), p)
	require.NoError(t, err)

	assert.NotEqual(t, first.ArtifactID, second.ArtifactID)
	assert.Equal(t, ".json", filepath.Ext(first.ArtifactID))
	data, err := os.ReadFile(filepath.Join(dir, first.ArtifactID))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CycloneDX")

	assert.False(t, (&DirectoryDestination{}).IsConfigured())
}

func TestS3Destination(t *testing.T) {
	d := NewS3Destination(S3Config{Endpoint: "localhost:9000", Bucket: "sboms", AccessKey: "a", SecretKey: "s", Prefix: "/team/"})
	assert.True(t, d.IsConfigured())
	assert.Equal(t, "s3", d.Name())

	key := d.ObjectKey(Payload{Path: "/tmp/out/bom.cdx.json", ComponentName: "app", ComponentVersion: "1.0"})
	assert.Equal(t, "team/app/1.0/bom.cdx.json", key)
	assert.Equal(t, "team/bom.json", d.ObjectKey(Payload{Path: "bom.json"}))

	assert.False(t, NewS3Destination(S3Config{Endpoint: "localhost:9000", Bucket: "sboms"}).IsConfigured())
}
