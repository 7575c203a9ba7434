package deps

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

func node(name, version string, children ...*Node) *Node {
	return &Node{Name: name, Version: version, Children: children}
}

func names(found []model.DiscoveredDependency) []string {
	out := make([]string, 0, len(found))
	for _, d := range found {
		out = append(out, d.Name)
	}
	return out
}

func TestDiscoverSimpleTree(t *testing.T) {
	roots := []*Node{node("requests", "2.32.3", node("urllib3", "2.2.3"), node("certifi", "2024.8.30"))}

	found := Walker{Ecosystem: ecosystem.PyPI}.Discover(roots, []string{"requests"})
	require.Len(t, found, 2)
	assert.Equal(t, model.DiscoveredDependency{
		Name: "urllib3", Version: "2.2.3", PURL: "pkg:pypi/urllib3@2.2.3",
		Parent: "requests", Depth: 1, Ecosystem: ecosystem.PyPI,
	}, found[0])
	assert.Equal(t, "certifi", found[1].Name)
	assert.Equal(t, "requests", found[1].Parent)
	assert.Equal(t, 1, found[1].Depth)
}

func TestDiscoverSkipsDirectDependenciesButDescends(t *testing.T) {
	roots := []*Node{
		node("flask", "3.0.3",
			node("Jinja2", "3.1.4", node("MarkupSafe", "2.1.5")),
			node("click", "8.1.7"),
		),
	}

	// jinja2 is declared directly under a different spelling.
	found := Walker{Ecosystem: ecosystem.PyPI}.Discover(roots, []string{"flask", "jinja2"})
	assert.Equal(t, []string{"MarkupSafe", "click"}, names(found))
	assert.Equal(t, "Jinja2", found[0].Parent)
	assert.Equal(t, 2, found[0].Depth)
}

func TestDiscoverFirstEncounterWins(t *testing.T) {
	shared := func() *Node { return node("idna", "3.10") }
	roots := []*Node{
		node("a", "1", node("b", "1", shared())),
		node("c", "1", shared()),
	}

	found := Walker{Ecosystem: ecosystem.PyPI}.Discover(roots, []string{"a", "c"})
	require.Equal(t, []string{"b", "idna"}, names(found))
	assert.Equal(t, "b", found[1].Parent)
	assert.Equal(t, 2, found[1].Depth)

	// Reversing root order changes attribution.
	found = Walker{Ecosystem: ecosystem.PyPI}.Discover([]*Node{roots[1], roots[0]}, []string{"a", "c"})
	require.Equal(t, []string{"idna", "b"}, names(found))
	assert.Equal(t, "c", found[0].Parent)
	assert.Equal(t, 1, found[0].Depth)
}

func TestDiscoverInvariants(t *testing.T) {
	roots := []*Node{
		node("root", "1", node("x", "1", node("y", "1", node("x", "1")))),
		node("y", "1"),
		nil,
	}

	found := Walker{Ecosystem: ecosystem.PyPI}.Discover(roots, nil)
	seen := map[ecosystem.Key]bool{}
	for _, d := range found {
		assert.Greater(t, d.Depth, 0)
		assert.NotEmpty(t, d.Parent)
		assert.False(t, seen[d.Key()], "duplicate %s", d.Key())
		seen[d.Key()] = true
	}
	assert.Equal(t, []string{"x", "y"}, names(found))
}

func TestParseTree(t *testing.T) {
	data := []byte(`[
	  {"key": "requests", "package_name": "requests", "installed_version": "2.32.3", "required_version": null,
	   "dependencies": [
	     {"key": "urllib3", "package_name": "urllib3", "installed_version": "2.2.3", "required_version": ">=1.21.1", "dependencies": []}
	   ]}
	]`)
	roots, err := ParseTree(data)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "requests", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "2.2.3", roots[0].Children[0].Version)

	_, err = ParseTree([]byte(`{"not": "a list"}`))
	assert.Error(t, err)
}

func TestDirectNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	content := `# pinned
requests==2.32.3 \
    --hash=sha256:abc
Flask[async]>=3.0 ; python_version >= "3.9"  # web
-r other.txt
-e git+https://example.com/repo.git#egg=thing
https://example.com/wheel.whl
mylib @ https://example.com/mylib.tar.gz
requests>=2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := DirectNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests", "Flask", "mylib"}, got)
}

func writeTreeFixture(t *testing.T, dir string, roots []*Node) {
	t.Helper()
	data, err := json.Marshal(roots)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultTreeFile), data, 0o644))
}

func TestTreeFileExpander(t *testing.T) {
	dir := t.TempDir()
	lockfile := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(lockfile, []byte("requests\n"), 0o644))

	e := &TreeFileExpander{}
	assert.True(t, e.Supports(lockfile))
	assert.True(t, e.Supports("uv.lock"))
	assert.False(t, e.Supports("package-lock.json"))

	_, err := e.Expand(context.Background(), lockfile)
	assert.ErrorIs(t, err, ErrTreeUnavailable)

	writeTreeFixture(t, dir, []*Node{node("requests", "2.32.3", node("certifi", "2024.8.30"))})
	found, err := e.Expand(context.Background(), lockfile)
	require.NoError(t, err)
	assert.Equal(t, []string{"certifi"}, names(found))
}

func TestPipdeptreeExpander(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	dir := t.TempDir()
	lockfile := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(lockfile, []byte("requests==2.32.3\n"), 0o644))
	writeTreeFixture(t, dir, []*Node{
		node("pip", "24.2"),
		node("requests", "2.32.3", node("urllib3", "2.2.3")),
	})

	e := &PipdeptreeExpander{Command: "cat " + DefaultTreeFile}
	assert.True(t, e.Supports(lockfile))
	assert.False(t, e.Supports(filepath.Join(dir, "uv.lock")))
	require.True(t, e.CanExpand())

	found, err := e.Expand(context.Background(), lockfile)
	require.NoError(t, err)
	assert.Equal(t, []string{"urllib3"}, names(found))
}

func TestPipdeptreeExpanderTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	lockfile := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(lockfile, []byte("requests\n"), 0o644))

	e := &PipdeptreeExpander{Command: "sleep 5", Timeout: 50 * time.Millisecond}
	_, err := e.Expand(context.Background(), lockfile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestPipdeptreeExpanderMissingCommand(t *testing.T) {
	e := &PipdeptreeExpander{Command: "definitely-not-a-real-binary-xyz --json-tree"}
	assert.False(t, e.CanExpand())

	e = &PipdeptreeExpander{Command: `"unterminated`}
	assert.False(t, e.CanExpand())
}

func TestRegistryFor(t *testing.T) {
	reg := Default("", "definitely-not-a-real-binary-xyz", 0, zeroLog())
	got := reg.For("requirements.txt")
	require.Len(t, got, 1)
	assert.Equal(t, "pipdeptree-file", got[0].Name())
	assert.Empty(t, reg.For("Cargo.lock"))
	assert.Len(t, reg.List(), 2)
}

func TestRegistryDetect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"uv.lock", "requirements-dev.txt", "Cargo.lock", "pipdeptree.json", "requirements.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "requirements.d.txt"), 0o755))

	got := Default("", "definitely-not-a-real-binary-xyz", 0, zeroLog()).Detect(dir)
	want := []string{
		filepath.Join(dir, "requirements-dev.txt"),
		filepath.Join(dir, "requirements.txt"),
		filepath.Join(dir, "uv.lock"),
	}
	assert.Equal(t, want, got)
	assert.Nil(t, NewRegistry().Detect(filepath.Join(dir, "missing")))
}

func TestDefaultTreeFileSetting(t *testing.T) {
	dir := t.TempDir()
	req := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(req, []byte("requests\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree.json"), []byte(`[{"package_name": "requests", "installed_version": "2.32.3",
	  "dependencies": [{"package_name": "idna", "installed_version": "3.10", "dependencies": []}]}]`), 0o644))

	reg := Default("tree.json", "definitely-not-a-real-binary-xyz", 0, zeroLog())
	exp := reg.For(req)
	require.Len(t, exp, 1)
	found, err := exp[0].Expand(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"idna"}, names(found))
}

func TestWriteTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	require.NoError(t, WriteTree(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	found := []model.DiscoveredDependency{{Name: "urllib3", Version: "2.2.3", Parent: "requests", Depth: 1, Ecosystem: ecosystem.PyPI}}
	require.NoError(t, WriteTree(path, found))
	var back []model.DiscoveredDependency
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, found, back)
}

func zeroLog() zerolog.Logger { return zerolog.Nop() }
