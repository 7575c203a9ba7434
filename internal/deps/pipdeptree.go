package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

const (
	// DefaultPipdeptreeCommand prints the installed environment as a tree.
	DefaultPipdeptreeCommand = "pipdeptree --json-tree"
	// DefaultPipdeptreeTimeout bounds a single pipdeptree run.
	DefaultPipdeptreeTimeout = 2 * time.Minute
)

// PipdeptreeExpander runs pipdeptree against the current Python environment
// and walks its tree for the packages declared in a requirements file.
type PipdeptreeExpander struct {
	// Command is split shell-style; defaults to DefaultPipdeptreeCommand.
	Command string
	Timeout time.Duration
	Log     zerolog.Logger
}

func (e *PipdeptreeExpander) Name() string { return "pipdeptree" }

func (e *PipdeptreeExpander) Supports(lockfile string) bool {
	return isRequirementsFile(filepath.Base(lockfile))
}

func (e *PipdeptreeExpander) argv() ([]string, error) {
	command := strings.TrimSpace(e.Command)
	if command == "" {
		command = DefaultPipdeptreeCommand
	}
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid pipdeptree command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty pipdeptree command")
	}
	return args, nil
}

// CanExpand reports whether the configured command is on PATH.
func (e *PipdeptreeExpander) CanExpand() bool {
	args, err := e.argv()
	if err != nil {
		return false
	}
	_, err = exec.LookPath(args[0])
	return err == nil
}

func (e *PipdeptreeExpander) Expand(ctx context.Context, lockfile string) ([]model.DiscoveredDependency, error) {
	direct, err := DirectNames(lockfile)
	if err != nil {
		return nil, fmt.Errorf("cannot read direct requirements: %w", err)
	}
	if len(direct) == 0 {
		return nil, nil
	}

	args, err := e.argv()
	if err != nil {
		return nil, err
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultPipdeptreeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.Log.Debug().Str("expander", e.Name()).Strs("command", args).Msg("running")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = filepath.Dir(lockfile)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s", args[0], timeout)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	roots, err := ParseTree(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	return Walker{Ecosystem: ecosystem.PyPI, Log: e.Log}.Discover(selectRoots(roots, direct), direct), nil
}

// selectRoots keeps the tree roots that are direct requirements. pipdeptree
// reports the whole environment, including tools installed next to the
// project; when none of the roots match, the full forest is kept.
func selectRoots(roots []*Node, direct []string) []*Node {
	want := map[string]bool{}
	for _, name := range direct {
		want[ecosystem.Normalize(name, ecosystem.PyPI)] = true
	}
	var out []*Node
	for _, r := range roots {
		if r != nil && want[ecosystem.Normalize(r.Name, ecosystem.PyPI)] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return roots
	}
	return out
}

// Default returns the built-in expanders: the passive tree file first, then
// pipdeptree. Empty settings fall back to DefaultTreeFile,
// DefaultPipdeptreeCommand and DefaultPipdeptreeTimeout.
func Default(treeFile, command string, timeout time.Duration, log zerolog.Logger) *Registry {
	r := NewRegistry()
	r.Register(&TreeFileExpander{FileName: treeFile, Log: log})
	r.Register(&PipdeptreeExpander{Command: command, Timeout: timeout, Log: log})
	return r
}
