// Package deps discovers transitive dependencies by walking a dependency tree
// produced by an external tool (pipdeptree) and records them for the SBOM.
package deps

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one package in a dependency tree.
type Node struct {
	Name     string  `json:"package_name"`
	Version  string  `json:"installed_version"`
	Children []*Node `json:"dependencies"`
}

// ParseTree decodes `pipdeptree --json-tree` output: a JSON array of root
// nodes, each nesting its own dependencies.
func ParseTree(data []byte) ([]*Node, error) {
	var roots []*Node
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("failed to parse dependency tree JSON: %w", err)
	}
	return roots, nil
}

// ReadTree parses a dependency tree file.
func ReadTree(path string) ([]*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTree(data)
}
