package deps

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// WriteTree writes the discovered dependencies as a JSON array to path, or
// to stdout when path is "-".
//
// Example output:
//
//	[
//	  {
//	    "name": "urllib3",
//	    "version": "2.2.3",
//	    "purl": "pkg:pypi/urllib3@2.2.3",
//	    "parent": "requests",
//	    "depth": 1,
//	    "ecosystem": "pypi"
//	  }
//	]
func WriteTree(path string, found []model.DiscoveredDependency) error {
	if found == nil {
		// Emit an empty array rather than null
		found = []model.DiscoveredDependency{}
	}
	data, err := json.MarshalIndent(found, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dependency list JSON: %w", err)
	}

	if path == "-" {
		_, err = os.Stdout.Write(data)
		if err == nil {
			_, err = os.Stdout.WriteString("\n")
		}
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0644)
}
