package deps

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// reRequirementName matches the distribution name at the start of a
// requirement line ("requests[socks]>=2.0 ; python_version > '3'").
var reRequirementName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._\-]*)`)

// DirectNames reads the package names declared in a requirements file.
// Options (-r, -e, --hash ...), URLs and comments are ignored.
func DirectNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "\\"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		// "name @ https://..." direct references keep their name.
		if strings.Contains(line, "://") && !strings.Contains(line, " @ ") {
			continue
		}
		m := reRequirementName.FindStringSubmatch(line)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names, scanner.Err()
}

// isRequirementsFile reports whether a base name looks like a pip
// requirements file ("requirements.txt", "requirements-dev.txt", ...).
func isRequirementsFile(name string) bool {
	lname := strings.ToLower(name)
	return strings.HasPrefix(lname, "requirements") && strings.HasSuffix(lname, ".txt")
}
