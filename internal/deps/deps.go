package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external tool batchenc relies on. Tool is the
// executable name looked up when Command, an explicit override, is empty.
type Requirement struct {
	Name        string
	Tool        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Source      Source
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands are resolved with the same bundled-first rules the encoder uses.
func CheckBinaries(requirements []Requirement, executableDir string) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		tool := strings.TrimSpace(req.Tool)
		if tool == "" && strings.TrimSpace(req.Command) == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved := Resolve(tool, req.Command, executableDir)
		status.Command = resolved.Path
		status.Source = resolved.Source
		if resolved.Err != nil {
			status.Detail = resolved.Err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", name)
	}
	return path, nil
}
