// Package deps reports availability of the external binaries scout drives.
//
// The daemon never bundles the scraping worker; it launches whatever binary
// the configuration names. These checks let status surfaces flag a missing
// or misconfigured worker before a session fails at launch time.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scout/internal/config"
)

// Status reports the availability of one external dependency.
type Status struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Check evaluates the external binaries the configuration references.
func Check(cfg *config.Config) []Status {
	if cfg == nil {
		return nil
	}
	return []Status{checkBinary("scraping worker", cfg.Worker.Binary)}
}

func checkBinary(name, command string) Status {
	command = strings.TrimSpace(command)
	status := Status{Name: name, Command: command}

	if command == "" {
		status.Detail = "command not configured"
		return status
	}

	// Paths are checked directly; bare names go through PATH resolution
	// the same way exec.Command would.
	if strings.ContainsRune(command, filepath.Separator) {
		info, err := os.Stat(command)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", command)
		case info.IsDir():
			status.Detail = fmt.Sprintf("%q is a directory", command)
		case info.Mode().Perm()&0o111 == 0:
			status.Detail = fmt.Sprintf("%q is not executable", command)
		default:
			status.Available = true
		}
		return status
	}

	if _, err := exec.LookPath(command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found in PATH", command)
		return status
	}
	status.Available = true
	return status
}
