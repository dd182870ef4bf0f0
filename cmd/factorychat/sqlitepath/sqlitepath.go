// Package sqlitepath resolves where the client keeps its SQLite state
// database.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the database file created inside the .factorychat/ directory.
const FileName = "factorychat.db"

// ResolveSQLitePath picks the state database path. An explicit override wins,
// then the FACTORYCHAT_SQLITE and FACTORYCHAT_DB environment variables, then
// an existing database in one of the well-known locations. When nothing
// exists yet the database is placed in stateDir.
func ResolveSQLitePath(override, stateDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("FACTORYCHAT_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("FACTORYCHAT_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if stateDir == "" {
		return "", errors.New("could not find factorychat SQLite database; pass --sqlite")
	}

	return filepath.Join(stateDir, FileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		filepath.Join(".factorychat", FileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".factorychat", FileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "factorychat", FileName),
		}, candidates...)
	}

	return candidates
}
