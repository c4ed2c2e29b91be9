package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir is ~/.symdex/logs, or a temp-dir equivalent when the
// home directory cannot be resolved (some CI images run without one).
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".symdex", "logs")
	}
	return filepath.Join(home, ".symdex", "logs")
}

// DefaultLogPath is the live log file under DefaultLogDir.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "symdex.log")
}

// FindLogFile resolves the file the logs command should read. An
// explicit path wins when given; otherwise the global default is used.
// Either way the file must already exist, since viewing an empty path
// would only mask a misconfigured writer.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Run `symdex serve` or any command with --debug first.\nExpected at: %s", globalPath)
}

// EnsureLogDir creates DefaultLogDir if missing.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}
