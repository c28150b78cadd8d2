package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const dataDirName = "seth"

// DefaultDataDir finds the user's default data directory for seth. The
// directory itself is not created.
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// On Windows ConfigDir and DataDir share the same path.
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("user data directory not found: %w", err)
		}
		return filepath.Join(configDir, dataDirName), nil
	case "darwin", "dragonfly", "freebsd", "illumos", "ios", "linux", "netbsd",
		"openbsd", "solaris":
		// XDG_DATA_HOME, falling back to $HOME/.local/share
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, dataDirName), nil
		}
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("user data directory not found: home directory not set")
		}
		return filepath.Join(home, ".local", "share", dataDirName), nil
	default: // js/wasm, plan9
		return "", errors.New("user data directory not found")
	}
}
