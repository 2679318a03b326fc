package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the cadence global configuration directory.
//
// Resolution:
//   - $CADENCE_CONFIG_HOME if set (explicit override)
//   - $XDG_CONFIG_HOME/cadence if set (respects XDG on any platform)
//   - %AppData%/cadence on Windows
//   - ~/.config/cadence on macOS and Linux
func Dir() string {
	// Explicit override
	if dir := os.Getenv("CADENCE_CONFIG_HOME"); dir != "" {
		return dir
	}

	// XDG override (works on any platform)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cadence")
	}

	// Windows: use AppData
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "cadence")
		}
	}

	// macOS and Linux: ~/.config/cadence
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cadence")
}
