/**
 * Configuration Defaults.
 *
 * Sane out-of-the-box values and per-user path resolution, so the engine
 * runs without requiring the shell to supply every setting up front.
 */

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const appDirName = ".kusanaginokajiki"

// Default returns the out-of-the-box settings document.
func Default() Settings {
	return Settings{
		Theme: ThemeSystem,
		Capture: CaptureDefaults{
			SnapLen:        65536,
			Promiscuous:    true,
			RingBufferSize: 1_000_000,
		},
	}
}

// DefaultPaths resolves the per-user paths under {home}/.kusanaginokajiki/,
// per §6 "Persistent state". Creates the app and plugins directories if
// they don't exist; callers decide whether an absent settings/database
// file is an error.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}
	appDir := filepath.Join(home, appDirName)
	pluginsDir := filepath.Join(appDir, "plugins")
	if err := os.MkdirAll(pluginsDir, 0o755); err != nil {
		return Paths{}, err
	}
	return Paths{
		SettingsFile:  filepath.Join(appDir, "settings.json"),
		DatabaseFile:  filepath.Join(appDir, "data.db"),
		PluginsDir:    pluginsDir,
		SignaturesDir: filepath.Join(appDir, "signatures"),
		OUIDatabase:   filepath.Join(appDir, "oui.tsv"),
		GeoIPCityDB:   filepath.Join(appDir, "GeoLite2-City.mmdb"),
	}, nil
}

// Load reads Settings from path, falling back to Default() if the file
// does not exist.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes Settings to path as indented JSON, creating parent
// directories as needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
