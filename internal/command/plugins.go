package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

// rawPluginManifest is one manifest.json's on-disk shape.
type rawPluginManifest struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	EntryPoint string `json:"entry_point"`
}

// scanPluginManifests reads {pluginsDir}/*/manifest.json, skipping any
// subdirectory whose manifest is absent or malformed rather than aborting
// the scan.
func scanPluginManifests(pluginsDir string) ([]models.PluginManifest, error) {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.NotFound, "failed to read plugins directory", err)
	}

	var manifests []models.PluginManifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(pluginsDir, entry.Name(), "manifest.json")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw rawPluginManifest
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		manifests = append(manifests, models.PluginManifest{
			Path:       path,
			Name:       raw.Name,
			Version:    raw.Version,
			EntryPoint: raw.EntryPoint,
			ScannedAt:  time.Now().UTC(),
		})
	}
	return manifests, nil
}
