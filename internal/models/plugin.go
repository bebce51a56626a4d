/**
 * Plugin Manifest Model.
 *
 * Metadata passthrough for the GUI shell's plugin directory scan
 * (`list_plugins`); this engine never loads or executes a plugin.
 */

package models

import "time"

// PluginManifest is one {home}/.kusanaginokajiki/plugins/*/manifest.json
// entry, read and cached but never acted upon.
type PluginManifest struct {
	Path       string
	Name       string
	Version    string
	EntryPoint string
	ScannedAt  time.Time
}
