/**
 * Configuration Definitions.
 *
 * Defines the persistent per-user settings the command surface reads and
 * writes (`get_settings`/`save_settings`, §6) plus the capture defaults
 * referenced when the GUI shell starts a capture without overriding them.
 */

package config

// Theme is the GUI shell's color scheme preference.
type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
	ThemeSystem Theme = "system"
)

// CaptureDefaults are the values start_capture falls back to when the
// caller omits them.
type CaptureDefaults struct {
	SnapLen        int32
	Promiscuous    bool
	RingBufferSize int
	BPFFilter      string
}

// Paths holds the per-user directories and files the engine reads from and
// writes to, per §6 "Persistent state".
type Paths struct {
	SettingsFile  string
	DatabaseFile  string
	PluginsDir    string
	SignaturesDir string
	OUIDatabase   string
	GeoIPCityDB   string
}

// Settings is the full persisted settings document, serialized as JSON at
// {home}/.kusanaginokajiki/settings.json.
type Settings struct {
	Theme   Theme            `json:"theme"`
	Capture CaptureDefaults  `json:"capture"`
}
