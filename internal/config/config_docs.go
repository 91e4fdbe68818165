package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc documents a single config field. The genconfig tool uses it to
// annotate config.default.toml.
type FieldDoc struct {
	// Comment is written above the field.
	Comment string

	// Alternatives are written as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps dot-separated TOML paths (e.g. "presence.enabled") to their
// [FieldDoc].
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// Discord
	"discord": {
		Comment: "Which Discord application the presence is published under.",
	},
	"discord.app": {
		Comment:      "Editor identity: vscode, insiders, vscodium, cursor or custom.",
		Alternatives: []string{`app = "cursor"`, `app = "custom"`},
	},
	"discord.app_id": {
		Comment:      "Your own Discord application ID. Required when app is \"custom\",\noptional override otherwise.",
		Alternatives: []string{`app_id = "123456789012345678"`},
	},

	// Presence
	"presence.enabled": {
		Comment: "Global intent. `codecord enable-workspace` / `disable-workspace`\noverride it for a single workspace.",
	},
	"presence.suppress_notifications": {
		Comment: "Do not print a confirmation after enable, disable and the workspace variants.",
	},
	"presence.update_debounce_ms": {
		Comment: "Activity changes settle for this long before being sent to Discord.\nUpdates are also capped at 5 per 20 seconds.",
	},
	"presence.idle_timeout_minutes": {
		Comment: "Switch to the idle templates after this much editor inactivity. 0 disables it.",
	},

	// Display
	"display.details": {
		Comment: "Activity templates. details = top line, state = bottom line.\nVariables: {file}, {workspace}, {language}, {line}, {app}\nFormat suffixes: {file:dir}, {file:ext}, {file:full}, {workspace:full},\n{language:upper}, {language:lower}, {language:title}",
	},
	"display.state":        {},
	"display.details_idle": {Comment: "Shown when no file is open or the editor is idle."},
	"display.state_idle":   {},
	"display.large_image": {
		Comment: "Discord asset key for the large image. {language} picks a per-language asset.",
	},
	"display.large_text": {},
	"display.show_elapsed": {
		Comment: "Show the elapsed timer since the workspace was opened.",
	},

	// Privacy
	"privacy.ignore": {
		Comment:      "Workspaces whose activity is never shown (doublestar globs).",
		Alternatives: []string{`ignore = ["**/secret-*", "/home/me/work/**"]`},
	},
	"privacy.hide_file_names": {
		Comment: "Replace {file} with hidden_file_text.",
	},
	"privacy.hidden_file_text": {},

	// Log
	"log.level": {
		Comment:      "trace, debug, info, warn or error",
		Alternatives: []string{`level = "debug"`},
	},
	"log.max_size_mb": {
		Comment: "The log file is rotated at this size.",
	},
}
