package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DefaultDiscordAppID is the application ID shared by the built-in editor
// identities. Editors only differ in display name and icon.
const DefaultDiscordAppID = "782685898163617802"

// AppCustom selects the application ID from discord.app_id.
const AppCustom = "custom"

// ErrNoApplicationID is returned when the configuration does not yield a
// Discord application ID. The daemon must not connect without one.
var ErrNoApplicationID = errors.New("no discord application id configured")

// snowflakeRe matches a Discord snowflake ID.
var snowflakeRe = regexp.MustCompile(`^[0-9]{17,20}$`)

// AppDefaults holds the display defaults for a known editor.
type AppDefaults struct {
	// DisplayName is substituted for {app} in templates.
	DisplayName string
	// Icon is the Discord asset key used as the small image.
	Icon string
}

// knownApps maps discord.app values to their defaults.
var knownApps = map[string]AppDefaults{
	"vscode":   {DisplayName: "Visual Studio Code", Icon: "vscode"},
	"insiders": {DisplayName: "Visual Studio Code Insiders", Icon: "vscode-insiders"},
	"vscodium": {DisplayName: "VSCodium", Icon: "vscodium"},
	"cursor":   {DisplayName: "Cursor", Icon: "cursor"},
}

// knownAppList returns the known app names, sorted, for error messages.
func knownAppList() string {
	names := make([]string, 0, len(knownApps))
	for k := range knownApps {
		names = append(names, k)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// Identity is the resolved Discord application the daemon publishes under.
// It is resolved once at startup and never changes for the process lifetime.
type Identity struct {
	// ClientID is the Discord application (OAuth2 client) ID.
	ClientID string
	// App is the configured discord.app value.
	App string
	// DisplayName is the editor name shown in templates.
	DisplayName string
	// Icon is the small image asset key.
	Icon string
}

// ResolveApplicationID resolves the [Identity] from the discord section. A
// known app uses [DefaultDiscordAppID] unless app_id overrides it; "custom"
// requires app_id. Any other outcome returns [ErrNoApplicationID].
func ResolveApplicationID(c *Config) (Identity, error) {
	app := c.Discord.App
	id := strings.TrimSpace(c.Discord.AppID)

	if app == AppCustom {
		if id == "" {
			return Identity{}, fmt.Errorf("%w: discord.app is %q but discord.app_id is empty", ErrNoApplicationID, AppCustom)
		}
		return Identity{ClientID: id, App: app, DisplayName: "Code", Icon: "code"}, nil
	}

	def, ok := knownApps[app]
	if !ok {
		return Identity{}, fmt.Errorf("%w: unknown discord.app %q", ErrNoApplicationID, app)
	}
	if id == "" {
		id = DefaultDiscordAppID
	}
	return Identity{ClientID: id, App: app, DisplayName: def.DisplayName, Icon: def.Icon}, nil
}
