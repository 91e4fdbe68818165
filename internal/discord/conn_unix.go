// conn_unix.go implements Discord IPC socket discovery for Unix-like systems.

//go:build !windows

package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// connectToDiscord dials each candidate IPC socket in turn and returns the
// first that accepts. It stops early when ctx ends.
func connectToDiscord(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range socketPaths() {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, ErrIPCNotAvailable)
		}
	}

	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a socat + npiperelay.exe relay is required", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}

// socketPaths lists the IPC socket locations to probe, in order of preference:
// XDG_RUNTIME_DIR, TMPDIR, /tmp, then Snap and Flatpak sandboxes.
func socketPaths() []string {
	var paths []string

	// Socket name prefixes for Discord variants (stable, Canary, PTB).
	variants := []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

	// XDG_RUNTIME_DIR is the preferred runtime directory on most Linux systems.
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		for _, v := range variants {
			for i := range maxIPCSlots {
				paths = append(paths, fmt.Sprintf("%s/%s-%d", dir, v, i))
			}
		}
	}

	// macOS places the socket under TMPDIR.
	if dir := os.Getenv("TMPDIR"); dir != "" && dir != "/tmp" && dir != "/tmp/" {
		for _, v := range variants {
			for i := range maxIPCSlots {
				paths = append(paths, fmt.Sprintf("%s/%s-%d", strings.TrimRight(dir, "/"), v, i))
			}
		}
	}

	// /tmp fallback for systems without XDG_RUNTIME_DIR.
	for _, v := range variants {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("/tmp/%s-%d", v, i))
		}
	}

	// Snap-packaged Discord uses a distinct socket directory.
	uid := strconv.Itoa(os.Getuid())
	snapDirs := []string{"snap.discord", "snap.discord-canary", "snap.discord-ptb"}
	for _, sd := range snapDirs {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("/run/user/%s/%s/discord-ipc-%d", uid, sd, i))
		}
	}

	// Flatpak-packaged Discord uses its own app-scoped directory.
	flatpakApps := []string{
		"com.discordapp.Discord",
		"com.discordapp.DiscordCanary",
		"com.discordapp.DiscordPTB",
	}
	for _, app := range flatpakApps {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("/run/user/%s/app/%s/discord-ipc-%d", uid, app, i))
		}
	}

	// Relay sockets created by a WSL bridge.
	paths = append(paths, wslSocketPaths()...)
	return paths
}
