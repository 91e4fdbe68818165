// conn_wsl.go adds the socket locations used by a WSL2 relay. Discord runs on
// the Windows host, so its named pipe must be bridged into a Unix socket:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// procVersion is read to detect WSL. Replaced in tests.
var procVersion = "/proc/version"

// isWSL reports whether the current process is running inside WSL.
func isWSL() bool {
	data, err := os.ReadFile(procVersion)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// wslSocketPaths returns relay socket paths to try when running under WSL.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}

	var paths []string
	for i := range maxIPCSlots {
		paths = append(paths, fmt.Sprintf("/mnt/wslg/runtime-dir/discord-ipc-%d", i))
	}
	if home, err := os.UserHomeDir(); err == nil {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("%s/.discord-ipc-%d", home, i))
		}
	}
	return paths
}
