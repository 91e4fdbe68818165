package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// errAlreadyRunning is returned when another daemon holds the PID lock for
// the same data directory.
var errAlreadyRunning = errors.New("daemon already running")

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken returns a random token that proves ownership of the PID file, so
// [removePID] only deletes a file this process wrote.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquirePID fails with errAlreadyRunning when a live daemon holds the lock,
// and otherwise writes and locks the PID file. The returned file must stay
// open for the daemon's lifetime.
func acquirePID(d DataPaths, token string) (*os.File, error) {
	if alive, pid := checkStalePID(d); alive {
		return nil, fmt.Errorf("%w (pid %d)", errAlreadyRunning, pid)
	}
	return writePID(d, token)
}

// writePID opens the PID file, takes the advisory lock and writes
// "PID:TOKEN".
func writePID(d DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(d.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", errAlreadyRunning, err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), token); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the lock and removes the PID file if it still carries
// token.
func removePID(d DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(d.PID())
	if err != nil {
		return
	}
	if _, tok, ok := strings.Cut(string(data), ":"); ok && tok == token {
		os.Remove(d.PID())
	}
}

// checkStalePID reports whether another daemon holds the PID lock. A file
// whose lock can be taken belongs to a dead process and is removed.
func checkStalePID(d DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(d.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(d.PID())
		f.Close()
		head, _, _ := strings.Cut(string(data), ":")
		if p, convErr := strconv.Atoi(head); convErr == nil {
			return true, p
		}
		return true, 0
	}

	_ = unlockFile(f)
	f.Close()
	os.Remove(d.PID())
	return false, 0
}
