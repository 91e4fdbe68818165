package editor

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tools.zach/dev/codecord/internal/config"
	"tools.zach/dev/codecord/internal/discord"
)

// ///////////////////////////////////////////////
// Builder
// ///////////////////////////////////////////////

// Builder renders editor state into activities using the display templates.
type Builder struct {
	cfg *config.Config
	id  config.Identity
	// started backs the elapsed timer when the state carries no session start.
	started time.Time
	// now is replaced in tests.
	now func() time.Time
}

// NewBuilder returns a Builder for cfg publishing under id.
func NewBuilder(cfg *config.Config, id config.Identity) *Builder {
	return &Builder{cfg: cfg, id: id, started: time.Now(), now: time.Now}
}

// Build converts s to an activity. It returns nil, meaning clear the
// presence, when the editor is closed or the workspace matches a privacy
// ignore pattern. With no focused file, or after the idle timeout, the idle
// templates are used.
func (b *Builder) Build(s *State) *discord.Activity {
	if s == nil || s.Closed {
		return nil
	}
	if s.Workspace != "" && b.cfg.IsIgnored(s.Workspace) {
		return nil
	}

	vars := b.vars(s)
	d := b.cfg.Display

	a := &discord.Activity{}
	if s.File == "" || b.idle(s) {
		a.Details = applyTemplate(d.DetailsIdle, vars)
		a.State = applyTemplate(d.StateIdle, vars)
		a.Assets = &discord.Assets{
			LargeImage: b.id.Icon,
			LargeText:  b.id.DisplayName,
		}
	} else {
		a.Details = applyTemplate(d.Details, vars)
		a.State = applyTemplate(d.State, vars)
		a.Assets = &discord.Assets{
			LargeImage: applyTemplate(d.LargeImage, vars),
			LargeText:  applyTemplate(d.LargeText, vars),
			SmallImage: b.id.Icon,
			SmallText:  b.id.DisplayName,
		}
		if a.Assets.LargeImage == "" {
			a.Assets.LargeImage = b.id.Icon
		}
	}

	if d.ShowElapsed {
		start := s.SessionStart
		if start == 0 {
			start = b.started.Unix()
		}
		a.Timestamps = &discord.Timestamps{Start: start}
	}
	return a
}

// idle reports whether the editor has been inactive past the idle timeout.
func (b *Builder) idle(s *State) bool {
	minutes := b.cfg.Presence.IdleTimeoutMinutes
	if minutes <= 0 || s.LastActivity == 0 {
		return false
	}
	return b.now().Unix()-s.LastActivity > int64(minutes)*60
}

// ///////////////////////////////////////////////
// Template Engine
// ///////////////////////////////////////////////

// templateVars holds the values available to display templates.
type templateVars struct {
	File       string
	Hidden     bool
	HiddenText string
	Workspace  string
	Language   string
	Line       int
	App        string
}

func (b *Builder) vars(s *State) templateVars {
	language := s.Language
	if language == "" && s.File != "" {
		language = strings.TrimPrefix(filepath.Ext(s.File), ".")
	}
	return templateVars{
		File:       s.File,
		Hidden:     b.cfg.Privacy.HideFileNames,
		HiddenText: b.cfg.FileLabel(filepath.Base(s.File)),
		Workspace:  s.Workspace,
		Language:   language,
		Line:       s.Line,
		App:        b.id.DisplayName,
	}
}

// formatVarRegex matches {name:format} placeholders.
var formatVarRegex = regexp.MustCompile(`\{(\w+):([^}]+)\}`)

// plainVarRegex matches {name} placeholders.
var plainVarRegex = regexp.MustCompile(`\{(\w+)\}`)

// discordMaxLen is the maximum length Discord accepts for details and state.
const discordMaxLen = 128

// applyTemplate renders tmpl, replacing {var:format} first and {var} second.
// Unknown variables are left as written. The result is truncated to
// discordMaxLen characters.
func applyTemplate(tmpl string, vars templateVars) string {
	s := formatVarRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		parts := formatVarRegex.FindStringSubmatch(match)
		return resolveVar(parts[1], parts[2], vars, match)
	})
	s = plainVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		parts := plainVarRegex.FindStringSubmatch(match)
		return resolveVar(parts[1], "", vars, match)
	})

	if utf8.RuneCountInString(s) > discordMaxLen {
		s = string([]rune(s)[:discordMaxLen-1]) + "…"
	}
	return s
}

// resolveVar renders one variable. Unknown names return literal unchanged.
func resolveVar(name, format string, vars templateVars, literal string) string {
	switch name {
	case "file":
		if vars.Hidden && vars.File != "" {
			return vars.HiddenText
		}
		if format == "" {
			format = "basename"
		}
		return formatPath(vars.File, format)
	case "workspace":
		if format == "" {
			format = "basename"
		}
		return formatPath(vars.Workspace, format)
	case "language":
		return formatText(vars.Language, format)
	case "line":
		if vars.Line <= 0 {
			return ""
		}
		return strconv.Itoa(vars.Line)
	case "app":
		return vars.App
	default:
		return literal
	}
}

// formatPath formats a path. Supported formats: "basename", "dir", "ext",
// "full".
func formatPath(path, format string) string {
	if path == "" {
		return ""
	}
	switch format {
	case "dir":
		return filepath.Base(filepath.Dir(path))
	case "ext":
		return strings.TrimPrefix(filepath.Ext(path), ".")
	case "full":
		return filepath.ToSlash(path)
	default:
		return filepath.Base(path)
	}
}

// formatText formats a word. Supported formats: "upper", "lower", "title".
func formatText(s, format string) string {
	switch format {
	case "upper":
		return strings.ToUpper(s)
	case "lower":
		return strings.ToLower(s)
	case "title":
		if s == "" {
			return s
		}
		r, size := utf8.DecodeRuneInString(s)
		return strings.ToUpper(string(r)) + s[size:]
	default:
		return s
	}
}

// ///////////////////////////////////////////////
// Activity Hashing
// ///////////////////////////////////////////////

// Hash returns a SHA-256 hex digest of a for dedup comparison. A nil
// activity hashes to the empty string.
func Hash(a *discord.Activity) string {
	if a == nil {
		return ""
	}
	data, err := json.Marshal(a)
	if err != nil {
		slog.Warn("failed to hash activity", "error", err)
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
