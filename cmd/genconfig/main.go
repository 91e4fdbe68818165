// Package main implements the genconfig tool that writes config.default.toml
// from config.DefaultConfig and config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/codecord/internal/config"
)

// outPath is relative to internal/config, where go generate runs. The repo
// root embeds the file in configdata.go.
const outPath = "../../config.default.toml"

func main() {
	out, err := render(config.DefaultConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote config.default.toml")
}

// render encodes cfg as TOML and annotates it with docs. Fields omitted by the
// encoder are still listed, commented out, so every option is discoverable.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# codecord Configuration",
		"# ///////////////////////////////////////////////",
		"",
	}
	var section []string
	emitted := map[string]bool{}

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			injectOmitted(&out, section, emitted, docs)

			name := strings.Trim(trimmed, "[] ")
			section = parseSectionPath(name)
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
			out = appendComment(out, docs[name].Comment)
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		path := key
		if len(section) > 0 {
			path = strings.Join(section, ".") + "." + key
		}
		emitted[path] = true

		doc := docs[path]
		out = appendComment(out, doc.Comment)
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}
	injectOmitted(&out, section, emitted, docs)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

// appendComment appends comment as "# " lines.
func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, l := range strings.Split(comment, "\n") {
		out = append(out, "# "+l)
	}
	return out
}

// injectOmitted appends commented-out entries for documented keys of the
// current section that the encoder did not emit, typically omitempty fields
// holding their zero value. Keys are sorted for deterministic output.
func injectOmitted(out *[]string, section []string, emitted map[string]bool, docs map[string]config.FieldDoc) {
	if len(section) == 0 {
		return
	}
	prefix := strings.Join(section, ".") + "."

	var omitted []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := docs[path]
		*out = append(*out, "")
		*out = appendComment(*out, doc.Comment)
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header into its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last segment of a section header for the
// banner comment, so "display" becomes "Display".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
