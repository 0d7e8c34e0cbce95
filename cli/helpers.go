// Package cli implements the ruleforge command-line interface: compiling,
// validating, and searching node graphs against a definition manifest.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ruleforge/ruleforge/graph"
	"github.com/ruleforge/ruleforge/registry"
)

// newLogger builds the CLI logger from the persistent flags. Output goes
// to stderr so emitted scripts on stdout stay pipeable.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Logger()
}

// loadRegistry reads the definition manifest named by the --manifest flag.
// YAML and JSON spellings are both accepted, keyed off the file extension.
func loadRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		return nil, exitError(exitManifest, "a definition manifest is required (--manifest)")
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path from user CLI arg
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "manifest not found: %s", path)
		}
		return nil, exitError(exitFileNotFound, "reading manifest: %s", err)
	}

	var reg *registry.Registry
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		reg, err = registry.LoadYAMLBytes(data)
	} else {
		reg, err = registry.LoadBytes(data)
	}
	if err != nil {
		return nil, exitError(exitManifest, "loading manifest: %s", err)
	}
	return reg, nil
}

// loadGraph reads a serialized graph definition and hydrates it against
// the registry.
func loadGraph(path string, reg *registry.Registry) (*graph.Graph, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from user CLI arg
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "graph file not found: %s", path)
		}
		return nil, exitError(exitFileNotFound, "reading graph file: %s", err)
	}

	gd, err := graph.ParseDefinition(data)
	if err != nil {
		return nil, exitError(exitValidation, "parsing graph file: %s", err)
	}
	g, err := gd.Hydrate(reg)
	if err != nil {
		return nil, exitError(exitValidation, "loading graph: %s", err)
	}
	return g, nil
}

// printDiagnosticsText writes diagnostics as formatted text lines followed
// by a summary.
func printDiagnosticsText(w io.Writer, diags []graph.Diagnostic) {
	for _, d := range diags {
		sev := strings.ToUpper(d.Severity)
		switch {
		case d.Slot != "":
			fmt.Fprintf(w, "%s [%s]: %s (node %s, slot %s)\n", sev, d.Code, d.Message, d.Node, d.Slot)
		case d.Node != "":
			fmt.Fprintf(w, "%s [%s]: %s (node %s)\n", sev, d.Code, d.Message, d.Node)
		default:
			fmt.Fprintf(w, "%s [%s]: %s\n", sev, d.Code, d.Message)
		}
	}

	report := graph.Report{Diagnostics: diags}
	errs := report.Errors()
	warns := report.Warnings()

	switch {
	case len(errs) == 0 && len(warns) == 0:
		fmt.Fprintln(w, "Valid!")
	case len(errs) == 0 && len(warns) > 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", len(warns), pluralize("warning", len(warns)))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			len(errs), pluralize("error", len(errs)),
			len(warns), pluralize("warning", len(warns)))
	}
}

func printDiagnosticsJSON(w io.Writer, diags []graph.Diagnostic) {
	// Output an empty array rather than null when there are no diagnostics.
	if diags == nil {
		diags = []graph.Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(diags)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
