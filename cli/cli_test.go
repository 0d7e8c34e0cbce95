package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/graph"
	"github.com/ruleforge/ruleforge/registry"
)

// newTestRoot creates a fresh cobra root command wired to all subcommands.
// Each test gets an isolated command tree to avoid shared state.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "ruleforge",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	root.PersistentFlags().Bool("quiet", false, "Suppress all output except errors")
	root.AddCommand(NewCompileCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewSearchCmd())
	return root
}

// executeCommand runs a cobra command with the given args and captures
// stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestFile creates a temporary file with the given content and
// returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testManifestJSON = `{
  "definitions": [
    {"id": "wait", "name": "Wait", "category": "action",
     "params": [{"name": "seconds", "type": "Number"}]}
  ]
}`

// writeTestGraph serializes a one-rule graph (Wait(5) under the global
// event) and returns the file path. When valid is false, the wait action's
// seconds slot is left unset.
func writeTestGraph(t *testing.T, valid bool) string {
	t.Helper()
	reg, err := registry.LoadBytes([]byte(testManifestJSON))
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	evDef, _ := reg.Lookup(registry.EventGlobal)
	waitDef, _ := reg.Lookup("wait")
	ev := g.AddNode(evDef)
	act := g.AddNode(waitDef)
	if valid {
		if err := g.SetLiteral(act.ID(), "seconds", core.NumberLit(5)); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AttachAction(ev.ID(), act.ID()); err != nil {
		t.Fatal(err)
	}

	data, err := graph.Snapshot(g).Encode()
	if err != nil {
		t.Fatal(err)
	}
	return writeTestFile(t, "graph.json", string(data))
}

func TestCompile_EmitsToStdout(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, true)

	stdout, _, err := executeCommand(newTestRoot(),
		"compile", graphPath, "--manifest", manifest)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, fragment := range []string{
		"rule(\"Ongoing - Global\")",
		"Wait(5);",
	} {
		if !strings.Contains(stdout, fragment) {
			t.Errorf("stdout missing %q:\n%s", fragment, stdout)
		}
	}
}

func TestCompile_OutputFlagWritesFile(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, true)
	outPath := filepath.Join(t.TempDir(), "script.ows")

	_, _, err := executeCommand(newTestRoot(),
		"compile", graphPath, "--manifest", manifest, "-o", outPath, "--quiet")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "Wait(5);") {
		t.Errorf("output file missing emitted action:\n%s", data)
	}
}

func TestCompile_ValidateOnly(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, true)

	stdout, _, err := executeCommand(newTestRoot(),
		"compile", graphPath, "--manifest", manifest, "--validate-only")
	if err != nil {
		t.Fatalf("compile --validate-only: %v", err)
	}
	if strings.TrimSpace(stdout) != "Valid" {
		t.Errorf("stdout = %q, want Valid", stdout)
	}
}

func TestCompile_ValidationFailureExitCode(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, false)

	_, stderr, err := executeCommand(newTestRoot(),
		"compile", graphPath, "--manifest", manifest)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitValidation {
		t.Fatalf("err = %v, want ExitError with code %d", err, exitValidation)
	}
	if !strings.Contains(stderr, graph.CodeUnsetInput) {
		t.Errorf("stderr missing %s diagnostic:\n%s", graph.CodeUnsetInput, stderr)
	}
}

func TestCompile_MissingManifest(t *testing.T) {
	graphPath := writeTestGraph(t, true)

	_, _, err := executeCommand(newTestRoot(),
		"compile", graphPath, "--manifest", filepath.Join(t.TempDir(), "nope.json"))
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitFileNotFound {
		t.Fatalf("err = %v, want ExitError with code %d", err, exitFileNotFound)
	}
}

func TestValidate_TextOutput(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, true)

	stdout, _, err := executeCommand(newTestRoot(),
		"validate", graphPath, "--manifest", manifest)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(stdout, "Valid!") {
		t.Errorf("stdout = %q, want Valid!", stdout)
	}
}

func TestValidate_JSONOutput(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)
	graphPath := writeTestGraph(t, false)

	stdout, _, err := executeCommand(newTestRoot(),
		"validate", graphPath, "--manifest", manifest, "--format", "json")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitValidation {
		t.Fatalf("err = %v, want ExitError with code %d", err, exitValidation)
	}
	if !strings.Contains(stdout, graph.CodeUnsetInput) {
		t.Errorf("JSON output missing %s:\n%s", graph.CodeUnsetInput, stdout)
	}
}

func TestValidate_YAMLManifest(t *testing.T) {
	manifest := writeTestFile(t, "manifest.yaml", `
definitions:
  - id: wait
    name: Wait
    category: action
    params:
      - name: seconds
        type: Number
`)
	graphPath := writeTestGraph(t, true)

	stdout, _, err := executeCommand(newTestRoot(),
		"validate", graphPath, "--manifest", manifest)
	if err != nil {
		t.Fatalf("validate with YAML manifest: %v", err)
	}
	if !strings.Contains(stdout, "Valid!") {
		t.Errorf("stdout = %q, want Valid!", stdout)
	}
}

func TestSearch_FindsDefinitions(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)

	stdout, _, err := executeCommand(newTestRoot(),
		"search", "wait", "--manifest", manifest)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(stdout, "Wait") {
		t.Errorf("stdout missing Wait:\n%s", stdout)
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)

	stdout, _, err := executeCommand(newTestRoot(),
		"search", "--manifest", manifest, "--category", "event")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(stdout, "Ongoing - Global") {
		t.Errorf("stdout missing builtin events:\n%s", stdout)
	}
	if strings.Contains(stdout, "Wait") {
		t.Errorf("action leaked through event filter:\n%s", stdout)
	}
}

func TestSearch_UnknownCategory(t *testing.T) {
	manifest := writeTestFile(t, "manifest.json", testManifestJSON)

	_, _, err := executeCommand(newTestRoot(),
		"search", "--manifest", manifest, "--category", "widget")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitValidation {
		t.Fatalf("err = %v, want ExitError with code %d", err, exitValidation)
	}
}
