package registry

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ruleforge/ruleforge/core"
)

// ManifestError describes why a manifest failed to load. Any malformed or
// internally inconsistent entry fails the whole load; the registry is
// never partially populated.
type ManifestError struct {
	Entry  string // offending definition identifier, empty for document-level problems
	Reason string
}

func (e *ManifestError) Error() string {
	if e.Entry == "" {
		return "manifest: " + e.Reason
	}
	return fmt.Sprintf("manifest: entry %q: %s", e.Entry, e.Reason)
}

func manifestErr(entry, format string, args ...any) *ManifestError {
	return &ManifestError{Entry: entry, Reason: fmt.Sprintf(format, args...)}
}

// manifestDoc is the wire form of the external manifest document.
type manifestDoc struct {
	Types       []core.ValueType `json:"types,omitempty"`
	Definitions []manifestEntry  `json:"definitions"`
}

// manifestEntry is one definition in the wire form. Defaults are written
// as raw values ("default": 100) and parsed against the declared type.
type manifestEntry struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category core.Category   `json:"category"`
	Params   []manifestParam `json:"params,omitempty"`
	Output   core.ValueType  `json:"output,omitempty"`
}

type manifestParam struct {
	Name    string         `json:"name"`
	Type    core.ValueType `json:"type"`
	Default any            `json:"default,omitempty"`
}

// Load reads a JSON manifest and returns a populated registry. The seven
// rule events, the compare condition, and the constant value definitions
// are registered as built-ins before the manifest entries; a manifest
// reusing one of their identifiers fails as a duplicate.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, manifestErr("", "reading manifest: %v", err)
	}
	return LoadBytes(data)
}

// LoadBytes is Load over an in-memory JSON document.
func LoadBytes(data []byte) (*Registry, error) {
	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, manifestErr("", "parsing manifest: %v", err)
	}
	return build(&doc)
}

// LoadYAMLBytes loads a manifest written in YAML. The document is
// converted to its JSON shape first so both spellings share one parser.
func LoadYAMLBytes(data []byte) (*Registry, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, manifestErr("", "parsing YAML manifest: %v", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, manifestErr("", "converting YAML manifest: %v", err)
	}
	return LoadBytes(jsonData)
}

func build(doc *manifestDoc) (*Registry, error) {
	r := newRegistry()

	for _, t := range doc.Types {
		if t == core.TypeNone || t.IsArray() {
			return nil, manifestErr("", "declared type %q must be a scalar tag", t)
		}
		r.types[t] = true
	}

	registerBuiltins(r)

	for _, entry := range doc.Definitions {
		def, err := buildDefinition(r, entry)
		if err != nil {
			return nil, err
		}
		if r.Has(def.ID) {
			return nil, manifestErr(def.ID, "duplicate identifier")
		}
		r.register(def)
	}

	return r, nil
}

func buildDefinition(r *Registry, entry manifestEntry) (*NodeDefinition, error) {
	if entry.ID == "" {
		return nil, manifestErr("", "definition with empty identifier (name %q)", entry.Name)
	}
	if entry.Name == "" {
		return nil, manifestErr(entry.ID, "missing display name")
	}
	if !entry.Category.Valid() {
		return nil, manifestErr(entry.ID, "unknown category %q", entry.Category)
	}

	if entry.Category == core.CategoryValue {
		if entry.Output == core.TypeNone {
			return nil, manifestErr(entry.ID, "value definition requires an output type")
		}
		if !r.knownTypeLocked(entry.Output) {
			return nil, manifestErr(entry.ID, "unknown output type %q", entry.Output)
		}
	} else if entry.Output != core.TypeNone {
		return nil, manifestErr(entry.ID, "%s definition must not declare an output type", entry.Category)
	}

	def := &NodeDefinition{
		ID:       entry.ID,
		Name:     entry.Name,
		Category: entry.Category,
		Output:   entry.Output,
	}

	seen := make(map[string]bool, len(entry.Params))
	for _, p := range entry.Params {
		if p.Name == "" {
			return nil, manifestErr(entry.ID, "parameter with empty name")
		}
		if seen[p.Name] {
			return nil, manifestErr(entry.ID, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if !r.knownTypeLocked(p.Type) {
			return nil, manifestErr(entry.ID, "parameter %q has unknown type %q", p.Name, p.Type)
		}

		spec := ParamSpec{Name: p.Name, Type: p.Type}
		if p.Default != nil {
			lit, err := core.ParseLiteral(p.Type, p.Default)
			if err != nil {
				return nil, manifestErr(entry.ID, "parameter %q default: %v", p.Name, err)
			}
			if !core.Compatible(lit.Type, p.Type) {
				return nil, manifestErr(entry.ID, "parameter %q default type %s does not fit %s", p.Name, lit.Type, p.Type)
			}
			spec.Default = &lit
		}
		def.Params = append(def.Params, spec)
	}

	return def, nil
}
