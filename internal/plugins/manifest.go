// Package plugins loads YAML command manifests and registers their commands
// on a Ready registry. Each plugin command runs an external program.
package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/nounverb/internal/commands"
)

// ErrInvalidManifest matches every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid plugin manifest")

// Manifest declares one noun and its commands.
//
//	noun: deploy
//	about: Deployment helpers
//	commands:
//	  - verb: status
//	    about: Show rollout status
//	    exec: [kubectl, rollout, status]
//	    args:
//	      - name: env
//	        kind: enum
//	        enum: [dev, prod]
//	        positional: true
type Manifest struct {
	Noun     string        `yaml:"noun"`
	About    string        `yaml:"about"`
	Commands []CommandSpec `yaml:"commands"`

	// File is the manifest's path; exec runs in its directory.
	File string `yaml:"-"`
}

// CommandSpec declares one verb.
type CommandSpec struct {
	Verb     string    `yaml:"verb"`
	About    string    `yaml:"about"`
	Long     string    `yaml:"long,omitempty"`
	Exec     []string  `yaml:"exec"`
	Args     []ArgSpec `yaml:"args,omitempty"`
	Examples []string  `yaml:"examples,omitempty"`
}

// ArgSpec declares one argument. Kind is string, int, float, bool, path,
// enum or count; it defaults to enum when Enum is set and string otherwise.
type ArgSpec struct {
	Name        string   `yaml:"name"`
	Help        string   `yaml:"help,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
	Short       string   `yaml:"short,omitempty"`
	Required    bool     `yaml:"required,omitempty"`
	Positional  bool     `yaml:"positional,omitempty"`
	Multiple    bool     `yaml:"multiple,omitempty"`
	Default     *string  `yaml:"default,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Completions []string `yaml:"completions,omitempty"`
}

// ManifestError reports a problem in one manifest file.
type ManifestError struct {
	File string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.File, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// Parse decodes and validates a manifest. file names the manifest in errors
// and supplies the noun when the manifest leaves it out.
func Parse(data []byte, file string) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ManifestError{File: file, Err: fmt.Errorf("%w: empty manifest", ErrInvalidManifest)}
		}
		return nil, &ManifestError{File: file, Err: fmt.Errorf("%w: %v", ErrInvalidManifest, err)}
	}
	m.File = file
	if strings.TrimSpace(m.Noun) == "" {
		base := filepath.Base(file)
		m.Noun = slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if err := m.validate(); err != nil {
		return nil, &ManifestError{File: file, Err: err}
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if !slug.IsSlug(m.Noun) {
		return fmt.Errorf("%w: noun %q is not a lowercase slug", ErrInvalidManifest, m.Noun)
	}
	if len(m.Commands) == 0 {
		return fmt.Errorf("%w: no commands", ErrInvalidManifest)
	}
	for i := range m.Commands {
		c := &m.Commands[i]
		if len(c.Exec) == 0 || strings.TrimSpace(c.Exec[0]) == "" {
			return fmt.Errorf("%w: %s %s: exec is empty", ErrInvalidManifest, m.Noun, c.Verb)
		}
		if _, err := c.argMeta(); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrInvalidManifest, m.Noun, c.Verb, err)
		}
	}
	return nil
}

// Meta returns the command metadata of the i-th command.
func (m *Manifest) Meta(i int) (commands.Meta, error) {
	c := m.Commands[i]
	args, err := c.argMeta()
	if err != nil {
		return commands.Meta{}, err
	}
	return commands.Meta{
		Noun:        m.Noun,
		Verb:        c.Verb,
		Description: c.About,
		LongDesc:    c.Long,
		Args:        args,
		Examples:    append([]string(nil), c.Examples...),
	}, nil
}

func (c CommandSpec) argMeta() ([]commands.ArgMeta, error) {
	out := make([]commands.ArgMeta, 0, len(c.Args))
	names := make(map[string]bool, len(c.Args))
	shorts := make(map[rune]bool)
	sawOptionalPositional := false
	sawMultiplePositional := false

	for _, spec := range c.Args {
		a, err := spec.argMeta()
		if err != nil {
			return nil, err
		}
		if names[a.Name] {
			return nil, fmt.Errorf("duplicate argument %q", a.Name)
		}
		names[a.Name] = true
		if a.Short != 0 {
			if shorts[a.Short] {
				return nil, fmt.Errorf("duplicate short flag -%c", a.Short)
			}
			shorts[a.Short] = true
		}
		if a.Positional {
			if sawMultiplePositional {
				return nil, fmt.Errorf("positional %q follows a repeatable positional", a.Name)
			}
			if a.Required && sawOptionalPositional {
				return nil, fmt.Errorf("required positional %q follows an optional one", a.Name)
			}
			sawOptionalPositional = sawOptionalPositional || !a.Required
			sawMultiplePositional = a.Multiple
		}
		out = append(out, a)
	}
	return out, nil
}

func (s ArgSpec) argMeta() (commands.ArgMeta, error) {
	a := commands.ArgMeta{
		Name:        s.Name,
		Description: s.Help,
		Required:    s.Required,
		Positional:  s.Positional,
		Multiple:    s.Multiple,
		Completions: append([]string(nil), s.Completions...),
	}
	if !slug.IsSlug(a.Name) {
		return a, fmt.Errorf("argument name %q is not a lowercase slug", a.Name)
	}
	if a.Name == "help" {
		return a, fmt.Errorf("argument name %q is reserved", a.Name)
	}

	kind := commands.ValueKind(strings.ToLower(strings.TrimSpace(s.Kind)))
	if kind == "" {
		kind = commands.KindString
		if len(s.Enum) > 0 {
			kind = commands.KindEnum
		}
	}
	switch kind {
	case commands.KindString, commands.KindInt, commands.KindFloat, commands.KindPath:
	case commands.KindEnum:
		if len(s.Enum) == 0 {
			return a, fmt.Errorf("argument %q: enum kind needs values", a.Name)
		}
		a.Enum = append([]string(nil), s.Enum...)
		if len(a.Completions) == 0 {
			a.Completions = a.Enum
		}
	case commands.KindBool, commands.KindCount:
		if s.Positional {
			return a, fmt.Errorf("argument %q: %s arguments cannot be positional", a.Name, kind)
		}
		a.IsFlag = true
		a.Required = false
		a.Multiple = kind == commands.KindCount
	default:
		return a, fmt.Errorf("argument %q: unknown kind %q", a.Name, s.Kind)
	}
	a.Kind = kind

	if s.Short != "" {
		r, size := utf8.DecodeRuneInString(s.Short)
		if size != len(s.Short) || r == 'h' {
			return a, fmt.Errorf("argument %q: invalid short flag %q", a.Name, s.Short)
		}
		if a.Positional {
			return a, fmt.Errorf("argument %q: positionals cannot have a short flag", a.Name)
		}
		a.Short = r
	}

	if s.Default != nil {
		if a.IsFlag {
			return a, fmt.Errorf("argument %q: flags cannot carry a default", a.Name)
		}
		if err := commands.CheckValue(a, *s.Default); err != nil {
			return a, fmt.Errorf("argument %q: default: %v", a.Name, err)
		}
		a.Default = *s.Default
		a.HasDefault = true
		a.Required = false
	}
	return a, nil
}
