// Package testutil provides reusable test utilities for nv integration tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestEnv is a temporary config directory the CLI runs against.
type TestEnv struct {
	Dir   string
	t     *testing.T
	files map[string]string
}

// NewTestEnv creates a new test environment builder.
// Call Build() to create the actual directory.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{
		t:     t,
		files: make(map[string]string),
	}
}

// WithConfig sets the config.toml content.
func (e *TestEnv) WithConfig(toml string) *TestEnv {
	e.files["config.toml"] = toml
	return e
}

// WithPlugin adds a manifest to the plugins directory.
func (e *TestEnv) WithPlugin(name, yaml string) *TestEnv {
	e.files[filepath.Join("plugins", name+".yaml")] = yaml
	return e
}

// WithFile adds a file relative to the environment root.
func (e *TestEnv) WithFile(path, content string) *TestEnv {
	e.files[path] = content
	return e
}

// Build creates the directory and all configured files.
func (e *TestEnv) Build() *TestEnv {
	e.t.Helper()
	e.Dir = e.t.TempDir()
	for path, content := range e.files {
		e.writeFile(path, content)
	}
	return e
}

// ConfigPath is the config file passed to every CLI run.
func (e *TestEnv) ConfigPath() string {
	return filepath.Join(e.Dir, "config.toml")
}

func (e *TestEnv) writeFile(relPath, content string) {
	e.t.Helper()
	fullPath := filepath.Join(e.Dir, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// ReadFile reads a file from the environment.
func (e *TestEnv) ReadFile(relPath string) string {
	e.t.Helper()
	fullPath := filepath.Join(e.Dir, relPath)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		e.t.Fatalf("failed to read file %s: %v", fullPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the environment.
func (e *TestEnv) FileExists(relPath string) bool {
	e.t.Helper()
	_, err := os.Stat(filepath.Join(e.Dir, relPath))
	return err == nil
}

// TelemetryConfig enables the journal at its default path.
func TelemetryConfig() string {
	return `[telemetry]
enabled = true
`
}

// EchoPlugin returns a manifest whose commands echo their arguments.
func EchoPlugin(noun string) string {
	return `noun: ` + noun + `
about: Echo helpers
commands:
  - verb: say
    about: Print the arguments
    exec: [sh, -c, 'echo "$NV_NOUN $NV_VERB $*"', plugin]
    args:
      - name: words
        positional: true
        multiple: true
        required: true
      - name: loud
        kind: bool
        short: l
  - verb: fail
    about: Exit with status 3
    exec: [sh, -c, 'echo broken >&2; exit 3']
`
}
