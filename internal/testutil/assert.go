package testutil

import (
	"slices"
	"strings"
	"testing"
)

// AssertFileExists fails the test unless relPath exists under the env dir.
func (e *TestEnv) AssertFileExists(relPath string) {
	e.t.Helper()
	if !e.FileExists(relPath) {
		e.t.Errorf("expected file to exist: %s", relPath)
	}
}

// AssertFileContains fails the test unless relPath contains substr.
func (e *TestEnv) AssertFileContains(relPath, substr string) {
	e.t.Helper()
	if content := e.ReadFile(relPath); !strings.Contains(content, substr) {
		e.t.Errorf("expected %s to contain %q, got:\n%s", relPath, substr, content)
	}
}

// AssertExitCode fails the test unless the process exited with code.
func (r *CLIResult) AssertExitCode(t *testing.T, code int) {
	t.Helper()
	if r.ExitCode != code {
		t.Errorf("expected exit code %d, got %d\nRaw: %s\nStderr: %s", code, r.ExitCode, r.RawJSON, r.Stderr)
	}
}

// AssertSuggests fails the test unless the error's suggestions include name.
func (r *CLIResult) AssertSuggests(t *testing.T, name string) {
	t.Helper()
	if r.Error == nil {
		t.Fatalf("expected an error with suggestions\nRaw: %s", r.RawJSON)
	}
	list, _ := r.Error.Details["suggestions"].([]any)
	if !slices.Contains(list, any(name)) {
		t.Errorf("expected suggestion %q, got %v", name, list)
	}
}

// AssertHasWarning fails the test unless a warning with code was returned.
func (r *CLIResult) AssertHasWarning(t *testing.T, code string) {
	t.Helper()
	if !slices.ContainsFunc(r.Warnings, func(w CLIWarning) bool { return w.Code == code }) {
		t.Errorf("expected warning %s, got %+v", code, r.Warnings)
	}
}

// AssertNoWarnings fails the test if any warning was returned.
func (r *CLIResult) AssertNoWarnings(t *testing.T) {
	t.Helper()
	if len(r.Warnings) > 0 {
		t.Errorf("expected no warnings, got %+v", r.Warnings)
	}
}

// AssertResultCount fails the test unless DataList(key) has n entries.
func (r *CLIResult) AssertResultCount(t *testing.T, key string, n int) {
	t.Helper()
	if got := len(r.DataList(key)); got != n {
		t.Errorf("expected %d results, got %d\nRaw: %s", n, got, r.RawJSON)
	}
}
