package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// binary is the nv executable shared by every test in the process.
var binary struct {
	sync.Mutex
	path string
	err  error
}

// CLIResult is one parsed invocation of the nv binary.
type CLIResult struct {
	OK       bool
	Data     any
	Error    *CLIError
	Warnings []CLIWarning
	Meta     *CLIMeta
	RawJSON  string
	Stderr   string
	ExitCode int
}

// CLIError is the error member of the response envelope.
type CLIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// CLIWarning is one entry of the warnings member.
type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CLIMeta is the meta member of the response envelope.
type CLIMeta struct {
	Command    string `json:"command,omitempty"`
	Count      int    `json:"count,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// BuildError carries the compiler output of a failed build.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return e.Err.Error() + "\n" + e.Output
}

// BuildCLI compiles ./cmd/nv once per test process and returns the binary path.
// A binary removed from under the process is rebuilt.
func BuildCLI(t *testing.T) string {
	t.Helper()

	binary.Lock()
	defer binary.Unlock()

	if binary.path != "" {
		if _, err := os.Stat(binary.path); err == nil {
			return binary.path
		}
		binary.path, binary.err = "", nil
	}
	if binary.err == nil {
		binary.path, binary.err = build()
	}
	if binary.err != nil {
		t.Fatalf("failed to build CLI: %v", binary.err)
	}
	return binary.path
}

func build() (string, error) {
	root, err := moduleRoot()
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "nv-cli-bin-*")
	if err != nil {
		return "", err
	}
	name := "nv"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(dir, name)

	cmd := exec.Command("go", "build", "-o", path, "./cmd/nv")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &BuildError{Output: string(out), Err: err}
	}
	return path, nil
}

// moduleRoot walks up from the working directory to go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

// RunCLI runs nv against the environment with --config and --json.
func (e *TestEnv) RunCLI(args ...string) *CLIResult {
	e.t.Helper()
	return e.run("", args)
}

// RunCLIWithStdin is RunCLI with stdin attached.
func (e *TestEnv) RunCLIWithStdin(stdin string, args ...string) *CLIResult {
	e.t.Helper()
	return e.run(stdin, args)
}

func (e *TestEnv) run(stdin string, args []string) *CLIResult {
	e.t.Helper()

	cmd := exec.Command(BuildCLI(e.t), append([]string{"--config", e.ConfigPath(), "--json"}, args...)...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	return parseResult(stdout.Bytes(), stderr.String(), runErr)
}

// parseResult decodes the envelope written to stdout. Output that is not an
// envelope becomes a PARSE_ERROR result carrying the raw streams.
func parseResult(stdout []byte, stderr string, runErr error) *CLIResult {
	result := &CLIResult{RawJSON: string(stdout), Stderr: stderr}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	var resp struct {
		OK       bool         `json:"ok"`
		Data     any          `json:"data"`
		Error    *CLIError    `json:"error"`
		Warnings []CLIWarning `json:"warnings"`
		Meta     *CLIMeta     `json:"meta"`
	}
	if err := json.Unmarshal(stdout, &resp); err != nil {
		result.Error = &CLIError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse JSON output: " + err.Error(),
			Details: map[string]any{"raw": string(stdout), "stderr": stderr},
		}
		return result
	}

	result.OK = resp.OK
	result.Data = resp.Data
	result.Error = resp.Error
	result.Warnings = resp.Warnings
	result.Meta = resp.Meta
	return result
}

// MustSucceed fails the test if the CLI command did not succeed.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if !r.OK {
		msg := "unknown error"
		if r.Error != nil {
			msg = r.Error.Code + ": " + r.Error.Message
		}
		t.Fatalf("expected command to succeed, got error: %s\nRaw output: %s\nStderr: %s", msg, r.RawJSON, r.Stderr)
	}
	return r
}

// MustFail fails the test unless the command failed with code.
func (r *CLIResult) MustFail(t *testing.T, code string) *CLIResult {
	t.Helper()
	switch {
	case r.OK:
		t.Fatalf("expected command to fail with code %s, but it succeeded\nRaw output: %s", code, r.RawJSON)
	case r.Error == nil:
		t.Fatalf("expected error with code %s, but error is nil\nRaw output: %s", code, r.RawJSON)
	case r.Error.Code != code:
		t.Fatalf("expected error code %s, got %s: %s\nRaw output: %s", code, r.Error.Code, r.Error.Message, r.RawJSON)
	}
	return r
}

// MustFailWithMessage fails the test unless the command failed with an error
// whose message or suggestion contains substr.
func (r *CLIResult) MustFailWithMessage(t *testing.T, substr string) *CLIResult {
	t.Helper()
	if r.OK {
		t.Fatalf("expected command to fail, but it succeeded\nRaw output: %s", r.RawJSON)
	}
	if substr != "" && r.Error != nil &&
		!strings.Contains(r.Error.Message, substr) && !strings.Contains(r.Error.Suggestion, substr) {
		t.Errorf("expected error to contain %q, got: %s (suggestion: %s)", substr, r.Error.Message, r.Error.Suggestion)
	}
	return r
}

// DataList returns Data when it is a list, or the list stored under key
// when Data is an object.
func (r *CLIResult) DataList(key string) []any {
	switch d := r.Data.(type) {
	case []any:
		return d
	case map[string]any:
		list, _ := d[key].([]any)
		return list
	}
	return nil
}

// DataString returns the string stored under key when Data is an object.
func (r *CLIResult) DataString(key string) string {
	m, _ := r.Data.(map[string]any)
	s, _ := m[key].(string)
	return s
}
