package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/validate"
)

// ExecResult is the output of a plugin command.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Text returns the captured stdout. Stderr is passed through by the caller.
func (r *ExecResult) Text() string {
	return strings.TrimRight(r.Stdout, "\n")
}

// ExitStatusError reports a plugin process that exited non-zero.
type ExitStatusError struct {
	Command string
	Code    int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

type execHandler struct {
	argv []string
	dir  string
	meta commands.Meta
}

// Execute runs the plugin program with the parsed arguments rendered back
// into flags. The captured output is returned even when the process fails.
func (h *execHandler) Execute(ctx context.Context, m *validate.Matches) (any, error) {
	args := append(append([]string(nil), h.argv[1:]...), RenderArgs(h.meta.Args, m)...)

	cmd := exec.CommandContext(ctx, h.argv[0], args...)
	cmd.Dir = h.dir
	cmd.Env = append(os.Environ(), "NV_NOUN="+h.meta.Noun, "NV_VERB="+h.meta.Verb)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitStatusError{Command: h.meta.Name(), Code: res.ExitCode}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", h.meta.Name(), ctxErr)
		}
		return nil, fmt.Errorf("failed to run %s: %w", h.meta.Name(), err)
	}
	return res, nil
}

// RenderArgs turns parsed matches back into command-line words: named
// arguments first as --name=value, then "--" and the positionals in
// declaration order. Defaults are rendered like supplied values.
func RenderArgs(args []commands.ArgMeta, m *validate.Matches) []string {
	var flags, positionals []string
	for _, a := range args {
		switch {
		case a.Kind == commands.KindCount:
			n, _ := validate.GetCount(m, a.Name)
			for i := 0; i < n; i++ {
				flags = append(flags, "--"+a.Name)
			}
		case a.Kind == commands.KindBool:
			if on, _ := validate.GetCount(m, a.Name); on > 0 {
				flags = append(flags, "--"+a.Name)
			}
		case a.Positional:
			vals, _ := m.Values(a.Name)
			positionals = append(positionals, vals...)
		default:
			vals, _ := m.Values(a.Name)
			for _, v := range vals {
				flags = append(flags, "--"+a.Name+"="+v)
			}
		}
	}
	if len(positionals) == 0 {
		return flags
	}
	return append(append(flags, "--"), positionals...)
}

// ExitCode returns the process status carried by err, if any.
func ExitCode(err error) (int, bool) {
	var se *ExitStatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
