// Package cli implements the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/builtin"
	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/output"
	"github.com/aidanlsb/nounverb/internal/plugins"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/ui"
	"github.com/aidanlsb/nounverb/internal/validate"
)

// Program is the binary name.
const Program = builtin.Program

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// globalFlags are accepted anywhere on the command line.
type globalFlags struct {
	json       bool
	output     string
	configPath string
	verbose    bool
	noColor    bool
}

func (g *globalFlags) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&g.json, "json", false, "Output in JSON format (for agent/script use)")
	fs.StringVar(&g.output, "output", string(output.Text), "Output format: text, json or yaml")
	fs.StringVar(&g.configPath, "config", "", "Path to config file")
	fs.BoolVarP(&g.verbose, "verbose", "V", false, "Log at debug level")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
}

func (g *globalFlags) format() (output.Format, error) {
	if g.json {
		return output.JSON, nil
	}
	f, err := output.ParseFormat(g.output)
	if err != nil {
		return output.Text, &validate.Error{
			Kind:     validate.TypeMismatch,
			Arg:      "--output",
			Expected: strings.Join(output.Formats, ", "),
			Value:    g.output,
		}
	}
	return f, nil
}

// globalValueFlags take a value; the rest are booleans.
var (
	globalValueFlags = []string{"--output", "--config"}
	globalBoolFlags  = []string{"--json", "--verbose", "-V", "--no-color"}
)

// scanGlobals reads the global flags from anywhere in args. Verb commands
// receive their arguments unparsed, so globals placed after a verb are
// found here rather than by cobra.
func scanGlobals(args []string) (*globalFlags, error) {
	g := &globalFlags{}
	fs := pflag.NewFlagSet(Program, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	g.bind(fs)
	fs.BoolP("help", "h", false, "")
	if err := fs.Parse(args); err != nil {
		return g, fmt.Errorf("%w: %v", validate.ErrValidation, err)
	}
	return g, nil
}

// stripGlobals removes global flags from a verb's raw arguments. Everything
// after "--" is left alone.
func stripGlobals(raw []string) []string {
	out := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if tok == "--" {
			return append(out, raw[i:]...)
		}
		name, _, hasValue := strings.Cut(tok, "=")
		switch {
		case contains(globalBoolFlags, name):
			continue
		case contains(globalValueFlags, name):
			if !hasValue {
				i++
			}
			continue
		}
		out = append(out, tok)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return Run(context.Background(), os.Args[1:])
}

// Run runs one invocation. A non-nil error is an *ExitError whose failure
// has already been written.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, app.Options{})
}

func run(ctx context.Context, args []string, opts app.Options) error {
	r := &runner{format: output.Text, out: stdout, errOut: stderr}

	g, err := scanGlobals(args)
	if err == nil {
		r.format, err = g.format()
	}
	if g.noColor || !ui.ColorEnabled(stdout) {
		ui.DisableColor()
	}
	if err != nil {
		return r.fail(err, "", nil)
	}

	opts.ConfigPath = g.configPath
	opts.Verbose = g.verbose
	opts.Stderr = stderr
	rt, err := app.Open(ctx, opts)
	if err != nil {
		return r.fail(err, "", nil)
	}
	defer rt.Close()
	r.rt = rt

	root := r.rootCommand(g)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(app.WithRuntime(ctx, rt)); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return r.fail(err, "", nil)
	}
	return nil
}

// runner writes results for one invocation.
type runner struct {
	rt     *app.Runtime
	format output.Format
	out    io.Writer
	errOut io.Writer
}

func (r *runner) rootCommand(g *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   Program + " <noun> <verb> [args]",
		Short: "Run commands addressed by noun and verb",
		Long: `nv runs commands addressed as "<noun> <verb>", like "nv services status".

Every command validates its arguments before it runs. Unknown or misspelled
commands get "did you mean" suggestions, and "nv search <keyword>" finds
commands by name, description or category.

Use --json or --output yaml for machine-readable output.`,
		Args:               cobra.ArbitraryArgs,
		SilenceErrors:      true,
		SilenceUsage:       true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return r.help(cmd)
			}
			verb, rest := "", []string(nil)
			if len(args) > 1 {
				verb, rest = args[1], args[2:]
			}
			return r.dispatch(cmd.Context(), args[0], verb, rest)
		},
	}
	g.bind(root.PersistentFlags())

	root.AddCommand(r.searchCommand(), r.versionCommand())

	nouns, err := r.rt.Registry.Nouns()
	if err != nil {
		return root
	}
	for _, name := range nouns {
		n, err := r.rt.Registry.Noun(name)
		if err != nil {
			continue
		}
		root.AddCommand(r.nounCommand(n))
	}
	return root
}

func (r *runner) nounCommand(n *registry.NounEntry) *cobra.Command {
	short := n.About
	if short == "" {
		short = fmt.Sprintf("%s commands", n.Name)
	}
	cmd := &cobra.Command{
		Use:                n.Name + " <verb>",
		Short:              short,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return r.help(cmd)
			}
			return r.dispatch(cmd.Context(), n.Name, args[0], args[1:])
		},
	}
	for _, verb := range n.VerbNames() {
		meta := n.Verbs[verb].Meta
		cmd.AddCommand(commands.GenerateCobraCommand(meta, func(cmd *cobra.Command, raw []string) error {
			return r.dispatch(cmd.Context(), meta.Noun, meta.Verb, raw)
		}))
	}
	return cmd
}

// dispatch runs one command through the dispatcher and reports the outcome.
func (r *runner) dispatch(ctx context.Context, noun, verb string, raw []string) error {
	command := strings.TrimSpace(noun + " " + verb)
	start := time.Now()
	data, err := r.rt.Dispatcher.Dispatch(ctx, noun, verb, stripGlobals(raw))
	if errors.Is(err, validate.ErrHelp) {
		return r.verbHelp(noun, verb)
	}
	if err != nil {
		var exitErr *plugins.ExitStatusError
		if !errors.As(err, &exitErr) {
			data = nil
		}
		return r.fail(err, command, data)
	}
	passStderr(r.errOut, data)
	return r.emit(command, data, time.Since(start))
}

// helpPage is the structured form of a help screen.
type helpPage struct {
	Command  string   `json:"command,omitempty"`
	Usage    string   `json:"usage"`
	Commands []string `json:"commands,omitempty"`
	Markdown string   `json:"markdown,omitempty"`
}

// help prints cobra's help for a noun or the root, or its structured form.
func (r *runner) help(cmd *cobra.Command) error {
	if !r.format.Structured() {
		return cmd.Help()
	}
	page := helpPage{Usage: cmd.UseLine()}
	if cmd.HasParent() {
		page.Command = cmd.Name()
	}
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			page.Commands = append(page.Commands, sub.Name())
		}
	}
	return output.Write(r.out, r.format, page, &output.Meta{Command: page.Command, Count: len(page.Commands)})
}

// verbHelp renders a command's help page as markdown.
func (r *runner) verbHelp(noun, verb string) error {
	entry, err := r.rt.Registry.Lookup(noun, verb)
	if err != nil {
		return r.fail(err, "", nil)
	}
	md := commands.HelpMarkdown(entry.Meta, Program)
	if r.format.Structured() {
		page := helpPage{Command: entry.Name(), Usage: Program + " " + entry.Meta.Name() + commands.UsageSuffix(entry.Meta), Markdown: md}
		return output.Write(r.out, r.format, page, &output.Meta{Command: entry.Name()})
	}
	rendered, err := ui.RenderMarkdown(md, ui.NewDisplayContextFor(r.out).AvailableWidth(0))
	if err != nil {
		rendered = md
	}
	_, err = io.WriteString(r.out, rendered)
	return err
}

// emit writes a successful result.
func (r *runner) emit(command string, data any, elapsed time.Duration, warnings ...output.Warning) error {
	if !r.format.Structured() {
		for _, w := range warnings {
			fmt.Fprintln(r.errOut, ui.Warning(w.Message))
		}
		return output.WriteText(r.out, data, ui.NewDisplayContextFor(r.out))
	}
	meta := &output.Meta{Command: command, Count: count(data), DurationMs: elapsed.Milliseconds()}
	return output.Write(r.out, r.format, data, meta, warnings...)
}

// fail reports err and returns the matching *ExitError. data, when set, is
// the partial result of a failed handler.
func (r *runner) fail(err error, command string, data any) error {
	f := classify(err, command, data != nil || command != "")
	if data != nil {
		f.info.Details = data
	}

	if r.format.Structured() {
		_ = output.WriteError(r.out, r.format, f.info)
		return &ExitError{Code: f.exit, Err: err}
	}

	if data != nil {
		_ = output.WriteText(r.out, data, nil)
		passStderr(r.errOut, data)
	}
	fmt.Fprintln(r.errOut, ui.Error(f.info.Message))
	if hint := ui.DidYouMean(f.suggestions); hint != "" {
		fmt.Fprintln(r.errOut, hint)
	} else if f.info.Suggestion != "" {
		fmt.Fprintln(r.errOut, ui.Hint(f.info.Suggestion))
	}
	return &ExitError{Code: f.exit, Err: err}
}

// passStderr forwards a plugin's captured stderr.
func passStderr(w io.Writer, data any) {
	if res, ok := data.(*plugins.ExecResult); ok && res.Stderr != "" {
		_, _ = io.WriteString(w, res.Stderr)
	}
}

// count returns the length of list results for response metadata.
func count(data any) int {
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v.Len()
	}
	return 0
}
