package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/toolschema"
	"github.com/aidanlsb/nounverb/internal/ui"
	"github.com/aidanlsb/nounverb/internal/validate"
)

type commandInfo struct {
	Command string `json:"command"`
	About   string `json:"about"`
}

type nounInfo struct {
	Noun  string   `json:"noun"`
	About string   `json:"about"`
	Verbs []string `json:"verbs"`
}

type argInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Required    bool     `json:"required"`
	Positional  bool     `json:"positional,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
	Short       string   `json:"short,omitempty"`
	Default     *string  `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// description is the result of "commands describe"; its text form is the
// rendered help page.
type description struct {
	Command  string    `json:"command"`
	About    string    `json:"about"`
	Usage    string    `json:"usage"`
	Long     string    `json:"long,omitempty"`
	Args     []argInfo `json:"args"`
	Examples []string  `json:"examples,omitempty"`

	meta commands.Meta
}

func (d description) Text() string {
	md := commands.HelpMarkdown(d.meta, Program)
	out, err := ui.RenderMarkdown(md, ui.NewDisplayContext().AvailableWidth(0))
	if err != nil {
		return md
	}
	return out
}

func describe(meta commands.Meta) description {
	d := description{
		Command:  meta.Name(),
		About:    meta.Description,
		Usage:    Program + " " + meta.Name() + commands.UsageSuffix(meta),
		Long:     meta.LongDesc,
		Args:     make([]argInfo, 0, len(meta.Args)),
		Examples: meta.Examples,
		meta:     meta,
	}
	for _, a := range meta.Args {
		info := argInfo{
			Name:        a.Name,
			Kind:        string(a.Kind),
			Required:    a.Required,
			Positional:  a.Positional,
			Multiple:    a.Multiple,
			Short:       a.ShortName(),
			Enum:        a.Enum,
			Description: a.Description,
		}
		if a.HasDefault {
			def := a.Default
			info.Default = &def
		}
		d.Args = append(d.Args, info)
	}
	return d
}

type listArgs struct {
	Noun *string `help:"Only list commands of this noun"`
}

func listCommands(ctx context.Context, args listArgs) ([]commandInfo, error) {
	entries, err := entriesFor(ctx, args.Noun)
	if err != nil {
		return nil, err
	}
	out := make([]commandInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, commandInfo{Command: e.Name(), About: e.Meta.Description})
	}
	return out, nil
}

// entriesFor returns every command, or the commands of one noun.
func entriesFor(ctx context.Context, noun *string) ([]*registry.Entry, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if noun == nil {
		return rt.Registry.ListAll()
	}
	n, err := rt.Registry.Noun(*noun)
	if err != nil {
		return nil, withSuggestions(rt, err, *noun, "")
	}
	entries := make([]*registry.Entry, 0, len(n.Verbs))
	for _, v := range n.VerbNames() {
		entries = append(entries, n.Verbs[v])
	}
	return entries, nil
}

func listNouns(ctx context.Context, _ struct{}) ([]nounInfo, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	names, err := rt.Registry.Nouns()
	if err != nil {
		return nil, err
	}
	out := make([]nounInfo, 0, len(names))
	for _, name := range names {
		n, err := rt.Registry.Noun(name)
		if err != nil {
			return nil, err
		}
		out = append(out, nounInfo{Noun: n.Name, About: n.About, Verbs: n.VerbNames()})
	}
	return out, nil
}

type pathArgs struct {
	Noun string `pos:"0" help:"Command noun"`
	Verb string `pos:"1" help:"Command verb"`
}

func describeCommand(ctx context.Context, args pathArgs) (description, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return description{}, err
	}
	e, err := rt.Registry.Lookup(args.Noun, args.Verb)
	if err != nil {
		return description{}, withSuggestions(rt, err, args.Noun, args.Verb)
	}
	return describe(e.Meta), nil
}

func commandSchema(ctx context.Context, args listArgs) ([]toolschema.Tool, error) {
	entries, err := entriesFor(ctx, args.Noun)
	if err != nil {
		return nil, err
	}
	return toolschema.Generate(entries), nil
}

type invokeArgs struct {
	Noun  string  `pos:"0" help:"Command noun"`
	Verb  string  `pos:"1" help:"Command verb"`
	Input *string `short:"i" help:"Arguments as a JSON object"`
}

// invokeCommand runs a command from a JSON argument object, the form agents
// produce from the tool schemas.
func invokeCommand(ctx context.Context, args invokeArgs) (any, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	e, err := rt.Registry.Lookup(args.Noun, args.Verb)
	if err != nil {
		return nil, withSuggestions(rt, err, args.Noun, args.Verb)
	}

	input := map[string]any{}
	if args.Input != nil && strings.TrimSpace(*args.Input) != "" {
		if err := json.Unmarshal([]byte(*args.Input), &input); err != nil {
			return nil, &validate.Error{Kind: validate.TypeMismatch, Arg: "--input", Expected: "JSON object", Value: *args.Input}
		}
	}
	raw, err := toolschema.BuildArgs(e.Meta, input)
	if err != nil {
		return nil, &validate.Error{Kind: validate.TypeMismatch, Arg: "--input", Expected: "arguments of " + e.Name(), Reason: err.Error()}
	}
	return rt.Dispatcher.Dispatch(ctx, args.Noun, args.Verb, raw)
}

func withSuggestions(rt *app.Runtime, err error, noun, verb string) error {
	var lerr *registry.LookupError
	if errors.As(err, &lerr) {
		return lerr.WithSuggestions(rt.Dispatcher.Suggestions(noun, verb))
	}
	return err
}

func commandRegistrations() []registry.Registration {
	return []registry.Registration{
		registry.Func("commands", "list", "List registered commands", listCommands).
			WithExamples("nv commands list", "nv commands list --noun config"),
		registry.Func("commands", "nouns", "List nouns and their verbs", listNouns),
		registry.Func("commands", "describe", "Show the full help of a command", describeCommand).
			WithExamples("nv commands describe config init"),
		registry.Func("commands", "schema", "Export commands as JSON-schema tool descriptions", commandSchema).
			WithExamples("nv commands schema --json"),
		registry.Func("commands", "invoke", "Run a command from a JSON argument object", invokeCommand).
			WithLongDesc("Run a command from a JSON argument object.\n\n" +
				"Keys are argument names as listed by `nv commands schema`; positionals and flags " +
				"are both passed by name.").
			WithExamples(`nv commands invoke telemetry recent --input '{"limit": 5}'`),
	}
}
