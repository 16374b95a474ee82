package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RunFunc runs a generated command with its raw, unparsed arguments.
type RunFunc func(cmd *cobra.Command, raw []string) error

// GenerateCobraCommand creates a Cobra command for one verb from its metadata.
//
// Flag parsing is disabled on the generated command: raw arguments (including
// --help) are handed to run untouched so the validator is the single parser.
// Use, Short, Long and completion are still generated from the metadata.
func GenerateCobraCommand(meta Meta, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:                meta.Verb + UsageSuffix(meta),
		Short:              meta.Description,
		Long:               LongDescription(meta),
		DisableFlagParsing: true,
		Annotations: map[string]string{
			"noun": meta.Noun,
			"verb": meta.Verb,
		},
	}

	if len(meta.Args) > 0 {
		cmd.ValidArgsFunction = generateCompletionFunc(meta)
	}

	if run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		}
	}
	return cmd
}

// UsageSuffix renders the argument part of a usage line: positionals as
// <required> or [optional], followed by [flags] when named arguments exist.
func UsageSuffix(meta Meta) string {
	var b strings.Builder
	for _, arg := range meta.PositionalArgs() {
		name := arg.Name
		if arg.Multiple {
			name += "..."
		}
		if arg.Required {
			fmt.Fprintf(&b, " <%s>", name)
		} else {
			fmt.Fprintf(&b, " [%s]", name)
		}
	}
	if len(meta.FlagArgs()) > 0 {
		b.WriteString(" [flags]")
	}
	return b.String()
}

// LongDescription builds the long help text with an Examples block.
func LongDescription(meta Meta) string {
	longDesc := meta.Description
	if meta.LongDesc != "" {
		longDesc = meta.LongDesc
	}
	if len(meta.Examples) > 0 {
		longDesc += "\n\nExamples:\n"
		for _, ex := range meta.Examples {
			longDesc += "  " + ex + "\n"
		}
	}
	return longDesc
}

// generateCompletionFunc completes positionals from static completions and
// flag names when the word being completed starts with a dash.
func generateCompletionFunc(meta Meta) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	positional := meta.PositionalArgs()
	flags := meta.FlagArgs()

	return func(cmd *cobra.Command, completedArgs []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if strings.HasPrefix(toComplete, "-") {
			var matches []string
			for _, f := range flags {
				name := "--" + f.Name
				if strings.HasPrefix(name, toComplete) {
					matches = append(matches, name+"\t"+f.Description)
				}
			}
			return matches, cobra.ShellCompDirectiveNoFileComp
		}

		// A flag value is being completed.
		if n := len(completedArgs); n > 0 {
			if f, ok := flagFor(flags, completedArgs[n-1]); ok && !f.IsFlag {
				return filterPrefix(f.Completions, toComplete), completionDirective(f)
			}
		}

		argIndex := countPositionals(flags, completedArgs)
		if argIndex >= len(positional) {
			last := len(positional) - 1
			if last < 0 || !positional[last].Multiple {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			argIndex = last
		}

		arg := positional[argIndex]
		return filterPrefix(arg.Completions, toComplete), completionDirective(arg)
	}
}

func completionDirective(arg ArgMeta) cobra.ShellCompDirective {
	if arg.Kind == KindPath {
		return cobra.ShellCompDirectiveDefault // let the shell complete files
	}
	return cobra.ShellCompDirectiveNoFileComp
}

func filterPrefix(values []string, prefix string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	return matches
}

// flagFor resolves a raw token like "--lines" or "-n" to its argument.
func flagFor(flags []ArgMeta, token string) (ArgMeta, bool) {
	switch {
	case strings.HasPrefix(token, "--"):
		name := strings.TrimPrefix(token, "--")
		if strings.Contains(name, "=") {
			return ArgMeta{}, false
		}
		for _, f := range flags {
			if f.Name == name {
				return f, true
			}
		}
	case strings.HasPrefix(token, "-") && len(token) == 2:
		for _, f := range flags {
			if f.Short != 0 && string(f.Short) == token[1:] {
				return f, true
			}
		}
	}
	return ArgMeta{}, false
}

// countPositionals counts the positional words in args, skipping flags and their values.
func countPositionals(flags []ArgMeta, args []string) int {
	n := 0
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			return n + len(args) - i - 1
		}
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			n++
			continue
		}
		if f, ok := flagFor(flags, tok); ok && !f.IsFlag {
			i++ // skip the value
		}
	}
	return n
}
