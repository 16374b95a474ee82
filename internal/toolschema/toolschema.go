// Package toolschema describes registered commands as JSON-schema tools for
// agents, and turns tool calls back into command-line arguments.
package toolschema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/registry"
)

// ToolPrefix starts every tool name.
const ToolPrefix = "nv_"

// Tool describes one command.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema defines the JSON schema for tool input.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property is the schema of one argument.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Generate describes every entry as a tool, sorted by tool name.
func Generate(entries []*registry.Entry) []Tool {
	tools := make([]Tool, 0, len(entries))
	for _, e := range entries {
		tools = append(tools, ForMeta(e.Meta))
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// ForMeta describes one command as a tool.
func ForMeta(meta commands.Meta) Tool {
	tool := Tool{
		Name:        ToolName(meta.Noun, meta.Verb),
		Description: meta.Description,
		InputSchema: InputSchema{
			Type:       "object",
			Properties: make(map[string]Property, len(meta.Args)),
		},
	}
	if meta.LongDesc != "" {
		tool.Description = meta.LongDesc
	}

	for _, arg := range meta.Args {
		tool.InputSchema.Properties[arg.Name] = property(arg)
		if arg.Required {
			tool.InputSchema.Required = append(tool.InputSchema.Required, arg.Name)
		}
	}
	return tool
}

func property(arg commands.ArgMeta) Property {
	item := Property{Type: "string"}
	switch arg.Kind {
	case commands.KindInt:
		item.Type = "integer"
	case commands.KindFloat:
		item.Type = "number"
	case commands.KindEnum:
		item.Enum = arg.Enum
	}

	var p Property
	switch {
	case arg.Kind == commands.KindBool:
		p = Property{Type: "boolean"}
	case arg.Kind == commands.KindCount:
		zero := 0.0
		p = Property{Type: "integer", Minimum: &zero}
	case arg.Multiple:
		p = Property{Type: "array", Items: &item}
	default:
		p = item
	}
	p.Description = arg.Description
	if arg.HasDefault {
		p.Default = typedDefault(arg)
	}
	return p
}

func typedDefault(arg commands.ArgMeta) any {
	switch arg.Kind {
	case commands.KindInt:
		if n, err := strconv.ParseInt(arg.Default, 10, 64); err == nil {
			return n
		}
	case commands.KindFloat:
		if f, err := strconv.ParseFloat(arg.Default, 64); err == nil {
			return f
		}
	}
	return arg.Default
}

// ToolName converts a command path to a tool name.
// e.g., ("services", "status") -> "nv_services_status"
func ToolName(noun, verb string) string {
	return ToolPrefix + noun + "_" + verb
}

// CommandPath converts a tool name back to noun and verb.
// Nouns are slugs and never contain underscores, so the first underscore
// after the prefix separates them.
func CommandPath(toolName string) (noun, verb string, ok bool) {
	name, found := strings.CutPrefix(toolName, ToolPrefix)
	if !found {
		return "", "", false
	}
	return commands.ResolveCommandPath(name)
}

// BuildArgs renders a JSON argument object as raw command-line words for
// meta: every named argument first, then "--", then positionals in declared
// order. Keys may use underscores in place of hyphens. Unknown keys and values
// that do not fit the argument are errors.
func BuildArgs(meta commands.Meta, args map[string]any) ([]string, error) {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		key := strings.ReplaceAll(k, "_", "-")
		if _, known := meta.Arg(key); !known {
			return nil, fmt.Errorf("unknown argument %q for %s", k, meta.Name())
		}
		normalized[key] = v
	}

	var flags, positionals []string
	for _, arg := range meta.Args {
		val, ok := normalized[arg.Name]
		if !ok || val == nil {
			continue
		}

		switch arg.Kind {
		case commands.KindBool:
			b, ok := val.(bool)
			if !ok {
				return nil, typeError(arg, val)
			}
			if b {
				flags = append(flags, "--"+arg.Name)
			}
			continue
		case commands.KindCount:
			n, err := integer(val)
			if err != nil || n < 0 {
				return nil, typeError(arg, val)
			}
			for i := int64(0); i < n; i++ {
				flags = append(flags, "--"+arg.Name)
			}
			continue
		}

		var words []string
		if arg.Multiple {
			items, ok := val.([]any)
			if !ok {
				return nil, typeError(arg, val)
			}
			for _, item := range items {
				s, err := scalar(item)
				if err != nil {
					return nil, typeError(arg, item)
				}
				words = append(words, s)
			}
		} else {
			s, err := scalar(val)
			if err != nil {
				return nil, typeError(arg, val)
			}
			words = []string{s}
		}

		if arg.Positional {
			positionals = append(positionals, words...)
			continue
		}
		for _, w := range words {
			flags = append(flags, "--"+arg.Name+"="+w)
		}
	}

	out := flags
	if len(positionals) > 0 {
		out = append(append(out, "--"), positionals...)
	}
	return out, nil
}

func typeError(arg commands.ArgMeta, val any) error {
	return fmt.Errorf("argument %q expects %s, got %T", arg.Name, arg.Shape(), val)
}

func scalar(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10), nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	}
	return "", fmt.Errorf("unsupported value %T", v)
}

func integer(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%v is not an integer", val)
		}
		return int64(val), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	}
	return 0, fmt.Errorf("unsupported value %T", v)
}
