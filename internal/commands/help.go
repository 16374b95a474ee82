package commands

import (
	"fmt"
	"strings"
)

// HelpMarkdown renders the full help page of a command as markdown.
// program is the binary name used in the usage line.
func HelpMarkdown(meta Meta, program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Name())

	if meta.LongDesc != "" {
		b.WriteString(strings.TrimSpace(meta.LongDesc))
	} else {
		b.WriteString(meta.Description)
	}
	b.WriteString("\n\n## Usage\n\n")
	fmt.Fprintf(&b, "    %s %s%s\n", program, meta.Name(), UsageSuffix(meta))

	if len(meta.Args) > 0 {
		b.WriteString("\n## Arguments\n\n")
		b.WriteString("| Argument | Accepts | Required | Description |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, a := range meta.Args {
			desc := a.Description
			if a.HasDefault {
				desc = strings.TrimSpace(desc + " (default: " + a.Default + ")")
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n",
				argLabel(a), a.Shape(), yesNo(a.Required), escapeCell(desc))
		}
	}

	if len(meta.Examples) > 0 {
		b.WriteString("\n## Examples\n\n")
		for _, ex := range meta.Examples {
			fmt.Fprintf(&b, "    %s\n", ex)
		}
	}
	return b.String()
}

func argLabel(a ArgMeta) string {
	if a.Positional {
		return "<" + a.Name + ">"
	}
	if a.Short != 0 {
		return "-" + string(a.Short) + ", --" + a.Name
	}
	return "--" + a.Name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
