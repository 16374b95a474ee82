package ui

import (
	"strings"
	"testing"
)

const helpPage = "# services status\n\nShow service status\n\n## Usage\n\n    nv services status <service> [flags]\n\n" +
	"## Arguments\n\n| Argument | Accepts | Required | Description |\n|---|---|---|---|\n| `service` | string | yes | Service name |\n"

func TestRenderMarkdownNormalizesTrailingNewline(t *testing.T) {
	out, err := RenderMarkdown("# Heading", 80)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected rendered markdown to end with newline, got %q", out)
	}
	if strings.HasSuffix(out, "\n\n") {
		t.Fatalf("expected single trailing newline, got %q", out)
	}
}

func TestRenderMarkdownDefaultsWidthWhenNonPositive(t *testing.T) {
	out, err := RenderMarkdown("hello", 0)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatalf("expected non-empty rendered output")
	}
}

func TestRenderMarkdownPlainHelpPage(t *testing.T) {
	orig := plain
	t.Cleanup(func() {
		plain = orig
	})
	plain = true

	out, err := RenderMarkdown(helpPage, 100)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no escape sequences in plain mode, got %q", out)
	}
	for _, want := range []string{"services status", "nv services status <service> [flags]", "Service name"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in rendered help, got:\n%s", want, out)
		}
	}
}

func TestHelpStyle(t *testing.T) {
	style := helpStyle()

	if style.H1.Underline == nil || !*style.H1.Underline {
		t.Fatalf("expected the command heading to be underlined")
	}
	if style.Heading.Bold == nil || !*style.Heading.Bold {
		t.Fatalf("expected headings to be bold")
	}
	if style.Code.Color == nil || style.CodeBlock.StylePrimitive.Color == nil {
		t.Fatalf("expected inline code and usage blocks to be colored")
	}
	if style.Table.ColumnSeparator == nil {
		t.Fatalf("expected argument tables to have a column separator")
	}
}

func TestHelpStyleUsesAccentForHeadings(t *testing.T) {
	t.Cleanup(func() {
		ConfigureTheme("")
	})

	ConfigureTheme("39")
	style := helpStyle()
	if style.Heading.Color == nil || *style.Heading.Color != "39" {
		t.Fatalf("expected accent heading color, got %v", style.Heading.Color)
	}

	ConfigureTheme("")
	if helpStyle().Heading.Color != nil {
		t.Fatalf("expected default heading color without an accent")
	}
}

func TestConfigureMarkdownCodeTheme(t *testing.T) {
	orig := markdownCodeTheme
	t.Cleanup(func() {
		markdownCodeTheme = orig
	})

	ConfigureMarkdownCodeTheme("DrAcUlA")
	if got := helpStyle().CodeBlock.Theme; got != "dracula" {
		t.Fatalf("expected normalized code theme dracula, got %q", got)
	}

	ConfigureMarkdownCodeTheme("not-a-real-theme")
	if markdownCodeTheme != defaultCodeTheme {
		t.Fatalf("expected default code theme %q, got %q", defaultCodeTheme, markdownCodeTheme)
	}
}
