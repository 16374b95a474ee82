package commands

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func statusMeta() Meta {
	return Meta{
		Noun:        "services",
		Verb:        "status",
		Description: "Show service status",
		Args: []ArgMeta{
			{Name: "service", Description: "Service name", Required: true, Positional: true, Kind: KindString, Completions: []string{"api", "worker"}},
			{Name: "lines", Description: "Number of log lines", Short: 'n', Kind: KindInt},
			{Name: "format", Description: "Output format", Kind: KindEnum, Enum: []string{"json", "text"}, Completions: []string{"json", "text"}},
			{Name: "follow", Description: "Follow output", IsFlag: true, Kind: KindBool},
		},
		Examples: []string{"nv services status api --lines 20"},
	}
}

// TestCobraCommandGeneration verifies Cobra command generation works.
func TestCobraCommandGeneration(t *testing.T) {
	var gotRaw []string
	cmd := GenerateCobraCommand(statusMeta(), func(cmd *cobra.Command, raw []string) error {
		gotRaw = raw
		return nil
	})

	if cmd.Use != "status <service> [flags]" {
		t.Errorf("Use = %q, want 'status <service> [flags]'", cmd.Use)
	}
	if cmd.Short != "Show service status" {
		t.Errorf("Short = %q", cmd.Short)
	}
	if !strings.Contains(cmd.Long, "Examples:\n  nv services status api --lines 20") {
		t.Errorf("Long missing examples block: %q", cmd.Long)
	}
	if !cmd.DisableFlagParsing {
		t.Error("expected flag parsing to be disabled")
	}
	if cmd.Annotations["noun"] != "services" || cmd.Annotations["verb"] != "status" {
		t.Errorf("Annotations = %v", cmd.Annotations)
	}

	if err := cmd.RunE(cmd, []string{"api", "--lines", "3"}); err != nil {
		t.Fatalf("RunE: %v", err)
	}
	if strings.Join(gotRaw, " ") != "api --lines 3" {
		t.Errorf("raw args = %v", gotRaw)
	}
}

// TestCobraCommandWithNoArgs verifies commands with no args work.
func TestCobraCommandWithNoArgs(t *testing.T) {
	cmd := GenerateCobraCommand(Meta{Noun: "commands", Verb: "nouns", Description: "List nouns"}, nil)
	if cmd.Use != "nouns" {
		t.Errorf("Use = %q, want 'nouns'", cmd.Use)
	}
	if cmd.RunE != nil {
		t.Error("expected nil RunE without a run func")
	}
	if cmd.ValidArgsFunction != nil {
		t.Error("expected no completion func without args")
	}
}

func TestUsageSuffix(t *testing.T) {
	tests := []struct {
		name string
		args []ArgMeta
		want string
	}{
		{"none", nil, ""},
		{"optional positional", []ArgMeta{{Name: "target", Positional: true}}, " [target]"},
		{"repeatable", []ArgMeta{{Name: "files", Positional: true, Required: true, Multiple: true}}, " <files...>"},
		{"flags only", []ArgMeta{{Name: "force", IsFlag: true}}, " [flags]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UsageSuffix(Meta{Args: tt.args}); got != tt.want {
				t.Errorf("UsageSuffix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	cmd := GenerateCobraCommand(statusMeta(), nil)
	complete := cmd.ValidArgsFunction

	got, directive := complete(cmd, nil, "a")
	if len(got) != 1 || got[0] != "api" {
		t.Errorf("positional completion = %v", got)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}

	got, _ = complete(cmd, []string{"api"}, "--f")
	if len(got) != 2 || !strings.HasPrefix(got[0], "--format") || !strings.HasPrefix(got[1], "--follow") {
		t.Errorf("flag completion = %v", got)
	}

	got, _ = complete(cmd, []string{"api", "--format"}, "")
	if strings.Join(got, ",") != "json,text" {
		t.Errorf("flag value completion = %v", got)
	}

	got, _ = complete(cmd, []string{"api", "--follow"}, "")
	if len(got) != 0 {
		t.Errorf("expected no completions past the last positional, got %v", got)
	}
}

func TestResolveCommandPath(t *testing.T) {
	tests := []struct {
		in         string
		noun, verb string
		ok         bool
	}{
		{"services status", "services", "status", true},
		{"  services   status ", "services", "status", true},
		{"services_status", "services", "status", true},
		{"services", "", "", false},
		{"", "", "", false},
		{"a b c", "", "", false},
	}
	for _, tt := range tests {
		noun, verb, ok := ResolveCommandPath(tt.in)
		if noun != tt.noun || verb != tt.verb || ok != tt.ok {
			t.Errorf("ResolveCommandPath(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, noun, verb, ok, tt.noun, tt.verb, tt.ok)
		}
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Show service status.", "Show service status."},
		{"skips heading", "# Status\n\nShow the *current* status\nof a `service`.\n\nMore text.", "Show the current status of a service."},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.in); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHelpMarkdown(t *testing.T) {
	md := HelpMarkdown(statusMeta(), "nv")
	for _, want := range []string{
		"# services status",
		"## Usage",
		"nv services status <service> [flags]",
		"| `<service>` |",
		"## Examples",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected help to contain %q, got:\n%s", want, md)
		}
	}
}
