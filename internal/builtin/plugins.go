package builtin

import (
	"context"
	"strings"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/ui"
)

type pluginInfo struct {
	Noun     string   `json:"noun"`
	File     string   `json:"file"`
	Commands []string `json:"commands"`
}

type pluginList struct {
	Dir     string       `json:"dir"`
	Plugins []pluginInfo `json:"plugins"`
	Errors  []string     `json:"errors,omitempty"`
}

func (l pluginList) Text() string {
	var b strings.Builder
	if len(l.Plugins) == 0 {
		b.WriteString(ui.Hint("No plugins in " + l.Dir))
	} else {
		t := ui.NewTable(ui.NewDisplayContext(),
			ui.Column{Header: "NOUN"},
			ui.Column{Header: "VERBS", Flex: true},
			ui.Column{Header: "FILE", Flex: true},
		)
		for _, p := range l.Plugins {
			t.AddRow(p.Noun, strings.Join(p.Commands, ", "), p.File)
		}
		b.WriteString(t.Render())
	}
	for _, e := range l.Errors {
		b.WriteString("\n" + ui.Warning(e))
	}
	return b.String()
}

func listPlugins(ctx context.Context, _ struct{}) (pluginList, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return pluginList{}, err
	}
	out := pluginList{Dir: rt.Config.PluginDir(), Plugins: []pluginInfo{}}
	for _, m := range rt.Plugins {
		info := pluginInfo{Noun: m.Noun, File: m.File}
		for _, c := range m.Commands {
			info.Commands = append(info.Commands, c.Verb)
		}
		out.Plugins = append(out.Plugins, info)
	}
	for _, err := range rt.PluginErrors {
		out.Errors = append(out.Errors, strings.Split(err.Error(), "\n")...)
	}
	return out, nil
}

func pluginRegistrations() []registry.Registration {
	return []registry.Registration{
		registry.Func("plugins", "list", "List loaded plugin manifests", listPlugins),
	}
}
