// Package builtin registers the commands nv ships with. Importing it for its
// side effects adds them to the process registry.
package builtin

import (
	"github.com/aidanlsb/nounverb/internal/registry"
)

// Program is the binary name used in usage lines.
const Program = "nv"

// Nouns returns the nouns declared by the built-in commands.
func Nouns() []registry.NounSpec {
	return []registry.NounSpec{
		{Name: "commands", About: "Inspect and invoke registered commands"},
		{Name: "config", About: "Manage the nv configuration file"},
		{Name: "telemetry", About: "Inspect the local dispatch journal"},
		{Name: "plugins", About: "Inspect plugin manifests"},
	}
}

// Registrations returns every built-in command.
func Registrations() []registry.Registration {
	var regs []registry.Registration
	regs = append(regs, commandRegistrations()...)
	regs = append(regs, configRegistrations()...)
	regs = append(regs, telemetryRegistrations()...)
	regs = append(regs, pluginRegistrations()...)
	return regs
}

func init() {
	for _, n := range Nouns() {
		registry.CollectNoun(n.Name, n.About)
	}
	for _, r := range Registrations() {
		registry.Collect(r)
	}
}
