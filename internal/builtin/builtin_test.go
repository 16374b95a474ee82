package builtin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/telemetry"
	"github.com/aidanlsb/nounverb/internal/toolschema"
	"github.com/aidanlsb/nounverb/internal/validate"
)

type env struct {
	rt  *app.Runtime
	ctx context.Context
	dir string
}

func newEnv(t *testing.T, configText string) *env {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if configText != "" {
		require.NoError(t, os.WriteFile(path, []byte(configText), 0o644))
	}

	reg := registry.New(registry.WithReservedNouns(app.ReservedNouns...))
	require.NoError(t, reg.Initialize(Registrations(), Nouns()))

	rt, err := app.Open(context.Background(), app.Options{ConfigPath: path, Registry: reg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return &env{rt: rt, ctx: app.WithRuntime(context.Background(), rt), dir: dir}
}

func (e *env) run(noun, verb string, raw ...string) (any, error) {
	return e.rt.Dispatcher.Dispatch(e.ctx, noun, verb, raw)
}

func TestRegistrationsAreValid(t *testing.T) {
	for _, r := range Registrations() {
		assert.NoError(t, r.Err, r.Meta.Name())
	}
	e := newEnv(t, "")
	nouns, err := e.rt.Registry.Nouns()
	require.NoError(t, err)
	assert.Equal(t, []string{"commands", "config", "plugins", "telemetry"}, nouns)
}

func TestCommandsList(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run("commands", "list", "--noun", "config")
	require.NoError(t, err)
	assert.Equal(t, []commandInfo{
		{Command: "config init", About: "Write a commented default config file"},
		{Command: "config path", About: "Print the config file path"},
		{Command: "config show", About: "Show the effective configuration"},
	}, out)

	out, err = e.run("commands", "list")
	require.NoError(t, err)
	assert.Len(t, out, len(Registrations()))
}

func TestCommandsListUnknownNoun(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run("commands", "list", "--noun", "confg")
	assert.ErrorIs(t, err, registry.ErrCommandNotFound)
	var lerr *registry.LookupError
	require.True(t, errors.As(err, &lerr))
	assert.NotEmpty(t, lerr.Suggestions)
}

func TestCommandsNouns(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run("commands", "nouns")
	require.NoError(t, err)
	nouns := out.([]nounInfo)
	require.Len(t, nouns, 4)
	assert.Equal(t, "commands", nouns[0].Noun)
	assert.Equal(t, []string{"describe", "invoke", "list", "nouns", "schema"}, nouns[0].Verbs)
	assert.Equal(t, "Inspect and invoke registered commands", nouns[0].About)
}

func TestCommandsDescribe(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run("commands", "describe", "config", "init")
	require.NoError(t, err)
	d := out.(description)
	assert.Equal(t, "config init", d.Command)
	assert.Equal(t, "nv config init [flags]", d.Usage)
	require.Len(t, d.Args, 1)
	assert.Equal(t, "force", d.Args[0].Name)
	assert.Equal(t, "f", d.Args[0].Short)
	assert.NotEmpty(t, d.Text())

	_, err = e.run("commands", "describe", "config", "int")
	assert.ErrorIs(t, err, registry.ErrVerbNotFound)
}

func TestCommandsSchema(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run("commands", "schema", "--noun", "telemetry")
	require.NoError(t, err)
	tools := out.([]toolschema.Tool)
	require.Len(t, tools, 3)
	assert.Equal(t, "nv_telemetry_clear", tools[0].Name)
	assert.Equal(t, "integer", tools[1].InputSchema.Properties["limit"].Type)
}

func TestCommandsInvoke(t *testing.T) {
	e := newEnv(t, "")
	out, err := e.run("commands", "invoke", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, configPath{Path: filepath.Join(e.dir, "config.toml")}, out)

	out, err = e.run("commands", "invoke", "config", "init", "--input", `{"force": true}`)
	require.NoError(t, err)
	assert.True(t, out.(initResult).Written)

	_, err = e.run("commands", "invoke", "config", "init", "--input", `{"force": "yes"}`)
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "--input", verr.Arg)

	_, err = e.run("commands", "invoke", "config", "init", "-i", `[1, 2]`)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "JSON object", verr.Expected)
}

func TestConfigCommands(t *testing.T) {
	e := newEnv(t, "")
	path := filepath.Join(e.dir, "config.toml")

	out, err := e.run("config", "init")
	require.NoError(t, err)
	assert.Equal(t, initResult{Path: path, Written: true}, out)
	assert.FileExists(t, path)

	out, err = e.run("config", "init")
	require.NoError(t, err)
	assert.False(t, out.(initResult).Written)
	assert.Contains(t, out.(initResult).Text(), "--force")

	out, err = e.run("config", "show")
	require.NoError(t, err)
	view := out.(configView)
	assert.True(t, view.Exists)
	assert.Contains(t, view.Text(), "[search]")
	assert.Contains(t, view.Text(), "suggest_limit = 3")
}

func TestTelemetryCommands(t *testing.T) {
	e := newEnv(t, "[telemetry]\nenabled = true\n")
	_, err := e.run("config", "path")
	require.NoError(t, err)
	_, err = e.run("config", "pth")
	require.Error(t, err)

	out, err := e.run("telemetry", "recent", "-n", "1")
	require.NoError(t, err)
	recs := out.([]telemetry.Record)
	require.Len(t, recs, 1)
	assert.Equal(t, "not_found", recs[0].Outcome)

	out, err = e.run("telemetry", "recent", "--noun", "config", "--noun", "commands")
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = e.run("telemetry", "summary")
	require.NoError(t, err)
	stats := out.([]telemetry.Stat)
	require.NotEmpty(t, stats)

	out, err = e.run("telemetry", "clear")
	require.NoError(t, err)
	assert.Positive(t, out.(clearResult).Removed)
}

func TestTelemetryDisabled(t *testing.T) {
	e := newEnv(t, "")
	_, err := e.run("telemetry", "recent")
	assert.ErrorIs(t, err, app.ErrTelemetryDisabled)
}

func TestPluginsList(t *testing.T) {
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "plugins")
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "cache.yaml"),
		[]byte("noun: cache\ncommands:\n  - verb: purge\n    exec: [echo]\n  - verb: warm\n    exec: [echo]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "bad.yaml"), []byte("noun: [\n"), 0o644))

	e := newEnv(t, "[plugins]\ndir = \""+filepath.ToSlash(pluginDir)+"\"\n")
	out, err := e.run("plugins", "list")
	require.NoError(t, err)
	list := out.(pluginList)
	require.Len(t, list.Plugins, 1)
	assert.Equal(t, []string{"purge", "warm"}, list.Plugins[0].Commands)
	require.Len(t, list.Errors, 1)
	assert.Contains(t, list.Errors[0], "bad.yaml")
	assert.Contains(t, list.Text(), "cache")
}
