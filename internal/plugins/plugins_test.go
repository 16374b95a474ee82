package plugins

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aidanlsb/nounverb/internal/commands"
	"github.com/aidanlsb/nounverb/internal/dispatch"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const deployManifest = `noun: deploy
about: Deployment helpers
commands:
  - verb: status
    about: Show rollout status
    exec: [sh, -c, 'echo "$NV_NOUN $NV_VERB $*"', plugin]
    args:
      - name: env
        enum: [dev, prod]
        positional: true
        required: true
      - name: watch
        kind: bool
        short: w
      - name: timeout
        kind: int
        default: "30"
  - verb: fail
    about: Always fails
    exec: [sh, -c, 'echo oops >&2; exit 4']
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readyRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Initialize([]registry.Registration{
		registry.Func("services", "status", "Show service status",
			func(_ context.Context, _ struct{}) (string, error) { return "up", nil }),
	}, nil))
	return reg
}

func TestParseManifest(t *testing.T) {
	m, err := Parse([]byte(deployManifest), "/plugins/deploy.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deploy", m.Noun)
	require.Len(t, m.Commands, 2)

	meta, err := m.Meta(0)
	require.NoError(t, err)
	assert.Equal(t, "deploy status", meta.Name())
	require.Len(t, meta.Args, 3)

	env := meta.Args[0]
	assert.Equal(t, commands.KindEnum, env.Kind)
	assert.True(t, env.Positional)
	assert.True(t, env.Required)
	assert.Equal(t, []string{"dev", "prod"}, env.Completions)

	watch := meta.Args[1]
	assert.True(t, watch.IsFlag)
	assert.False(t, watch.Required)
	assert.Equal(t, 'w', watch.Short)

	timeout := meta.Args[2]
	assert.Equal(t, commands.KindInt, timeout.Kind)
	assert.True(t, timeout.HasDefault)
	assert.False(t, timeout.Required)
}

func TestParseDerivesNounFromFileName(t *testing.T) {
	m, err := Parse([]byte("commands:\n  - verb: run\n    exec: [echo]\n"), "/plugins/Build Tools.yml")
	require.NoError(t, err)
	assert.Equal(t, "build-tools", m.Noun)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"empty", ""},
		{"unknown field", "noun: x\nverbs: []\n"},
		{"no commands", "noun: x\n"},
		{"bad noun", "noun: Deploy Tools\ncommands:\n  - verb: run\n    exec: [echo]\n"},
		{"empty exec", "noun: x\ncommands:\n  - verb: run\n"},
		{"unknown kind", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: n\n        kind: duration\n"},
		{"bad default", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: n\n        kind: int\n        default: many\n"},
		{"positional bool", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: n\n        kind: bool\n        positional: true\n"},
		{"duplicate arg", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: n\n      - name: n\n"},
		{"help arg", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: help\n"},
		{"required after optional", "noun: x\ncommands:\n  - verb: run\n    exec: [echo]\n    args:\n      - name: a\n        positional: true\n      - name: b\n        positional: true\n        required: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest), "x.yaml")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidManifest)
			var merr *ManifestError
			assert.True(t, errors.As(err, &merr))
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-deploy.yaml", deployManifest)
	writeFile(t, dir, "a-cache.yml", "noun: cache\ncommands:\n  - verb: purge\n    exec: [echo]\n")
	writeFile(t, dir, "broken.yaml", "noun: [\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	manifests, err := LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
	require.Len(t, manifests, 2)
	assert.Equal(t, "cache", manifests[0].Noun)
	assert.Equal(t, "deploy", manifests[1].Noun)
}

func TestLoadDirMissing(t *testing.T) {
	manifests, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestLoadDirDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deploy.yaml", deployManifest)

	l := NewLoader(WithDisabled(func(noun string) bool { return noun == "deploy" }))
	manifests, err := l.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestLoadDirCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deploy.yaml", deployManifest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterReportsDuplicatesPerCommand(t *testing.T) {
	reg := readyRegistry(t)
	clash, err := Parse([]byte("noun: services\ncommands:\n  - verb: status\n    exec: [echo]\n  - verb: logs\n    exec: [echo]\n"), "services.yaml")
	require.NoError(t, err)

	registered, err := Register(reg, []*Manifest{clash})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrDuplicate)
	assert.Equal(t, []string{"services logs"}, registered)

	_, err = reg.Lookup("services", "logs")
	assert.NoError(t, err)
}

func TestRegisterBeforeReady(t *testing.T) {
	m, err := Parse([]byte(deployManifest), "deploy.yaml")
	require.NoError(t, err)
	_, err = Register(registry.New(), []*Manifest{m})
	assert.ErrorIs(t, err, registry.ErrNotReady)
}

func TestPluginCommandRuns(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	reg := readyRegistry(t)
	dir := t.TempDir()
	writeFile(t, dir, "deploy.yaml", deployManifest)
	manifests, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	registered, err := Register(reg, manifests)
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy status", "deploy fail"}, registered)

	d := dispatch.New(reg)
	out, err := d.Dispatch(context.Background(), "deploy", "status", []string{"prod", "-w"})
	require.NoError(t, err)
	res, ok := out.(*ExecResult)
	require.True(t, ok)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "deploy status --watch --timeout=30 -- prod\n", res.Stdout)

	_, err = d.Dispatch(context.Background(), "deploy", "status", []string{"staging"})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.OutOfRange, verr.Kind)

	out, err = d.Dispatch(context.Background(), "deploy", "fail", nil)
	require.Error(t, err)
	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 4, code)
	res = out.(*ExecResult)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestRenderArgs(t *testing.T) {
	args := []commands.ArgMeta{
		{Name: "files", Kind: commands.KindPath, Positional: true, Multiple: true, Required: true},
		{Name: "verbose", Kind: commands.KindCount, IsFlag: true, Multiple: true, Short: 'v'},
		{Name: "tag", Kind: commands.KindString, Multiple: true},
		{Name: "dry-run", Kind: commands.KindBool, IsFlag: true},
	}
	m, err := validate.Parse(args, []string{"a.txt", "-vv", "--tag", "x", "--tag", "y", "b.txt"})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"--verbose", "--verbose", "--tag=x", "--tag=y", "--", "a.txt", "b.txt"},
		RenderArgs(args, m))

	m, err = validate.Parse(args[1:], []string{"--tag", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--tag=x"}, RenderArgs(args[1:], m))
}

func TestRenderArgsKeepsEscapedPositionals(t *testing.T) {
	args := []commands.ArgMeta{
		{Name: "mode", Kind: commands.KindString},
		{Name: "target", Kind: commands.KindString, Positional: true, Required: true},
	}
	m, err := validate.Parse(args, []string{"--mode=x", "--", "-rf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--mode=x", "--", "-rf"}, RenderArgs(args, m))
}
