package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/nounverb/internal/app"
	"github.com/aidanlsb/nounverb/internal/config"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/ui"
)

type configView struct {
	Path   string         `json:"path"`
	Exists bool           `json:"exists"`
	Config *config.Config `json:"config"`
}

func (v configView) Text() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", ui.Hint("# "+v.Path))
	if err := toml.NewEncoder(&buf).Encode(v.Config); err != nil {
		return err.Error()
	}
	return strings.TrimRight(buf.String(), "\n")
}

func showConfig(ctx context.Context, _ struct{}) (configView, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return configView{}, err
	}
	return configView{Path: rt.Config.Path(), Exists: fileExists(rt.Config.Path()), Config: rt.Config}, nil
}

type configPath struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func (p configPath) Text() string {
	return p.Path
}

func showConfigPath(ctx context.Context, _ struct{}) (configPath, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return configPath{}, err
	}
	return configPath{Path: rt.Config.Path(), Exists: fileExists(rt.Config.Path())}, nil
}

type initArgs struct {
	Force bool `short:"f" help:"Overwrite an existing config file"`
}

type initResult struct {
	Path    string `json:"path"`
	Written bool   `json:"written"`
}

func (r initResult) Text() string {
	if r.Written {
		return ui.Successf("Wrote %s", r.Path)
	}
	return ui.Info(fmt.Sprintf("%s already exists", r.Path)) + "\n" + ui.Hint("Use --force to overwrite it.")
}

func initConfig(ctx context.Context, args initArgs) (initResult, error) {
	rt, err := app.FromContext(ctx)
	if err != nil {
		return initResult{}, err
	}
	path := rt.Config.Path()
	if path == "" {
		path = config.DefaultPath()
	}
	written, err := config.CreateDefault(path, args.Force)
	if err != nil {
		return initResult{}, err
	}
	return initResult{Path: path, Written: written}, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func configRegistrations() []registry.Registration {
	return []registry.Registration{
		registry.Func("config", "show", "Show the effective configuration", showConfig),
		registry.Func("config", "path", "Print the config file path", showConfigPath),
		registry.Func("config", "init", "Write a commented default config file", initConfig).
			WithExamples("nv config init", "nv --config ./nv.toml config init --force"),
	}
}
