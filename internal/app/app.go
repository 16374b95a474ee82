// Package app assembles the process runtime: configuration, logging, the
// command registry and everything that serves it. Handlers reach the runtime
// through the context they are called with.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/aidanlsb/nounverb/internal/config"
	"github.com/aidanlsb/nounverb/internal/discovery"
	"github.com/aidanlsb/nounverb/internal/dispatch"
	"github.com/aidanlsb/nounverb/internal/logging"
	"github.com/aidanlsb/nounverb/internal/plugins"
	"github.com/aidanlsb/nounverb/internal/registry"
	"github.com/aidanlsb/nounverb/internal/telemetry"
	"github.com/aidanlsb/nounverb/internal/ui"
)

// ReservedNouns are entry points owned by the CLI itself.
var ReservedNouns = []string{"search", "help", "version", "completion"}

// ReservedFlags are the global flags. The CLI accepts them anywhere on the
// command line, so no command may declare them.
var ReservedFlags = []string{"--json", "--output", "--config", "--verbose", "-V", "--no-color"}

var (
	// ErrNoRuntime is returned by FromContext when no runtime was attached.
	ErrNoRuntime = errors.New("no runtime in context")
	// ErrTelemetryDisabled is returned when the journal is needed but off.
	ErrTelemetryDisabled = errors.New("telemetry is disabled")
)

// ConfigError reports an unreadable or invalid configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// StartupError reports a registry that could not be built.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return "registration failed: " + e.Err.Error()
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Options controls how the runtime is opened.
type Options struct {
	ConfigPath string // "" selects the default location
	Verbose    bool
	Stderr     io.Writer

	// Registry replaces the process registry built from registry.Collect.
	// It must already be Ready.
	Registry *registry.Registry
	// Config replaces loading from ConfigPath.
	Config *config.Config
	// SkipPlugins leaves plugin manifests unloaded.
	SkipPlugins bool
}

// Runtime is everything a command needs after startup.
type Runtime struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registry   *registry.Registry
	Search     *discovery.Engine
	Dispatcher *dispatch.Dispatcher

	// Journal is nil when telemetry is disabled.
	Journal *telemetry.Journal

	// Plugins holds the manifests whose commands were offered to the registry.
	Plugins []*plugins.Manifest
	// PluginErrors collects manifest and registration failures; they never
	// stop startup.
	PluginErrors []error

	closeLog func()
}

// Open builds the runtime. The registry reaches Ready before any plugin is
// registered or any command is dispatched.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		path := config.ResolveConfigPath(opts.ConfigPath)
		loaded, err := config.LoadPath(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: cfg.Path(), Err: err}
	}

	ui.ConfigureTheme(cfg.UI.Accent)
	ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)

	logOpts := logging.FromConfig(cfg, opts.Verbose)
	logOpts.Stderr = opts.Stderr
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, &ConfigError{Path: cfg.Path(), Err: err}
	}

	rt := &Runtime{Config: cfg, Logger: logger, closeLog: closeLog}

	rt.Registry = opts.Registry
	if rt.Registry == nil {
		rt.Registry, err = registry.Bootstrap(
			registry.WithReservedNouns(ReservedNouns...),
			registry.WithReservedFlags(ReservedFlags...),
			registry.WithLogger(logger.Named("registry")),
		)
		if err != nil {
			rt.Close()
			return nil, &StartupError{Err: err}
		}
	}

	rt.Search = discovery.New(rt.Registry, discovery.WithWeights(cfg.Search.Weights()))

	if !opts.SkipPlugins {
		rt.loadPlugins(ctx)
	}

	observers := []dispatch.Observer{}
	if cfg.Telemetry.Enabled {
		j, err := telemetry.Open(cfg.TelemetryPath(), telemetry.WithLogger(logger.Named("telemetry")))
		if err != nil {
			logger.Warn("telemetry unavailable", zap.String("path", cfg.TelemetryPath()), zap.Error(err))
		} else {
			rt.Journal = j
			observers = append(observers, j)
		}
	}

	rt.Dispatcher = dispatch.New(rt.Registry,
		dispatch.WithEngine(rt.Search),
		dispatch.WithLogger(logger.Named("dispatch")),
		dispatch.WithSuggestLimit(cfg.Search.SuggestLimit),
		dispatch.WithObservers(observers...),
	)
	return rt, nil
}

func (rt *Runtime) loadPlugins(ctx context.Context) {
	loader := plugins.NewLoader(
		plugins.WithLogger(rt.Logger.Named("plugins")),
		plugins.WithDisabled(rt.Config.PluginDisabled),
	)
	manifests, err := loader.LoadDir(ctx, rt.Config.PluginDir())
	if err != nil {
		rt.PluginErrors = append(rt.PluginErrors, err)
	}
	if len(manifests) == 0 {
		return
	}
	rt.Plugins = manifests
	if _, err := loader.Register(rt.Registry, manifests); err != nil {
		rt.PluginErrors = append(rt.PluginErrors, err)
	}
}

// OpenJournal returns the live journal, or opens the configured one for
// reading when telemetry is disabled but a journal file exists.
// The caller closes a journal it did not get from rt.Journal.
func (rt *Runtime) OpenJournal() (j *telemetry.Journal, owned bool, err error) {
	if rt.Journal != nil {
		return rt.Journal, false, nil
	}
	path := rt.Config.TelemetryPath()
	if _, err := os.Stat(path); err != nil {
		return nil, false, ErrTelemetryDisabled
	}
	j, err = telemetry.Open(path, telemetry.WithLogger(rt.Logger.Named("telemetry")))
	if err != nil {
		return nil, false, err
	}
	return j, true, nil
}

// Close releases the journal and flushes the logger.
func (rt *Runtime) Close() error {
	var err error
	if rt.Journal != nil {
		err = rt.Journal.Close()
	}
	if rt.closeLog != nil {
		rt.closeLog()
	}
	return err
}

type runtimeKey struct{}

// WithRuntime attaches rt to ctx.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// FromContext returns the runtime attached by WithRuntime.
func FromContext(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*Runtime)
	if !ok || rt == nil {
		return nil, ErrNoRuntime
	}
	return rt, nil
}
