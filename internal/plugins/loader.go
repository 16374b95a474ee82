package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aidanlsb/nounverb/internal/registry"
)

// Loader reads manifests and registers their commands.
type Loader struct {
	logger   *zap.Logger
	disabled func(noun string) bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithDisabled skips manifests whose noun matches.
func WithDisabled(disabled func(noun string) bool) Option {
	return func(l *Loader) {
		l.disabled = disabled
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir is NewLoader().LoadDir.
func LoadDir(ctx context.Context, dir string) ([]*Manifest, error) {
	return NewLoader().LoadDir(ctx, dir)
}

// LoadDir parses every *.yaml and *.yml manifest in dir, in file name order.
// A missing directory has no manifests. Invalid manifests are skipped and
// reported together in the returned error; the valid ones are still returned.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	manifests := make([]*Manifest, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				errs[i] = &ManifestError{File: file, Err: err}
				return nil
			}
			manifests[i], errs[i] = Parse(data, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Manifest
	for i, m := range manifests {
		if errs[i] != nil {
			l.logger.Warn("skipping plugin manifest", zap.String("file", files[i]), zap.Error(errs[i]))
			continue
		}
		if l.disabled != nil && l.disabled(m.Noun) {
			l.logger.Debug("plugin disabled", zap.String("noun", m.Noun))
			continue
		}
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}

// Register is NewLoader().Register.
func Register(reg *registry.Registry, manifests []*Manifest) ([]string, error) {
	return NewLoader().Register(reg, manifests)
}

// Register adds every manifest command to a Ready registry through the same
// uniqueness check as built-in commands. A rejected command does not stop the
// others; the names of the registered commands are returned alongside every
// rejection.
func (l *Loader) Register(reg *registry.Registry, manifests []*Manifest) ([]string, error) {
	var (
		registered []string
		errs       []error
	)
	for _, m := range manifests {
		if m.About != "" {
			if err := reg.RegisterNoun(registry.NounSpec{Name: m.Noun, About: m.About}); err != nil {
				errs = append(errs, &ManifestError{File: m.File, Err: err})
				continue
			}
		}
		for i := range m.Commands {
			meta, err := m.Meta(i)
			if err != nil {
				errs = append(errs, &ManifestError{File: m.File, Err: err})
				continue
			}
			h := &execHandler{argv: m.Commands[i].Exec, dir: filepath.Dir(m.File), meta: meta}
			if err := reg.Register(meta, h); err != nil {
				l.logger.Warn("plugin command rejected",
					zap.String("file", m.File),
					zap.String("command", meta.Name()),
					zap.Error(err))
				errs = append(errs, &ManifestError{File: m.File, Err: err})
				continue
			}
			registered = append(registered, meta.Name())
		}
	}
	l.logger.Info("plugins registered", zap.Int("commands", len(registered)), zap.Int("rejected", len(errs)))
	return registered, errors.Join(errs...)
}
