// Package registry holds the authoritative set of noun-verb commands.
//
// A Registry moves through Uninitialized -> Initializing -> Ready exactly once.
// Every read made before Ready fails with ErrNotReady. Once Ready, reads load an
// immutable snapshot without locking; Register copies the snapshot on write, so
// later inserts go through the same validation as the initial batch.
package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/aidanlsb/nounverb/internal/commands"
)

// State is the lifecycle state of a Registry.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Entry is a registered command.
type Entry struct {
	Meta    commands.Meta
	Handler Handler
}

// Name returns the command path ("services status").
func (e *Entry) Name() string {
	return e.Meta.Name()
}

// NounEntry groups the verbs of one noun.
type NounEntry struct {
	Name  string
	About string
	Verbs map[string]*Entry
}

// VerbNames returns the noun's verbs in lexicographic order.
func (n *NounEntry) VerbNames() []string {
	names := make([]string, 0, len(n.Verbs))
	for v := range n.Verbs {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// NounSpec declares a noun and its about text.
type NounSpec struct {
	Name  string
	About string
}

type snapshot struct {
	nouns   map[string]*NounEntry
	entries []*Entry // noun, then verb
	names   []string // sorted nouns
}

// Registry is the command store. The zero value is not usable; call New.
type Registry struct {
	mu       sync.Mutex // serializes writers
	state    atomic.Int32
	snap     atomic.Pointer[snapshot]
	reserved map[string]bool
	flags    map[string]bool // "--name" and "-x" forms
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReservedNouns rejects registrations under the given nouns.
func WithReservedNouns(nouns ...string) Option {
	return func(r *Registry) {
		for _, n := range nouns {
			r.reserved[n] = true
		}
	}
}

// WithReservedFlags rejects commands declaring a named argument or shorthand
// that is one of flags, given as "--name" or "-x".
func WithReservedFlags(flags ...string) Option {
	return func(r *Registry) {
		for _, f := range flags {
			r.flags[f] = true
		}
	}
}

// New creates an Uninitialized registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		reserved: make(map[string]bool),
		flags:    make(map[string]bool),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Initialize installs the initial batch of nouns and commands and moves the
// registry to Ready. If any registration is rejected, nothing is installed and
// the registry returns to Uninitialized; the error joins every rejection.
func (r *Registry) Initialize(regs []Registration, nouns []NounSpec) error {
	if !r.state.CompareAndSwap(int32(Uninitialized), int32(Initializing)) {
		return ErrAlreadyInitialized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := &snapshot{nouns: make(map[string]*NounEntry)}
	var errs []error
	for _, spec := range nouns {
		if err := r.addNoun(next, spec); err != nil {
			errs = append(errs, err)
		}
	}
	for _, reg := range regs {
		if err := r.add(next, reg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.state.Store(int32(Uninitialized))
		return joinErrors(errs)
	}

	next.reindex()
	r.snap.Store(next)
	r.state.Store(int32(Ready))
	r.logger.Info("registry ready",
		zap.Int("nouns", len(next.names)),
		zap.Int("commands", len(next.entries)))
	return nil
}

// Register inserts one command into a Ready registry.
// The noun and verb come from meta; a repeated pair returns a *DuplicateError
// and leaves the registry unchanged.
func (r *Registry) Register(meta commands.Meta, h Handler) error {
	return r.Add(Registration{Meta: meta, Handler: h})
}

// Add inserts a prepared registration into a Ready registry.
func (r *Registry) Add(reg Registration) error {
	if r.State() != Ready {
		return ErrNotReady
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snap.Load().clone()
	if err := r.add(next, reg); err != nil {
		return err
	}
	next.reindex()
	r.snap.Store(next)
	return nil
}

// RegisterNoun declares a noun on a Ready registry.
func (r *Registry) RegisterNoun(spec NounSpec) error {
	if r.State() != Ready {
		return ErrNotReady
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snap.Load().clone()
	if err := r.addNoun(next, spec); err != nil {
		return err
	}
	next.reindex()
	r.snap.Store(next)
	return nil
}

// Lookup returns the command registered under noun and verb.
// A miss is a *LookupError.
func (r *Registry) Lookup(noun, verb string) (*Entry, error) {
	s, err := r.load()
	if err != nil {
		return nil, err
	}
	n, ok := s.nouns[noun]
	if !ok || len(n.Verbs) == 0 {
		return nil, &LookupError{Kind: CommandNotFound, Noun: noun, Verb: verb}
	}
	e, ok := n.Verbs[verb]
	if !ok {
		return nil, &LookupError{Kind: VerbNotFound, Noun: noun, Verb: verb}
	}
	return e, nil
}

// ListAll returns every command ordered by noun, then verb.
func (r *Registry) ListAll() ([]*Entry, error) {
	s, err := r.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.entries), nil
}

// Nouns returns the registered nouns in lexicographic order.
func (r *Registry) Nouns() ([]string, error) {
	s, err := r.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.names), nil
}

// Noun returns one noun with its verbs.
func (r *Registry) Noun(name string) (*NounEntry, error) {
	s, err := r.load()
	if err != nil {
		return nil, err
	}
	n, ok := s.nouns[name]
	if !ok || len(n.Verbs) == 0 {
		return nil, &LookupError{Kind: CommandNotFound, Noun: name}
	}
	return n, nil
}

// Len returns the number of registered commands, or 0 before Ready.
func (r *Registry) Len() int {
	s, err := r.load()
	if err != nil {
		return 0
	}
	return len(s.entries)
}

func (r *Registry) load() (*snapshot, error) {
	if r.State() != Ready {
		return nil, ErrNotReady
	}
	return r.snap.Load(), nil
}

func (r *Registry) checkName(noun, verb string) error {
	if !slug.IsSlug(noun) || (verb != "" && !slug.IsSlug(verb)) {
		return ErrInvalidName
	}
	if r.reserved[noun] {
		return ErrReservedNoun
	}
	return nil
}

// checkFlags rejects arguments the CLI would consume as global flags.
// Positionals are never typed as --name, so only their shorthands matter.
func (r *Registry) checkFlags(args []commands.ArgMeta) error {
	for _, a := range args {
		if !a.Positional && r.flags["--"+a.Name] {
			return fmt.Errorf("%w: --%s", ErrReservedFlag, a.Name)
		}
		if a.Short != 0 && r.flags["-"+string(a.Short)] {
			return fmt.Errorf("%w: -%c (argument %s)", ErrReservedFlag, a.Short, a.Name)
		}
	}
	return nil
}

func (r *Registry) addNoun(s *snapshot, spec NounSpec) error {
	if err := r.checkName(spec.Name, ""); err != nil {
		return &RegistrationError{Noun: spec.Name, Err: err}
	}
	n, ok := s.nouns[spec.Name]
	if !ok {
		s.nouns[spec.Name] = &NounEntry{Name: spec.Name, About: spec.About, Verbs: map[string]*Entry{}}
		return nil
	}
	switch {
	case spec.About == "" || spec.About == n.About:
	case n.About == "":
		s.nouns[spec.Name] = &NounEntry{Name: n.Name, About: spec.About, Verbs: n.Verbs}
	default:
		return &RegistrationError{Noun: spec.Name, Err: fmt.Errorf("%w: %q vs %q", ErrNounConflict, n.About, spec.About)}
	}
	return nil
}

func (r *Registry) add(s *snapshot, reg Registration) error {
	meta := reg.Meta
	fail := func(err error) error {
		return &RegistrationError{Noun: meta.Noun, Verb: meta.Verb, Err: err}
	}
	if reg.Err != nil {
		return fail(reg.Err)
	}
	if meta.Verb == "" {
		return fail(ErrInvalidName)
	}
	if err := r.checkName(meta.Noun, meta.Verb); err != nil {
		return fail(err)
	}
	if reg.Handler == nil {
		return fail(ErrNilHandler)
	}
	if err := r.checkFlags(meta.Args); err != nil {
		return fail(err)
	}

	n, ok := s.nouns[meta.Noun]
	if !ok {
		n = &NounEntry{Name: meta.Noun, Verbs: map[string]*Entry{}}
		s.nouns[meta.Noun] = n
	}
	if _, exists := n.Verbs[meta.Verb]; exists {
		r.logger.Warn("duplicate command registration",
			zap.String("noun", meta.Noun),
			zap.String("verb", meta.Verb))
		return &DuplicateError{Noun: meta.Noun, Verb: meta.Verb}
	}

	// Copy the noun so earlier snapshots never observe the insert.
	verbs := make(map[string]*Entry, len(n.Verbs)+1)
	for k, v := range n.Verbs {
		verbs[k] = v
	}
	verbs[meta.Verb] = &Entry{Meta: meta, Handler: reg.Handler}
	s.nouns[meta.Noun] = &NounEntry{Name: n.Name, About: n.About, Verbs: verbs}

	r.logger.Debug("command registered",
		zap.String("noun", meta.Noun),
		zap.String("verb", meta.Verb),
		zap.Int("args", len(meta.Args)))
	return nil
}

func (s *snapshot) clone() *snapshot {
	nouns := make(map[string]*NounEntry, len(s.nouns))
	for k, v := range s.nouns {
		nouns[k] = v
	}
	return &snapshot{nouns: nouns}
}

func (s *snapshot) reindex() {
	s.entries = s.entries[:0]
	s.names = s.names[:0]
	for name, n := range s.nouns {
		if len(n.Verbs) == 0 {
			continue
		}
		s.names = append(s.names, name)
		for _, e := range n.Verbs {
			s.entries = append(s.entries, e)
		}
	}
	sort.Strings(s.names)
	slices.SortFunc(s.entries, func(a, b *Entry) int {
		if c := cmp.Compare(a.Meta.Noun, b.Meta.Noun); c != 0 {
			return c
		}
		return cmp.Compare(a.Meta.Verb, b.Meta.Verb)
	})
}
