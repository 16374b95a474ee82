package registry

import (
	"fmt"
	"sync"
)

// Collector gathers registrations emitted from independent packages, usually
// from their init functions, and installs them into a Registry exactly once.
type Collector struct {
	mu      sync.Mutex
	pending []Registration
	nouns   []NounSpec
	sealed  bool

	once sync.Once
	err  error
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add queues a registration. Adding after Init has run is a programmer error and panics.
func (c *Collector) Add(reg Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		panic(fmt.Sprintf("registry: Collect(%q) after Init; use Registry.Register", reg.Meta.Name()))
	}
	c.pending = append(c.pending, reg)
}

// AddNoun queues a noun declaration.
func (c *Collector) AddNoun(spec NounSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		panic(fmt.Sprintf("registry: CollectNoun(%q) after Init", spec.Name))
	}
	c.nouns = append(c.nouns, spec)
}

// Pending returns the number of queued registrations.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Init installs every queued registration into r and seals the collector.
//
// Init is idempotent: concurrent and repeated calls observe a single execution,
// every caller blocks until it completes, and all receive its error. Later calls
// ignore r. On failure r is left Uninitialized.
func (c *Collector) Init(r *Registry) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.sealed = true
		regs := append([]Registration(nil), c.pending...)
		nouns := append([]NounSpec(nil), c.nouns...)
		c.mu.Unlock()

		c.err = r.Initialize(regs, nouns)
	})
	return c.err
}

var (
	defaultCollector = NewCollector()

	bootOnce sync.Once
	bootReg  *Registry
	bootErr  error
)

// Collect queues a registration on the process-wide collector.
// Command packages call it from init:
//
//	func init() {
//		registry.Collect(registry.Func("services", "status", "Show service status", status))
//	}
func Collect(reg Registration) {
	defaultCollector.Add(reg)
}

// CollectNoun declares a noun's about text on the process-wide collector.
func CollectNoun(name, about string) {
	defaultCollector.AddNoun(NounSpec{Name: name, About: about})
}

// Bootstrap builds the process registry from everything collected so far.
// It runs once; every caller receives the same registry or the same error.
func Bootstrap(opts ...Option) (*Registry, error) {
	bootOnce.Do(func() {
		r := New(opts...)
		if err := defaultCollector.Init(r); err != nil {
			bootErr = err
			return
		}
		bootReg = r
	})
	return bootReg, bootErr
}
