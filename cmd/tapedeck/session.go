package main

import (
	"sync"

	"tapedeck/internal/deck"
	"tapedeck/internal/diagnostics"
	"tapedeck/internal/logging"
	"tapedeck/internal/pages"
)

// categorySink logs each diagnostic under the category named by its
// source, so per-category toggles in the logging config apply.
type categorySink struct {
	reg *logging.Registry

	mu    sync.Mutex
	sinks map[string]*diagnostics.Logger
}

func newCategorySink(reg *logging.Registry) *categorySink {
	if reg == nil {
		reg = logging.Nop()
	}
	return &categorySink{reg: reg, sinks: make(map[string]*diagnostics.Logger)}
}

func (c *categorySink) Emit(d diagnostics.Diagnostic) {
	c.mu.Lock()
	sink, ok := c.sinks[d.Source]
	if !ok {
		sink = diagnostics.NewLogger(c.reg.Get(logging.Category(d.Source)))
		c.sinks[d.Source] = sink
	}
	c.mu.Unlock()
	sink.Emit(d)
}

// buildSession creates a session from the loaded config on catalog. Extra
// sinks receive every diagnostic alongside the log.
func buildSession(catalog *pages.Catalog, extra ...diagnostics.Sink) (*deck.Session, error) {
	opts := deck.DefaultOptions()
	if cfg != nil {
		opts = deck.OptionsFromConfig(cfg)
	}
	opts.Index = catalog
	opts.Sink = diagnostics.Multi(append([]diagnostics.Sink{newCategorySink(logs)}, extra...)...)
	return deck.New(opts)
}
