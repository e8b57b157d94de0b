package config

import (
	"log"
	"sync/atomic"
)

// Holder owns the current watcher rules. Readers always get a complete
// snapshot; Reload swaps the whole value at once.
type Holder struct {
	path string
	cur  atomic.Pointer[Plugin]
}

// OpenHolder creates the rules file with defaults if it does not exist yet,
// then loads it.
func OpenHolder(path string) (*Holder, error) {
	created, err := EnsurePlugin(path)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("[config] wrote default rules to %s", path)
	}
	h := &Holder{path: path}
	h.Reload()
	return h, nil
}

// Path returns the rules file location.
func (h *Holder) Path() string {
	return h.path
}

// Current returns the active rules snapshot.
func (h *Holder) Current() *Plugin {
	return h.cur.Load()
}

// Reload rereads the rules file. When the file is missing or invalid the
// defaults take effect and the error is returned for reporting.
func (h *Holder) Reload() (*Plugin, error) {
	p, err := LoadPlugin(h.path)
	if err != nil {
		log.Printf("[config] rules file cannot be used (%v), reverting to default config value", err)
		p = DefaultPlugin()
	}
	h.cur.Store(p)
	return p, err
}
