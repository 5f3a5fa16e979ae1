package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
)

// Registry starts and stops plugins in registration order.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	order   []string // insertion order for deterministic lifecycle
	started int      // plugins in order[:started] have been initialized
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewRegistry creates a plugin registry whose plugins subscribe to hm.
func NewRegistry(hm *hooks.Manager, log *logging.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		hooks:   hm,
		log:     log.Sub("plugins"),
	}
}

// Register adds a plugin without initializing it.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.ID()]; exists {
		return fmt.Errorf("plugin already registered: %s", p.ID())
	}
	r.plugins[p.ID()] = p
	r.order = append(r.order, p.ID())

	r.log.Debug().Str("id", p.ID()).Str("name", p.Name()).Msg("plugin registered")
	return nil
}

// InitAll initializes plugins in registration order. If one fails, the
// ones already started are closed before the error is returned.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order[r.started:] {
		api := API{Hooks: r.hooks, Log: r.log.Sub(id)}
		if err := r.plugins[id].Init(ctx, api); err != nil {
			r.closeStarted()
			return fmt.Errorf("init plugin %s: %w", id, err)
		}
		r.started++
		r.log.Info().Str("id", id).Msg("plugin started")
	}
	return nil
}

// CloseAll closes started plugins in reverse registration order.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeStarted()
}

func (r *Registry) closeStarted() {
	for i := r.started - 1; i >= 0; i-- {
		id := r.order[i]
		if err := r.plugins[id].Close(); err != nil {
			r.log.Error().Err(err).Str("id", id).Msg("plugin close error")
		}
	}
	r.started = 0
}

// List returns registered plugin IDs in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Info returns a summary of every registered plugin.
func (r *Registry) Info() []PluginInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]PluginInfo, 0, len(r.order))
	for _, id := range r.order {
		p := r.plugins[id]
		infos = append(infos, PluginInfo{ID: p.ID(), Name: p.Name()})
	}
	return infos
}
