// Package plugin manages the lifecycle of call event subscribers such as
// escalation notifiers and the audit trail.
package plugin

import (
	"context"

	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
)

// Plugin is a subscriber started with the server and closed on shutdown.
type Plugin interface {
	// ID returns a unique identifier for the plugin (e.g., "slack").
	ID() string

	// Name returns a human-readable name.
	Name() string

	// Init subscribes the plugin to the events it handles.
	Init(ctx context.Context, api API) error

	// Close releases resources. Called once, in reverse registration order.
	Close() error
}

// API is what a plugin is handed at Init.
type API struct {
	Hooks *hooks.Manager
	Log   *logging.Logger
}

// PluginInfo is a summary of a registered plugin.
type PluginInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
