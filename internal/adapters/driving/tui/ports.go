// Package tui provides an interactive terminal user interface for patiently.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Orchestrator runs the document lifecycle and builds the projection.
	Orchestrator driving.Orchestrator

	// Settings exposes the resolved configuration. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(orchestrator driving.Orchestrator, settings driving.SettingsService) *Ports {
	return &Ports{
		Orchestrator: orchestrator,
		Settings:     settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Orchestrator == nil {
		return ErrMissingOrchestrator
	}
	return nil
}
