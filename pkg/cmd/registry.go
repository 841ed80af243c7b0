package cmd

import (
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/registry"
)

// NewRegistry creates the template catalog with the built-in step types.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultTemplates()

	return reg
}
