// Package registry provides the static catalog of node templates available to
// the canvas palette.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// ConfigCheck performs template-specific semantic validation of a node config
// beyond what the JSON schema expresses (cron syntax, expression compilation).
type ConfigCheck func(config map[string]any) error

// Registry holds the immutable node template catalog.
type Registry struct {
	logger    *slog.Logger
	templates map[string]*models.NodeTemplate
	checks    map[string]ConfigCheck
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		templates: make(map[string]*models.NodeTemplate),
		checks:    make(map[string]ConfigCheck),
	}
}

// Register adds a template to the catalog. The check may be nil when the JSON
// schema alone is sufficient. Re-registering a type replaces the previous
// entry.
func (r *Registry) Register(template *models.NodeTemplate, check ConfigCheck) {
	r.templates[template.Type] = template

	if check != nil {
		r.checks[template.Type] = check
	}

	r.logger.Debug("Registered node template", "type", template.Type, "category", template.Category)
}

// Get returns the template for a node type.
func (r *Registry) Get(nodeType string) (*models.NodeTemplate, bool) {
	template, ok := r.templates[nodeType]

	return template, ok
}

// List returns every template sorted by type.
func (r *Registry) List() []*models.NodeTemplate {
	out := make([]*models.NodeTemplate, 0, len(r.templates))
	for _, template := range r.templates {
		out = append(out, template)
	}

	slices.SortFunc(out, func(a, b *models.NodeTemplate) int {
		return strings.Compare(a.Type, b.Type)
	})

	return out
}

// ByCategory returns templates of one category sorted by type.
func (r *Registry) ByCategory(category models.CategoryType) []*models.NodeTemplate {
	var out []*models.NodeTemplate

	for _, template := range r.templates {
		if template.Category == category {
			out = append(out, template)
		}
	}

	slices.SortFunc(out, func(a, b *models.NodeTemplate) int {
		return strings.Compare(a.Type, b.Type)
	})

	return out
}

// HealthCheck reports whether the catalog is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.templates) == 0 {
		return "Template catalog is empty", false
	}

	return fmt.Sprintf("Template catalog has %d templates", len(r.templates)), true
}

// IsTriggerType reports whether the node type is a registered trigger
// template. Unknown types are never triggers.
func (r *Registry) IsTriggerType(nodeType string) bool {
	template, ok := r.templates[nodeType]

	return ok && template.IsTrigger()
}

// CheckConfig runs the template-specific semantic check for a node type, if
// one is registered.
func (r *Registry) CheckConfig(nodeType string, config map[string]any) error {
	check, ok := r.checks[nodeType]
	if !ok {
		return nil
	}

	if err := check(config); err != nil {
		return fmt.Errorf("config check for %s: %w", nodeType, err)
	}

	return nil
}
