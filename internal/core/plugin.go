package core

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"fitcore/pkg/domain"
)

// Plugin contributes procedures and restriction rules to an engine.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules      []Rule
	procedures map[string]domain.Procedure
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{procedures: make(map[string]domain.Procedure)}
}

// RegisterRule adds a restriction rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// RegisterProcedure makes a procedure resolvable by name from catalog
// modifiers.
func (r *PluginRegistry) RegisterProcedure(proc domain.Procedure) error {
	if proc == nil || proc.Name() == "" {
		return fmt.Errorf("procedure must have a name")
	}
	if _, exists := r.procedures[proc.Name()]; exists {
		return fmt.Errorf("procedure %s already registered", proc.Name())
	}
	r.procedures[proc.Name()] = proc
	return nil
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Procedures returns the registered procedure names, sorted.
func (r *PluginRegistry) Procedures() []string {
	out := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name       string
	Version    *semver.Version
	Rules      []string
	Procedures []string
}

func parsePluginVersion(p Plugin) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(p.Version())
	if err != nil {
		return nil, fmt.Errorf("plugin %s: invalid version %q: %w", p.Name(), p.Version(), err)
	}
	return v, nil
}
