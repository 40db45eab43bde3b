// Package plugins hosts plugin implementation subpackages. It contains no
// runtime code; this file anchors the architecture test that keeps plugins
// on the public surface.
//
// A plugin may import fitcore/internal/core (for Plugin and PluginRegistry)
// and fitcore/pkg/domain. The resolver, index, bus and catalog internals are
// off limits so their shapes can change without breaking plugins.
package plugins
