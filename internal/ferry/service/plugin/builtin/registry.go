// Package builtin lists the plugins compiled into the host.
package builtin

import (
	"github.com/kiosk404/ferry/internal/ferry/service/plugin"
	"github.com/kiosk404/ferry/internal/ferry/service/plugin/builtin/yunzhijia"
)

// NewInTreeRegistry returns the resolver for builtin: entry references.
func NewInTreeRegistry() *plugin.InTreeRegistry {
	r := plugin.NewInTreeRegistry()
	r.Register(yunzhijia.ID, yunzhijia.Entry)
	return r
}
