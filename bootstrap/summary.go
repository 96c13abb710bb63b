package bootstrap

import (
	"time"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/logger"
)

// logSummary logs what came up: one line per component and, at debug
// level, every HTTP route.
func (a *App[C]) logSummary(took time.Duration) {
	for _, c := range a.Components.All() {
		fields := logger.Fields(logger.FieldComponent, c.Name())
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
		}
		a.Logger.Info("Component up", fields)

		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				a.Logger.Debug("Route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
			}
		}
	}
	a.Logger.Info("Startup complete", logger.Fields(
		"components", len(a.Components.All()),
		"workers", len(a.workers),
		logger.FieldDuration, took.Milliseconds(),
	))
}
