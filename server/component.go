package server

import (
	"cmp"
	"context"
	"slices"

	"github.com/kbukum/mediaflow/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*ServerComponent)(nil)
	_ component.Describable   = (*ServerComponent)(nil)
	_ component.RouteProvider = (*ServerComponent)(nil)
)

// ServerComponent wraps Server to implement component.Component.
type ServerComponent struct {
	server *Server
}

// NewComponent returns a component.Component backed by the given Server.
func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

// Name returns the component name used for registration.
func (sc *ServerComponent) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (sc *ServerComponent) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

// Stop gracefully shuts down the underlying HTTP server.
func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health reports whether the listener is still serving.
func (sc *ServerComponent) Health(ctx context.Context) component.Health {
	if sc.server.Running() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    componentName,
		Status:  component.StatusUnhealthy,
		Message: "HTTP server not serving",
	}
}

// Describe returns infrastructure summary info for the startup log.
func (sc *ServerComponent) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: sc.server.config.Addr(),
		Port:    sc.server.config.Port,
	}
}

// Routes returns the registered routes sorted by path, then method.
func (sc *ServerComponent) Routes() []component.Route {
	ginRoutes := sc.server.engine.Routes()
	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, Handler: r.Handler})
	}
	slices.SortFunc(routes, func(a, b component.Route) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
	return routes
}
