package component

import "context"

// HealthStatus is what a component reports to /health and /ready.
type HealthStatus string

// Statuses in increasing order of severity.
const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is one entry of the health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Overall folds component reports into the service status. An empty report
// is healthy; unknown statuses count as unhealthy.
func Overall(reports []Health) HealthStatus {
	overall := StatusHealthy
	for _, h := range reports {
		switch h.Status.severity() {
		case 2:
			return StatusUnhealthy
		case 1:
			overall = StatusDegraded
		}
	}
	return overall
}

// Component is a piece of infrastructure the Registry starts before the
// engine is wired and stops after the HTTP server has drained.
type Component interface {
	// Name keys the component in the Registry and in health reports.
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is one line of the startup summary, e.g. the media bucket or
// the Redis instance backing the execution store.
type Description struct {
	// Name defaults to the component's Name().
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components get a line in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is one registered HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider lists the routes a server component serves, for the
// startup summary.
type RouteProvider interface {
	Routes() []Route
}
