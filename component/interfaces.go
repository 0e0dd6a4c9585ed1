package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the process.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself in the startup summary.
type Description struct {
	// Name is the display name. The component's Name() is used when empty.
	Name string
	// Type categorizes the component: "server", "telemetry", "model".
	Type string
	// Details is a one-line summary such as "127.0.0.1:8000 mode=dev".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is implemented by components that report a Description.
type Describable interface {
	Describe() Description
}

// Route is one HTTP route served by a component.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components serving HTTP routes.
type RouteProvider interface {
	Routes() []Route
}
