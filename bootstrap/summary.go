package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/hypermodel/component"
	"github.com/kbukum/hypermodel/pipeline"
)

// Summary renders the startup banner of a served application.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a summary for the named service.
func NewSummary(serviceName, version string) *Summary {
	if version == "" {
		version = "dev"
	}
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display writes the banner: components, pipelines, routes and live health.
// registry and pipelines may be nil.
func (s *Summary) Display(w io.Writer, registry *component.Registry, pipelines *pipeline.App) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var components []component.Component
	if registry != nil {
		components = registry.All()
	}

	if len(components) > 0 {
		fmt.Fprintf(w, "\n📊 Components\n")
		for i, c := range components {
			d := describe(c)
			details := d.Details
			if d.Port > 0 && !strings.Contains(details, fmt.Sprintf(":%d", d.Port)) {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s [%s] %s: %s\n", branch(i, len(components)), d.Type, d.Name, details)
		}
	}

	if pipelines != nil {
		if ps := pipelines.Pipelines(); len(ps) > 0 {
			fmt.Fprintf(w, "\n🔀 Pipelines (%d)\n", len(ps))
			for i, p := range ps {
				line := fmt.Sprintf("%s (%d tasks)", p.Name(), len(p.Tasks()))
				if p.Cron() != "" {
					line += " cron=" + p.Cron()
				}
				if p.Experiment() != "" {
					line += " experiment=" + p.Experiment()
				}
				fmt.Fprintf(w, "   %s %s\n", branch(i, len(ps)), line)
				for j, t := range p.Tasks() {
					indent := "│   "
					if i == len(ps)-1 {
						indent = "    "
					}
					deps := ""
					if len(t.Dependencies) > 0 {
						deps = " ← " + strings.Join(t.Dependencies, ", ")
					}
					fmt.Fprintf(w, "   %s%s %s%s\n", indent, branch(j, len(p.Tasks())), t.Name, deps)
				}
			}
		}
	}

	var routes []component.Route
	for _, c := range components {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		results := registry.HealthAll(context.Background())
		if len(results) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
			}
		}
	}

	fmt.Fprintln(w)
}

func describe(c component.Component) component.Description {
	var d component.Description
	if desc, ok := c.(component.Describable); ok {
		d = desc.Describe()
	}
	if d.Name == "" {
		d.Name = c.Name()
	}
	if d.Type == "" {
		d.Type = "component"
	}
	return d
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
