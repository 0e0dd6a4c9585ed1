package inference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/hypermodel/component"
)

var (
	_ component.Component     = (*App)(nil)
	_ component.Describable   = (*App)(nil)
	_ component.RouteProvider = (*App)(nil)
)

// Health reports healthy while serving, degraded before Start.
func (a *App) Health(ctx context.Context) component.Health {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.httpServer == nil {
		return component.Health{Name: a.name, Status: component.StatusDegraded, Message: "not serving"}
	}
	return component.Health{Name: a.name, Status: component.StatusHealthy}
}

// Describe returns the summary line for the startup banner.
func (a *App) Describe() component.Description {
	a.mu.RLock()
	defer a.mu.RUnlock()
	addr := a.addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", a.mode.Host(), a.port)
	}
	details := fmt.Sprintf("%s mode=%s", addr, a.mode)
	if len(a.models) > 0 {
		details += " models=" + strings.Join(sortedKeys(a.models), ",")
	}
	return component.Description{
		Name:    "Inference API",
		Type:    "server",
		Details: details,
		Port:    a.port,
	}
}

// Routes lists the served routes, prediction routes first, then system routes.
func (a *App) Routes() []component.Route {
	ginRoutes := a.engine.Routes()
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return ginRoutes[i].Method < ginRoutes[j].Method
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: handlerName(r.Handler),
		})
	}
	return routes
}

// handlerName trims the package path from a gin handler name.
func handlerName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}
