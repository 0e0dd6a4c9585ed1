package logger

import (
	"sync"
)

var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores l as the logger of the named component.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get returns the logger registered for a component. Unregistered names get
// the global logger tagged with the component name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterComponents registers base.WithComponent(name) for every name, so
// packages that look up their logger with Get share the application's
// output and level.
func RegisterComponents(base *Logger, names ...string) {
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}
