package receiver

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NotFoundError is returned by Resolve for an unknown receiver name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("receiver %q not found", e.Name)
}

// Registry maps case-folded names to factories. It is safe for concurrent
// use, though registration is expected to finish before resolution starts.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	// log receives collision warnings; nil means the global logger at the
	// time of the warning.
	log *zerolog.Logger
}

// NewRegistry returns an empty registry that reports collisions to l.
func NewRegistry(l zerolog.Logger) *Registry {
	return &Registry{factories: map[string]Factory{}, log: &l}
}

func (r *Registry) logger() *zerolog.Logger {
	if r.log != nil {
		return r.log
	}
	return &log.Logger
}

func fold(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register stores f under name. Registering under a name already taken
// replaces the previous factory and always logs a warning.
func (r *Registry) Register(name string, f Factory) {
	if f == nil {
		panic(fmt.Sprintf("receiver: nil factory for %q", name))
	}
	key := fold(name)

	r.mu.Lock()
	old, exists := r.factories[key]
	r.factories[key] = f
	r.mu.Unlock()

	if exists {
		r.logger().Warn().
			Str("name", key).
			Str("old", funcName(old)).
			Str("new", funcName(f)).
			Msg("overwriting registered receiver")
	}
}

// Resolve returns the factory registered under name.
func (r *Registry) Resolve(name string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[fold(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return f, nil
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func funcPtr(f Factory) uintptr {
	return reflect.ValueOf(f).Pointer()
}

func funcName(f Factory) string {
	if fn := runtime.FuncForPC(funcPtr(f)); fn != nil {
		return fn.Name()
	}
	return fmt.Sprintf("%p", f)
}

// Default is the process-wide registry populated by receiver packages.
var Default = &Registry{factories: map[string]Factory{}}

// Register adds f to the Default registry.
func Register(name string, f Factory) { Default.Register(name, f) }

// Resolve looks name up in the Default registry.
func Resolve(name string) (Factory, error) { return Default.Resolve(name) }
