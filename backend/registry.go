package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory opens one backend variant on surface.
// It returns ErrUnsupported (possibly wrapped) when the environment lacks
// the API, and must release anything it created before returning an error.
type Factory func(ctx context.Context, surface Surface, log *slog.Logger) (Context, error)

type variant struct {
	name     string
	priority int
	factory  Factory
}

// Registry holds backend factories grouped by kind.
// Within a kind, variants are tried from highest to lowest priority.
type Registry struct {
	mu       sync.RWMutex
	variants map[Kind][]variant
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[Kind][]variant)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that backend packages register
// into from their init functions.
func Default() *Registry { return defaultRegistry }

// Register adds a variant to the default registry.
func Register(kind Kind, name string, priority int, f Factory) {
	defaultRegistry.Register(kind, name, priority, f)
}

// Register adds a variant. A variant with the same kind and name is replaced.
func (r *Registry) Register(kind Kind, name string, priority int, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.variants[kind]
	for i := range list {
		if list[i].name == name {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, variant{name: name, priority: priority, factory: f})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority > list[j].priority })
	r.variants[kind] = list
}

// Unregister removes a variant. This is useful for testing.
func (r *Registry) Unregister(kind Kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.variants[kind]
	for i := range list {
		if list[i].name == name {
			r.variants[kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Available returns the registered variants as "kind/name", in selection
// order: Explicit first, then Legacy, each by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, k := range []Kind{Explicit, Legacy} {
		for _, v := range r.variants[k] {
			names = append(names, k.String()+"/"+v.name)
		}
	}
	return names
}

// IsRegistered reports whether any variant of kind is registered.
func (r *Registry) IsRegistered(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.variants[kind]) > 0
}

func (r *Registry) snapshot(kind Kind) []variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]variant(nil), r.variants[kind]...)
}

// Open brings up a backend on surface, preferring requested.
//
// Variants of requested are tried in priority order; if all fail, Legacy is
// tried next. Every step down is logged as "backend downgraded". Open only
// fails when nothing could be opened, with an error wrapping
// ErrNoBackendAvailable and every attempt's failure, or when ctx is done.
func (r *Registry) Open(ctx context.Context, surface Surface, requested Kind, log *slog.Logger) (Context, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	kinds := []Kind{requested}
	if requested != Legacy {
		kinds = append(kinds, Legacy)
	}

	var errs []error
	for i, kind := range kinds {
		if i > 0 {
			log.Info("backend downgraded",
				"from", kinds[i-1].String(),
				"to", kind.String(),
				"reason", errors.Join(errs...))
		}
		c, err := r.openKind(ctx, surface, kind, log)
		if c != nil {
			return c, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackendAvailable, errors.Join(errs...))
}

// openKind tries every variant of kind, degrading from one to the next.
func (r *Registry) openKind(ctx context.Context, surface Surface, kind Kind, log *slog.Logger) (Context, error) {
	list := r.snapshot(kind)
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrUnsupported)
	}

	var errs []error
	for i, v := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := v.factory(ctx, surface, log)
		if err == nil && c == nil {
			err = fmt.Errorf("factory returned no context: %w", ErrUnsupported)
		}
		if err == nil {
			return c, nil
		}
		err = fmt.Errorf("%s/%s: %w", kind, v.name, err)
		errs = append(errs, err)
		if i+1 < len(list) {
			log.Info("backend downgraded",
				"from", kind.String()+"/"+v.name,
				"to", kind.String()+"/"+list[i+1].name,
				"reason", err)
		}
	}
	return nil, errors.Join(errs...)
}
