package engine

import (
	"context"
	"regexp"
	"slices"
)

// Namespace is a typed view of an engine over the keys starting with Prefix.
// Services use it to share one engine while keeping their own key space and load options,
// such as a TTL.
type Namespace[V any] struct {
	// Engine is the engine loads go through. If nil, Default is used.
	Engine *Engine

	// Prefix is prepended to every id.
	Prefix string

	// Options are applied to every load of the namespace, before the per-call options.
	Options []LoadOption
}

// Key returns the engine key of id.
func (n *Namespace[V]) Key(id string) string {
	return n.Prefix + id
}

// Get loads the value of id.
func (n *Namespace[V]) Get(ctx context.Context, id string, producer func(context.Context) (V, error), opts ...LoadOption) (V, error) {
	return Load(ctx, n.engine(), n.Key(id), producer, append(slices.Clone(n.Options), opts...)...)
}

// IsLoading reports whether id is loading.
func (n *Namespace[V]) IsLoading(id string) bool {
	return n.engine().IsLoading(n.Key(id))
}

// Forget clears the cached value of id.
func (n *Namespace[V]) Forget(id string) {
	n.engine().ClearCacheRegexp(regexp.MustCompile("^" + regexp.QuoteMeta(n.Key(id)) + "$"))
}

// Invalidate clears every cached value of the namespace.
func (n *Namespace[V]) Invalidate() {
	n.engine().ClearCacheRegexp(regexp.MustCompile("^" + regexp.QuoteMeta(n.Prefix)))
}

func (n *Namespace[V]) engine() *Engine {
	if n.Engine == nil {
		return Default()
	}
	return n.Engine
}
