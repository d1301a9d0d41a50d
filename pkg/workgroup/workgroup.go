// Package workgroup runs goroutines tied to a shared context and collects
// their first error.
package workgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group is a set of goroutines sharing a context. The first goroutine to
// return an error cancels the rest.
type Group struct {
	ctx   context.Context
	group *errgroup.Group
}

// WithContext creates a Group derived from ctx.
func WithContext(ctx context.Context) *Group {
	group, gctx := errgroup.WithContext(ctx)
	return &Group{
		ctx:   gctx,
		group: group,
	}
}

// Work runs fn in the group.
func (g *Group) Work(fn func(context.Context) error) {
	g.group.Go(func() error {
		return fn(g.ctx)
	})
}

// Context is cancelled once any work fails or the parent is done.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Wait blocks until all work returns and reports the first error.
func (g *Group) Wait() error {
	return g.group.Wait()
}
