package board

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Policy decides how local lead collections are refreshed after a commit.
type Policy struct {
	store    *Store
	registry *Registry
	log      logrus.FieldLogger
}

// Confirm applies a server-confirmed move locally and re-fetches exactly the affected boards.
func (p *Policy) Confirm(ctx context.Context, plan movePlan) error {
	p.store.applyConfirmed(plan)
	return p.Invalidate(ctx, plan.affected()...)
}

// Invalidate re-fetches each named board from page 1. Boards refresh independently and
// concurrently; boards not named are left alone. The first error is returned after every
// board has finished.
func (p *Policy) Invalidate(ctx context.Context, boardIDs ...string) error {
	seen := map[string]bool{}
	var g errgroup.Group
	for _, id := range boardIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		src, ok := p.registry.Lookup(id)
		if !ok {
			p.log.WithField("board", id).Debug("invalidate unknown board")
			continue
		}
		id := id
		g.Go(func() error {
			if err := src.Refetch(ctx); err != nil {
				p.log.WithError(err).WithField("board", id).Warn("refetch board")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
