package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shelfsync/internal/catalog"
	"shelfsync/internal/ctire"
	"shelfsync/internal/store"
)

// categoryFrame is one unit of tree reconciliation work: an upstream node
// plus the position it occupies.
type categoryFrame struct {
	node   ctire.CategoryNode
	level  int
	parent string
	trail  []string // ancestor names, breadcrumb order
}

// syncCategoryTree reconciles the upstream tree against the store with an
// explicit work stack, so arbitrarily deep or wide trees never grow the
// call stack. An existing category only gets its breadcrumb path rewritten;
// role, level and parent stay as first created. Children are visited either
// way.
func (r *run) syncCategoryTree(ctx context.Context, roots []ctire.CategoryNode) error {
	stack := make([]categoryFrame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, categoryFrame{node: roots[i], level: 1})
	}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		trail := append(append([]string{}, frame.trail...), frame.node.Name)
		path := strings.Join(trail, " > ")

		existing, err := r.store.GetCategory(ctx, r.site.Name, frame.node.ID)
		switch {
		case err == nil:
			if err := r.store.UpdateCategoryPath(ctx, r.site.Name, frame.node.ID, path); err != nil {
				return fmt.Errorf("refresh category %s: %w", frame.node.ID, err)
			}
			r.stats.categoriesSeen.Add(1)
			slog.InfoContext(ctx, "category refreshed", "name", existing.Name, "path", path)
		case errors.Is(err, store.ErrNotFound):
			role := catalog.RoleLeaf
			if len(frame.node.Subcategories) > 0 {
				role = catalog.RoleNode
			}
			cat := catalog.Category{
				Site:     r.site.Name,
				OrigID:   frame.node.ID,
				Name:     frame.node.Name,
				URL:      r.site.URL + frame.node.URL,
				Role:     role,
				Level:    frame.level,
				Parent:   frame.parent,
				OrigPath: path,
			}
			if err := r.store.CreateCategory(ctx, cat); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("create category %s: %w", frame.node.ID, err)
			}
			r.stats.categoriesSeen.Add(1)
			r.stats.categoriesCreated.Add(1)
			slog.InfoContext(ctx, "category created", "name", cat.Name, "path", path, "role", role, "level", frame.level)
		default:
			return fmt.Errorf("look up category %s: %w", frame.node.ID, err)
		}

		// Reverse push keeps upstream sibling order in the walk.
		for i := len(frame.node.Subcategories) - 1; i >= 0; i-- {
			stack = append(stack, categoryFrame{
				node:   frame.node.Subcategories[i],
				level:  frame.level + 1,
				parent: frame.node.ID,
				trail:  trail,
			})
		}
	}
	return nil
}
