package api

import (
	"context"

	"github.com/caelumdev/journal-api/pkg/cache"
	"github.com/caelumdev/journal-api/pkg/content"
)

// invalidationHooks bridges content mutations into cache invalidation.
// For journal updates the cascade covers the union of the current and
// previous taxonomy, so moving an entry between categories invalidates
// both sides.
type invalidationHooks struct {
	inv *cache.Invalidator
}

func (h *invalidationHooks) JournalSaved(ctx context.Context, current, previous *content.Journal) {
	categories := affectedValues(journalCategories(current), journalCategories(previous))
	tags := affectedValues(journalTags(current), journalTags(previous))
	h.inv.InvalidateJournal(ctx, current.Slug, categories, tags)
}

func (h *invalidationHooks) JournalDeleted(ctx context.Context, deleted *content.Journal) {
	h.inv.InvalidateJournal(ctx, deleted.Slug, journalCategories(deleted), journalTags(deleted))
}

func (h *invalidationHooks) CategorySaved(ctx context.Context, slug string) {
	h.inv.InvalidateCategory(ctx, slug)
}

func (h *invalidationHooks) CategoryDeleted(ctx context.Context, slug string) {
	h.inv.InvalidateCategory(ctx, slug)
}

func (h *invalidationHooks) TagSaved(ctx context.Context, slug string) {
	h.inv.InvalidateTag(ctx, slug)
}

func (h *invalidationHooks) TagDeleted(ctx context.Context, slug string) {
	h.inv.InvalidateTag(ctx, slug)
}

func journalCategories(j *content.Journal) []string {
	if j == nil || j.Category == "" {
		return nil
	}
	return []string{j.Category}
}

func journalTags(j *content.Journal) []string {
	if j == nil {
		return nil
	}
	return j.Tags
}

// affectedValues merges both slices, dropping duplicates while keeping
// first-seen order.
func affectedValues(current, previous []string) []string {
	seen := make(map[string]struct{}, len(current)+len(previous))
	var out []string
	for _, v := range append(append([]string{}, current...), previous...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
