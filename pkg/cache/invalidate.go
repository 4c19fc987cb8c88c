package cache

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Invalidator marks cached responses stale after content mutations. It is
// invoked from the content store's post-write and post-delete hooks.
//
// Eviction removes entries from the shared response store; the recorder is
// additionally charged with a miss against the well-known key of each
// affected query family so hit-rate reporting reflects the invalidation.
// Invalidation failures are logged and swallowed: correctness of the write
// must never depend on cache bookkeeping succeeding.
type Invalidator struct {
	store    *Store // nil when no shared response store is configured
	recorder *Recorder
	logger   zerolog.Logger
}

// NewInvalidator creates an invalidation dispatcher. A nil store degrades
// to metrics-and-log-only behavior, relying on fronting caches to honor
// max-age.
func NewInvalidator(store *Store, recorder *Recorder) *Invalidator {
	return &Invalidator{
		store:    store,
		recorder: recorder,
		logger:   log.With().Str("component", "invalidator").Logger(),
	}
}

// InvalidateJournal invalidates a single journal plus every list and
// search variant, and cascades into the category and tag listings the
// journal references. An empty slug invalidates all journal detail keys.
func (iv *Invalidator) InvalidateJournal(ctx context.Context, slug string, categories, tags []string) {
	Invalidations.WithLabelValues(CollectionJournals).Inc()

	if slug != "" {
		iv.evictKey(ctx, JournalKey(slug))
	} else {
		iv.evictPrefix(ctx, Key{Collection: CollectionJournals, Operation: OpDetail}.Prefix())
	}
	iv.recorder.Miss(Key{Collection: CollectionJournals, Operation: OpDetail}.Prefix())

	// List and search results embed counts and orderings, so any journal
	// write makes every parameter variant stale.
	iv.evictPrefix(ctx, Key{Collection: CollectionJournals, Operation: OpList}.Prefix())
	iv.recorder.Miss(Key{Collection: CollectionJournals, Operation: OpList}.Prefix())
	iv.evictPrefix(ctx, Key{Collection: CollectionJournals, Operation: OpSearch}.Prefix())
	iv.recorder.Miss(Key{Collection: CollectionJournals, Operation: OpSearch}.Prefix())

	for _, c := range categories {
		iv.InvalidateCategory(ctx, c)
	}
	for _, t := range tags {
		iv.InvalidateTag(ctx, t)
	}

	iv.logger.Debug().
		Str("slug", slug).
		Int("categories", len(categories)).
		Int("tags", len(tags)).
		Msg("Journal cache invalidated")
}

// InvalidateCategory invalidates the category listing. Category counts are
// computed across journals, so the whole listing goes stale regardless of
// which category changed.
func (iv *Invalidator) InvalidateCategory(ctx context.Context, slug string) {
	Invalidations.WithLabelValues(CollectionCategories).Inc()

	iv.evictPrefix(ctx, CategoryListKey().Prefix())
	iv.recorder.Miss(CategoryListKey().Prefix())

	iv.logger.Debug().Str("slug", slug).Msg("Category cache invalidated")
}

// InvalidateTag invalidates the tag listing, including the hideEmpty
// variant.
func (iv *Invalidator) InvalidateTag(ctx context.Context, slug string) {
	Invalidations.WithLabelValues(CollectionTags).Inc()

	iv.evictPrefix(ctx, TagListKey(false).Prefix())
	iv.recorder.Miss(TagListKey(false).Prefix())

	iv.logger.Debug().Str("slug", slug).Msg("Tag cache invalidated")
}

func (iv *Invalidator) evictKey(ctx context.Context, key Key) {
	if iv.store == nil {
		return
	}
	if err := iv.store.Delete(ctx, key); err != nil {
		iv.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache eviction failed")
		return
	}
	EvictedEntries.Inc()
}

func (iv *Invalidator) evictPrefix(ctx context.Context, prefix string) {
	if iv.store == nil {
		return
	}
	n, err := iv.store.DeleteByPrefix(ctx, prefix)
	if err != nil {
		iv.logger.Warn().Err(err).Str("prefix", prefix).Msg("Cache eviction failed")
	}
	EvictedEntries.Add(float64(n))
}
