package cache

import (
	"context"
	"testing"
	"time"
)

// Without a shared store the dispatcher degrades to metrics bookkeeping;
// it must never error or panic.
func TestInvalidator_MetricsOnly(t *testing.T) {
	recorder := NewRecorder()
	iv := NewInvalidator(nil, recorder)
	ctx := context.Background()

	iv.InvalidateJournal(ctx, "first-post", []string{"golang"}, []string{"go", "web"})

	snap := recorder.Snapshot()
	for _, key := range []string{"journals:detail", "journals:list", "journals:search", "categories:list", "tags:list"} {
		m, ok := snap[key]
		if !ok {
			t.Errorf("no miss recorded against well-known key %q", key)
			continue
		}
		if m.Misses == 0 {
			t.Errorf("key %q has zero misses", key)
		}
	}
}

func TestInvalidator_CategoryAndTag(t *testing.T) {
	recorder := NewRecorder()
	iv := NewInvalidator(nil, recorder)
	ctx := context.Background()

	iv.InvalidateCategory(ctx, "golang")
	iv.InvalidateTag(ctx, "web")

	snap := recorder.Snapshot()
	if snap["categories:list"].Misses != 1 {
		t.Errorf("categories:list misses = %d, want 1", snap["categories:list"].Misses)
	}
	if snap["tags:list"].Misses != 1 {
		t.Errorf("tags:list misses = %d, want 1", snap["tags:list"].Misses)
	}
}

func TestInvalidator_EvictsFromStore(t *testing.T) {
	store := NewStore(setupTestRedis(t))
	recorder := NewRecorder()
	iv := NewInvalidator(store, recorder)
	ctx := context.Background()

	entry := testEntry(5 * time.Minute)
	detail := JournalKey("first-post")
	list := JournalListKey(ListQuery{Page: 1, Limit: 10})
	categories := CategoryListKey()

	for _, k := range []Key{detail, list, categories} {
		if err := store.Set(ctx, k, entry); err != nil {
			t.Fatalf("Set(%v) error = %v", k.String(), err)
		}
	}

	iv.InvalidateJournal(ctx, "first-post", []string{"golang"}, nil)

	for _, k := range []Key{detail, list, categories} {
		if _, err := store.Get(ctx, k); err != ErrCacheMiss {
			t.Errorf("key %v survived invalidation (err = %v)", k.String(), err)
		}
	}
}

func TestInvalidator_DeleteCascadesUntouchedTag(t *testing.T) {
	store := NewStore(setupTestRedis(t))
	iv := NewInvalidator(store, NewRecorder())
	ctx := context.Background()

	tags := TagListKey(false)
	if err := store.Set(ctx, tags, testEntry(5*time.Minute)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Journal without tag references: the tag listing stays cached.
	iv.InvalidateJournal(ctx, "untagged-post", nil, nil)

	if _, err := store.Get(ctx, tags); err != nil {
		t.Errorf("tag listing evicted without a tag cascade: %v", err)
	}
}
