// Package content implements the journal/portfolio content domain on an
// embedded document store, with lifecycle hooks for cache invalidation.
package content

import (
	"context"
	"time"
)

// Status is the publication state of a journal entry.
type Status string

const (
	// StatusDraft entries are only visible through preview requests.
	StatusDraft Status = "draft"

	// StatusPublished entries appear on all public endpoints.
	StatusPublished Status = "published"
)

// Journal is a single journal (blog) entry.
type Journal struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Body        string    `json:"body,omitempty"`
	Status      Status    `json:"status"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Published reports whether the entry is publicly visible.
func (j *Journal) Published() bool {
	return j.Status == StatusPublished
}

// Category groups journal entries. Count is computed at read time from
// published journals and never stored.
type Category struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
}

// Tag labels journal entries. Count is computed at read time.
type Tag struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListQuery filters and paginates journal listings.
type ListQuery struct {
	Page     int
	Limit    int
	Status   Status
	Category string
	Tag      string
	Search   string
}

// JournalPatch is a partial journal update. Nil fields are left unchanged.
type JournalPatch struct {
	Title    *string
	Excerpt  *string
	Body     *string
	Status   *Status
	Category *string
	Tags     *[]string
}

// Hooks receive content mutations after they are committed to the store.
// The previous value is nil on create. Hook implementations must not fail
// the mutation; they are called for side effects only.
type Hooks interface {
	JournalSaved(ctx context.Context, current, previous *Journal)
	JournalDeleted(ctx context.Context, deleted *Journal)
	CategorySaved(ctx context.Context, slug string)
	CategoryDeleted(ctx context.Context, slug string)
	TagSaved(ctx context.Context, slug string)
	TagDeleted(ctx context.Context, slug string)
}
