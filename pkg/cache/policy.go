package cache

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ContentKind classifies a response for cache policy selection.
type ContentKind string

const (
	// KindJournalList covers paginated/filtered journal listings.
	KindJournalList ContentKind = "journal-list"

	// KindPublishedJournal covers single published entries (longest-lived).
	KindPublishedJournal ContentKind = "journal-published"

	// KindDraftJournal covers draft previews (never shared, never cached).
	KindDraftJournal ContentKind = "journal-draft"

	// KindCategoryList covers the category listing with computed counts.
	KindCategoryList ContentKind = "category-list"

	// KindTagList covers the tag listing with computed counts.
	KindTagList ContentKind = "tag-list"

	// KindSearchResults covers journal search results, assumed more
	// volatile per-query than plain listings.
	KindSearchResults ContentKind = "search-results"
)

// Policy is an immutable cache-control configuration for one content kind.
type Policy struct {
	// Kind names the policy in the X-Cache-Config diagnostic header.
	Kind ContentKind

	// MaxAge is the freshness lifetime in seconds.
	MaxAge int

	// StaleWhileRevalidate extends MaxAge with a stale-serving window
	// in seconds. Zero disables the directive.
	StaleWhileRevalidate int

	// MustRevalidate forbids serving stale content past MaxAge.
	MustRevalidate bool

	// Private marks the response as unshareable by intermediary caches.
	Private bool

	// NoCache forces revalidation on every use.
	NoCache bool
}

// policies is the process-wide policy table, chosen statically at startup.
var policies = map[ContentKind]Policy{
	KindPublishedJournal: {Kind: KindPublishedJournal, MaxAge: 3600, StaleWhileRevalidate: 600},
	KindDraftJournal:     {Kind: KindDraftJournal, Private: true, NoCache: true, MustRevalidate: true},
	KindJournalList:      {Kind: KindJournalList, MaxAge: 300, StaleWhileRevalidate: 60},
	KindCategoryList:     {Kind: KindCategoryList, MaxAge: 1800, StaleWhileRevalidate: 300},
	KindTagList:          {Kind: KindTagList, MaxAge: 1800, StaleWhileRevalidate: 300},
	KindSearchResults:    {Kind: KindSearchResults, MaxAge: 120, StaleWhileRevalidate: 30},
}

// PolicyFor returns the cache policy for a content kind. Unknown kinds get
// a conservative private no-cache policy.
func PolicyFor(kind ContentKind) Policy {
	if p, ok := policies[kind]; ok {
		return p
	}
	return Policy{Kind: kind, Private: true, NoCache: true, MustRevalidate: true}
}

// CacheControl renders the Cache-Control header value. Directive order is
// fixed: visibility, then no-cache or max-age (+stale-while-revalidate),
// then must-revalidate.
func (p Policy) CacheControl() string {
	directives := make([]string, 0, 4)

	if p.Private {
		directives = append(directives, "private")
	} else {
		directives = append(directives, "public")
	}

	if p.NoCache {
		directives = append(directives, "no-cache")
	} else {
		directives = append(directives, fmt.Sprintf("max-age=%d", p.MaxAge))
		if p.StaleWhileRevalidate > 0 {
			directives = append(directives, fmt.Sprintf("stale-while-revalidate=%d", p.StaleWhileRevalidate))
		}
	}

	if p.MustRevalidate {
		directives = append(directives, "must-revalidate")
	}

	return strings.Join(directives, ", ")
}

// TTL returns the freshness lifetime as a duration, for use as the
// response-store expiry.
func (p Policy) TTL() time.Duration {
	return time.Duration(p.MaxAge) * time.Second
}

// Apply attaches cache headers to a response. ETag and Last-Modified are
// set only when known. Two diagnostic headers echo the selected policy and
// the generation time.
func (p Policy) Apply(w http.ResponseWriter, etag string, lastModified time.Time) {
	h := w.Header()
	h.Set("Cache-Control", p.CacheControl())

	if etag != "" {
		h.Set("ETag", etag)
	}
	if !lastModified.IsZero() {
		h.Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}

	h.Set("X-Cache-Config", string(p.Kind))
	h.Set("X-Cache-Generated", time.Now().UTC().Format(http.TimeFormat))
}
