package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/caelumdev/journal-api/pkg/cache"
	"github.com/caelumdev/journal-api/pkg/content"
)

const jsonContentType = "application/json; charset=utf-8"

// fetchFunc produces the response payload and its effective modification
// time on a cache miss.
type fetchFunc func(ctx context.Context) (interface{}, time.Time, error)

// serveCached is the shared read pipeline: serve from the response store
// when possible, answer 304 when the client's validators still match, and
// otherwise regenerate, cache and serve the payload under the policy for
// the given content kind.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key cache.Key, kind cache.ContentKind, fetch fetchFunc) error {
	ctx := r.Context()
	policy := cache.PolicyFor(kind)
	cacheable := s.store != nil && !policy.NoCache && !policy.Private

	if cacheable {
		if entry, err := s.store.Get(ctx, key); err == nil {
			s.recorder.Hit(key.String())
			if cache.NotModified(r, entry.ETag, entry.LastModified) {
				cache.NotModifiedResponses.Inc()
				cache.WriteNotModified(w)
				return nil
			}
			policy.Apply(w, entry.ETag, entry.LastModified)
			w.Header().Set("Content-Type", entry.ContentType)
			w.WriteHeader(entry.StatusCode)
			_, werr := w.Write(entry.Data)
			return werr
		}
	}

	data, lastModified, err := fetch(ctx)
	if err != nil {
		return err
	}

	etag, err := cache.ETag(data, lastModified)
	if err != nil {
		return InternalError(fmt.Errorf("compute fingerprint: %w", err))
	}

	if cache.NotModified(r, etag, lastModified) {
		s.recorder.Hit(key.String())
		cache.NotModifiedResponses.Inc()
		cache.WriteNotModified(w)
		return nil
	}

	s.recorder.Miss(key.String())

	body, err := json.Marshal(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return InternalError(fmt.Errorf("serialize response: %w", err))
	}

	if cacheable {
		entry := &cache.Entry{
			Data:         body,
			ETag:         etag,
			LastModified: lastModified,
			Expires:      time.Now().Add(policy.TTL()),
			StatusCode:   http.StatusOK,
			ContentType:  jsonContentType,
			CachedAt:     time.Now(),
		}
		if serr := s.store.Set(ctx, key, entry); serr != nil {
			s.logger.Warn().Err(serr).Str("key", key.String()).Msg("Failed to store response")
		}
	}

	policy.Apply(w, etag, lastModified)
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(http.StatusOK)
	_, werr := w.Write(body)
	return werr
}

// journalList is the payload of the journal listing endpoints.
type journalList struct {
	Items      []content.Journal `json:"items"`
	Pagination pagination        `json:"pagination"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) error {
	q, err := parseListQuery(r)
	if err != nil {
		return err
	}

	kind := cache.KindJournalList
	if q.Search != "" {
		kind = cache.KindSearchResults
	}

	// The public listing only ever serves published entries, so status is
	// forced server-side and never part of the cache key.
	key := cache.JournalListKey(cache.ListQuery{
		Page:     q.Page,
		Limit:    q.Limit,
		Category: q.Category,
		Tag:      q.Tag,
		Search:   q.Search,
	})

	return s.serveCached(w, r, key, kind, func(ctx context.Context) (interface{}, time.Time, error) {
		q.Status = content.StatusPublished
		items, total, err := s.content.ListJournals(ctx, q)
		if err != nil {
			return nil, time.Time{}, err
		}

		page := q.Page
		if page < 1 {
			page = 1
		}
		limit := q.Limit
		if limit < 1 {
			limit = 10
		}

		lastModified, err := s.content.LastModified(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}

		return journalList{
			Items: items,
			Pagination: pagination{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: int(math.Ceil(float64(total) / float64(limit))),
			},
		}, lastModified, nil
	})
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")
	preview := r.URL.Query().Get("preview") == "true"

	j, err := s.content.GetJournal(r.Context(), slug)
	if err != nil {
		return err
	}
	if !j.Published() && !preview {
		return NotFoundError("journal not found")
	}

	kind := cache.KindPublishedJournal
	if !j.Published() {
		kind = cache.KindDraftJournal
	}

	return s.serveCached(w, r, cache.JournalKey(slug), kind, func(context.Context) (interface{}, time.Time, error) {
		return j, j.UpdatedAt, nil
	})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) error {
	return s.serveCached(w, r, cache.CategoryListKey(), cache.KindCategoryList, func(ctx context.Context) (interface{}, time.Time, error) {
		categories, err := s.content.ListCategories(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		lastModified, err := s.content.LastModified(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return categories, lastModified, nil
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) error {
	hideEmpty := r.URL.Query().Get("hideEmpty") == "true"

	return s.serveCached(w, r, cache.TagListKey(hideEmpty), cache.KindTagList, func(ctx context.Context) (interface{}, time.Time, error) {
		tags, err := s.content.ListTags(ctx, hideEmpty)
		if err != nil {
			return nil, time.Time{}, err
		}
		lastModified, err := s.content.LastModified(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return tags, lastModified, nil
	})
}

// parseListQuery validates the listing parameters. Absent parameters stay
// zero so default and explicit-default requests share a cache key.
func parseListQuery(r *http.Request) (content.ListQuery, error) {
	var q content.ListQuery
	values := r.URL.Query()

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, ValidationError("page must be a positive integer", map[string]string{"page": raw})
		}
		q.Page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return q, ValidationError("limit must be between 1 and 100", map[string]string{"limit": raw})
		}
		q.Limit = limit
	}

	q.Category = values.Get("category")
	q.Tag = values.Get("tag")
	q.Search = values.Get("search")
	return q, nil
}
