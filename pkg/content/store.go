package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ostafen/clover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlugExists indicates a create collided with an existing slug.
	ErrSlugExists = errors.New("slug already exists")
)

const (
	collectionJournals   = "journals"
	collectionCategories = "categories"
	collectionTags       = "tags"

	defaultLimit = 10
	maxLimit     = 100
)

// Store is the content repository backed by an embedded CloverDB document
// database. An empty path opens an in-memory database, which tests use.
type Store struct {
	db     *clover.DB
	logger zerolog.Logger
	hooks  Hooks
}

// Open opens (or creates) the content database at path.
func Open(path string) (*Store, error) {
	db, err := clover.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: log.With().Str("component", "content-store").Logger(),
	}

	for _, name := range []string{collectionJournals, collectionCategories, collectionTags} {
		exists, err := db.HasCollection(name)
		if err != nil {
			return nil, fmt.Errorf("check collection %s: %w", name, err)
		}
		if !exists {
			if err := db.CreateCollection(name); err != nil {
				return nil, fmt.Errorf("create collection %s: %w", name, err)
			}
		}
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetHooks installs the lifecycle hooks called after every mutation.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// journalDoc is the stored shape of a journal. Timestamps are RFC3339
// strings so document round-trips stay lossless.
type journalDoc struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	Body        string   `json:"body"`
	Status      string   `json:"status"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	PublishedAt string   `json:"published_at"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func docFromJournal(j *Journal) map[string]interface{} {
	m := map[string]interface{}{
		"id":         j.ID,
		"slug":       j.Slug,
		"title":      j.Title,
		"excerpt":    j.Excerpt,
		"body":       j.Body,
		"status":     string(j.Status),
		"category":   j.Category,
		"created_at": j.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	tags := make([]interface{}, 0, len(j.Tags))
	for _, t := range j.Tags {
		tags = append(tags, t)
	}
	m["tags"] = tags
	if !j.PublishedAt.IsZero() {
		m["published_at"] = j.PublishedAt.UTC().Format(time.RFC3339Nano)
	} else {
		m["published_at"] = ""
	}
	return m
}

func journalFromDoc(doc *clover.Document) (*Journal, error) {
	var jd journalDoc
	if err := doc.Unmarshal(&jd); err != nil {
		return nil, fmt.Errorf("decode journal document: %w", err)
	}

	j := &Journal{
		ID:       jd.ID,
		Slug:     jd.Slug,
		Title:    jd.Title,
		Excerpt:  jd.Excerpt,
		Body:     jd.Body,
		Status:   Status(jd.Status),
		Category: jd.Category,
		Tags:     jd.Tags,
	}
	j.PublishedAt = parseTime(jd.PublishedAt)
	j.CreatedAt = parseTime(jd.CreatedAt)
	j.UpdatedAt = parseTime(jd.UpdatedAt)
	return j, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ListJournals returns the journals matching the query, newest first, plus
// the total match count before pagination.
//
// Status and category filters run inside CloverDB; tag membership and
// free-text search are applied in Go because the clover criteria API has
// no array-containment or case-insensitive substring operators.
func (s *Store) ListJournals(ctx context.Context, q ListQuery) ([]Journal, int64, error) {
	query := s.db.Query(collectionJournals)
	if q.Status != "" {
		query = query.Where(clover.Field("status").Eq(string(q.Status)))
	}
	if q.Category != "" {
		query = query.Where(clover.Field("category").Eq(q.Category))
	}

	docs, err := query.FindAll()
	if err != nil {
		return nil, 0, fmt.Errorf("find journals: %w", err)
	}

	journals := make([]Journal, 0, len(docs))
	for _, doc := range docs {
		j, err := journalFromDoc(doc)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable journal document")
			continue
		}
		if q.Tag != "" && !hasTag(j, q.Tag) {
			continue
		}
		if q.Search != "" && !matchesSearch(j, q.Search) {
			continue
		}
		journals = append(journals, *j)
	}

	sort.Slice(journals, func(a, b int) bool {
		ta, tb := journals[a].effectiveDate(), journals[b].effectiveDate()
		if ta.Equal(tb) {
			return journals[a].Slug < journals[b].Slug
		}
		return ta.After(tb)
	})

	total := int64(len(journals))

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	start := (page - 1) * limit
	if start >= len(journals) {
		return []Journal{}, total, nil
	}
	end := start + limit
	if end > len(journals) {
		end = len(journals)
	}
	return journals[start:end], total, nil
}

func (j *Journal) effectiveDate() time.Time {
	if !j.PublishedAt.IsZero() {
		return j.PublishedAt
	}
	return j.UpdatedAt
}

func hasTag(j *Journal, tag string) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func matchesSearch(j *Journal, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(j.Title), term) ||
		strings.Contains(strings.ToLower(j.Excerpt), term) ||
		strings.Contains(strings.ToLower(j.Body), term)
}

// GetJournal fetches a single journal by slug.
func (s *Store) GetJournal(ctx context.Context, slug string) (*Journal, error) {
	doc, err := s.db.Query(collectionJournals).Where(clover.Field("slug").Eq(slug)).FindFirst()
	if err != nil {
		return nil, fmt.Errorf("find journal %s: %w", slug, err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return journalFromDoc(doc)
}

// CreateJournal stores a new journal entry. Referenced categories and tags
// are created on demand so listings stay consistent, then the post-write
// hook fires.
func (s *Store) CreateJournal(ctx context.Context, j *Journal) (*Journal, error) {
	if existing, err := s.GetJournal(ctx, j.Slug); err == nil && existing != nil {
		return nil, ErrSlugExists
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	j.ID = uuid.New().String()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = StatusDraft
	}
	if j.Status == StatusPublished && j.PublishedAt.IsZero() {
		j.PublishedAt = now
	}

	if err := s.ensureTaxonomy(ctx, j); err != nil {
		return nil, err
	}

	doc := clover.NewDocument()
	for key, value := range docFromJournal(j) {
		doc.Set(key, value)
	}
	if err := s.db.Insert(collectionJournals, doc); err != nil {
		return nil, fmt.Errorf("insert journal: %w", err)
	}

	s.logger.Info().Str("slug", j.Slug).Str("status", string(j.Status)).Msg("Journal created")

	if s.hooks != nil {
		s.hooks.JournalSaved(ctx, j, nil)
	}
	return j, nil
}

// UpdateJournal applies a partial update to a journal. The previous state
// is passed to the post-write hook so invalidation can cascade into
// categories and tags the entry no longer references.
func (s *Store) UpdateJournal(ctx context.Context, slug string, patch JournalPatch) (*Journal, error) {
	previous, err := s.GetJournal(ctx, slug)
	if err != nil {
		return nil, err
	}

	updated := *previous
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Excerpt != nil {
		updated.Excerpt = *patch.Excerpt
	}
	if patch.Body != nil {
		updated.Body = *patch.Body
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Tags != nil {
		updated.Tags = *patch.Tags
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
		if updated.Status == StatusPublished && updated.PublishedAt.IsZero() {
			updated.PublishedAt = time.Now().UTC()
		}
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.ensureTaxonomy(ctx, &updated); err != nil {
		return nil, err
	}

	err = s.db.Query(collectionJournals).
		Where(clover.Field("slug").Eq(slug)).
		Update(docFromJournal(&updated))
	if err != nil {
		return nil, fmt.Errorf("update journal %s: %w", slug, err)
	}

	s.logger.Info().Str("slug", slug).Str("status", string(updated.Status)).Msg("Journal updated")

	if s.hooks != nil {
		s.hooks.JournalSaved(ctx, &updated, previous)
	}
	return &updated, nil
}

// DeleteJournal removes a journal and fires the post-delete hook with the
// removed entry so every category and tag it referenced gets invalidated.
func (s *Store) DeleteJournal(ctx context.Context, slug string) error {
	j, err := s.GetJournal(ctx, slug)
	if err != nil {
		return err
	}

	err = s.db.Query(collectionJournals).Where(clover.Field("slug").Eq(slug)).Delete()
	if err != nil {
		return fmt.Errorf("delete journal %s: %w", slug, err)
	}

	s.logger.Info().Str("slug", slug).Msg("Journal deleted")

	if s.hooks != nil {
		s.hooks.JournalDeleted(ctx, j)
	}
	return nil
}

// ensureTaxonomy creates category and tag documents referenced by a
// journal if they don't exist yet.
func (s *Store) ensureTaxonomy(ctx context.Context, j *Journal) error {
	if j.Category != "" {
		if err := s.ensureDoc(collectionCategories, j.Category); err != nil {
			return err
		}
	}
	for _, tag := range j.Tags {
		if err := s.ensureDoc(collectionTags, tag); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureDoc(collection, slug string) error {
	existing, err := s.db.Query(collection).Where(clover.Field("slug").Eq(slug)).FindFirst()
	if err != nil {
		return fmt.Errorf("find %s %s: %w", collection, slug, err)
	}
	if existing != nil {
		return nil
	}

	doc := clover.NewDocument()
	doc.Set("id", uuid.New().String())
	doc.Set("slug", slug)
	doc.Set("name", titleFromSlug(slug))
	if err := s.db.Insert(collection, doc); err != nil {
		return fmt.Errorf("insert %s %s: %w", collection, slug, err)
	}
	return nil
}

func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// taxonomyDoc is the stored shape of categories and tags.
type taxonomyDoc struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories returns all categories with the count of published
// journals in each.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	docs, err := s.db.Query(collectionCategories).FindAll()
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	counts, _, err := s.publishedCounts(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(docs))
	for _, doc := range docs {
		var td taxonomyDoc
		if err := doc.Unmarshal(&td); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable category document")
			continue
		}
		categories = append(categories, Category{
			ID:          td.ID,
			Slug:        td.Slug,
			Name:        td.Name,
			Description: td.Description,
			Count:       counts[td.Slug],
		})
	}

	sort.Slice(categories, func(a, b int) bool { return categories[a].Slug < categories[b].Slug })
	return categories, nil
}

// ListTags returns all tags with published-journal counts. With hideEmpty
// set, tags no published journal references are omitted.
func (s *Store) ListTags(ctx context.Context, hideEmpty bool) ([]Tag, error) {
	docs, err := s.db.Query(collectionTags).FindAll()
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}

	_, tagCounts, err := s.publishedCounts(ctx)
	if err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(docs))
	for _, doc := range docs {
		var td taxonomyDoc
		if err := doc.Unmarshal(&td); err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable tag document")
			continue
		}
		count := tagCounts[td.Slug]
		if hideEmpty && count == 0 {
			continue
		}
		tags = append(tags, Tag{ID: td.ID, Slug: td.Slug, Name: td.Name, Count: count})
	}

	sort.Slice(tags, func(a, b int) bool { return tags[a].Slug < tags[b].Slug })
	return tags, nil
}

// publishedCounts tallies published journals per category and per tag in
// one pass.
func (s *Store) publishedCounts(ctx context.Context) (map[string]int, map[string]int, error) {
	docs, err := s.db.Query(collectionJournals).
		Where(clover.Field("status").Eq(string(StatusPublished))).
		FindAll()
	if err != nil {
		return nil, nil, fmt.Errorf("count published journals: %w", err)
	}

	byCategory := make(map[string]int)
	byTag := make(map[string]int)
	for _, doc := range docs {
		j, err := journalFromDoc(doc)
		if err != nil {
			continue
		}
		if j.Category != "" {
			byCategory[j.Category]++
		}
		for _, t := range j.Tags {
			byTag[t]++
		}
	}
	return byCategory, byTag, nil
}

// SaveCategory upserts a category and fires the post-write hook.
func (s *Store) SaveCategory(ctx context.Context, c *Category) error {
	if err := s.upsertTaxonomy(collectionCategories, c.Slug, c.Name, c.Description); err != nil {
		return err
	}
	if s.hooks != nil {
		s.hooks.CategorySaved(ctx, c.Slug)
	}
	return nil
}

// DeleteCategory removes a category document and fires the post-delete
// hook. Journals keep their category slug; their listing simply reports a
// count of zero for it afterwards.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.deleteTaxonomy(ctx, collectionCategories, slug); err != nil {
		return err
	}
	if s.hooks != nil {
		s.hooks.CategoryDeleted(ctx, slug)
	}
	return nil
}

// SaveTag upserts a tag and fires the post-write hook.
func (s *Store) SaveTag(ctx context.Context, t *Tag) error {
	if err := s.upsertTaxonomy(collectionTags, t.Slug, t.Name, ""); err != nil {
		return err
	}
	if s.hooks != nil {
		s.hooks.TagSaved(ctx, t.Slug)
	}
	return nil
}

// DeleteTag removes a tag document and fires the post-delete hook.
func (s *Store) DeleteTag(ctx context.Context, slug string) error {
	if err := s.deleteTaxonomy(ctx, collectionTags, slug); err != nil {
		return err
	}
	if s.hooks != nil {
		s.hooks.TagDeleted(ctx, slug)
	}
	return nil
}

func (s *Store) upsertTaxonomy(collection, slug, name, description string) error {
	if name == "" {
		name = titleFromSlug(slug)
	}

	existing, err := s.db.Query(collection).Where(clover.Field("slug").Eq(slug)).FindFirst()
	if err != nil {
		return fmt.Errorf("find %s %s: %w", collection, slug, err)
	}

	if existing == nil {
		doc := clover.NewDocument()
		doc.Set("id", uuid.New().String())
		doc.Set("slug", slug)
		doc.Set("name", name)
		doc.Set("description", description)
		if err := s.db.Insert(collection, doc); err != nil {
			return fmt.Errorf("insert %s %s: %w", collection, slug, err)
		}
		return nil
	}

	update := map[string]interface{}{"name": name}
	if description != "" {
		update["description"] = description
	}
	err = s.db.Query(collection).Where(clover.Field("slug").Eq(slug)).Update(update)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", collection, slug, err)
	}
	return nil
}

func (s *Store) deleteTaxonomy(ctx context.Context, collection, slug string) error {
	existing, err := s.db.Query(collection).Where(clover.Field("slug").Eq(slug)).FindFirst()
	if err != nil {
		return fmt.Errorf("find %s %s: %w", collection, slug, err)
	}
	if existing == nil {
		return ErrNotFound
	}

	err = s.db.Query(collection).Where(clover.Field("slug").Eq(slug)).Delete()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, slug, err)
	}
	return nil
}

// LastModified returns the most recent update time across all journals,
// used as the Last-Modified validator for listing endpoints.
func (s *Store) LastModified(ctx context.Context) (time.Time, error) {
	docs, err := s.db.Query(collectionJournals).FindAll()
	if err != nil {
		return time.Time{}, fmt.Errorf("find journals: %w", err)
	}

	var latest time.Time
	for _, doc := range docs {
		j, err := journalFromDoc(doc)
		if err != nil {
			continue
		}
		if j.UpdatedAt.After(latest) {
			latest = j.UpdatedAt
		}
	}
	return latest, nil
}
