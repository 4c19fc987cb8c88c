package api

import (
	"encoding/json"
	"net/http"

	"github.com/caelumdev/journal-api/pkg/content"
)

// journalInput is the body of POST /api/journals.
type journalInput struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Body     string   `json:"body"`
	Status   string   `json:"status"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

func (s *Server) createJournal(w http.ResponseWriter, r *http.Request) error {
	var in journalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return ValidationError("invalid JSON body", nil)
	}

	if in.Slug == "" {
		return ValidationError("slug is required", nil)
	}
	if in.Title == "" {
		return ValidationError("title is required", nil)
	}

	status := content.StatusDraft
	if in.Status != "" {
		var err error
		if status, err = parseStatus(in.Status); err != nil {
			return err
		}
	}

	created, err := s.content.CreateJournal(r.Context(), &content.Journal{
		Slug:     in.Slug,
		Title:    in.Title,
		Excerpt:  in.Excerpt,
		Body:     in.Body,
		Status:   status,
		Category: in.Category,
		Tags:     in.Tags,
	})
	if err != nil {
		return err
	}

	return s.writeData(w, http.StatusCreated, created)
}

// journalPatchInput is the body of PATCH /api/journals/{slug}. Absent
// fields are left unchanged.
type journalPatchInput struct {
	Title    *string   `json:"title"`
	Excerpt  *string   `json:"excerpt"`
	Body     *string   `json:"body"`
	Status   *string   `json:"status"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

func (s *Server) patchJournal(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")

	var in journalPatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return ValidationError("invalid JSON body", nil)
	}

	patch := content.JournalPatch{
		Title:    in.Title,
		Excerpt:  in.Excerpt,
		Body:     in.Body,
		Category: in.Category,
		Tags:     in.Tags,
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return err
		}
		patch.Status = &status
	}

	updated, err := s.content.UpdateJournal(r.Context(), slug, patch)
	if err != nil {
		return err
	}

	return s.writeData(w, http.StatusOK, updated)
}

func (s *Server) deleteJournal(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")

	if err := s.content.DeleteJournal(r.Context(), slug); err != nil {
		return err
	}

	return s.writeData(w, http.StatusOK, map[string]string{"deleted": slug})
}

// taxonomyInput is the body of POST /api/categories and POST /api/tags.
type taxonomyInput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) error {
	in, err := decodeTaxonomy(r)
	if err != nil {
		return err
	}

	c := &content.Category{Slug: in.Slug, Name: in.Name, Description: in.Description}
	if err := s.content.SaveCategory(r.Context(), c); err != nil {
		return err
	}

	return s.writeData(w, http.StatusCreated, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")

	if err := s.content.DeleteCategory(r.Context(), slug); err != nil {
		return err
	}

	return s.writeData(w, http.StatusOK, map[string]string{"deleted": slug})
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) error {
	in, err := decodeTaxonomy(r)
	if err != nil {
		return err
	}

	t := &content.Tag{Slug: in.Slug, Name: in.Name}
	if err := s.content.SaveTag(r.Context(), t); err != nil {
		return err
	}

	return s.writeData(w, http.StatusCreated, t)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")

	if err := s.content.DeleteTag(r.Context(), slug); err != nil {
		return err
	}

	return s.writeData(w, http.StatusOK, map[string]string{"deleted": slug})
}

func decodeTaxonomy(r *http.Request) (taxonomyInput, error) {
	var in taxonomyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, ValidationError("invalid JSON body", nil)
	}
	if in.Slug == "" {
		return in, ValidationError("slug is required", nil)
	}
	if in.Name == "" {
		return in, ValidationError("name is required", nil)
	}
	return in, nil
}

func parseStatus(raw string) (content.Status, error) {
	switch content.Status(raw) {
	case content.StatusDraft:
		return content.StatusDraft, nil
	case content.StatusPublished:
		return content.StatusPublished, nil
	default:
		return "", ValidationError("status must be draft or published", map[string]string{"status": raw})
	}
}
