package cache

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPolicy_CacheControl(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   string
	}{
		{
			name:   "public max-age only",
			policy: Policy{MaxAge: 300},
			want:   "public, max-age=300",
		},
		{
			name:   "stale-while-revalidate appended",
			policy: Policy{MaxAge: 3600, StaleWhileRevalidate: 600},
			want:   "public, max-age=3600, stale-while-revalidate=600",
		},
		{
			name:   "private no-cache must-revalidate",
			policy: Policy{Private: true, NoCache: true, MustRevalidate: true},
			want:   "private, no-cache, must-revalidate",
		},
		{
			name:   "must-revalidate after max-age",
			policy: Policy{MaxAge: 120, MustRevalidate: true},
			want:   "public, max-age=120, must-revalidate",
		},
		{
			name:   "no-cache suppresses max-age",
			policy: Policy{MaxAge: 300, NoCache: true},
			want:   "public, no-cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CacheControl(); got != tt.want {
				t.Errorf("CacheControl() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestPolicyTable_RelativeLifetimes pins the ordering the policy table
// promises: published entries longest, drafts never cached, search results
// shorter-lived than plain listings.
func TestPolicyTable_RelativeLifetimes(t *testing.T) {
	published := PolicyFor(KindPublishedJournal)
	list := PolicyFor(KindJournalList)
	search := PolicyFor(KindSearchResults)
	draft := PolicyFor(KindDraftJournal)

	if published.MaxAge <= list.MaxAge {
		t.Errorf("published max-age %d should exceed list max-age %d", published.MaxAge, list.MaxAge)
	}
	if search.MaxAge >= list.MaxAge {
		t.Errorf("search max-age %d should be below list max-age %d", search.MaxAge, list.MaxAge)
	}
	if !draft.NoCache || !draft.Private {
		t.Error("draft policy must be private and no-cache")
	}
}

func TestPolicyFor_UnknownKind(t *testing.T) {
	p := PolicyFor(ContentKind("unknown"))
	if !p.NoCache || !p.Private {
		t.Errorf("unknown kind should get a conservative policy, got %v", p.CacheControl())
	}
}

func TestPolicy_Apply(t *testing.T) {
	w := httptest.NewRecorder()
	lastModified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	PolicyFor(KindJournalList).Apply(w, `"abc123"`, lastModified)

	h := w.Header()
	if got := h.Get("Cache-Control"); !strings.Contains(got, "max-age=") {
		t.Errorf("Cache-Control = %v, want max-age directive", got)
	}
	if got := h.Get("ETag"); got != `"abc123"` {
		t.Errorf("ETag = %v", got)
	}
	if got := h.Get("Last-Modified"); got != lastModified.Format(http.TimeFormat) {
		t.Errorf("Last-Modified = %v", got)
	}
	if got := h.Get("X-Cache-Config"); got != string(KindJournalList) {
		t.Errorf("X-Cache-Config = %v", got)
	}
	if h.Get("X-Cache-Generated") == "" {
		t.Error("X-Cache-Generated not set")
	}
}

func TestPolicy_Apply_OmitsUnknownValidators(t *testing.T) {
	w := httptest.NewRecorder()
	PolicyFor(KindJournalList).Apply(w, "", time.Time{})

	if w.Header().Get("ETag") != "" {
		t.Error("ETag header set despite empty fingerprint")
	}
	if w.Header().Get("Last-Modified") != "" {
		t.Error("Last-Modified header set despite zero timestamp")
	}
}

func TestPolicy_TTL(t *testing.T) {
	if got := (Policy{MaxAge: 300}).TTL(); got != 5*time.Minute {
		t.Errorf("TTL() = %v, want 5m", got)
	}
}
