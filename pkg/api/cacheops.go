package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/caelumdev/journal-api/pkg/cache"
)

// cacheMetrics is the payload of GET /api/cache/metrics.
type cacheMetrics struct {
	Summary cache.KeyMetrics            `json:"summary"`
	Keys    map[string]cache.KeyMetrics `json:"keys"`
}

func (s *Server) getCacheMetrics(w http.ResponseWriter, r *http.Request) error {
	return s.writeData(w, http.StatusOK, cacheMetrics{
		Summary: s.recorder.Totals(),
		Keys:    s.recorder.Snapshot(),
	})
}

// clearCacheMetrics resets hit/miss counters. With ?hours=N only entries
// untouched for at least N hours are dropped; without it everything goes.
func (s *Server) clearCacheMetrics(w http.ResponseWriter, r *http.Request) error {
	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return ValidationError("hours must be a non-negative integer", map[string]string{"hours": raw})
		}
		hours = n
	}

	cleared := s.recorder.ClearOlderThan(hours)
	s.logger.Info().Int("cleared", cleared).Int("hours", hours).Msg("Cache metrics cleared")

	return s.writeData(w, http.StatusOK, map[string]interface{}{
		"cleared":   cleared,
		"remaining": s.recorder.Len(),
	})
}

// warmRequest is the optional body of POST /api/cache/warm.
type warmRequest struct {
	URLs []string `json:"urls"`
}

// warmResult is the payload of POST /api/cache/warm.
type warmResult struct {
	Warmed []string `json:"warmed"`
	Count  int      `json:"count"`
}

func (s *Server) warmCache(w http.ResponseWriter, r *http.Request) error {
	var req warmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return ValidationError("request body must be JSON with an optional urls array", nil)
	}

	for _, u := range req.URLs {
		s.warmer.Add(u)
	}

	warmed, err := s.warmer.Warm(r.Context())
	if err != nil {
		return WarmingError(err)
	}

	return s.writeData(w, http.StatusOK, warmResult{
		Warmed: warmed,
		Count:  len(warmed),
	})
}

func (s *Server) listWarmTargets(w http.ResponseWriter, r *http.Request) error {
	return s.writeData(w, http.StatusOK, map[string]interface{}{
		"popular": s.warmer.PopularContent(),
	})
}
