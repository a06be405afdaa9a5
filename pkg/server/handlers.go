// Copyright (c) 2026, Alpine Metrics Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alpinemetrics/apkmon/pkg/serializer"
)

// handleDefault lists the available routes.
func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, r, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("no route for %s", r.URL.Path), false, nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, map[string]any{
		"name":    s.config.Name,
		"version": s.config.Version,
		"routes": []string{
			"/health",
			"/ready",
			"/metrics",
			"/v1/report",
			"/v1/history",
		},
	})
}

// handleReport returns the most recent upgrade report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			"only GET is supported", false, nil)
		return
	}

	s.mu.RLock()
	report := s.latest
	s.mu.RUnlock()

	if report == nil {
		s.writeError(w, r, http.StatusNotFound, ErrCodeNotFound,
			"no report available yet", true, nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, report)
}

// handleHistory returns recent cycles from the history store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			"only GET is supported", false, nil)
		return
	}

	if s.history == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"history is not enabled", false, nil)
		return
	}

	limit := s.config.MaxHistoryEntries
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
				"limit must be a positive integer", false,
				map[string]any{"limit": limitStr})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError,
			"failed to query history", true, nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}
