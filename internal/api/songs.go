/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundshare/soundshare/internal/query"
)

type searchSongsRequest struct {
	Query *query.Tree `json:"query,omitempty"`
}

type convertQueryRequest struct {
	Tree  *query.Tree  `json:"tree,omitempty"`
	Group *query.Group `json:"group,omitempty"`
}

type setSongTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

type bulkTagUpdateRequest struct {
	SongIDs      []string `json:"song_ids"`
	AddTagIDs    []string `json:"add_tag_ids"`
	RemoveTagIDs []string `json:"remove_tag_ids"`
}

func (a *API) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := a.gateway.FetchSongs(r.Context(), nil)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (a *API) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	var req searchSongsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	var group *query.Group
	if req.Query != nil {
		group = query.ToBackendForm(*req.Query)
	}

	songs, err := a.gateway.FetchSongs(r.Context(), group)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs, "query": group})
}

func (a *API) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := a.gateway.FetchSong(r.Context(), chi.URLParam(r, "songID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (a *API) handleSetSongTags(w http.ResponseWriter, r *http.Request) {
	var req setSongTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	song, err := a.gateway.UpdateSongTags(r.Context(), chi.URLParam(r, "songID"), req.TagIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (a *API) handleBulkTagUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkTagUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.SongIDs) == 0 {
		writeError(w, http.StatusBadRequest, "song_ids_required")
		return
	}

	songs, err := a.gateway.BulkUpdateSongTags(r.Context(), req.SongIDs, req.AddTagIDs, req.RemoveTagIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

// handleConvertQuery converts between the UI tree and the backend group
// form. Exactly one direction runs per call; sending a tree returns the
// group and vice versa.
func (a *API) handleConvertQuery(w http.ResponseWriter, r *http.Request) {
	var req convertQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	switch {
	case req.Tree != nil:
		writeJSON(w, http.StatusOK, map[string]any{"group": query.ToBackendForm(*req.Tree)})
	case req.Group != nil:
		writeJSON(w, http.StatusOK, map[string]any{"tree": query.FromBackendForm(req.Group)})
	default:
		// No input at all still answers: a nil group is the empty tree.
		writeJSON(w, http.StatusOK, map[string]any{"tree": query.FromBackendForm(nil)})
	}
}
