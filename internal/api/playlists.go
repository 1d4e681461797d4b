/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/queue"
)

type playlistRequest struct {
	Name string `json:"name"`
}

type replaceFiltersRequest struct {
	Filters []playlistFilterRequest `json:"filters"`
}

type playlistFilterRequest struct {
	ID    string            `json:"id,omitempty"`
	Name  string            `json:"name"`
	Kind  models.FilterKind `json:"kind"`
	Rules map[string]any    `json:"rules"`
}

type addSongsRequest struct {
	SongIDs []string `json:"song_ids"`
}

func (a *API) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.gateway.FetchPlaylists(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *API) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	playlist, err := a.gateway.CreatePlaylist(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (a *API) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.gateway.FetchPlaylist(r.Context(), chi.URLParam(r, "playlistID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	playlist, err := a.gateway.RenamePlaylist(r.Context(), chi.URLParam(r, "playlistID"), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := a.gateway.DeletePlaylist(r.Context(), chi.URLParam(r, "playlistID")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleReplaceFilters(w http.ResponseWriter, r *http.Request) {
	var req replaceFiltersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	filters := make([]models.PlaylistFilter, 0, len(req.Filters))
	for _, f := range req.Filters {
		filters = append(filters, models.PlaylistFilter{
			ID:    f.ID,
			Name:  f.Name,
			Kind:  f.Kind,
			Rules: f.Rules,
		})
	}

	playlist, err := a.gateway.ReplaceFilters(r.Context(), chi.URLParam(r, "playlistID"), filters)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handleAddPlaylistSongs(w http.ResponseWriter, r *http.Request) {
	var req addSongsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.SongIDs) == 0 {
		writeError(w, http.StatusBadRequest, "song_ids_required")
		return
	}

	playlist, err := a.gateway.AddSongs(r.Context(), chi.URLParam(r, "playlistID"), req.SongIDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (a *API) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	playlist, err := a.gateway.RemoveSong(r.Context(),
		chi.URLParam(r, "playlistID"), chi.URLParam(r, "songID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// handlePlaylistQueue previews the queue a playlist generates without
// touching the sequencer.
func (a *API) handlePlaylistQueue(w http.ResponseWriter, r *http.Request) {
	items, err := a.buildQueue(r, chi.URLParam(r, "playlistID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": items})
}

// buildQueue generates the play queue for a playlist against the current
// catalog snapshot.
func (a *API) buildQueue(r *http.Request, playlistID string) ([]queue.Item, error) {
	playlist, err := a.gateway.FetchPlaylist(r.Context(), playlistID)
	if err != nil {
		return nil, err
	}
	catalog, err := a.gateway.FetchSongs(r.Context(), nil)
	if err != nil {
		return nil, err
	}
	return queue.Generate(*playlist, catalog), nil
}
