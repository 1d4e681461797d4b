/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type tagRequest struct {
	Name    string  `json:"name"`
	GroupID *string `json:"group_id,omitempty"`
}

type tagGroupRequest struct {
	Name string `json:"name"`
}

type assignGroupRequest struct {
	GroupID *string `json:"group_id"`
}

func (a *API) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.gateway.FetchTags(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (a *API) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	tags, err := a.gateway.CreateTag(r.Context(), req.Name, req.GroupID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tags": tags})
}

func (a *API) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	tags, err := a.gateway.RenameTag(r.Context(), chi.URLParam(r, "tagID"), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (a *API) handleAssignTagGroup(w http.ResponseWriter, r *http.Request) {
	var req assignGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	groups, err := a.gateway.AssignTagGroup(r.Context(), chi.URLParam(r, "tagID"), req.GroupID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag_groups": groups})
}

func (a *API) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	tags, err := a.gateway.DeleteTag(r.Context(), chi.URLParam(r, "tagID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (a *API) handleListTagGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.gateway.FetchTagGroups(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag_groups": groups})
}

func (a *API) handleCreateTagGroup(w http.ResponseWriter, r *http.Request) {
	var req tagGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	groups, err := a.gateway.CreateTagGroup(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tag_groups": groups})
}

func (a *API) handleRenameTagGroup(w http.ResponseWriter, r *http.Request) {
	var req tagGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	groups, err := a.gateway.RenameTagGroup(r.Context(), chi.URLParam(r, "groupID"), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag_groups": groups})
}

func (a *API) handleDeleteTagGroup(w http.ResponseWriter, r *http.Request) {
	groups, err := a.gateway.DeleteTagGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag_groups": groups})
}
