/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleServeAudio streams a song's media file. Paths are resolved under
// the configured media root; anything escaping it is rejected.
func (a *API) handleServeAudio(w http.ResponseWriter, r *http.Request) {
	song, err := a.gateway.FetchSong(r.Context(), chi.URLParam(r, "songID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if song.Path == "" {
		writeError(w, http.StatusNotFound, "no_media")
		return
	}

	path := song.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.mediaRoot, path)
	}
	path = filepath.Clean(path)

	root, err := filepath.Abs(a.mediaRoot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "media_root_error")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		writeError(w, http.StatusForbidden, "path_outside_media_root")
		return
	}

	if _, err := os.Stat(abs); err != nil {
		writeError(w, http.StatusNotFound, "media_missing")
		return
	}

	// ServeFile handles range requests, which audio scrubbing relies on.
	http.ServeFile(w, r, abs)
}
