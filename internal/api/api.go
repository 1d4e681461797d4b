/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP handlers for the catalog, playlists, and
// the playback sequencer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/gateway"
	"github.com/soundshare/soundshare/internal/library"
	"github.com/soundshare/soundshare/internal/logbuffer"
	"github.com/soundshare/soundshare/internal/player"
	"github.com/soundshare/soundshare/internal/version"
)

// Bus is the event bus surface the API needs for websocket fan-out.
type Bus interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// API exposes HTTP handlers.
type API struct {
	gateway   *gateway.Gateway
	sequencer *player.Sequencer
	bus       Bus
	logBuffer *logbuffer.Buffer
	mediaRoot string
	logger    zerolog.Logger
}

// New creates the API handler set. logBuf may be nil.
func New(gw *gateway.Gateway, seq *player.Sequencer, bus Bus, logBuf *logbuffer.Buffer, mediaRoot string, logger zerolog.Logger) *API {
	return &API{
		gateway:   gw,
		sequencer: seq,
		bus:       bus,
		logBuffer: logBuf,
		mediaRoot: mediaRoot,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/songs", a.handleListSongs)
		r.Post("/songs/search", a.handleSearchSongs)
		r.Get("/songs/{songID}", a.handleGetSong)
		r.Put("/songs/{songID}/tags", a.handleSetSongTags)
		r.Post("/songs/bulk-tags", a.handleBulkTagUpdate)

		r.Post("/query/convert", a.handleConvertQuery)

		r.Get("/tags", a.handleListTags)
		r.Post("/tags", a.handleCreateTag)
		r.Put("/tags/{tagID}", a.handleRenameTag)
		r.Put("/tags/{tagID}/group", a.handleAssignTagGroup)
		r.Delete("/tags/{tagID}", a.handleDeleteTag)

		r.Get("/tag-groups", a.handleListTagGroups)
		r.Post("/tag-groups", a.handleCreateTagGroup)
		r.Put("/tag-groups/{groupID}", a.handleRenameTagGroup)
		r.Delete("/tag-groups/{groupID}", a.handleDeleteTagGroup)

		r.Get("/playlists", a.handleListPlaylists)
		r.Post("/playlists", a.handleCreatePlaylist)
		r.Get("/playlists/{playlistID}", a.handleGetPlaylist)
		r.Put("/playlists/{playlistID}", a.handleRenamePlaylist)
		r.Delete("/playlists/{playlistID}", a.handleDeletePlaylist)
		r.Put("/playlists/{playlistID}/filters", a.handleReplaceFilters)
		r.Post("/playlists/{playlistID}/songs", a.handleAddPlaylistSongs)
		r.Delete("/playlists/{playlistID}/songs/{songID}", a.handleRemovePlaylistSong)
		r.Get("/playlists/{playlistID}/queue", a.handlePlaylistQueue)

		r.Get("/player", a.handlePlayerState)
		r.Post("/player/queue/{playlistID}", a.handleLoadQueue)
		r.Post("/player/play/{itemID}", a.handlePlayItem)
		r.Post("/player/toggle", a.handleTogglePlayPause)
		r.Post("/player/next", a.handlePlayNext)
		r.Post("/player/previous", a.handlePlayPrevious)
		r.Put("/player/options", a.handleSetPlayerOptions)
		r.Post("/player/error", a.handlePlayerError)
		r.Post("/player/close", a.handleClosePlayer)
		r.Get("/player/ws", a.handlePlayerSocket)

		r.Get("/logs", a.handleQueryLogs)
		r.Get("/logs/stats", a.handleLogStats)
	})

	r.Get("/audio/{songID}", a.handleServeAudio)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeStoreError maps library errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeError(w, http.StatusInternalServerError, "db_error")
}
