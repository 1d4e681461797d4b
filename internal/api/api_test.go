/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/gateway"
	"github.com/soundshare/soundshare/internal/library"
	"github.com/soundshare/soundshare/internal/logbuffer"
	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/player"
)

type apiHarness struct {
	router  chi.Router
	library *library.Service
}

// newAPIHarness wires the full handler stack against in-memory sqlite.
// Caching is disabled; the gateway serves straight from the library.
func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Song{}, &models.Tag{}, &models.TagGroup{},
		&models.Playlist{}, &models.PlaylistFilter{}, &models.PlaylistSong{},
	); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}

	logger := zerolog.Nop()
	bus := events.NewBus()
	lib := library.New(db, logger)
	gw := gateway.New(lib, nil, bus, logger)
	seq := player.New(bus)

	router := chi.NewRouter()
	New(gw, seq, bus, logbuffer.New(100), t.TempDir(), logger).Routes(router)

	return &apiHarness{router: router, library: lib}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func (h *apiHarness) seedSong(t *testing.T, song models.Song) models.Song {
	t.Helper()
	if err := h.library.UpsertSong(context.Background(), &song); err != nil {
		t.Fatalf("seed song: %v", err)
	}
	return song
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	rr := h.do(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestListAndSearchSongs(t *testing.T) {
	h := newAPIHarness(t)
	h.seedSong(t, models.Song{Name: "Kashmir", Artist: "Led Zeppelin", Genre: "Rock"})
	h.seedSong(t, models.Song{Name: "So What", Artist: "Miles Davis", Genre: "Jazz"})

	rr := h.do(t, http.MethodGet, "/api/songs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var listResp struct {
		Songs []models.Song `json:"songs"`
	}
	decodeBody(t, rr, &listResp)
	if len(listResp.Songs) != 2 {
		t.Fatalf("songs = %d, want 2", len(listResp.Songs))
	}

	search := map[string]any{
		"query": map[string]any{
			"combinator": "and",
			"rules": []map[string]any{
				{"field": "genre", "operator": "equals", "value": "jazz"},
			},
		},
	}
	rr = h.do(t, http.MethodPost, "/api/songs/search", search)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d, want 200", rr.Code)
	}
	decodeBody(t, rr, &listResp)
	if len(listResp.Songs) != 1 || listResp.Songs[0].Name != "So What" {
		t.Fatalf("search result = %+v, want only So What", listResp.Songs)
	}

	// An all-blank query normalizes to the nil sentinel: full catalog.
	rr = h.do(t, http.MethodPost, "/api/songs/search", map[string]any{
		"query": map[string]any{"combinator": "and"},
	})
	decodeBody(t, rr, &listResp)
	if len(listResp.Songs) != 2 {
		t.Fatalf("blank search = %d songs, want full catalog", len(listResp.Songs))
	}
}

func TestGetSongNotFoundStatus(t *testing.T) {
	h := newAPIHarness(t)
	rr := h.do(t, http.MethodGet, "/api/songs/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestSongTagEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	song := h.seedSong(t, models.Song{Name: "Kashmir"})

	rr := h.do(t, http.MethodPost, "/api/tags", map[string]any{"name": "rock"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create tag status = %d, want 201", rr.Code)
	}
	var tagList struct {
		Tags []models.Tag `json:"tags"`
	}
	decodeBody(t, rr, &tagList)
	if len(tagList.Tags) != 1 {
		t.Fatalf("tags = %+v, want the refetched list with one tag", tagList.Tags)
	}
	tag := tagList.Tags[0]

	rr = h.do(t, http.MethodPut, "/api/songs/"+song.ID+"/tags", map[string]any{"tag_ids": []string{tag.ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("set tags status = %d, want 200", rr.Code)
	}
	var updated models.Song
	decodeBody(t, rr, &updated)
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "rock" {
		t.Fatalf("tags = %+v, want rock attached", updated.Tags)
	}

	rr = h.do(t, http.MethodPost, "/api/songs/bulk-tags", map[string]any{
		"song_ids":       []string{song.ID},
		"remove_tag_ids": []string{tag.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk status = %d, want 200", rr.Code)
	}

	rr = h.do(t, http.MethodPost, "/api/songs/bulk-tags", map[string]any{"song_ids": []string{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty bulk status = %d, want 400", rr.Code)
	}
}

func TestConvertQueryEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(t, http.MethodPost, "/api/query/convert", map[string]any{
		"tree": map[string]any{
			"combinator": "or",
			"rules": []map[string]any{
				{"field": "artist", "operator": "contains", "value": "davis"},
				{"field": "artist", "operator": "contains", "value": ""},
			},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Group *struct {
			Combinator string `json:"combinator"`
			Rules      []any  `json:"rules"`
		} `json:"group"`
	}
	decodeBody(t, rr, &resp)
	if resp.Group == nil || resp.Group.Combinator != "or" || len(resp.Group.Rules) != 1 {
		t.Fatalf("group = %+v, want or group with blank rule dropped", resp.Group)
	}

	// No input yields the empty tree, not an error.
	rr = h.do(t, http.MethodPost, "/api/query/convert", map[string]any{})
	var treeResp struct {
		Tree *struct {
			Combinator string `json:"combinator"`
		} `json:"tree"`
	}
	decodeBody(t, rr, &treeResp)
	if treeResp.Tree == nil || treeResp.Tree.Combinator != "and" {
		t.Fatalf("tree = %+v, want empty and tree", treeResp.Tree)
	}
}

func TestPlaylistLifecycleEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	rockSong := h.seedSong(t, models.Song{Name: "Kashmir", Genre: "Rock"})
	jazzSong := h.seedSong(t, models.Song{Name: "So What", Genre: "Jazz"})

	rr := h.do(t, http.MethodPost, "/api/playlists", map[string]any{"name": "Mix"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rr.Code)
	}
	var playlist models.Playlist
	decodeBody(t, rr, &playlist)

	rr = h.do(t, http.MethodPut, "/api/playlists/"+playlist.ID+"/filters", map[string]any{
		"filters": []map[string]any{
			{"name": "Rock", "kind": "simple", "rules": map[string]any{"genre": "rock"}},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("filters status = %d, want 200", rr.Code)
	}

	rr = h.do(t, http.MethodPost, "/api/playlists/"+playlist.ID+"/songs", map[string]any{
		"song_ids": []string{jazzSong.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("add songs status = %d, want 200", rr.Code)
	}

	rr = h.do(t, http.MethodGet, "/api/playlists/"+playlist.ID+"/queue", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("queue status = %d, want 200", rr.Code)
	}
	var queueResp struct {
		Queue []struct {
			ID       string `json:"id"`
			AddedVia string `json:"added_via"`
		} `json:"queue"`
	}
	decodeBody(t, rr, &queueResp)
	if len(queueResp.Queue) != 2 {
		t.Fatalf("queue = %+v, want filter match then manual song", queueResp.Queue)
	}
	if queueResp.Queue[0].ID != rockSong.ID || queueResp.Queue[0].AddedVia != "filter" {
		t.Fatalf("queue[0] = %+v, want rock song via filter", queueResp.Queue[0])
	}
	if queueResp.Queue[1].ID != jazzSong.ID || queueResp.Queue[1].AddedVia != "manual" {
		t.Fatalf("queue[1] = %+v, want jazz song via manual", queueResp.Queue[1])
	}

	rr = h.do(t, http.MethodPut, "/api/playlists/"+playlist.ID, map[string]any{"name": "Renamed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("rename status = %d, want 200", rr.Code)
	}

	rr = h.do(t, http.MethodDelete, "/api/playlists/"+playlist.ID+"/songs/"+jazzSong.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("remove song status = %d, want 200", rr.Code)
	}

	rr = h.do(t, http.MethodDelete, "/api/playlists/"+playlist.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rr.Code)
	}
	rr = h.do(t, http.MethodGet, "/api/playlists/"+playlist.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", rr.Code)
	}
}

func TestPlayerEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	song := h.seedSong(t, models.Song{Name: "Kashmir", Genre: "Rock"})

	rr := h.do(t, http.MethodPost, "/api/playlists", map[string]any{"name": "Mix"})
	var playlist models.Playlist
	decodeBody(t, rr, &playlist)
	h.do(t, http.MethodPost, "/api/playlists/"+playlist.ID+"/songs", map[string]any{
		"song_ids": []string{song.ID},
	})

	rr = h.do(t, http.MethodPost, "/api/player/queue/"+playlist.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("load queue status = %d, want 200", rr.Code)
	}
	var state player.State
	decodeBody(t, rr, &state)
	if len(state.Queue) != 1 {
		t.Fatalf("queue = %d items, want 1", len(state.Queue))
	}

	rr = h.do(t, http.MethodPost, "/api/player/play/"+song.ID, nil)
	decodeBody(t, rr, &state)
	if !state.Playing {
		t.Fatal("expected playing after play")
	}

	rr = h.do(t, http.MethodPut, "/api/player/options", map[string]any{"repeat": "all", "shuffle": false})
	decodeBody(t, rr, &state)
	if state.Options.Repeat != player.RepeatAll {
		t.Fatalf("repeat = %q, want all", state.Options.Repeat)
	}

	rr = h.do(t, http.MethodPost, "/api/player/next", nil)
	decodeBody(t, rr, &state)
	if state.Index != 0 || !state.Playing {
		t.Fatalf("state = %+v, want wrapped to index 0 under repeat all", state)
	}

	rr = h.do(t, http.MethodPost, "/api/player/error", map[string]any{
		"song_id": song.ID,
		"message": "decode failed",
	})
	decodeBody(t, rr, &state)
	if state.Playing {
		t.Fatal("error on current song must stop playback")
	}

	rr = h.do(t, http.MethodPost, "/api/player/error", map[string]any{"message": "no id"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("error without song_id = %d, want 400", rr.Code)
	}

	rr = h.do(t, http.MethodGet, "/api/player", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("player state status = %d, want 200", rr.Code)
	}
}

func TestAudioEndpointRejectsEscapes(t *testing.T) {
	h := newAPIHarness(t)
	song := h.seedSong(t, models.Song{Name: "Evil", Path: "../../etc/passwd"})

	rr := h.do(t, http.MethodGet, "/audio/"+song.ID, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for path escaping media root", rr.Code)
	}

	noMedia := h.seedSong(t, models.Song{Name: "Silent"})
	rr = h.do(t, http.MethodGet, "/audio/"+noMedia.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for song without media", rr.Code)
	}
}
