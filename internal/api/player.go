/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	ws "nhooyr.io/websocket"

	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/player"
	"github.com/soundshare/soundshare/internal/telemetry"
)

type playerOptionsRequest struct {
	Shuffle  bool   `json:"shuffle"`
	Repeat   string `json:"repeat"`
	Autoplay bool   `json:"autoplay"`
}

type playerErrorRequest struct {
	SongID  string `json:"song_id"`
	Message string `json:"message"`
}

func (a *API) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

// handleLoadQueue regenerates a playlist's queue and hands it to the
// sequencer.
func (a *API) handleLoadQueue(w http.ResponseWriter, r *http.Request) {
	items, err := a.buildQueue(r, chi.URLParam(r, "playlistID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	a.sequencer.SetQueue(items)
	telemetry.QueueSize.Set(float64(len(items)))

	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handlePlayItem(w http.ResponseWriter, r *http.Request) {
	a.sequencer.PlayItem(chi.URLParam(r, "itemID"))
	telemetry.PlayerTransitionsTotal.WithLabelValues("play_item").Inc()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handleTogglePlayPause(w http.ResponseWriter, r *http.Request) {
	a.sequencer.TogglePlayPause()
	telemetry.PlayerTransitionsTotal.WithLabelValues("toggle").Inc()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handlePlayNext(w http.ResponseWriter, r *http.Request) {
	a.sequencer.PlayNext()
	telemetry.PlayerTransitionsTotal.WithLabelValues("next").Inc()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handlePlayPrevious(w http.ResponseWriter, r *http.Request) {
	a.sequencer.PlayPrevious()
	telemetry.PlayerTransitionsTotal.WithLabelValues("previous").Inc()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handleSetPlayerOptions(w http.ResponseWriter, r *http.Request) {
	var req playerOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	a.sequencer.SetOptions(player.Options{
		Shuffle:  req.Shuffle,
		Repeat:   player.RepeatMode(req.Repeat),
		Autoplay: req.Autoplay,
	})
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

// handlePlayerError records a terminal playback failure reported by the
// audio client.
func (a *API) handlePlayerError(w http.ResponseWriter, r *http.Request) {
	var req playerErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.SongID == "" {
		writeError(w, http.StatusBadRequest, "song_id_required")
		return
	}

	a.sequencer.MarkError(req.SongID, req.Message)
	telemetry.PlayerTransitionsTotal.WithLabelValues("error").Inc()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

func (a *API) handleClosePlayer(w http.ResponseWriter, r *http.Request) {
	a.sequencer.Close()
	writeJSON(w, http.StatusOK, a.sequencer.Snapshot())
}

// handlePlayerSocket streams player and cache events over a websocket.
func (a *API) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.WebsocketConnections.Inc()
	defer telemetry.WebsocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{
			events.EventNowPlaying,
			events.EventPlayerState,
			events.EventPlayerError,
			events.EventQueueBuilt,
		}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Error().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Error().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func parseEventTypes(raw string) []events.EventType {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	types := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			types = append(types, events.EventType(trimmed))
		}
	}
	return types
}
