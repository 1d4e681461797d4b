/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player implements the playback sequencer: the session-local
// state machine that walks a generated queue under shuffle and repeat
// options. It tracks positions and publishes transitions; actual audio
// decoding happens client-side against the /audio endpoints.
package player

import (
	"math/rand"
	"sync"
	"time"

	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/queue"
)

// RepeatMode controls what happens when a song finishes.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Options are session-local playback preferences. They are never
// persisted; a new session starts from defaults.
type Options struct {
	Shuffle  bool       `json:"shuffle"`
	Repeat   RepeatMode `json:"repeat"`
	Autoplay bool       `json:"autoplay"`
}

// State is a point-in-time snapshot of the sequencer.
type State struct {
	Queue    []queue.Item `json:"queue"`
	Index    int          `json:"index"`
	Playing  bool         `json:"playing"`
	Options  Options      `json:"options"`
	LastErr  string       `json:"last_error,omitempty"`
	ErrorIDs []string     `json:"error_ids,omitempty"`
}

// Current returns the item at the playhead, or false on an empty queue.
func (s State) Current() (queue.Item, bool) {
	if len(s.Queue) == 0 || s.Index < 0 || s.Index >= len(s.Queue) {
		return queue.Item{}, false
	}
	return s.Queue[s.Index], true
}

// Publisher is the event bus surface the sequencer publishes to.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Sequencer walks a queue. All methods are safe for concurrent use.
type Sequencer struct {
	mu      sync.Mutex
	items   []queue.Item
	index   int
	playing bool
	options Options
	failed  map[string]string

	rng *rand.Rand
	bus Publisher
}

// New creates a sequencer publishing transitions on bus. A nil bus
// disables publishing.
func New(bus Publisher) *Sequencer {
	return NewWithRand(bus, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a sequencer with a caller-supplied random source,
// which makes shuffle behavior reproducible in tests.
func NewWithRand(bus Publisher, rng *rand.Rand) *Sequencer {
	return &Sequencer{
		options: Options{Repeat: RepeatNone, Autoplay: true},
		failed:  make(map[string]string),
		rng:     rng,
		bus:     bus,
	}
}

// SetQueue replaces the queue and rewinds to the first item. Playback
// state is preserved: if something was playing, the first item of the new
// queue plays next. Per-song error marks are cleared.
func (s *Sequencer) SetQueue(items []queue.Item) {
	s.mu.Lock()
	s.items = append([]queue.Item(nil), items...)
	s.index = 0
	s.failed = make(map[string]string)
	if len(s.items) == 0 {
		s.playing = false
	}
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(events.EventQueueBuilt, events.Payload{"size": len(items)})
	s.publishState(state)
}

// PlayItem jumps the playhead to the queue entry with the given ID and
// starts playback. Unknown IDs are ignored. A failed item can be selected
// but stays paused; the error is terminal for the queue's lifetime.
func (s *Sequencer) PlayItem(id string) {
	s.mu.Lock()
	for i, item := range s.items {
		if item.ID == id {
			s.index = i
			_, bad := s.failed[id]
			s.playing = !bad
			break
		}
	}
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.announce(state)
}

// TogglePlayPause flips between playing and paused. On an empty queue it
// does nothing, and an item marked as failed cannot be resumed.
func (s *Sequencer) TogglePlayPause() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	if !s.playing && s.currentFailedLocked() {
		s.mu.Unlock()
		return
	}
	s.playing = !s.playing
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.publishState(state)
}

// Close unloads the queue and returns the player to idle: no current item,
// nothing playing, error marks gone.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.items = nil
	s.index = 0
	s.playing = false
	s.failed = make(map[string]string)
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.publishState(state)
}

// PlayNext advances the playhead. Repeat-one replays the current item
// regardless of shuffle. Shuffle picks a random index. Otherwise the
// playhead moves forward, wrapping under repeat-all and stopping at the
// end under repeat-none.
func (s *Sequencer) PlayNext() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}

	switch {
	case s.options.Repeat == RepeatOne:
		// Playhead stays put.
	case s.options.Shuffle:
		s.index = s.rng.Intn(len(s.items))
	case s.index+1 < len(s.items):
		s.index++
	case s.options.Repeat == RepeatAll:
		s.index = 0
	default:
		// End of queue, nothing to advance to.
		s.playing = false
		state := s.snapshotLocked()
		s.mu.Unlock()
		s.publishState(state)
		return
	}

	// Landing on a failed item never restarts it.
	s.playing = !s.currentFailedLocked()
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.announce(state)
}

// PlayPrevious moves the playhead back one entry, wrapping to the last
// entry under repeat-all and clamping at the first otherwise.
func (s *Sequencer) PlayPrevious() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}

	if s.index > 0 {
		s.index--
	} else if s.options.Repeat == RepeatAll {
		s.index = len(s.items) - 1
	}

	s.playing = !s.currentFailedLocked()
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.announce(state)
}

// SetOptions replaces the playback options. An unknown repeat mode is
// normalized to none.
func (s *Sequencer) SetOptions(opts Options) {
	switch opts.Repeat {
	case RepeatNone, RepeatAll, RepeatOne:
	default:
		opts.Repeat = RepeatNone
	}

	s.mu.Lock()
	s.options = opts
	state := s.snapshotLocked()
	s.mu.Unlock()
	s.publishState(state)
}

// Options returns the current playback options.
func (s *Sequencer) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// MarkError records a terminal playback failure for a song. The error
// sticks to the song for the lifetime of the queue; it is not retried.
// When the failed song is the current one, playback stops.
func (s *Sequencer) MarkError(songID, message string) {
	s.mu.Lock()
	s.failed[songID] = message
	if item, ok := s.snapshotLocked().Current(); ok && item.ID == songID {
		s.playing = false
	}
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(events.EventPlayerError, events.Payload{
		"song_id": songID,
		"error":   message,
	})
	s.publishState(state)
}

// currentFailedLocked reports whether the item at the playhead carries a
// terminal error mark. Callers must hold the mutex.
func (s *Sequencer) currentFailedLocked() bool {
	if s.index < 0 || s.index >= len(s.items) {
		return false
	}
	_, bad := s.failed[s.items[s.index].ID]
	return bad
}

// Snapshot returns a copy of the sequencer state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sequencer) snapshotLocked() State {
	state := State{
		Queue:   append([]queue.Item(nil), s.items...),
		Index:   s.index,
		Playing: s.playing,
		Options: s.options,
	}
	for id, msg := range s.failed {
		state.ErrorIDs = append(state.ErrorIDs, id)
		state.LastErr = msg
	}
	return state
}

// announce publishes both the now-playing item and the full state.
func (s *Sequencer) announce(state State) {
	if item, ok := state.Current(); ok && state.Playing {
		s.publish(events.EventNowPlaying, events.Payload{
			"song_id": item.Song.ID,
			"name":    item.Song.Name,
			"artist":  item.Song.Artist,
		})
	}
	s.publishState(state)
}

func (s *Sequencer) publishState(state State) {
	payload := events.Payload{
		"index":   state.Index,
		"playing": state.Playing,
		"size":    len(state.Queue),
		"options": state.Options,
	}
	if item, ok := state.Current(); ok {
		payload["song_id"] = item.Song.ID
	}
	s.publish(events.EventPlayerState, payload)
}

func (s *Sequencer) publish(eventType events.EventType, payload events.Payload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, payload)
}
