/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package queue builds play queues from playlists. Generation is a pure
// function of the playlist and the catalog snapshot: same inputs, same
// queue.
package queue

import (
	"sort"

	"github.com/soundshare/soundshare/internal/filter"
	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/query"
)

// Provenance records how an item entered the queue.
type Provenance string

const (
	ViaFilter Provenance = "filter"
	ViaManual Provenance = "manual"
)

// Item is one queue entry. ID equals the song ID; a song appears at most
// once per queue, attributed to whichever source claimed it first.
type Item struct {
	ID       string      `json:"id"`
	Song     models.Song `json:"song"`
	Position int         `json:"position"`
	AddedVia Provenance  `json:"added_via"`
	FilterID string      `json:"filter_id,omitempty"`
}

// Generate builds the queue for a playlist against a catalog snapshot.
// Saved filters run first in Position order, each contributing its matches
// in catalog order, then the manually added songs in their own Position
// order. Duplicates keep their first occurrence.
func Generate(playlist models.Playlist, catalog []models.Song) []Item {
	var items []Item
	seen := make(map[string]struct{})

	filters := make([]models.PlaylistFilter, len(playlist.Filters))
	copy(filters, playlist.Filters)
	sort.SliceStable(filters, func(i, j int) bool {
		return filters[i].Position < filters[j].Position
	})

	for _, pf := range filters {
		for _, song := range matchFilter(pf, catalog) {
			if _, dup := seen[song.ID]; dup {
				continue
			}
			seen[song.ID] = struct{}{}
			items = append(items, Item{
				ID:       song.ID,
				Song:     song,
				AddedVia: ViaFilter,
				FilterID: pf.ID,
			})
		}
	}

	manual := make([]models.PlaylistSong, len(playlist.Songs))
	copy(manual, playlist.Songs)
	sort.SliceStable(manual, func(i, j int) bool {
		return manual[i].Position < manual[j].Position
	})

	byID := make(map[string]models.Song, len(catalog))
	for _, song := range catalog {
		byID[song.ID] = song
	}

	for _, ps := range manual {
		if _, dup := seen[ps.SongID]; dup {
			continue
		}
		song, ok := byID[ps.SongID]
		if !ok {
			if ps.Song == nil {
				continue
			}
			song = *ps.Song
		}
		seen[ps.SongID] = struct{}{}
		items = append(items, Item{
			ID:       song.ID,
			Song:     song,
			AddedVia: ViaManual,
		})
	}

	for i := range items {
		items[i].Position = i
	}
	return items
}

// matchFilter returns the catalog songs a saved filter selects, in catalog
// order. Unknown filter kinds and undecodable rules select nothing.
func matchFilter(pf models.PlaylistFilter, catalog []models.Song) []models.Song {
	switch pf.Kind {
	case models.FilterAdvanced:
		group := query.GroupFromRules(pf.Rules)
		if group == nil {
			return nil
		}
		var out []models.Song
		for _, song := range catalog {
			if query.Evaluate(group, song) {
				out = append(out, song)
			}
		}
		return out
	case models.FilterSimple:
		pred := filter.FromRules(pf.Rules)
		if pred.Empty() {
			return nil
		}
		var out []models.Song
		for _, song := range catalog {
			if pred.Matches(song) {
				out = append(out, song)
			}
		}
		return out
	}
	return nil
}
