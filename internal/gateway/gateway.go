/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package gateway is the single entry point the HTTP layer talks to for
// catalog data. Reads go through the cache; every mutation invalidates
// the affected cache entries, publishes an invalidation event, and
// returns freshly refetched state rather than a locally patched copy.
package gateway

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/soundshare/soundshare/internal/cache"
	"github.com/soundshare/soundshare/internal/events"
	"github.com/soundshare/soundshare/internal/library"
	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/query"
	"github.com/soundshare/soundshare/internal/telemetry"
)

// Publisher is the event bus surface the gateway needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Gateway fronts the library with caching and invalidation events.
type Gateway struct {
	library *library.Service
	cache   *cache.Cache
	bus     Publisher
	logger  zerolog.Logger
}

// New creates a gateway. Cache may be nil to run uncached.
func New(lib *library.Service, c *cache.Cache, bus Publisher, logger zerolog.Logger) *Gateway {
	return &Gateway{
		library: lib,
		cache:   c,
		bus:     bus,
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

// FetchSongs returns the songs matching an optional query, cached by the
// query's canonical key.
func (g *Gateway) FetchSongs(ctx context.Context, group *query.Group) ([]models.Song, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway", "FetchSongs")
	defer span.End()

	key := query.Key(group)
	if g.cache != nil {
		if songs, ok := g.cache.GetSongs(ctx, key); ok {
			telemetry.AddSpanAttributes(span, map[string]any{"cache_hit": true, "count": len(songs)})
			return songs, nil
		}
	}

	songs, err := g.library.ListSongs(ctx, group)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	g.logger.Debug().Int("count", len(songs)).Msg("songs fetched from library")
	telemetry.AddSpanAttributes(span, map[string]any{"cache_hit": false, "count": len(songs)})
	if g.cache != nil {
		_ = g.cache.SetSongs(ctx, key, songs)
	}
	return songs, nil
}

// FetchSong returns one song, uncached.
func (g *Gateway) FetchSong(ctx context.Context, id string) (*models.Song, error) {
	return g.library.GetSong(ctx, id)
}

// FetchTags returns all tags.
func (g *Gateway) FetchTags(ctx context.Context) ([]models.Tag, error) {
	if g.cache != nil {
		if tags, ok := g.cache.GetTags(ctx); ok {
			return tags, nil
		}
	}
	tags, err := g.library.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		_ = g.cache.SetTags(ctx, tags)
	}
	return tags, nil
}

// FetchTagGroups returns all tag groups with their tags.
func (g *Gateway) FetchTagGroups(ctx context.Context) ([]models.TagGroup, error) {
	if g.cache != nil {
		if groups, ok := g.cache.GetTagGroups(ctx); ok {
			return groups, nil
		}
	}
	groups, err := g.library.ListTagGroups(ctx)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		_ = g.cache.SetTagGroups(ctx, groups)
	}
	return groups, nil
}

// FetchPlaylists returns all playlists.
func (g *Gateway) FetchPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if g.cache != nil {
		if playlists, ok := g.cache.GetPlaylists(ctx); ok {
			return playlists, nil
		}
	}
	playlists, err := g.library.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		_ = g.cache.SetPlaylists(ctx, playlists)
	}
	return playlists, nil
}

// FetchPlaylist returns one playlist with resolved songs.
func (g *Gateway) FetchPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if g.cache != nil {
		if playlist, ok := g.cache.GetPlaylist(ctx, id); ok {
			return playlist, nil
		}
	}
	playlist, err := g.library.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		_ = g.cache.SetPlaylist(ctx, playlist)
	}
	return playlist, nil
}

// Song mutations

// UpdateSongTags replaces one song's tag set and returns the refetched
// song.
func (g *Gateway) UpdateSongTags(ctx context.Context, songID string, tagIDs []string) (*models.Song, error) {
	if err := g.library.SetSongTags(ctx, songID, tagIDs); err != nil {
		return nil, err
	}
	g.invalidateSongs(ctx)
	return g.library.GetSong(ctx, songID)
}

// BulkUpdateSongTags applies tag changes across many songs and returns
// the refetched unfiltered catalog.
func (g *Gateway) BulkUpdateSongTags(ctx context.Context, songIDs, addTagIDs, removeTagIDs []string) ([]models.Song, error) {
	if err := g.library.BulkUpdateSongTags(ctx, songIDs, addTagIDs, removeTagIDs); err != nil {
		return nil, err
	}
	g.invalidateSongs(ctx)
	return g.FetchSongs(ctx, nil)
}

// Tag mutations

// CreateTag creates a tag and returns the refetched tag list.
func (g *Gateway) CreateTag(ctx context.Context, name string, groupID *string) ([]models.Tag, error) {
	if _, err := g.library.CreateTag(ctx, name, groupID); err != nil {
		return nil, err
	}
	g.invalidateTags(ctx)
	return g.FetchTags(ctx)
}

// RenameTag renames a tag and returns the refetched tag list.
func (g *Gateway) RenameTag(ctx context.Context, id, name string) ([]models.Tag, error) {
	if _, err := g.library.RenameTag(ctx, id, name); err != nil {
		return nil, err
	}
	g.invalidateTags(ctx)
	return g.FetchTags(ctx)
}

// AssignTagGroup moves a tag between groups and returns the refetched
// group list.
func (g *Gateway) AssignTagGroup(ctx context.Context, tagID string, groupID *string) ([]models.TagGroup, error) {
	if err := g.library.AssignTagGroup(ctx, tagID, groupID); err != nil {
		return nil, err
	}
	g.invalidateTags(ctx)
	g.invalidateTagGroups(ctx)
	return g.FetchTagGroups(ctx)
}

// DeleteTag removes a tag and returns the refetched tag list.
func (g *Gateway) DeleteTag(ctx context.Context, id string) ([]models.Tag, error) {
	if err := g.library.DeleteTag(ctx, id); err != nil {
		return nil, err
	}
	g.invalidateTags(ctx)
	return g.FetchTags(ctx)
}

// Tag group mutations

// CreateTagGroup creates a group and returns the refetched group list.
func (g *Gateway) CreateTagGroup(ctx context.Context, name string) ([]models.TagGroup, error) {
	if _, err := g.library.CreateTagGroup(ctx, name); err != nil {
		return nil, err
	}
	g.invalidateTagGroups(ctx)
	return g.FetchTagGroups(ctx)
}

// RenameTagGroup renames a group and returns the refetched group list.
func (g *Gateway) RenameTagGroup(ctx context.Context, id, name string) ([]models.TagGroup, error) {
	if _, err := g.library.RenameTagGroup(ctx, id, name); err != nil {
		return nil, err
	}
	g.invalidateTagGroups(ctx)
	return g.FetchTagGroups(ctx)
}

// DeleteTagGroup removes a group (tags survive ungrouped) and returns the
// refetched group list.
func (g *Gateway) DeleteTagGroup(ctx context.Context, id string) ([]models.TagGroup, error) {
	if err := g.library.DeleteTagGroup(ctx, id); err != nil {
		return nil, err
	}
	g.invalidateTags(ctx)
	g.invalidateTagGroups(ctx)
	return g.FetchTagGroups(ctx)
}

// Playlist mutations

// CreatePlaylist creates a playlist and returns its refetched state.
func (g *Gateway) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlist, err := g.library.CreatePlaylist(ctx, name)
	if err != nil {
		return nil, err
	}
	g.invalidatePlaylists(ctx, playlist.ID)
	return g.FetchPlaylist(ctx, playlist.ID)
}

// RenamePlaylist renames a playlist and returns its refetched state.
func (g *Gateway) RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error) {
	if _, err := g.library.RenamePlaylist(ctx, id, name); err != nil {
		return nil, err
	}
	g.invalidatePlaylists(ctx, id)
	return g.FetchPlaylist(ctx, id)
}

// DeletePlaylist removes a playlist.
func (g *Gateway) DeletePlaylist(ctx context.Context, id string) error {
	if err := g.library.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	g.invalidatePlaylists(ctx, id)
	return nil
}

// ReplaceFilters swaps a playlist's saved filters and returns its
// refetched state.
func (g *Gateway) ReplaceFilters(ctx context.Context, playlistID string, filters []models.PlaylistFilter) (*models.Playlist, error) {
	if err := g.library.ReplaceFilters(ctx, playlistID, filters); err != nil {
		return nil, err
	}
	g.invalidatePlaylists(ctx, playlistID)
	return g.FetchPlaylist(ctx, playlistID)
}

// AddSongs appends songs to a playlist and returns its refetched state.
func (g *Gateway) AddSongs(ctx context.Context, playlistID string, songIDs []string) (*models.Playlist, error) {
	if err := g.library.AddSongs(ctx, playlistID, songIDs); err != nil {
		return nil, err
	}
	g.invalidatePlaylists(ctx, playlistID)
	return g.FetchPlaylist(ctx, playlistID)
}

// RemoveSong drops a song from a playlist and returns its refetched
// state.
func (g *Gateway) RemoveSong(ctx context.Context, playlistID, songID string) (*models.Playlist, error) {
	if err := g.library.RemoveSong(ctx, playlistID, songID); err != nil {
		return nil, err
	}
	g.invalidatePlaylists(ctx, playlistID)
	return g.FetchPlaylist(ctx, playlistID)
}

func (g *Gateway) invalidateSongs(ctx context.Context) {
	if g.cache != nil {
		_ = g.cache.InvalidateSongs(ctx)
	}
	g.publish(events.EventSongsUpdated, events.Payload{})
}

func (g *Gateway) invalidateTags(ctx context.Context) {
	if g.cache != nil {
		_ = g.cache.InvalidateTags(ctx)
	}
	g.publish(events.EventTagsUpdated, events.Payload{})
}

func (g *Gateway) invalidateTagGroups(ctx context.Context) {
	if g.cache != nil {
		_ = g.cache.InvalidateTagGroups(ctx)
	}
	g.publish(events.EventTagGroupsUpdated, events.Payload{})
}

func (g *Gateway) invalidatePlaylists(ctx context.Context, playlistID string) {
	if g.cache != nil {
		_ = g.cache.InvalidatePlaylists(ctx, playlistID)
	}
	g.publish(events.EventPlaylistsUpdated, events.Payload{"playlist_id": playlistID})
}

func (g *Gateway) publish(eventType events.EventType, payload events.Payload) {
	if g.bus == nil {
		return
	}
	g.bus.Publish(eventType, payload)
}
