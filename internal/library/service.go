/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library is the persistence layer for the song catalog: songs,
// tags, tag groups, and playlists with their saved filters.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Service wraps catalog persistence.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a library service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger.With().Str("component", "library").Logger()}
}

// Songs

// ListSongs returns catalog songs matching an optional query, in stable
// catalog order. Cheap top-level conditions narrow the SQL fetch; the full
// query semantics are applied in memory so SQL and in-memory evaluation
// can never disagree.
func (s *Service) ListSongs(ctx context.Context, group *query.Group) ([]models.Song, error) {
	q := s.db.WithContext(ctx).Preload("Tags").Order("artist, album, name, id")
	q = narrowByQuery(q, group)

	var songs []models.Song
	if err := q.Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}

	if group == nil {
		return songs, nil
	}

	matched := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		if query.Evaluate(group, song) {
			matched = append(matched, song)
		}
	}
	return matched, nil
}

// narrowByQuery pushes top-level AND string conditions into SQL. Anything
// it cannot express is left for in-memory evaluation; narrowing must only
// ever shrink the candidate set, never grow it.
func narrowByQuery(q *gorm.DB, group *query.Group) *gorm.DB {
	if group == nil || group.Negated || group.Combinator == query.CombinatorOr {
		return q
	}
	for _, cond := range group.Rules {
		if cond.Negated {
			continue
		}
		value, ok := cond.Value.(string)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		column := ""
		switch cond.Field {
		case query.FieldName:
			column = "name"
		case query.FieldArtist:
			column = "artist"
		case query.FieldAlbum:
			column = "album"
		case query.FieldGenre:
			column = "genre"
		default:
			continue
		}
		// sqlite's LOWER only folds ASCII, so narrowing on wider values
		// could exclude rows the in-memory evaluator matches.
		if !isASCII(value) {
			continue
		}
		switch cond.Operator {
		case query.OpContains:
			q = q.Where("LOWER("+column+") LIKE LOWER(?)", "%"+value+"%")
		case query.OpStartsWith:
			q = q.Where("LOWER("+column+") LIKE LOWER(?)", value+"%")
		case query.OpEndsWith:
			q = q.Where("LOWER("+column+") LIKE LOWER(?)", "%"+value)
		case query.OpEquals:
			q = q.Where("LOWER("+column+") = LOWER(?)", value)
		}
	}
	return q
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// GetSong returns a song with its tags.
func (s *Service) GetSong(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	err := s.db.WithContext(ctx).Preload("Tags").First(&song, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	return &song, nil
}

// UpsertSong creates or updates a catalog song. Used by the importer; the
// song's ID is assigned when missing.
func (s *Service) UpsertSong(ctx context.Context, song *models.Song) error {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(song).Error; err != nil {
		return fmt.Errorf("upsert song: %w", err)
	}
	return nil
}

// SetSongTags replaces a song's tag set.
func (s *Service) SetSongTags(ctx context.Context, songID string, tagIDs []string) error {
	song, err := s.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	var tags []models.Tag
	if len(tagIDs) > 0 {
		if err := s.db.WithContext(ctx).Find(&tags, "id IN ?", tagIDs).Error; err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).Model(song).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("replace song tags: %w", err)
	}
	return nil
}

// BulkUpdateSongTags adds and removes tags across many songs in one
// transaction.
func (s *Service) BulkUpdateSongTags(ctx context.Context, songIDs, addTagIDs, removeTagIDs []string) error {
	s.logger.Debug().
		Int("songs", len(songIDs)).
		Int("add", len(addTagIDs)).
		Int("remove", len(removeTagIDs)).
		Msg("bulk tag update")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var add, remove []models.Tag
		if len(addTagIDs) > 0 {
			if err := tx.Find(&add, "id IN ?", addTagIDs).Error; err != nil {
				return fmt.Errorf("load tags to add: %w", err)
			}
		}
		if len(removeTagIDs) > 0 {
			if err := tx.Find(&remove, "id IN ?", removeTagIDs).Error; err != nil {
				return fmt.Errorf("load tags to remove: %w", err)
			}
		}

		for _, songID := range songIDs {
			song := models.Song{ID: songID}
			if len(add) > 0 {
				if err := tx.Model(&song).Association("Tags").Append(add); err != nil {
					return fmt.Errorf("add tags to song %s: %w", songID, err)
				}
			}
			if len(remove) > 0 {
				if err := tx.Model(&song).Association("Tags").Delete(remove); err != nil {
					return fmt.Errorf("remove tags from song %s: %w", songID, err)
				}
			}
		}
		return nil
	})
}

// Tags

// ListTags returns all tags ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// CreateTag creates a tag, optionally inside a group.
func (s *Service) CreateTag(ctx context.Context, name string, groupID *string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}
	tag := models.Tag{ID: uuid.NewString(), Name: name, TagGroupID: groupID}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &tag, nil
}

// RenameTag renames a tag. Songs keep the tag; only its label changes.
func (s *Service) RenameTag(ctx context.Context, id, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tag: %w", err)
	}
	tag.Name = name
	if err := s.db.WithContext(ctx).Save(&tag).Error; err != nil {
		return nil, fmt.Errorf("rename tag: %w", err)
	}
	return &tag, nil
}

// AssignTagGroup moves a tag into a group, or out of any group when
// groupID is nil.
func (s *Service) AssignTagGroup(ctx context.Context, id string, groupID *string) error {
	result := s.db.WithContext(ctx).Model(&models.Tag{}).Where("id = ?", id).Update("tag_group_id", groupID)
	if result.Error != nil {
		return fmt.Errorf("assign tag group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTag removes a tag and detaches it from all songs.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM song_tag_links WHERE tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach tag: %w", err)
		}
		result := tx.Delete(&models.Tag{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("delete tag: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Tag groups

// ListTagGroups returns all tag groups with their tags.
func (s *Service) ListTagGroups(ctx context.Context) ([]models.TagGroup, error) {
	var groups []models.TagGroup
	if err := s.db.WithContext(ctx).Preload("Tags").Order("name").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list tag groups: %w", err)
	}
	return groups, nil
}

// CreateTagGroup creates a tag group.
func (s *Service) CreateTagGroup(ctx context.Context, name string) (*models.TagGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag group name is required")
	}
	group := models.TagGroup{ID: uuid.NewString(), Name: name}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, fmt.Errorf("create tag group: %w", err)
	}
	return &group, nil
}

// RenameTagGroup renames a tag group.
func (s *Service) RenameTagGroup(ctx context.Context, id, name string) (*models.TagGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag group name is required")
	}
	var group models.TagGroup
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tag group: %w", err)
	}
	group.Name = name
	if err := s.db.WithContext(ctx).Save(&group).Error; err != nil {
		return nil, fmt.Errorf("rename tag group: %w", err)
	}
	return &group, nil
}

// DeleteTagGroup removes a group. Its tags survive, ungrouped.
func (s *Service) DeleteTagGroup(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Tag{}).Where("tag_group_id = ?", id).Update("tag_group_id", nil).Error; err != nil {
			return fmt.Errorf("ungroup tags: %w", err)
		}
		result := tx.Delete(&models.TagGroup{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("delete tag group: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Playlists

// ListPlaylists returns all playlists with filters and song links.
func (s *Service) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Filters", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Songs", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("name").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist returns one playlist with filters, song links, and the
// linked songs' tags.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Filters", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Songs", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Songs.Song.Tags").
		First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return &playlist, nil
}

// CreatePlaylist creates an empty playlist.
func (s *Service) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("playlist name is required")
	}
	playlist := models.Playlist{ID: uuid.NewString(), Name: name}
	if err := s.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &playlist, nil
}

// RenamePlaylist renames a playlist.
func (s *Service) RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("playlist name is required")
	}
	var playlist models.Playlist
	err := s.db.WithContext(ctx).First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	playlist.Name = name
	if err := s.db.WithContext(ctx).Save(&playlist).Error; err != nil {
		return nil, fmt.Errorf("rename playlist: %w", err)
	}
	return &playlist, nil
}

// DeletePlaylist removes a playlist with its filters and song links.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.PlaylistFilter{}, "playlist_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete playlist filters: %w", err)
		}
		if err := tx.Delete(&models.PlaylistSong{}, "playlist_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete playlist songs: %w", err)
		}
		result := tx.Delete(&models.Playlist{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("delete playlist: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceFilters swaps a playlist's saved filters for a new ordered set.
// Positions are assigned from list order; missing filter IDs are minted.
func (s *Service) ReplaceFilters(ctx context.Context, playlistID string, filters []models.PlaylistFilter) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		err := tx.First(&playlist, "id = ?", playlistID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load playlist: %w", err)
		}

		if err := tx.Delete(&models.PlaylistFilter{}, "playlist_id = ?", playlistID).Error; err != nil {
			return fmt.Errorf("clear playlist filters: %w", err)
		}

		for i := range filters {
			filters[i].PlaylistID = playlistID
			filters[i].Position = i
			if filters[i].ID == "" {
				filters[i].ID = uuid.NewString()
			}
			if filters[i].Kind == "" {
				filters[i].Kind = models.FilterSimple
			}
			if err := tx.Create(&filters[i]).Error; err != nil {
				return fmt.Errorf("create playlist filter: %w", err)
			}
		}
		return nil
	})
}

// AddSongs appends songs to a playlist's manual list. Membership is a
// set: songs already present keep their position.
func (s *Service) AddSongs(ctx context.Context, playlistID string, songIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlist models.Playlist
		err := tx.First(&playlist, "id = ?", playlistID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load playlist: %w", err)
		}

		var maxPos int
		row := tx.Model(&models.PlaylistSong{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position), -1)").
			Row()
		if err := row.Scan(&maxPos); err != nil {
			return fmt.Errorf("read max position: %w", err)
		}

		for _, songID := range songIDs {
			var existing int64
			if err := tx.Model(&models.PlaylistSong{}).
				Where("playlist_id = ? AND song_id = ?", playlistID, songID).
				Count(&existing).Error; err != nil {
				return fmt.Errorf("check membership: %w", err)
			}
			if existing > 0 {
				continue
			}
			maxPos++
			link := models.PlaylistSong{PlaylistID: playlistID, SongID: songID, Position: maxPos}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("add playlist song: %w", err)
			}
		}
		return nil
	})
}

// RemoveSong drops one song from a playlist's manual list.
func (s *Service) RemoveSong(ctx context.Context, playlistID, songID string) error {
	result := s.db.WithContext(ctx).
		Delete(&models.PlaylistSong{}, "playlist_id = ? AND song_id = ?", playlistID, songID)
	if result.Error != nil {
		return fmt.Errorf("remove playlist song: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
