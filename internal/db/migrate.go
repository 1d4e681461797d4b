/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/soundshare/soundshare/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Song{},
		&models.Tag{},
		&models.TagGroup{},
		&models.Playlist{},
		&models.PlaylistFilter{},
		&models.PlaylistSong{},
	); err != nil {
		return err
	}

	if err := normalizeLegacyFilterKinds(database); err != nil {
		return err
	}
	if err := backfillFilterPositions(database); err != nil {
		return err
	}

	return nil
}

// normalizeLegacyFilterKinds maps filters imported without an explicit kind
// onto the simple rule model, which is how older exports stored them.
func normalizeLegacyFilterKinds(database *gorm.DB) error {
	if err := database.Exec(
		"UPDATE playlist_filters SET kind = ? WHERE kind IS NULL OR TRIM(kind) = ''",
		models.FilterSimple,
	).Error; err != nil {
		return fmt.Errorf("normalize legacy filter kinds: %w", err)
	}
	return nil
}

// backfillFilterPositions assigns positions to filters created before
// ordering existed, keeping creation order.
func backfillFilterPositions(database *gorm.DB) error {
	type row struct {
		ID         string
		PlaylistID string
	}
	var rows []row
	if err := database.
		Model(&models.PlaylistFilter{}).
		Select("id, playlist_id").
		Where("position IS NULL OR position < 0").
		Order("playlist_id, id").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("backfill filter positions query: %w", err)
	}

	next := make(map[string]int)
	for _, r := range rows {
		pos := next[r.PlaylistID]
		next[r.PlaylistID] = pos + 1
		if err := database.Model(&models.PlaylistFilter{}).
			Where("id = ?", r.ID).
			Update("position", pos).Error; err != nil {
			return fmt.Errorf("backfill filter position: %w", err)
		}
	}

	return nil
}
