/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundshare/soundshare/internal/db"
	"github.com/soundshare/soundshare/internal/models"
)

var (
	resetForce       bool
	resetDeleteMedia bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database and optionally delete all media",
	Long: `Reset SoundShare to a fresh state.

This command will:
- Drop all tables from the database
- Re-create empty tables
- Optionally delete all media files

WARNING: This action is irreversible! All data will be lost.

Examples:
  # Interactive reset (will prompt for confirmation)
  soundshare reset

  # Force reset without confirmation
  soundshare reset --force

  # Reset and delete all media files
  soundshare reset --force --delete-media
`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	resetCmd.Flags().BoolVar(&resetDeleteMedia, "delete-media", false, "Also delete all media files")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println("\nWARNING: this will DELETE ALL DATA from SoundShare:")
		fmt.Println("  - All songs, tags, and tag groups")
		fmt.Println("  - All playlists and their filters")
		if resetDeleteMedia {
			fmt.Println("  - ALL MEDIA FILES")
		}
		fmt.Println("\nThis action CANNOT be undone!")
		fmt.Print("\nType 'yes' to confirm reset: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	logger.Info().
		Bool("delete_media", resetDeleteMedia).
		Msg("Starting database reset")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	// Drop all tables in reverse order of dependencies
	tables := []interface{}{
		&models.PlaylistSong{},
		&models.PlaylistFilter{},
		&models.Playlist{},
		&models.Tag{},
		&models.TagGroup{},
		&models.Song{},
	}

	logger.Info().Msg("Dropping all tables")
	for _, table := range tables {
		if err := database.Migrator().DropTable(table); err != nil {
			// Log but continue - table might not exist
			logger.Debug().Err(err).Msg("drop table (may not exist)")
		}
	}
	// The join table has no model of its own.
	if err := database.Migrator().DropTable("song_tag_links"); err != nil {
		logger.Debug().Err(err).Msg("drop song_tag_links (may not exist)")
	}

	if resetDeleteMedia && cfg.MediaRoot != "" {
		logger.Info().Str("path", cfg.MediaRoot).Msg("Deleting media files...")

		err := filepath.Walk(cfg.MediaRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path == cfg.MediaRoot {
				return nil
			}
			if !info.IsDir() {
				if err := os.Remove(path); err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("failed to delete file")
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn().Err(err).Msg("error walking media directory")
		}

		cleanEmptyDirs(cfg.MediaRoot)
		logger.Info().Msg("Media files deleted")
	}

	logger.Info().Msg("Creating fresh database schema")
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	logger.Info().Msg("Reset complete")
	fmt.Println("\nSoundShare has been reset to a fresh state.")
	fmt.Println("Start the server with: soundshare serve")

	return nil
}

// cleanEmptyDirs removes empty directories recursively
func cleanEmptyDirs(root string) {
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() || path == root {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil
		}

		if len(entries) == 0 {
			os.Remove(path)
		}
		return nil
	})
}
