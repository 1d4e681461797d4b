/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundshare/soundshare/internal/library"
	"github.com/soundshare/soundshare/internal/models"
)

// Catalog manifest types. A manifest is produced by an external scanner or
// written by hand; both JSON and YAML are accepted.

type catalogManifest struct {
	Version int            `json:"version" yaml:"version"`
	Songs   []catalogEntry `json:"songs" yaml:"songs"`
}

type catalogEntry struct {
	Name            string   `json:"name" yaml:"name"`
	Artist          string   `json:"artist" yaml:"artist"`
	Album           string   `json:"album" yaml:"album"`
	Genre           string   `json:"genre" yaml:"genre"`
	Year            *int     `json:"year" yaml:"year"`
	DurationSeconds float64  `json:"duration_seconds" yaml:"duration_seconds"`
	Path            string   `json:"path" yaml:"path"`
	Tempo           *float64 `json:"tempo" yaml:"tempo"`
	Energy          *float64 `json:"energy" yaml:"energy"`
	Valence         *float64 `json:"valence" yaml:"valence"`
	Danceability    *float64 `json:"danceability" yaml:"danceability"`
	Tags            []string `json:"tags" yaml:"tags"`
}

// Import flags
var (
	importManifestPath string
	importDryRun       bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import songs from a catalog manifest",
	Long: `Reads a catalog manifest (JSON or YAML) and upserts songs into the
library. Songs are matched by media path: an entry whose path already
exists in the library updates that song in place, everything else is
created. Tags named in the manifest are created on demand.

Examples:
  soundshare import --manifest catalog.yaml --dry-run
  soundshare import --manifest catalog.json`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importManifestPath, "manifest", "", "Path to catalog manifest (.json, .yaml, .yml) (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would change without writing")
	importCmd.MarkFlagRequired("manifest")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	manifest, err := readManifest(importManifestPath)
	if err != nil {
		return err
	}
	if manifest.Version != 1 {
		return fmt.Errorf("unsupported manifest version: %d", manifest.Version)
	}

	fmt.Printf("Manifest: %d songs\n", len(manifest.Songs))

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	lib := library.New(database, logger)
	ctx := context.Background()

	// Existing songs keyed by path so re-imports update in place.
	existing, err := lib.ListSongs(ctx, nil)
	if err != nil {
		return fmt.Errorf("list songs: %w", err)
	}
	byPath := make(map[string]models.Song, len(existing))
	for _, song := range existing {
		if song.Path != "" {
			byPath[song.Path] = song
		}
	}

	// Known tags keyed by lowercase name.
	tags, err := lib.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	tagIDs := make(map[string]string, len(tags))
	for _, tag := range tags {
		tagIDs[strings.ToLower(tag.Name)] = tag.ID
	}

	var created, updated, skipped, tagsCreated int
	for i, entry := range manifest.Songs {
		if entry.Name == "" {
			fmt.Fprintf(os.Stderr, "  entry %d: missing name, skipped\n", i)
			skipped++
			continue
		}

		song := models.Song{
			Name:         entry.Name,
			Artist:       entry.Artist,
			Album:        entry.Album,
			Genre:        entry.Genre,
			Year:         entry.Year,
			Tempo:        entry.Tempo,
			Energy:       entry.Energy,
			Valence:      entry.Valence,
			Danceability: entry.Danceability,
			Duration:     time.Duration(entry.DurationSeconds * float64(time.Second)),
			Path:         entry.Path,
		}

		isUpdate := false
		if prev, ok := byPath[entry.Path]; ok && entry.Path != "" {
			song.ID = prev.ID
			isUpdate = true
		} else {
			song.ID = uuid.NewString()
		}

		if importDryRun {
			if isUpdate {
				fmt.Printf("  [dry-run] update %s - %s\n", entry.Artist, entry.Name)
				updated++
			} else {
				fmt.Printf("  [dry-run] create %s - %s\n", entry.Artist, entry.Name)
				created++
			}
			continue
		}

		if err := lib.UpsertSong(ctx, &song); err != nil {
			fmt.Fprintf(os.Stderr, "  error importing %q: %v\n", entry.Name, err)
			skipped++
			continue
		}

		// Resolve manifest tag names, creating missing tags on the fly.
		if len(entry.Tags) > 0 {
			ids := make([]string, 0, len(entry.Tags))
			for _, name := range entry.Tags {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				id, ok := tagIDs[key]
				if !ok {
					tag, err := lib.CreateTag(ctx, name, nil)
					if err != nil {
						fmt.Fprintf(os.Stderr, "  error creating tag %q: %v\n", name, err)
						continue
					}
					id = tag.ID
					tagIDs[key] = id
					tagsCreated++
				}
				ids = append(ids, id)
			}
			if err := lib.SetSongTags(ctx, song.ID, ids); err != nil {
				fmt.Fprintf(os.Stderr, "  error tagging %q: %v\n", entry.Name, err)
			}
		}

		if isUpdate {
			updated++
		} else {
			created++
			if entry.Path != "" {
				byPath[entry.Path] = song
			}
		}
	}

	label := "Complete"
	if importDryRun {
		label = "Complete (dry run)"
	}
	fmt.Printf("\nImport %s:\n", label)
	fmt.Printf("  Created:      %d\n", created)
	fmt.Printf("  Updated:      %d\n", updated)
	fmt.Printf("  Skipped:      %d\n", skipped)
	fmt.Printf("  Tags created: %d\n", tagsCreated)

	return nil
}

func readManifest(path string) (*catalogManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest catalogManifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	}
	return &manifest, nil
}
