/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundshare/soundshare/internal/models"
	"github.com/soundshare/soundshare/internal/query"
)

func newTestService(t *testing.T) *Service {
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
	return New(db, zerolog.Nop())
}

func seedSong(t *testing.T, svc *Service, song models.Song) models.Song {
	t.Helper()
	if err := svc.UpsertSong(context.Background(), &song); err != nil {
		t.Fatalf("seed song %q: %v", song.Name, err)
	}
	return song
}

func TestUpsertSongCreateAndUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	song := seedSong(t, svc, models.Song{Name: "Kashmir", Artist: "Led Zeppelin"})
	if song.ID == "" {
		t.Fatal("expected minted song ID")
	}

	song.Album = "Physical Graffiti"
	if err := svc.UpsertSong(ctx, &song); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Album != "Physical Graffiti" {
		t.Fatalf("album = %q, want updated value", got.Album)
	}

	songs, err := svc.ListSongs(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("songs = %d, want 1 (upsert must not duplicate)", len(songs))
	}
}

func TestGetSongNotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetSong(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSongsOrderAndQuery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedSong(t, svc, models.Song{Name: "So What", Artist: "Miles Davis", Genre: "Jazz"})
	seedSong(t, svc, models.Song{Name: "Kashmir", Artist: "Led Zeppelin", Genre: "Rock"})
	seedSong(t, svc, models.Song{Name: "Black Dog", Artist: "Led Zeppelin", Genre: "Rock"})

	all, err := svc.ListSongs(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantOrder := []string{"Black Dog", "Kashmir", "So What"}
	for i, name := range wantOrder {
		if all[i].Name != name {
			t.Fatalf("songs[%d] = %q, want %q (artist, album, name order)", i, all[i].Name, name)
		}
	}

	group := &query.Group{
		Combinator: query.CombinatorAnd,
		Rules: []query.Condition{
			{Field: query.FieldArtist, Operator: query.OpContains, Value: "zeppelin"},
		},
	}
	rock, err := svc.ListSongs(ctx, group)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(rock) != 2 {
		t.Fatalf("filtered songs = %d, want 2", len(rock))
	}
}

func TestListSongsNarrowingIsCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedSong(t, svc, models.Song{Name: "One More Time", Artist: "Daft Punk"})
	seedSong(t, svc, models.Song{Name: "Low Tide", Artist: "ÖYSTER COVE"})

	cases := []struct {
		value string
		want  string
	}{
		{"daft punk", "One More Time"},
		{"DAFT", "One More Time"},
		{"öyster", "Low Tide"},
	}
	for _, tc := range cases {
		group := &query.Group{
			Combinator: query.CombinatorAnd,
			Rules: []query.Condition{
				{Field: query.FieldArtist, Operator: query.OpContains, Value: tc.value},
			},
		}
		songs, err := svc.ListSongs(ctx, group)
		if err != nil {
			t.Fatalf("list %q: %v", tc.value, err)
		}
		if len(songs) != 1 || songs[0].Name != tc.want {
			t.Fatalf("contains %q = %v, want only %q", tc.value, songs, tc.want)
		}
	}
}

func TestListSongsQueryBeyondSQLNarrowing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	energyHigh := 0.9
	energyLow := 0.2
	seedSong(t, svc, models.Song{Name: "Loud", Energy: &energyHigh})
	seedSong(t, svc, models.Song{Name: "Quiet", Energy: &energyLow})
	seedSong(t, svc, models.Song{Name: "Unanalyzed"})

	// Negated and numeric conditions cannot be pushed into SQL; the
	// in-memory pass must still apply them.
	group := &query.Group{
		Combinator: query.CombinatorAnd,
		Rules: []query.Condition{
			{Field: query.FieldEnergy, Operator: query.OpGTE, Value: 0.5},
			{Field: query.FieldName, Operator: query.OpEquals, Value: "quiet", Negated: true},
		},
	}

	songs, err := svc.ListSongs(ctx, group)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(songs) != 1 || songs[0].Name != "Loud" {
		t.Fatalf("songs = %+v, want only Loud", songs)
	}
}

func TestSongTagLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	song := seedSong(t, svc, models.Song{Name: "Kashmir"})
	rock, err := svc.CreateTag(ctx, "rock", nil)
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	chill, err := svc.CreateTag(ctx, "chill", nil)
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	if err := svc.SetSongTags(ctx, song.ID, []string{rock.ID, chill.ID}); err != nil {
		t.Fatalf("set tags: %v", err)
	}
	got, _ := svc.GetSong(ctx, song.ID)
	if len(got.Tags) != 2 {
		t.Fatalf("tags = %d, want 2", len(got.Tags))
	}

	// Replacement drops tags not in the new set.
	if err := svc.SetSongTags(ctx, song.ID, []string{rock.ID}); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	got, _ = svc.GetSong(ctx, song.ID)
	if len(got.Tags) != 1 || got.Tags[0].Name != "rock" {
		t.Fatalf("tags = %+v, want only rock", got.Tags)
	}

	// Deleting a tag detaches it from songs.
	if err := svc.DeleteTag(ctx, rock.ID); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	got, _ = svc.GetSong(ctx, song.ID)
	if len(got.Tags) != 0 {
		t.Fatalf("tags = %+v, want detached", got.Tags)
	}
}

func TestBulkUpdateSongTags(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := seedSong(t, svc, models.Song{Name: "A"})
	b := seedSong(t, svc, models.Song{Name: "B"})
	old, _ := svc.CreateTag(ctx, "old", nil)
	fresh, _ := svc.CreateTag(ctx, "fresh", nil)

	if err := svc.SetSongTags(ctx, a.ID, []string{old.ID}); err != nil {
		t.Fatalf("seed tags: %v", err)
	}

	err := svc.BulkUpdateSongTags(ctx, []string{a.ID, b.ID}, []string{fresh.ID}, []string{old.ID})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		song, _ := svc.GetSong(ctx, id)
		if len(song.Tags) != 1 || song.Tags[0].Name != "fresh" {
			t.Fatalf("song %s tags = %+v, want only fresh", id, song.Tags)
		}
	}
}

func TestTagGroupLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	group, err := svc.CreateTagGroup(ctx, "Moods")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := svc.CreateTag(ctx, "mellow", &group.ID); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	groups, err := svc.ListTagGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Tags) != 1 {
		t.Fatalf("groups = %+v, want one group holding one tag", groups)
	}

	if _, err := svc.RenameTagGroup(ctx, group.ID, "Vibes"); err != nil {
		t.Fatalf("rename group: %v", err)
	}

	// Deleting the group ungroups its tags instead of deleting them.
	if err := svc.DeleteTagGroup(ctx, group.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	tags, _ := svc.ListTags(ctx)
	if len(tags) != 1 || tags[0].TagGroupID != nil {
		t.Fatalf("tags = %+v, want surviving ungrouped tag", tags)
	}

	if err := svc.AssignTagGroup(ctx, tags[0].ID, nil); err != nil {
		t.Fatalf("assign nil group: %v", err)
	}
	if err := svc.AssignTagGroup(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateTagRejectsBlankName(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateTag(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for blank tag name")
	}
	if _, err := svc.CreatePlaylist(context.Background(), ""); err == nil {
		t.Fatal("expected error for blank playlist name")
	}
}

func TestReplaceFiltersAssignsPositions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	playlist, err := svc.CreatePlaylist(ctx, "Daily Mix")
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	filters := []models.PlaylistFilter{
		{Name: "Jazz", Rules: map[string]any{"genre": "jazz"}},
		{Name: "Rock", Kind: models.FilterAdvanced, Rules: map[string]any{"combinator": "and"}},
	}
	if err := svc.ReplaceFilters(ctx, playlist.ID, filters); err != nil {
		t.Fatalf("replace filters: %v", err)
	}

	got, err := svc.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if len(got.Filters) != 2 {
		t.Fatalf("filters = %d, want 2", len(got.Filters))
	}
	for i, pf := range got.Filters {
		if pf.Position != i {
			t.Fatalf("filter[%d].Position = %d, want %d", i, pf.Position, i)
		}
		if pf.ID == "" {
			t.Fatal("expected minted filter ID")
		}
	}
	if got.Filters[0].Kind != models.FilterSimple {
		t.Fatalf("kind = %q, want simple default", got.Filters[0].Kind)
	}
	if got.Filters[1].Kind != models.FilterAdvanced {
		t.Fatalf("kind = %q, want advanced preserved", got.Filters[1].Kind)
	}

	// A second replacement fully discards the first set.
	if err := svc.ReplaceFilters(ctx, playlist.ID, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	got, _ = svc.GetPlaylist(ctx, playlist.ID)
	if len(got.Filters) != 0 {
		t.Fatalf("filters = %d, want 0 after clearing", len(got.Filters))
	}

	if err := svc.ReplaceFilters(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddSongsSetSemantics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	playlist, _ := svc.CreatePlaylist(ctx, "Mix")
	a := seedSong(t, svc, models.Song{Name: "A"})
	b := seedSong(t, svc, models.Song{Name: "B"})
	c := seedSong(t, svc, models.Song{Name: "C"})

	if err := svc.AddSongs(ctx, playlist.ID, []string{a.ID, b.ID}); err != nil {
		t.Fatalf("add songs: %v", err)
	}
	// Re-adding a keeps its position; c continues the sequence.
	if err := svc.AddSongs(ctx, playlist.ID, []string{a.ID, c.ID}); err != nil {
		t.Fatalf("add songs again: %v", err)
	}

	got, _ := svc.GetPlaylist(ctx, playlist.ID)
	if len(got.Songs) != 3 {
		t.Fatalf("songs = %d, want 3 (set semantics)", len(got.Songs))
	}
	wantIDs := []string{a.ID, b.ID, c.ID}
	for i, ps := range got.Songs {
		if ps.SongID != wantIDs[i] {
			t.Fatalf("songs[%d] = %s, want %s", i, ps.SongID, wantIDs[i])
		}
		if ps.Position != i {
			t.Fatalf("songs[%d].Position = %d, want %d", i, ps.Position, i)
		}
	}

	if err := svc.RemoveSong(ctx, playlist.ID, b.ID); err != nil {
		t.Fatalf("remove song: %v", err)
	}
	if err := svc.RemoveSong(ctx, playlist.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound on second removal", err)
	}
	got, _ = svc.GetPlaylist(ctx, playlist.ID)
	if len(got.Songs) != 2 {
		t.Fatalf("songs = %d, want 2 after removal", len(got.Songs))
	}
}

func TestDeletePlaylistCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	playlist, _ := svc.CreatePlaylist(ctx, "Doomed")
	song := seedSong(t, svc, models.Song{Name: "Survivor"})
	if err := svc.AddSongs(ctx, playlist.ID, []string{song.ID}); err != nil {
		t.Fatalf("add song: %v", err)
	}
	if err := svc.ReplaceFilters(ctx, playlist.ID, []models.PlaylistFilter{{Name: "All"}}); err != nil {
		t.Fatalf("add filter: %v", err)
	}

	if err := svc.DeletePlaylist(ctx, playlist.ID); err != nil {
		t.Fatalf("delete playlist: %v", err)
	}
	if _, err := svc.GetPlaylist(ctx, playlist.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// The song itself is untouched.
	if _, err := svc.GetSong(ctx, song.ID); err != nil {
		t.Fatalf("song should survive playlist deletion: %v", err)
	}

	if err := svc.DeletePlaylist(ctx, playlist.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound on double delete", err)
	}
}
