/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package filter implements the simple, single-level song filter model: a
// predicate is a set of optional per-field matchers evaluated against one
// song. Evaluation is pure and never fails; malformed or absent values make
// a matcher miss rather than error.
package filter

import (
	"strings"

	"github.com/soundshare/soundshare/internal/models"
)

// StringMode selects how a string matcher compares values.
type StringMode string

const (
	ModeContains StringMode = "contains"
	ModeExact    StringMode = "exact"
	ModePrefix   StringMode = "prefix"
	ModeSuffix   StringMode = "suffix"
)

// StringMatch compares a song text field case-insensitively.
type StringMatch struct {
	Value string     `json:"value"`
	Mode  StringMode `json:"mode,omitempty"`
}

// Matches reports whether candidate satisfies the matcher. An empty matcher
// value is vacuously true.
func (m StringMatch) Matches(candidate string) bool {
	want := strings.ToLower(strings.TrimSpace(m.Value))
	if want == "" {
		return true
	}
	got := strings.ToLower(candidate)
	switch m.Mode {
	case ModeExact:
		return got == want
	case ModePrefix:
		return strings.HasPrefix(got, want)
	case ModeSuffix:
		return strings.HasSuffix(got, want)
	default:
		return strings.Contains(got, want)
	}
}

// ExactMatch compares an integer field for equality.
type ExactMatch struct {
	Value int `json:"value"`
}

// Matches reports equality against a possibly-missing field value.
func (m ExactMatch) Matches(candidate *int) bool {
	return candidate != nil && *candidate == m.Value
}

// RangeMatch is an inclusive numeric range. Bounds are checked
// independently, so Min > Max matches nothing.
type RangeMatch struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Matches reports whether candidate falls inside the range. A missing
// candidate fails any defined bound: unknown data excludes, never includes.
func (m RangeMatch) Matches(candidate *float64) bool {
	if m.Min == nil && m.Max == nil {
		return true
	}
	if candidate == nil {
		return false
	}
	if m.Min != nil && *candidate < *m.Min {
		return false
	}
	if m.Max != nil && *candidate > *m.Max {
		return false
	}
	return true
}

// TagMatch requires every listed tag name to be present on the song.
type TagMatch struct {
	Names []string `json:"names"`
}

// Matches reports whether the song carries all required tags.
func (m TagMatch) Matches(song models.Song) bool {
	for _, name := range m.Names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if !song.HasTagName(name) {
			return false
		}
	}
	return true
}

// Predicate maps song fields to matchers. Nil matchers are not tested.
type Predicate struct {
	Name   *StringMatch `json:"name,omitempty"`
	Artist *StringMatch `json:"artist,omitempty"`
	Album  *StringMatch `json:"album,omitempty"`
	Genre  *StringMatch `json:"genre,omitempty"`
	Year   *ExactMatch  `json:"year,omitempty"`

	Tempo        *RangeMatch `json:"tempo,omitempty"`
	Energy       *RangeMatch `json:"energy,omitempty"`
	Valence      *RangeMatch `json:"valence,omitempty"`
	Danceability *RangeMatch `json:"danceability,omitempty"`

	Tags *TagMatch `json:"tags,omitempty"`
}

// Empty reports whether no matcher is set.
func (p Predicate) Empty() bool {
	return p.Name == nil && p.Artist == nil && p.Album == nil &&
		p.Genre == nil && p.Year == nil && p.Tempo == nil &&
		p.Energy == nil && p.Valence == nil && p.Danceability == nil &&
		p.Tags == nil
}

// Matches evaluates the predicate against a song. Fields without a matcher
// are vacuously true.
func (p Predicate) Matches(song models.Song) bool {
	if p.Name != nil && !p.Name.Matches(song.Name) {
		return false
	}
	if p.Artist != nil && !p.Artist.Matches(song.Artist) {
		return false
	}
	if p.Album != nil && !p.Album.Matches(song.Album) {
		return false
	}
	if p.Genre != nil && !p.Genre.Matches(song.Genre) {
		return false
	}
	if p.Year != nil && !p.Year.Matches(song.Year) {
		return false
	}
	if p.Tempo != nil && !p.Tempo.Matches(song.Tempo) {
		return false
	}
	if p.Energy != nil && !p.Energy.Matches(song.Energy) {
		return false
	}
	if p.Valence != nil && !p.Valence.Matches(song.Valence) {
		return false
	}
	if p.Danceability != nil && !p.Danceability.Matches(song.Danceability) {
		return false
	}
	if p.Tags != nil && !p.Tags.Matches(song) {
		return false
	}
	return true
}
