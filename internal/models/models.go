package models

import (
	"strings"
	"time"
)

// Song is a catalog record. The core treats it as read-only: mutations go
// through the library store and invalidate derived state (queues, caches).
type Song struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string `gorm:"index;not null" json:"name"`
	Artist string `gorm:"index" json:"artist,omitempty"`
	Album  string `gorm:"index" json:"album,omitempty"`
	Genre  string `gorm:"index" json:"genre,omitempty"`
	Year   *int   `json:"year,omitempty"`

	// Audio features. Pointers because analysis may never have run for a
	// song; a nil feature fails any defined range bound.
	Tempo        *float64 `json:"tempo,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Valence      *float64 `json:"valence,omitempty"`
	Danceability *float64 `json:"danceability,omitempty"`

	Duration time.Duration `json:"duration"`
	Path     string        `json:"path,omitempty"`

	Tags []Tag `gorm:"many2many:song_tag_links" json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagNames returns the song's tag names in stored order.
func (s Song) TagNames() []string {
	names := make([]string, 0, len(s.Tags))
	for _, tag := range s.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// HasTagName reports whether the song carries a tag with the given name,
// compared case-insensitively.
func (s Song) HasTagName(name string) bool {
	for _, tag := range s.Tags {
		if strings.EqualFold(tag.Name, name) {
			return true
		}
	}
	return false
}

// Tag is a metadata label attachable to songs.
type Tag struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string  `gorm:"uniqueIndex;not null" json:"name"`
	TagGroupID *string `gorm:"type:uuid;index" json:"tag_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagGroup clusters related tags for the browsing UI.
type TagGroup struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Tags []Tag  `gorm:"foreignKey:TagGroupID" json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilterKind selects how a saved playlist filter is interpreted.
type FilterKind string

const (
	// FilterSimple stores a flat field->matcher rule map (legacy model).
	FilterSimple FilterKind = "simple"
	// FilterAdvanced stores a backend-form query tree.
	FilterAdvanced FilterKind = "advanced"
)

// Playlist is an ordered list of saved filters plus manually added songs.
type Playlist struct {
	ID      string           `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string           `gorm:"index;not null" json:"name"`
	Filters []PlaylistFilter `gorm:"foreignKey:PlaylistID" json:"filters,omitempty"`
	Songs   []PlaylistSong   `gorm:"foreignKey:PlaylistID" json:"songs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaylistFilter is a saved filter inside a playlist. Filter IDs are unique
// within a playlist; Position defines evaluation order.
type PlaylistFilter struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	PlaylistID string         `gorm:"type:uuid;index;not null" json:"playlist_id"`
	Name       string         `json:"name"`
	Position   int            `gorm:"not null" json:"position"`
	Kind       FilterKind     `gorm:"type:varchar(16);not null" json:"kind"`
	Rules      map[string]any `gorm:"type:jsonb;serializer:json" json:"rules"`
}

// PlaylistSong joins manually added songs to a playlist. Membership is a
// set: a song id appears at most once per playlist.
type PlaylistSong struct {
	PlaylistID string `gorm:"type:uuid;primaryKey" json:"playlist_id"`
	SongID     string `gorm:"type:uuid;primaryKey" json:"song_id"`
	Position   int    `gorm:"not null" json:"position"`
	Song       *Song  `gorm:"foreignKey:SongID" json:"song,omitempty"`
}
