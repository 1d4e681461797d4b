/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// FromRules decodes a stored simple-filter rule map into a Predicate.
// The map is the legacy duck-typed shape persisted with playlists: free-text
// keys for strings, "<field>_min"/"<field>_max" pairs for ranges, "year" as
// an exact number, "tag1"/"tag2" legacy slots, and "tags" as a name list.
// Unknown keys and malformed values are dropped; decoding never fails.
func FromRules(rules map[string]any) Predicate {
	var p Predicate
	if rules == nil {
		return p
	}

	if m := stringMatchFrom(rules, "name"); m != nil {
		p.Name = m
	}
	if m := stringMatchFrom(rules, "artist"); m != nil {
		p.Artist = m
	}
	if m := stringMatchFrom(rules, "album"); m != nil {
		p.Album = m
	}
	if m := stringMatchFrom(rules, "genre"); m != nil {
		p.Genre = m
	}

	if year, ok := toIntValue(rules["year"]); ok {
		p.Year = &ExactMatch{Value: year}
	}

	p.Tempo = rangeMatchFrom(rules, "tempo")
	p.Energy = rangeMatchFrom(rules, "energy")
	p.Valence = rangeMatchFrom(rules, "valence")
	p.Danceability = rangeMatchFrom(rules, "danceability")

	var tags []string
	if names, ok := toStringSlice(rules["tags"]); ok {
		tags = append(tags, names...)
	}
	// Legacy slot fields: both must be present on the song when set.
	for _, slot := range []string{"tag1", "tag2"} {
		if name := strings.TrimSpace(toString(rules[slot])); name != "" {
			tags = append(tags, name)
		}
	}
	if len(tags) > 0 {
		p.Tags = &TagMatch{Names: tags}
	}

	return p
}

func stringMatchFrom(rules map[string]any, field string) *StringMatch {
	value := strings.TrimSpace(toString(rules[field]))
	if value == "" {
		return nil
	}
	mode := ModeContains
	switch StringMode(strings.ToLower(toString(rules[field+"_mode"]))) {
	case ModeExact:
		mode = ModeExact
	case ModePrefix:
		mode = ModePrefix
	case ModeSuffix:
		mode = ModeSuffix
	}
	return &StringMatch{Value: value, Mode: mode}
}

func rangeMatchFrom(rules map[string]any, field string) *RangeMatch {
	minVal, hasMin := toFloatValue(rules[field+"_min"])
	maxVal, hasMax := toFloatValue(rules[field+"_max"])
	if !hasMin && !hasMax {
		return nil
	}
	match := &RangeMatch{}
	if hasMin {
		match.Min = &minVal
	}
	if hasMax {
		match.Max = &maxVal
	}
	return match
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func toFloatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toIntValue(value any) (int, bool) {
	if f, ok := toFloatValue(value); ok {
		return int(f), true
	}
	return 0, false
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}
