/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import (
	"strconv"

	"github.com/soundshare/soundshare/internal/filter"
	"github.com/soundshare/soundshare/internal/models"
)

// Evaluate reports whether a song satisfies a backend-form query. A nil
// group is the "no filter" sentinel and matches every song. Conditions
// that cannot be interpreted are ignored, mirroring the conversion policy
// of dropping malformed nodes; a group left with no usable children
// matches everything.
func Evaluate(group *Group, song models.Song) bool {
	if group == nil {
		return true
	}
	return evalGroup(*group, song)
}

func evalGroup(group Group, song models.Song) bool {
	results := make([]bool, 0, len(group.Rules)+len(group.Groups))

	for _, cond := range group.Rules {
		match, usable := evalCondition(cond, song)
		if !usable {
			continue
		}
		if cond.Negated {
			match = !match
		}
		results = append(results, match)
	}
	for _, child := range group.Groups {
		results = append(results, evalGroup(child, song))
	}

	result := true
	if len(results) > 0 {
		if normalizeCombinator(group.Combinator) == CombinatorOr {
			result = false
			for _, r := range results {
				if r {
					result = true
					break
				}
			}
		} else {
			for _, r := range results {
				if !r {
					result = false
					break
				}
			}
		}
	}

	if group.Negated {
		return !result
	}
	return result
}

// evalCondition returns the match result and whether the condition was
// interpretable at all.
func evalCondition(cond Condition, song models.Song) (bool, bool) {
	switch cond.Field {
	case FieldName:
		return evalString(cond, song.Name)
	case FieldArtist:
		return evalString(cond, song.Artist)
	case FieldAlbum:
		return evalString(cond, song.Album)
	case FieldGenre:
		return evalString(cond, song.Genre)
	case FieldYear:
		return evalYear(cond, song.Year)
	case FieldTempo:
		return evalRange(cond, song.Tempo)
	case FieldEnergy:
		return evalRange(cond, song.Energy)
	case FieldValence:
		return evalRange(cond, song.Valence)
	case FieldDanceability:
		return evalRange(cond, song.Danceability)
	case FieldTags:
		return evalTags(cond, song)
	}
	return false, false
}

func evalString(cond Condition, candidate string) (bool, bool) {
	value := valueString(cond.Value)
	if value == "" {
		return false, false
	}
	mode := filter.ModeContains
	switch cond.Operator {
	case OpEquals:
		mode = filter.ModeExact
	case OpStartsWith:
		mode = filter.ModePrefix
	case OpEndsWith:
		mode = filter.ModeSuffix
	}
	match := filter.StringMatch{Value: value, Mode: mode}
	return match.Matches(candidate), true
}

func evalYear(cond Condition, year *int) (bool, bool) {
	switch cond.Operator {
	case OpBetween:
		low, high, ok := valueRange(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Min: &low, Max: &high}
		return match.Matches(intAsFloat(year)), true
	case OpGTE:
		bound, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Min: &bound}
		return match.Matches(intAsFloat(year)), true
	case OpLTE:
		bound, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Max: &bound}
		return match.Matches(intAsFloat(year)), true
	default:
		want, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		exact := filter.ExactMatch{Value: int(want)}
		return exact.Matches(year), true
	}
}

func evalRange(cond Condition, candidate *float64) (bool, bool) {
	switch cond.Operator {
	case OpBetween:
		low, high, ok := valueRange(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Min: &low, Max: &high}
		return match.Matches(candidate), true
	case OpGTE:
		bound, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Min: &bound}
		return match.Matches(candidate), true
	case OpLTE:
		bound, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Max: &bound}
		return match.Matches(candidate), true
	default:
		bound, ok := valueFloat(cond.Value)
		if !ok {
			return false, false
		}
		match := filter.RangeMatch{Min: &bound, Max: &bound}
		return match.Matches(candidate), true
	}
}

func evalTags(cond Condition, song models.Song) (bool, bool) {
	names, ok := valueStrings(cond.Value)
	if !ok || len(names) == 0 {
		return false, false
	}
	if cond.Operator == OpHasAny {
		for _, name := range names {
			if song.HasTagName(name) {
				return true, true
			}
		}
		return false, true
	}
	match := filter.TagMatch{Names: names}
	return match.Matches(song), true
}

func intAsFloat(value *int) *float64 {
	if value == nil {
		return nil
	}
	f := float64(*value)
	return &f
}

func valueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func valueFloat(value any) (float64, bool) {
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

func valueRange(value any) (low, high float64, ok bool) {
	switch v := value.(type) {
	case []any:
		if len(v) != 2 {
			return 0, 0, false
		}
		lo, okLo := valueFloat(v[0])
		hi, okHi := valueFloat(v[1])
		return lo, hi, okLo && okHi
	case []float64:
		if len(v) != 2 {
			return 0, 0, false
		}
		return v[0], v[1], true
	case map[string]any:
		lo, okLo := valueFloat(v["min"])
		hi, okHi := valueFloat(v["max"])
		return lo, hi, okLo && okHi
	}
	return 0, 0, false
}

func valueStrings(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := valueString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}
