/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import (
	"testing"

	"github.com/soundshare/soundshare/internal/models"
)

func evalTestSong() models.Song {
	year := 1971
	energy := 0.9
	tempo := 120.0
	return models.Song{
		ID:     "song-1",
		Name:   "Black Dog",
		Artist: "Led Zeppelin",
		Album:  "IV",
		Genre:  "Rock",
		Year:   &year,
		Energy: &energy,
		Tempo:  &tempo,
		Tags:   []models.Tag{{Name: "classic"}, {Name: "favorites"}},
	}
}

func TestEvaluateNilGroupMatchesEverything(t *testing.T) {
	if !Evaluate(nil, models.Song{}) {
		t.Fatal("nil group is the no-filter sentinel")
	}
}

func TestEvaluateAndOrCombinators(t *testing.T) {
	song := evalTestSong()

	and := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: FieldArtist, Operator: OpContains, Value: "zeppelin"},
			{Field: FieldGenre, Operator: OpEquals, Value: "rock"},
		},
	}
	if !Evaluate(and, song) {
		t.Fatal("both AND children hold, expected match")
	}

	and.Rules[1].Value = "jazz"
	if Evaluate(and, song) {
		t.Fatal("one failing AND child rejects the song")
	}

	or := &Group{
		Combinator: CombinatorOr,
		Rules: []Condition{
			{Field: FieldGenre, Operator: OpEquals, Value: "jazz"},
			{Field: FieldArtist, Operator: OpContains, Value: "zeppelin"},
		},
	}
	if !Evaluate(or, song) {
		t.Fatal("one passing OR child accepts the song")
	}

	or.Rules[1].Value = "beatles"
	if Evaluate(or, song) {
		t.Fatal("no passing OR child, expected reject")
	}
}

func TestEvaluateNegation(t *testing.T) {
	song := evalTestSong()

	ruleNeg := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: FieldGenre, Operator: OpEquals, Value: "jazz", Negated: true},
		},
	}
	if !Evaluate(ruleNeg, song) {
		t.Fatal("negated failing rule should pass")
	}

	groupNeg := &Group{
		Combinator: CombinatorAnd,
		Negated:    true,
		Rules: []Condition{
			{Field: FieldArtist, Operator: OpContains, Value: "zeppelin"},
		},
	}
	if Evaluate(groupNeg, song) {
		t.Fatal("negated passing group should reject")
	}
}

func TestEvaluateUninterpretableConditionsIgnored(t *testing.T) {
	song := evalTestSong()

	group := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: "mystery", Operator: OpContains, Value: "x"},
			{Field: FieldTempo, Operator: OpBetween, Value: "not-a-range"},
			{Field: FieldArtist, Operator: OpContains, Value: "zeppelin"},
		},
	}
	if !Evaluate(group, song) {
		t.Fatal("uninterpretable conditions must not affect the result")
	}

	// A group whose every child is unusable matches everything.
	allBroken := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: "mystery", Operator: OpContains, Value: "x"},
		},
	}
	if !Evaluate(allBroken, song) {
		t.Fatal("group with no usable children matches everything")
	}
	// Negating that group flips the vacuous truth.
	allBroken.Negated = true
	if Evaluate(allBroken, song) {
		t.Fatal("negated vacuous group should reject")
	}
}

func TestEvaluateNumericOperators(t *testing.T) {
	song := evalTestSong()

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"year exact", Condition{Field: FieldYear, Operator: OpEquals, Value: 1971}, true},
		{"year exact miss", Condition{Field: FieldYear, Operator: OpEquals, Value: 1980}, false},
		{"year gte", Condition{Field: FieldYear, Operator: OpGTE, Value: 1970}, true},
		{"year lte miss", Condition{Field: FieldYear, Operator: OpLTE, Value: 1960}, false},
		{"year between", Condition{Field: FieldYear, Operator: OpBetween, Value: []any{1970, 1975}}, true},
		{"energy between list", Condition{Field: FieldEnergy, Operator: OpBetween, Value: []any{0.5, 1.0}}, true},
		{"energy between map form", Condition{Field: FieldEnergy, Operator: OpBetween, Value: map[string]any{"min": 0.5, "max": 1.0}}, true},
		{"tempo gte string value", Condition{Field: FieldTempo, Operator: OpGTE, Value: "100"}, true},
		{"tempo default equals", Condition{Field: FieldTempo, Operator: "", Value: 120}, true},
		{"tempo default equals miss", Condition{Field: FieldTempo, Operator: "", Value: 121}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			group := &Group{Combinator: CombinatorAnd, Rules: []Condition{tc.cond}}
			if got := Evaluate(group, song); got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateMissingFeatureFailsBound(t *testing.T) {
	song := models.Song{Name: "No Features"}
	group := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: FieldValence, Operator: OpGTE, Value: 0.1},
		},
	}
	if Evaluate(group, song) {
		t.Fatal("missing feature must fail a defined bound")
	}
}

func TestEvaluateTagOperators(t *testing.T) {
	song := evalTestSong()

	hasAll := &Group{Combinator: CombinatorAnd, Rules: []Condition{
		{Field: FieldTags, Operator: OpHasAll, Value: []any{"classic", "favorites"}},
	}}
	if !Evaluate(hasAll, song) {
		t.Fatal("song carries both tags")
	}

	hasAll.Rules[0].Value = []any{"classic", "chill"}
	if Evaluate(hasAll, song) {
		t.Fatal("has_all with a missing tag rejects")
	}

	hasAny := &Group{Combinator: CombinatorAnd, Rules: []Condition{
		{Field: FieldTags, Operator: OpHasAny, Value: []any{"chill", "favorites"}},
	}}
	if !Evaluate(hasAny, song) {
		t.Fatal("has_any with one present tag accepts")
	}

	hasAny.Rules[0].Value = []any{"chill", "ambient"}
	if Evaluate(hasAny, song) {
		t.Fatal("has_any with no present tag rejects")
	}

	// A bare string value acts as a single-name list.
	single := &Group{Combinator: CombinatorAnd, Rules: []Condition{
		{Field: FieldTags, Operator: OpHasAll, Value: "classic"},
	}}
	if !Evaluate(single, song) {
		t.Fatal("string tag value should match as one name")
	}
}

func TestEvaluateNestedGroups(t *testing.T) {
	song := evalTestSong()

	// artist contains zeppelin AND (genre = jazz OR year >= 1970)
	group := &Group{
		Combinator: CombinatorAnd,
		Rules: []Condition{
			{Field: FieldArtist, Operator: OpContains, Value: "zeppelin"},
		},
		Groups: []Group{
			{
				Combinator: CombinatorOr,
				Rules: []Condition{
					{Field: FieldGenre, Operator: OpEquals, Value: "jazz"},
					{Field: FieldYear, Operator: OpGTE, Value: 1970},
				},
			},
		},
	}
	if !Evaluate(group, song) {
		t.Fatal("nested OR branch holds, expected match")
	}

	group.Groups[0].Rules[1].Value = 1990
	if Evaluate(group, song) {
		t.Fatal("no OR branch holds, expected reject")
	}
}
