/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package query implements the advanced filter model: a recursive AND/OR
// rule-group tree edited in the visual query builder, its backend wire form,
// and evaluation against songs. Conversions are total: malformed or
// incomplete nodes are dropped, never propagated as errors.
package query

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Combinator joins the children of a group node.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// Recognized rule fields.
const (
	FieldName         = "name"
	FieldArtist       = "artist"
	FieldAlbum        = "album"
	FieldGenre        = "genre"
	FieldYear         = "year"
	FieldTempo        = "tempo"
	FieldEnergy       = "energy"
	FieldValence      = "valence"
	FieldDanceability = "danceability"
	FieldTags         = "tags"
)

// Recognized rule operators.
const (
	OpContains   = "contains"
	OpEquals     = "equals"
	OpStartsWith = "starts_with"
	OpEndsWith   = "ends_with"
	OpGTE        = "gte"
	OpLTE        = "lte"
	OpBetween    = "between"
	OpHasAll     = "has_all"
	OpHasAny     = "has_any"
)

// Rule is a single condition in the editing UI. The ID is a UI-only
// synthetic identifier; it is regenerated on every conversion from the
// backend form and never persisted or compared across conversions.
type Rule struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Negated  bool   `json:"negated,omitempty"`
}

// Tree is the UI representation of a rule group. A tree with no rules and
// no groups means "match everything" mid-tree, but normalizes to nil ("no
// filter") at the top level via ToBackendForm.
type Tree struct {
	Combinator Combinator `json:"combinator"`
	Negated    bool       `json:"negated,omitempty"`
	Rules      []Rule     `json:"rules,omitempty"`
	Groups     []Tree     `json:"groups,omitempty"`
}

// Condition is the backend wire form of a rule.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Negated  bool   `json:"negated,omitempty"`
}

// Group is the backend wire form of a rule group. An empty Groups list is
// legal and denotes a leaf node.
type Group struct {
	Combinator Combinator  `json:"combinator"`
	Negated    bool        `json:"negated,omitempty"`
	Rules      []Condition `json:"rules,omitempty"`
	Groups     []Group     `json:"groups,omitempty"`
}

var knownFields = map[string]struct{}{
	FieldName: {}, FieldArtist: {}, FieldAlbum: {}, FieldGenre: {},
	FieldYear: {}, FieldTempo: {}, FieldEnergy: {}, FieldValence: {},
	FieldDanceability: {}, FieldTags: {},
}

// ToBackendForm converts an edited tree into the backend query form. Rules
// whose value is empty or nil are treated as not-yet-specified and skipped;
// empty subgroups are pruned. Returns nil when nothing usable remains: the
// sentinel for "no filter, return the whole catalog".
func ToBackendForm(tree Tree) *Group {
	group := Group{
		Combinator: normalizeCombinator(tree.Combinator),
		Negated:    tree.Negated,
	}

	for _, rule := range tree.Rules {
		cond, ok := normalizeRule(rule)
		if !ok {
			continue
		}
		group.Rules = append(group.Rules, cond)
	}

	for _, child := range tree.Groups {
		if converted := ToBackendForm(child); converted != nil {
			group.Groups = append(group.Groups, *converted)
		}
	}

	if len(group.Rules) == 0 && len(group.Groups) == 0 {
		return nil
	}
	return &group
}

// FromBackendForm rebuilds a UI tree from the backend form, generating
// fresh synthetic rule identifiers. A nil group yields an empty AND tree.
func FromBackendForm(group *Group) Tree {
	if group == nil {
		return Tree{Combinator: CombinatorAnd}
	}

	tree := Tree{
		Combinator: normalizeCombinator(group.Combinator),
		Negated:    group.Negated,
	}
	for _, cond := range group.Rules {
		tree.Rules = append(tree.Rules, Rule{
			ID:       uuid.NewString(),
			Field:    cond.Field,
			Operator: cond.Operator,
			Value:    cond.Value,
			Negated:  cond.Negated,
		})
	}
	for _, child := range group.Groups {
		tree.Groups = append(tree.Groups, FromBackendForm(&child))
	}
	return tree
}

// GroupFromRules decodes a stored advanced-filter rule map into a Group.
// Returns nil when the map does not describe a usable group.
func GroupFromRules(rules map[string]any) *Group {
	if rules == nil {
		return nil
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return nil
	}
	var group Group
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil
	}
	group = pruneGroup(group)
	if len(group.Rules) == 0 && len(group.Groups) == 0 {
		return nil
	}
	return &group
}

// RulesFromGroup encodes a Group back into the jsonb map stored with a
// playlist filter.
func RulesFromGroup(group *Group) map[string]any {
	if group == nil {
		return nil
	}
	raw, err := json.Marshal(group)
	if err != nil {
		return nil
	}
	var rules map[string]any
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil
	}
	return rules
}

// Key returns a canonical cache key for a backend-form query. The empty
// string stands for the unfiltered catalog.
func Key(group *Group) string {
	if group == nil {
		return ""
	}
	raw, err := json.Marshal(group)
	if err != nil {
		return ""
	}
	return string(raw)
}

func pruneGroup(group Group) Group {
	pruned := Group{
		Combinator: normalizeCombinator(group.Combinator),
		Negated:    group.Negated,
	}
	for _, cond := range group.Rules {
		rule := Rule{Field: cond.Field, Operator: cond.Operator, Value: cond.Value, Negated: cond.Negated}
		if normalized, ok := normalizeRule(rule); ok {
			pruned.Rules = append(pruned.Rules, normalized)
		}
	}
	for _, child := range group.Groups {
		sub := pruneGroup(child)
		if len(sub.Rules) > 0 || len(sub.Groups) > 0 {
			pruned.Groups = append(pruned.Groups, sub)
		}
	}
	return pruned
}

func normalizeCombinator(combinator Combinator) Combinator {
	if Combinator(strings.ToLower(string(combinator))) == CombinatorOr {
		return CombinatorOr
	}
	return CombinatorAnd
}

// normalizeRule validates and canonicalizes a rule. A rule without a field
// defaults to the tags field; a tag rule with a missing or unknown operator
// defaults to membership. Rules with empty values or unknown fields are
// reported unusable.
func normalizeRule(rule Rule) (Condition, bool) {
	field := strings.ToLower(strings.TrimSpace(rule.Field))
	if field == "" {
		field = FieldTags
	}
	if _, ok := knownFields[field]; !ok {
		return Condition{}, false
	}
	if emptyValue(rule.Value) {
		return Condition{}, false
	}

	op := strings.ToLower(strings.TrimSpace(rule.Operator))
	if field == FieldTags && op != OpHasAll && op != OpHasAny {
		op = OpHasAll
	}
	if op == "" {
		op = OpContains
	}

	return Condition{Field: field, Operator: op, Value: rule.Value, Negated: rule.Negated}, true
}

func emptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}
