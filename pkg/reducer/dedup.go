// Package reducer combines per-chunk pipeline output into a single
// aggregate result: a deduplicating merge for entity-extraction-style
// outputs, and a hierarchical batched reduction for free-form summaries.
package reducer

import (
	"sort"
	"strings"

	"github.com/kestrel-run/modelmesh/pkg/pipeline"
)

// Entity is one deduplicated person/company/concept, with the chunks that
// mentioned it and the first-seen display form of its name.
type Entity struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Chunks     []int             `json:"chunks"`
}

// Relationship is one deduplicated (person1, person2, type) edge, with
// evidence concatenated across the chunks that reported it.
type Relationship struct {
	Person1  string   `json:"person1"`
	Person2  string   `json:"person2"`
	Type     string   `json:"type"`
	Evidence []string `json:"evidence"`
	Chunks   []int    `json:"chunks"`
}

// DedupResult is the aggregate of an entity-extraction pipeline run.
type DedupResult struct {
	People        []Entity       `json:"people"`
	Companies     []Entity       `json:"companies"`
	Concepts      []Entity       `json:"concepts"`
	Relationships []Relationship `json:"relationships"`
}

var entityClasses = []string{"people", "companies", "concepts"}

type entityAccumulator struct {
	display    string
	attributes map[string]string
	chunks     map[int]bool
	firstIndex int
}

// DedupMerge combines a set of ChunkResults produced by an entity
// extraction pipeline into one DedupResult. It is a pure function of
// results: the output order depends only on the multiset of inputs (first
// occurrence by ascending chunk index), never on completion order, so two
// runs over the same results always produce byte-identical output.
func DedupMerge(results map[int]pipeline.ChunkResult) DedupResult {
	indices := sortedIndices(results)

	byClass := make(map[string]map[string]*entityAccumulator, len(entityClasses))
	order := make(map[string][]string, len(entityClasses))
	for _, class := range entityClasses {
		byClass[class] = make(map[string]*entityAccumulator)
	}

	relAccum := make(map[string]*relationshipAccumulator)
	var relOrder []string

	for _, idx := range indices {
		r := results[idx]
		if r.Failed() || r.Structured == nil {
			continue
		}
		for _, class := range entityClasses {
			raw, ok := r.Structured[class]
			if !ok {
				continue
			}
			for _, item := range asMapSlice(raw) {
				mergeEntity(byClass[class], order, class, item, idx)
			}
		}
		if raw, ok := r.Structured["relationships"]; ok {
			for _, item := range asMapSlice(raw) {
				mergeRelationship(relAccum, &relOrder, item, idx)
			}
		}
	}

	out := DedupResult{
		People:    collectEntities(byClass["people"], order["people"]),
		Companies: collectEntities(byClass["companies"], order["companies"]),
		Concepts:  collectEntities(byClass["concepts"], order["concepts"]),
	}
	for _, key := range relOrder {
		acc := relAccum[key]
		out.Relationships = append(out.Relationships, Relationship{
			Person1:  acc.person1,
			Person2:  acc.person2,
			Type:     acc.relType,
			Evidence: acc.evidence,
			Chunks:   sortedIntSet(acc.chunks),
		})
	}
	return out
}

func mergeEntity(table map[string]*entityAccumulator, order map[string][]string, class string, item map[string]any, chunkIdx int) {
	name, _ := item["name"].(string)
	if strings.TrimSpace(name) == "" {
		return
	}
	key := normalize(name)

	acc, ok := table[key]
	if !ok {
		acc = &entityAccumulator{
			display:    strings.TrimSpace(name),
			attributes: make(map[string]string),
			chunks:     make(map[int]bool),
			firstIndex: chunkIdx,
		}
		table[key] = acc
		order[class] = append(order[class], key)
	}
	acc.chunks[chunkIdx] = true

	for k, v := range item {
		if k == "name" {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		// First-non-empty wins: a later chunk never overwrites an
		// attribute an earlier chunk already supplied.
		if existing, has := acc.attributes[k]; !has || strings.TrimSpace(existing) == "" {
			acc.attributes[k] = s
		}
	}
}

func collectEntities(table map[string]*entityAccumulator, order []string) []Entity {
	out := make([]Entity, 0, len(order))
	for _, key := range order {
		acc := table[key]
		out = append(out, Entity{
			Name:       acc.display,
			Attributes: acc.attributes,
			Chunks:     sortedIntSet(acc.chunks),
		})
	}
	return out
}

type relationshipAccumulator struct {
	person1, person2, relType string
	evidence                  []string
	chunks                    map[int]bool
}

func mergeRelationship(table map[string]*relationshipAccumulator, order *[]string, item map[string]any, chunkIdx int) {
	p1, _ := item["person1"].(string)
	p2, _ := item["person2"].(string)
	relType, _ := item["relationship_type"].(string)
	if relType == "" {
		relType, _ = item["type"].(string)
	}
	if strings.TrimSpace(p1) == "" || strings.TrimSpace(p2) == "" {
		return
	}
	key := normalize(p1) + "\x00" + normalize(p2) + "\x00" + normalize(relType)

	acc, ok := table[key]
	if !ok {
		acc = &relationshipAccumulator{
			person1: strings.TrimSpace(p1),
			person2: strings.TrimSpace(p2),
			relType: strings.TrimSpace(relType),
			chunks:  make(map[int]bool),
		}
		table[key] = acc
		*order = append(*order, key)
	}
	acc.chunks[chunkIdx] = true

	for _, ev := range evidenceStrings(item["evidence"]) {
		ev = strings.TrimSpace(ev)
		if ev == "" || containsSubstring(acc.evidence, ev) {
			continue
		}
		acc.evidence = append(acc.evidence, ev)
	}
}

func evidenceStrings(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func containsSubstring(existing []string, candidate string) bool {
	for _, e := range existing {
		if strings.Contains(e, candidate) || strings.Contains(candidate, e) {
			return true
		}
	}
	return false
}

func asMapSlice(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedIndices(results map[int]pipeline.ChunkResult) []int {
	indices := make([]int, 0, len(results))
	for idx := range results {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

func sortedIntSet(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
