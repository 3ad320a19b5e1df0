package reducer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kestrel-run/modelmesh/pkg/pipeline"
)

func TestDedupMergeMergesCaseVariantNames(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		0: {Index: 0, Structured: map[string]any{
			"people": []any{
				map[string]any{"name": "Alice", "role": ""},
			},
		}},
		1: {Index: 1, Structured: map[string]any{
			"people": []any{
				map[string]any{"name": "alice", "role": "CEO"},
			},
		}},
	}

	out := DedupMerge(results)
	if len(out.People) != 1 {
		t.Fatalf("len(People) = %d, want 1", len(out.People))
	}
	p := out.People[0]
	if p.Name != "Alice" {
		t.Fatalf("Name = %q, want first-seen form %q", p.Name, "Alice")
	}
	if p.Attributes["role"] != "CEO" {
		t.Fatalf("role = %q, want CEO filled from second chunk", p.Attributes["role"])
	}
	if len(p.Chunks) != 2 || p.Chunks[0] != 0 || p.Chunks[1] != 1 {
		t.Fatalf("Chunks = %v, want [0 1]", p.Chunks)
	}
}

func TestDedupMergeFirstNonEmptyWinsOnConflict(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		0: {Index: 0, Structured: map[string]any{
			"people": []any{map[string]any{"name": "Bob", "title": "Engineer"}},
		}},
		1: {Index: 1, Structured: map[string]any{
			"people": []any{map[string]any{"name": "Bob", "title": "Manager"}},
		}},
	}
	out := DedupMerge(results)
	if got := out.People[0].Attributes["title"]; got != "Engineer" {
		t.Fatalf("title = %q, want first-seen value Engineer", got)
	}
}

func TestDedupMergeRelationshipsConcatenateEvidence(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		0: {Index: 0, Structured: map[string]any{
			"relationships": []any{
				map[string]any{
					"person1": "Alice", "person2": "Bob",
					"relationship_type": "manages", "evidence": "Alice approved Bob's PR",
				},
			},
		}},
		1: {Index: 1, Structured: map[string]any{
			"relationships": []any{
				map[string]any{
					"person1": "alice", "person2": "bob",
					"relationship_type": "manages", "evidence": "Alice signed off on Bob's review",
				},
			},
		}},
	}
	out := DedupMerge(results)
	if len(out.Relationships) != 1 {
		t.Fatalf("len(Relationships) = %d, want 1", len(out.Relationships))
	}
	rel := out.Relationships[0]
	if len(rel.Evidence) != 2 {
		t.Fatalf("Evidence = %v, want 2 distinct strings", rel.Evidence)
	}
	if len(rel.Chunks) != 2 {
		t.Fatalf("Chunks = %v, want [0 1]", rel.Chunks)
	}
}

func TestDedupMergeSkipsDuplicateEvidenceSubstring(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		0: {Index: 0, Structured: map[string]any{
			"relationships": []any{
				map[string]any{"person1": "A", "person2": "B", "type": "knows", "evidence": "they met at a conference"},
			},
		}},
		1: {Index: 1, Structured: map[string]any{
			"relationships": []any{
				map[string]any{"person1": "A", "person2": "B", "type": "knows", "evidence": "they met at a conference"},
			},
		}},
	}
	out := DedupMerge(results)
	if len(out.Relationships[0].Evidence) != 1 {
		t.Fatalf("Evidence = %v, want deduped to 1 entry", out.Relationships[0].Evidence)
	}
}

func TestDedupMergeSkipsFailedChunks(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		0: {Index: 0, Error: "chunk 0 failed: timeout"},
		1: {Index: 1, Structured: map[string]any{
			"people": []any{map[string]any{"name": "Carol"}},
		}},
	}
	out := DedupMerge(results)
	if len(out.People) != 1 || out.People[0].Name != "Carol" {
		t.Fatalf("People = %+v, want only Carol", out.People)
	}
}

func TestDedupMergeIsDeterministicRegardlessOfMapIteration(t *testing.T) {
	results := map[int]pipeline.ChunkResult{
		2: {Index: 2, Structured: map[string]any{"people": []any{map[string]any{"name": "Zed"}}}},
		0: {Index: 0, Structured: map[string]any{"people": []any{map[string]any{"name": "Amy"}}}},
		1: {Index: 1, Structured: map[string]any{"people": []any{map[string]any{"name": "Ben"}}}},
	}
	out := DedupMerge(results)
	want := []string{"Amy", "Ben", "Zed"}

	got := make([]string, len(out.People))
	for i, p := range out.People {
		got[i] = p.Name
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("People names mismatch, first-seen order by ascending index (-want +got):\n%s", diff)
	}
}
