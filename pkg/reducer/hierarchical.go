package reducer

import (
	"context"
	"strings"

	"github.com/kestrel-run/modelmesh/pkg/chunker"
	"github.com/kestrel-run/modelmesh/pkg/pipeline"
)

// CombineThreshold is the fan-in count below which summaries are combined
// in a single model call rather than partitioned into batches.
const CombineThreshold = 10

// batchSize is the partition width used once fan-in exceeds CombineThreshold.
const batchSize = 5

// CombineFunc merges a batch of summaries into one. It is the only
// side-effecting dependency of HierarchicalSummarize and is expected to
// call an LLMClient.
type CombineFunc func(ctx context.Context, summaries []string) (string, error)

// HierarchicalSummarize reduces summaries to one string. If len(summaries)
// is at or below CombineThreshold, it calls combine once. Otherwise it
// partitions into batches of batchSize, reduces each batch in parallel via
// the Pipeline Executor's bounded worker pool, and recurses on the
// resulting, smaller list of summaries until one remains.
//
// Both the partition and the recursion are pure functions of summaries, so
// the result of a given input list is always the same regardless of which
// batch happens to finish first.
func HierarchicalSummarize(ctx context.Context, summaries []string, combine CombineFunc, policy pipeline.Policy) (string, error) {
	if len(summaries) == 0 {
		return "", nil
	}
	if len(summaries) <= CombineThreshold {
		return combine(ctx, summaries)
	}

	batches := partition(summaries, batchSize)
	chunks := make([]chunker.Chunk, len(batches))
	for i := range batches {
		chunks[i] = chunker.Chunk{Index: i}
	}

	fingerprint := chunker.SourceFingerprint(strings.Join(summaries, "\x00"))

	f := func(ctx context.Context, c chunker.Chunk) (pipeline.ChunkResult, error) {
		combined, err := combine(ctx, batches[c.Index])
		if err != nil {
			return pipeline.ChunkResult{}, err
		}
		return pipeline.ChunkResult{Index: c.Index, Summary: combined}, nil
	}

	results, err := pipeline.Run(ctx, fingerprint, chunks, f, policy)
	if err != nil {
		return "", err
	}

	next := make([]string, len(batches))
	for idx, r := range results {
		next[idx] = r.Summary
	}

	return HierarchicalSummarize(ctx, next, combine, policy)
}

func partition(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
