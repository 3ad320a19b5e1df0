package reducer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kestrel-run/modelmesh/pkg/pipeline"
)

func joinCombine(ctx context.Context, summaries []string) (string, error) {
	return strings.Join(summaries, "+"), nil
}

func TestHierarchicalSummarizeSingleCallUnderThreshold(t *testing.T) {
	var calls int
	combine := func(ctx context.Context, summaries []string) (string, error) {
		calls++
		return joinCombine(ctx, summaries)
	}
	summaries := make([]string, 5)
	for i := range summaries {
		summaries[i] = fmt.Sprintf("s%d", i)
	}

	got, err := HierarchicalSummarize(context.Background(), summaries, combine, pipeline.Policy{})
	if err != nil {
		t.Fatalf("HierarchicalSummarize returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for input at or under threshold", calls)
	}
	if got != "s0+s1+s2+s3+s4" {
		t.Fatalf("got %q", got)
	}
}

func TestHierarchicalSummarizeBatchesAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	summaries := make([]string, 23)
	for i := range summaries {
		summaries[i] = fmt.Sprintf("s%d", i)
	}

	got, err := HierarchicalSummarize(context.Background(), summaries, joinCombine, pipeline.Policy{
		Concurrency:   4,
		CheckpointDir: dir,
	})
	if err != nil {
		t.Fatalf("HierarchicalSummarize returned error: %v", err)
	}
	if got == "" {
		t.Fatalf("got empty result")
	}
	// 23 summaries partition into 5 batches of <=5; recursion continues
	// until a single combined string remains, with every original
	// fragment present in the final joined output.
	for i := range summaries {
		want := fmt.Sprintf("s%d", i)
		if !strings.Contains(got, want) {
			t.Fatalf("result %q missing fragment %q", got, want)
		}
	}
}

func TestHierarchicalSummarizeEmptyInput(t *testing.T) {
	got, err := HierarchicalSummarize(context.Background(), nil, joinCombine, pipeline.Policy{})
	if err != nil {
		t.Fatalf("HierarchicalSummarize returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty string for empty input", got)
	}
}

func TestHierarchicalSummarizePropagatesCombineError(t *testing.T) {
	failing := func(ctx context.Context, summaries []string) (string, error) {
		return "", fmt.Errorf("model unavailable")
	}
	_, err := HierarchicalSummarize(context.Background(), []string{"a", "b"}, failing, pipeline.Policy{})
	if err == nil {
		t.Fatalf("expected error from failing combine func")
	}
}
