package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-run/modelmesh/pkg/adapter"
	"github.com/kestrel-run/modelmesh/pkg/chunker"
	"github.com/kestrel-run/modelmesh/pkg/pipeline"
	"github.com/kestrel-run/modelmesh/pkg/reducer"
	"github.com/kestrel-run/modelmesh/pkg/router"
	"github.com/kestrel-run/modelmesh/pkg/schema"
	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

func pipelineCmd() *cobra.Command {
	var inputPath string
	var mode string
	var chunkSize int
	var overlap int
	var concurrency int
	var maxRetries int
	var checkpointDir string
	var resume bool

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Chunk a large document and run it through the map/reduce pipeline",
		Long: `Splits the input at --input into overlapping chunks, maps each chunk through
the configured LLM backends with retry and checkpointing, then reduces the
per-chunk outputs: --mode=summarize uses hierarchical batched summarization,
--mode=extract uses deduplicating entity merge.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			text := string(data)

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			adapters, err := createAdapters(cfg)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}
			store, err := newTelemetryStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open telemetry store: %w", err)
			}
			defer store.Close()
			r := newRouter(cfg, store)

			chunks := chunker.Split(text, chunkSize, overlap)
			if len(chunks) == 0 {
				return fmt.Errorf("input produced no chunks")
			}
			fingerprint := chunker.SourceFingerprint(text)

			if !resume {
				_ = os.Remove(pipeline.CheckpointFilePath(checkpointDir))
			}

			policy := pipeline.Policy{
				Concurrency:   concurrency,
				MaxRetries:    maxRetries,
				CheckpointDir: checkpointDir,
			}

			switch mode {
			case "extract":
				return runExtract(cmd, adapters, r, chunks, fingerprint, policy)
			case "summarize":
				return runSummarize(cmd, adapters, r, chunks, fingerprint, policy)
			default:
				return fmt.Errorf("unknown --mode %q (want extract or summarize)", mode)
			}
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to the document to process (required)")
	cmd.Flags().StringVar(&mode, "mode", "summarize", "extract or summarize")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 16000, "target chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", 800, "chunk overlap in characters")
	cmd.Flags().IntVar(&concurrency, "concurrency", 3, "max concurrent chunk calls")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 2, "max retries per chunk before recording it as failed")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", ".", "directory for the resumable checkpoint file")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from an existing checkpoint instead of starting fresh")

	return cmd
}

func selectAndGenerate(ctx context.Context, adapters map[string]adapter.Adapter, r *router.Router, cfg telemetry.RouterConfig, req adapter.Request) (*adapter.Response, error) {
	selection := r.Select(cfg)
	backend, ok := adapters[selection.Selected]
	if !ok {
		return nil, fmt.Errorf("backend %q unavailable", selection.Selected)
	}
	return backend.Generate(ctx, req)
}

func runExtract(cmd *cobra.Command, adapters map[string]adapter.Adapter, r *router.Router, chunks []chunker.Chunk, fingerprint string, policy pipeline.Policy) error {
	f := func(ctx context.Context, c chunker.Chunk) (pipeline.ChunkResult, error) {
		resp, err := selectAndGenerate(ctx, adapters, r, telemetry.RouterConfig{
			Task:                 telemetry.TaskExtraction,
			Priority:             telemetry.PriorityBalanced,
			RequiredCapabilities: map[string]bool{"structured_output": true},
		}, adapter.Request{
			Prompt: extractionPrompt(c.Text),
			Schema: schema.ExtractionEntitySchema,
		})
		if err != nil {
			return pipeline.ChunkResult{}, err
		}
		return pipeline.ChunkResult{Index: c.Index, Structured: entityBucket(resp.Structured)}, nil
	}

	results, err := pipeline.Run(cmd.Context(), fingerprint, chunks, f, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline completed with errors: %v\n", err)
	}

	merged := reducer.DedupMerge(results)
	return printJSON(merged)
}

func runSummarize(cmd *cobra.Command, adapters map[string]adapter.Adapter, r *router.Router, chunks []chunker.Chunk, fingerprint string, policy pipeline.Policy) error {
	f := func(ctx context.Context, c chunker.Chunk) (pipeline.ChunkResult, error) {
		resp, err := selectAndGenerate(ctx, adapters, r, telemetry.RouterConfig{
			Task:                 telemetry.TaskSummarization,
			Priority:             telemetry.PriorityBalanced,
			RequiredCapabilities: map[string]bool{"structured_output": true},
		}, adapter.Request{
			Prompt: summarizePrompt(c.Text),
			Schema: schema.SummarySchema,
		})
		if err != nil {
			return pipeline.ChunkResult{}, err
		}
		summary, _ := resp.Structured["summary"].(string)
		return pipeline.ChunkResult{Index: c.Index, Summary: summary}, nil
	}

	results, err := pipeline.Run(cmd.Context(), fingerprint, chunks, f, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline completed with errors: %v\n", err)
	}

	summaries := make([]string, 0, len(chunks))
	for i := range chunks {
		if r, ok := results[i]; ok && !r.Failed() {
			summaries = append(summaries, r.Summary)
		}
	}

	combine := func(ctx context.Context, batch []string) (string, error) {
		resp, err := selectAndGenerate(ctx, adapters, r, telemetry.RouterConfig{
			Task:                 telemetry.TaskSummarization,
			Priority:             telemetry.PriorityBalanced,
			RequiredCapabilities: map[string]bool{"structured_output": true},
		}, adapter.Request{
			Prompt: combinePrompt(batch),
			Schema: schema.SummarySchema,
		})
		if err != nil {
			return "", err
		}
		summary, _ := resp.Structured["summary"].(string)
		return summary, nil
	}

	final, err := reducer.HierarchicalSummarize(cmd.Context(), summaries, combine, policy)
	if err != nil {
		return err
	}
	fmt.Println(final)
	return nil
}

// entityBucket maps a single extraction_entity response ({class, name,
// role}) into the per-class list shape reducer.DedupMerge merges over.
func entityBucket(structured map[string]any) map[string]any {
	class, _ := structured["class"].(string)
	name, _ := structured["name"].(string)
	role, _ := structured["role"].(string)

	item := map[string]any{"name": name}
	if role != "" {
		item["role"] = role
	}

	var bucket string
	switch class {
	case "person":
		bucket = "people"
	case "company":
		bucket = "companies"
	case "concept":
		bucket = "concepts"
	default:
		bucket = "concepts"
	}
	return map[string]any{bucket: []any{item}}
}

func extractionPrompt(text string) string {
	return fmt.Sprintf("Extract the single most salient named entity (person, company, or concept) from the following text, with its class, name, and role if stated.\n\nText:\n%s", text)
}

func summarizePrompt(text string) string {
	return fmt.Sprintf("Summarize the following text in a few sentences.\n\nText:\n%s", text)
}

func combinePrompt(summaries []string) string {
	prompt := "Combine the following summaries into a single, coherent summary.\n\n"
	for i, s := range summaries {
		prompt += fmt.Sprintf("Summary %d:\n%s\n\n", i+1, s)
	}
	return prompt
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
