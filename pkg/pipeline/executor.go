package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/kestrel-run/modelmesh/pkg/chunker"
)

// MapFunc processes one chunk into a ChunkResult.
type MapFunc func(ctx context.Context, c chunker.Chunk) (ChunkResult, error)

// FallbackFunc produces a degraded result for a chunk that exhausted
// retries, e.g. a hand-parsed partial extraction.
type FallbackFunc func(c chunker.Chunk, err error) (ChunkResult, error)

// Policy configures one executor run.
type Policy struct {
	Concurrency   int
	MaxRetries    int
	BaseDelayMS   int
	MaxDelayMS    int
	Fallback      FallbackFunc
	CheckpointDir string
}

func (p Policy) withDefaults() Policy {
	if p.Concurrency <= 0 {
		p.Concurrency = 3
	}
	if p.BaseDelayMS <= 0 {
		p.BaseDelayMS = 200
	}
	if p.MaxDelayMS <= 0 {
		p.MaxDelayMS = 2000
	}
	return p
}

// Run executes f over chunks under policy, with bounded concurrency, retry
// with exponential backoff, degraded fallback, and checkpointed
// resumability keyed by fingerprint. Uses the same semaphore/WaitGroup
// bounded-pool shape as the codebase's other concurrent gatherers,
// generalized here to an arbitrary chunk map function.
func Run(ctx context.Context, fingerprint string, chunks []chunker.Chunk, f MapFunc, policy Policy) (map[int]ChunkResult, error) {
	policy = policy.withDefaults()

	checkpointPath := checkpointFilePath(policy.CheckpointDir)
	cp, err := loadCheckpoint(checkpointPath, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	out := make(map[int]ChunkResult, len(chunks))
	for idx, r := range cp.Completed {
		out[idx] = r
	}

	var pending []chunker.Chunk
	for _, c := range chunks {
		if _, done := cp.Completed[c.Index]; done {
			continue
		}
		pending = append(pending, c)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		sem  = make(chan struct{}, policy.Concurrency)
		errs []error
	)

	for _, c := range pending {
		c := c
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result, outcomeErr := runChunk(ctx, c, f, policy)

			mu.Lock()
			defer mu.Unlock()
			out[c.Index] = result
			if outcomeErr != nil {
				cp.Failed[c.Index] = outcomeErr.Error()
				errs = append(errs, outcomeErr)
			} else {
				delete(cp.Failed, c.Index)
				cp.Completed[c.Index] = result
			}
			if writeErr := cp.write(checkpointPath); writeErr != nil {
				// Checkpoint write errors do not stop the run: they join
				// the errors reported in Run's returned error, the other
				// chunks continue, and resume may be incomplete.
				errs = append(errs, fmt.Errorf("checkpoint write: %w", writeErr))
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("%d of %d chunks failed, first error: %w", len(errs), len(pending), errs[0])
	}
	return out, nil
}

// runChunk executes the per-chunk lifecycle: invoke f, retry on any
// failure with exponential backoff, fall back on exhaustion, and as a last
// resort synthesize a failed ChunkResult so downstream reducers still
// count the chunk.
func runChunk(ctx context.Context, c chunker.Chunk, f MapFunc, policy Policy) (ChunkResult, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return syntheticFailure(c, ctx.Err()), ctx.Err()
		}

		result, err := f(ctx, c)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxRetries {
			break
		}
		backoff := computeBackoff(policy.BaseDelayMS, policy.MaxDelayMS, attempt)
		if sleepErr := sleepWithContext(ctx, backoff); sleepErr != nil {
			return syntheticFailure(c, sleepErr), sleepErr
		}
	}

	if policy.Fallback != nil {
		if result, err := policy.Fallback(c, lastErr); err == nil {
			return result, nil
		}
	}

	return syntheticFailure(c, lastErr), lastErr
}

func syntheticFailure(c chunker.Chunk, err error) ChunkResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ChunkResult{Index: c.Index, Error: fmt.Sprintf("chunk %d failed: %s", c.Index, msg)}
}

func checkpointFilePath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return dir + "/.extraction-state.json"
}

// CheckpointFilePath returns the path Run reads and writes its checkpoint
// to for the given directory, so callers can inspect or clear it directly
// (e.g. a CLI's --resume flag deciding whether to discard stale state).
func CheckpointFilePath(dir string) string {
	return checkpointFilePath(dir)
}
