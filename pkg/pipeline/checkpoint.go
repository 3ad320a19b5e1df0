package pipeline

import (
	"github.com/kestrel-run/modelmesh/pkg/statefile"
)

// Checkpoint is the single JSON document keyed by source fingerprint that
// makes pipeline runs resumable: completed chunks are skipped on restart,
// failed ones are retried by default.
type Checkpoint struct {
	SourceFingerprint string              `json:"source_fingerprint"`
	Completed         map[int]ChunkResult `json:"completed"`
	Failed            map[int]string      `json:"failed"`
}

func newCheckpoint(fingerprint string) *Checkpoint {
	return &Checkpoint{
		SourceFingerprint: fingerprint,
		Completed:         make(map[int]ChunkResult),
		Failed:            make(map[int]string),
	}
}

// loadCheckpoint reads path, returning a fresh checkpoint for fingerprint
// if the file is absent or belongs to a different source document.
func loadCheckpoint(path, fingerprint string) (*Checkpoint, error) {
	var cp Checkpoint
	found, err := statefile.Read(path, &cp)
	if err != nil {
		return nil, err
	}
	if !found || cp.SourceFingerprint != fingerprint {
		return newCheckpoint(fingerprint), nil
	}
	if cp.Completed == nil {
		cp.Completed = make(map[int]ChunkResult)
	}
	if cp.Failed == nil {
		cp.Failed = make(map[int]string)
	}
	return &cp, nil
}

func (cp *Checkpoint) write(path string) error {
	return statefile.Write(path, cp)
}
