// Package statefile provides the load-on-start, write-through-on-update JSON
// persistence used by the Telemetry Store and the Pipeline Executor's
// checkpoint file. Every caller gets the same directory/permission
// conventions and the same tolerant-of-missing-file startup behavior.
package statefile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Write marshals value as indented JSON and writes it to path, creating
// parent directories as needed.
func Write(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read unmarshals the JSON document at path into dest. A missing file is
// not an error: Read returns (false, nil) and leaves dest untouched, so
// callers seed defaults themselves (per the "missing files imply initial
// state seeded from static descriptors" rule).
func Read(path string, dest any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}
