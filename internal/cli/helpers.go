package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func ensureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return os.MkdirAll(path, 0o755)
}

// writeJSONFile writes v as indented JSON, creating parent directories.
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := ensureOutputDir(dir); err != nil {
			return err
		}
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
