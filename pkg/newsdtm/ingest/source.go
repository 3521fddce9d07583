package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir returns one lazy Loader per *.json file directly under dir, keyed
// by file name. Files are read only when the ingestor asks for them.
func LoadDir(dir string) (map[string]Loader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	sources := make(map[string]Loader)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		sources[entry.Name()] = func() ([]byte, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read file %s: %w", path, err)
			}
			return data, nil
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no json sources found in %s", dir)
	}
	return sources, nil
}

// StaticSources wraps in-memory payloads as loaders.
func StaticSources(payloads map[string][]byte) map[string]Loader {
	out := make(map[string]Loader, len(payloads))
	for name, data := range payloads {
		out[name] = func() ([]byte, error) { return data, nil }
	}
	return out
}
