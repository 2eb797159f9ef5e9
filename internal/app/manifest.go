package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestEntry is one asset listed for prefetching.
type ManifestEntry struct {
	Path string `json:"path" yaml:"path"`
}

type manifestFile struct {
	Assets []ManifestEntry `json:"assets" yaml:"assets"`
}

// LoadManifest reads a YAML or JSON prefetch list and returns the asset paths
// in file order. Blank entries are skipped; duplicates are rejected.
func LoadManifest(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("manifest path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var file manifestFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &file)
	default:
		return nil, fmt.Errorf("manifest format %q not recognized (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	items := make([]string, 0, len(file.Assets))
	seen := make(map[string]struct{}, len(file.Assets))
	for i, entry := range file.Assets {
		p := strings.TrimPrefix(strings.TrimSpace(entry.Path), "/")
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("assets[%d]: duplicate path %q", i, p)
		}
		seen[p] = struct{}{}
		items = append(items, p)
	}
	if len(items) == 0 {
		return nil, errors.New("manifest contains no assets")
	}
	return items, nil
}
