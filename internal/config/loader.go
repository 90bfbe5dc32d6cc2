package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/fsutil"
)

// Loader is the interface for a format-specific graph file loader.
type Loader interface {
	// Extensions lists the file extensions the loader understands,
	// including the leading dot.
	Extensions() []string
	// LoadFile parses one file into the format-agnostic model.
	LoadFile(ctx context.Context, path string) (*Model, error)
}

// Load discovers graph files under paths and hands each one to the loader
// registered for its extension. Files are merged into one model in discovery
// order.
func Load(ctx context.Context, loaders []Loader, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	byExt := make(map[string]Loader)
	var exts []string
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			if _, dup := byExt[ext]; dup {
				return nil, fmt.Errorf("extension %s is claimed by more than one loader", ext)
			}
			byExt[ext] = l
			exts = append(exts, ext)
		}
	}

	files, err := fsutil.FindFiles(paths, exts...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no graph files found in %v", paths)
	}
	logger.Debug("Discovered graph files.", "count", len(files))

	model := &Model{}
	for _, file := range files {
		m, err := byExt[filepath.Ext(file)].LoadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	logger.Debug("Graph loading complete.", "nodes", len(model.Nodes))
	return model, nil
}
