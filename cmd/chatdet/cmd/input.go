package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shabbyrobe/chatdet"
	"github.com/shabbyrobe/chatdet/internal/store"
)

// openRows opens path as a row source, choosing the format from its
// extension: .jsonl/.ndjson for JSON lines, anything else as CSV.
func openRows(path string) (chatdet.RowSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return chatdet.NewJSONLRows(f), f, nil
	default:
		rows, err := chatdet.NewCSVRows(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return rows, f, nil
	}
}

// modelSpec parses "label=path" or a bare path. A bare path is loaded under
// the ID stored in the file.
func modelSpec(spec string) chatdet.ModelFile {
	if i := strings.Index(spec, "="); i > 0 {
		return chatdet.ModelFile{Label: spec[:i], Path: spec[i+1:]}
	}
	return chatdet.ModelFile{Path: spec, UseID: true}
}

func modelSpecs(specs []string) []chatdet.ModelFile {
	files := make([]chatdet.ModelFile, len(specs))
	for i, spec := range specs {
		files[i] = modelSpec(spec)
	}
	return files
}

// loadEvaluator builds an evaluator from -m specs or from a model store.
func loadEvaluator(specs []string, storePath string, approximate bool) (*chatdet.Evaluator, error) {
	if storePath == "" {
		return chatdet.LoadEvaluatorModelFiles(modelSpecs(specs), approximate)
	}

	s, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	models, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	return chatdet.NewEvaluator(models)
}
