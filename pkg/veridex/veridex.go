// Package veridex is the top-level engine facade: it exposes Build and
// SearchEngine, the two entry points an external caller (e.g. an HTTP
// layer) needs.
package veridex

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/veridex/veridex/pkg/veridex/analyzer"
	"github.com/veridex/veridex/pkg/veridex/build"
	"github.com/veridex/veridex/pkg/veridex/config"
	"github.com/veridex/veridex/pkg/veridex/corpus"
	"github.com/veridex/veridex/pkg/veridex/query"
)

// BuildResult summarizes a completed build.
type BuildResult struct {
	N         int
	VocabSize int
	MetaPath  string
}

// Build runs the corpus reader, coordinator, and finalizer in sequence
// over corpusPath, writing the finalized index into outDir. No partial
// index is exposed on failure: the meta descriptor is written last by
// the finalizer, and Build only returns a path to it on success.
func Build(ctx context.Context, corpusPath, outDir string, opts config.Options, runID string) (BuildResult, error) {
	reader := corpus.NewReader(corpusPath)
	pipeline := analyzer.NewPipeline(analyzer.New(opts.StopwordOverrides), opts.MinTokenLen)

	coordCfg := build.Config{
		Workers:          opts.Workers,
		BlockDocs:        opts.BlockDocs,
		MaxInFlight:      opts.MaxInFlight,
		MaxTasksPerChild: opts.MaxTasksPerChild,
		KeepBlocks:       opts.KeepBlocks,
	}

	coordResult, err := build.Coordinate(ctx, reader, pipeline, outDir, coordCfg, runID)
	if err != nil {
		return BuildResult{}, fmt.Errorf("build: %w", err)
	}

	meta, err := build.Finalize(ctx, outDir, coordResult.BlockPaths, coordResult.DocStorePaths,
		coordResult.TotalDocsCount, opts.MinDF, opts.MaxDFRatio, opts.KeepBlocks)
	if err != nil {
		return BuildResult{}, fmt.Errorf("build: %w", err)
	}

	metaPath := filepath.Join(outDir, "index.meta.json")
	return BuildResult{N: meta.N, VocabSize: meta.VocabSize, MetaPath: metaPath}, nil
}

// SearchEngine opens a finalized index for querying. It is a thin
// forwarder to query.Open, kept here so callers depend on one package
// for the whole Build/search surface.
func SearchEngine(ctx context.Context, metaPath string) (*query.Engine, error) {
	return query.Open(ctx, metaPath)
}
