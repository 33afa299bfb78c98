// Package build implements the coordinator and finalizer: the two
// components that turn a stream of per-batch SPIMI results into a
// single on-disk index.
package build

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dustin/go-humanize"

	"github.com/veridex/veridex/pkg/veridex/analyzer"
	"github.com/veridex/veridex/pkg/veridex/corpus"
	"github.com/veridex/veridex/pkg/veridex/spimi"
)

// progressEvery is the cumulative-document interval at which the
// coordinator emits a progress log line.
const progressEvery = 50_000

// Config holds the coordinator's tunables.
type Config struct {
	Workers          int
	BlockDocs        int
	MaxInFlight      int
	MaxTasksPerChild int // accepted for config-surface parity; goroutines have no child process to recycle
	KeepBlocks       bool
}

// Resolve fills in zero-valued fields with their defaults:
// Workers defaults to the CPU count, MaxInFlight to 2×Workers.
func (c Config) Resolve() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BlockDocs <= 0 {
		c.BlockDocs = 10_000
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 2 * c.Workers
	}
	return c
}

// Result is what the coordinator hands to the finalizer.
type Result struct {
	BlockPaths     []string
	DocStorePaths  []string
	TotalDocsCount int
}

// RunID tags a single build invocation's progress log lines, letting
// an operator disambiguate concurrent builds in a shared log stream.
type RunID = string

// Coordinate reads batches from reader, runs one SPIMI worker per batch
// bounded to cfg.MaxInFlight concurrently in flight, and returns the
// sorted block/partition paths and total document count for the
// finalizer. A failed worker aborts the whole build: no partial index
// is ever exposed.
func Coordinate(ctx context.Context, reader *corpus.Reader, pipeline *analyzer.Pipeline, outDir string, cfg Config, runID RunID) (Result, error) {
	cfg = cfg.Resolve()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxInFlight)

	type batchResult struct {
		res      spimi.Result
		batchID  int
	}

	resultsCh := make(chan batchResult)
	collectDone := make(chan struct{})

	start := time.Now()
	var results []batchResult
	go func() {
		var cumulative, lastLogged int
		for r := range resultsCh {
			results = append(results, r)
			cumulative += r.res.DocsCount

			if cumulative-lastLogged >= progressEvery {
				elapsed := time.Since(start)
				rate := float64(cumulative) / elapsed.Seconds()
				log.Printf("[%s] indexed %s docs in %s (%.0f docs/s)",
					runID, humanize.Comma(int64(cumulative)), elapsed.Round(time.Second), rate)
				lastLogged = cumulative
			}
		}
		close(collectDone)
	}()

	var scanErr error
	batchID := 0
	for rng, rngErr := range reader.Batches(cfg.BlockDocs) {
		if rngErr != nil {
			scanErr = rngErr
			break
		}

		id := batchID
		batchID++

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			w := spimi.NewWorker(reader, pipeline, outDir)
			res, err := w.Run(rng, id)
			if err != nil {
				return fmt.Errorf("batch %d: %w", id, err)
			}

			resultsCh <- batchResult{res: res, batchID: id}
			return nil
		})
	}

	// g.Wait blocks until every already-submitted worker goroutine has
	// returned (including its send to resultsCh), so it is always safe
	// to close resultsCh immediately afterward regardless of whether
	// the batch scan above stopped early on scanErr.
	err := g.Wait()
	close(resultsCh)
	<-collectDone

	if scanErr != nil {
		return Result{}, scanErr
	}
	if err != nil {
		return Result{}, err
	}

	// Block/partition filenames are zero-padded by batch id, so sorting
	// by batch id reproduces the lexicographic file-name order the
	// finalizer requires.
	sort.Slice(results, func(i, j int) bool { return results[i].batchID < results[j].batchID })

	blockPaths := make([]string, 0, len(results))
	docStorePaths := make([]string, 0, len(results))
	var cumulative int
	for _, r := range results {
		blockPaths = append(blockPaths, r.res.BlockPath)
		docStorePaths = append(docStorePaths, r.res.DocStorePath)
		cumulative += r.res.DocsCount
	}

	return Result{
		BlockPaths:     blockPaths,
		DocStorePaths:  docStorePaths,
		TotalDocsCount: cumulative,
	}, nil
}

