// Command veridex-build runs the SPIMI indexer over a JSONL corpus
// file, writing a finalized index into an output directory.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"

	"github.com/veridex/veridex/pkg/veridex"
	"github.com/veridex/veridex/pkg/veridex/config"
)

func main() {
	var (
		corpusPath = flag.String("corpus", "", "Input JSONL corpus file (required)")
		outDir     = flag.String("out", "", "Output index directory (required)")
		configPath = flag.String("config", "", "YAML configuration file (optional)")
	)
	flag.Parse()

	if *corpusPath == "" {
		log.Fatal("-corpus required")
	}
	if *outDir == "" {
		log.Fatal("-out required")
	}

	opts, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("failed to create output directory: ", err)
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	runID := ulid.MustNew(ulid.Now(), entropy).String()

	interactive := isatty.IsTerminal(os.Stdout.Fd())
	if interactive {
		log.Printf("[%s] indexing %s -> %s", runID, *corpusPath, *outDir)
	} else {
		log.Printf("[%s] starting build: corpus=%s out=%s", runID, *corpusPath, *outDir)
	}

	start := time.Now()
	result, err := veridex.Build(context.Background(), *corpusPath, *outDir, opts, runID)
	if err != nil {
		log.Fatal("build failed: ", err)
	}

	log.Printf("[%s] build complete: N=%d vocab_size=%d meta=%s elapsed=%s",
		runID, result.N, result.VocabSize, result.MetaPath, time.Since(start).Round(time.Second))
}
