// Command veridex-query runs a single ranked search against a
// finalized index directory and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/veridex/veridex/pkg/veridex"
	"github.com/veridex/veridex/pkg/veridex/analyzer"
	"github.com/veridex/veridex/pkg/veridex/config"
	"github.com/veridex/veridex/pkg/veridex/langdetect"
	"github.com/veridex/veridex/pkg/veridex/verr"
)

func main() {
	var (
		indexPath  = flag.String("index", "", "Path to index.meta.json (required)")
		queryStr   = flag.String("q", "", "Query text (required)")
		topK       = flag.Int("k", 0, "Number of results (0 = config default)")
		configPath = flag.String("config", "", "YAML configuration file (optional)")
		lang       = flag.String("lang", "", "Override detected query language")
	)
	flag.Parse()

	if *indexPath == "" {
		log.Fatal("-index required")
	}
	if *queryStr == "" {
		log.Fatal("-q required")
	}

	opts, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	k := *topK
	if k <= 0 {
		k = opts.TopK
	}

	ctx := context.Background()
	engine, err := veridex.SearchEngine(ctx, *indexPath)
	if err != nil {
		log.Fatal("failed to open index: ", err)
	}
	defer engine.Close()

	pipeline := analyzer.NewPipeline(analyzer.New(opts.StopwordOverrides), opts.MinTokenLen)

	queryLang := *lang
	if queryLang == "" {
		queryLang, _ = langdetect.Detect(*queryStr)
		if queryLang == "unknown" {
			queryLang = opts.DefaultQueryLanguage
		}
	} else if !opts.IsSupportedLanguage(queryLang) {
		log.Fatalf("%v: -lang %q not in supported set %v", verr.ErrUnsupportedLanguage, queryLang, opts.SupportedLanguages)
	}

	terms := pipeline.Run(*queryStr, queryLang)

	results, err := engine.Search(terms, k)
	if err != nil {
		log.Fatal("search failed: ", err)
	}

	for i, r := range results {
		meta := engine.GetDocMeta(ctx, r.DocUID)
		fmt.Printf("%d. %s\tscore=%.6f\ttitle=%v\turl=%v\n", i+1, r.DocUID, r.Score, meta["title"], meta["url"])
	}
}
