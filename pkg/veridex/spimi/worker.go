package spimi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/veridex/veridex/pkg/veridex/analyzer"
	"github.com/veridex/veridex/pkg/veridex/corpus"
	"github.com/veridex/veridex/pkg/veridex/docid"
	"github.com/veridex/veridex/pkg/veridex/langdetect"
	"github.com/veridex/veridex/pkg/veridex/verr"
)

// Worker runs the per-batch SPIMI procedure against one corpus Reader,
// writing its block and partition files under OutDir.
type Worker struct {
	Reader   *corpus.Reader
	Pipeline *analyzer.Pipeline
	OutDir   string
}

// NewWorker builds a Worker.
func NewWorker(reader *corpus.Reader, pipeline *analyzer.Pipeline, outDir string) *Worker {
	return &Worker{Reader: reader, Pipeline: pipeline, OutDir: outDir}
}

// Run executes the SPIMI procedure over one batch range, producing one
// sorted block file and one metadata partition.
func (w *Worker) Run(rng corpus.Range, batchID int) (Result, error) {
	blocksDir := filepath.Join(w.OutDir, "blocks")
	partsDir := filepath.Join(w.OutDir, "doc_store_parts")
	if err := os.MkdirAll(blocksDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	if err := os.MkdirAll(partsDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	blockPath := filepath.Join(blocksDir, fmt.Sprintf("block_%06d.jsonl", batchID))
	docStorePath := filepath.Join(partsDir, fmt.Sprintf("doc_store_%06d.jsonl", batchID))

	partFile, err := os.Create(docStorePath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer partFile.Close()
	partWriter := bufio.NewWriter(partFile)

	inverted := make(map[string][]Posting)
	docsCount := 0

	for doc, iterErr := range w.Reader.IterDocsInRange(rng) {
		if iterErr != nil {
			return Result{}, iterErr
		}
		docsCount++

		normalized := w.Pipeline.A.Normalize(doc.Text)
		lang, _ := langdetect.Detect(normalized)
		tokens := w.Pipeline.RunNormalized(normalized, lang)

		docUID := docid.Derive(doc.DocID, doc.URL, doc.Source, doc.Lang)

		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		docLength := len(tokens)
		if docLength == 0 {
			docLength = 1
		}
		for term, freq := range freqs {
			tf := round6(float64(freq) / float64(docLength))
			inverted[term] = append(inverted[term], Posting{DocUID: docUID, TF: tf})
		}

		line := docMetaLine{
			DocID:   doc.DocID,
			DocUID:  docUID,
			Title:   doc.Title,
			URL:     doc.URL,
			Snippet: snippet(doc.Text),
		}
		b, merr := json.Marshal(line)
		if merr != nil {
			return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, merr)
		}
		if _, werr := partWriter.Write(b); werr != nil {
			return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
		if werr := partWriter.WriteByte('\n'); werr != nil {
			return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
	}

	if err := partWriter.Flush(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	if err := writeBlock(blockPath, inverted); err != nil {
		return Result{}, err
	}

	return Result{BlockPath: blockPath, DocStorePath: docStorePath, DocsCount: docsCount}, nil
}

func writeBlock(path string, inverted map[string][]Posting) error {
	terms := make([]string, 0, len(inverted))
	for term := range inverted {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, term := range terms {
		pb, merr := json.Marshal(inverted[term])
		if merr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, merr)
		}
		if _, werr := bw.WriteString(term); werr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
		if werr := bw.WriteByte('\t'); werr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
		if _, werr := bw.Write(pb); werr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
		if werr := bw.WriteByte('\n'); werr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, werr)
		}
	}
	return bw.Flush()
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

// snippet returns the first 240 Unicode code points of the raw text, or
// nil if the text is empty. Counted in runes, not bytes, per the data
// model's portability requirement.
func snippet(text string) *string {
	if text == "" {
		return nil
	}
	r := []rune(text)
	if len(r) > 240 {
		r = r[:240]
	}
	s := string(r)
	return &s
}
