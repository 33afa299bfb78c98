// Package corpus scans a line-delimited JSON corpus file into
// byte-range batch descriptors, and decodes the raw documents inside a
// given range. Both operations are lazy: at most one line is held in
// memory at a time.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/veridex/veridex/pkg/veridex/verr"
)

// RawDoc is one decoded line of the corpus input.
type RawDoc struct {
	DocID  string `json:"doc_id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Lang   string `json:"lang"`
}

// Range is a contiguous, line-boundary-aligned byte range of the corpus
// file.
type Range struct {
	Start int64
	End   int64
}

// Reader scans a single corpus file.
type Reader struct {
	Path string
}

// NewReader returns a Reader over path.
func NewReader(path string) *Reader {
	return &Reader{Path: path}
}

// Batches returns a lazy sequence of contiguous, non-overlapping byte
// ranges, each covering batchSize lines (a final partial range covers
// whatever remains). Ranges always start and end on a line boundary.
func (r *Reader) Batches(batchSize int) iter.Seq2[Range, error] {
	return func(yield func(Range, error) bool) {
		f, err := os.Open(r.Path)
		if err != nil {
			if os.IsNotExist(err) {
				yield(Range{}, fmt.Errorf("%w: %s", verr.ErrCorpusNotFound, r.Path))
			} else {
				yield(Range{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err))
			}
			return
		}
		defer f.Close()

		br := bufio.NewReaderSize(f, 64*1024)
		var pos, batchStart int64
		var lines int

		for {
			line, readErr := br.ReadString('\n')
			pos += int64(len(line))
			if len(line) > 0 {
				lines++
			}

			if lines == batchSize {
				if !yield(Range{Start: batchStart, End: pos}, nil) {
					return
				}
				batchStart = pos
				lines = 0
			}

			if readErr == io.EOF {
				if pos > batchStart {
					yield(Range{Start: batchStart, End: pos}, nil)
				}
				return
			}
			if readErr != nil {
				yield(Range{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, readErr))
				return
			}
		}
	}
}

// IterDocsInRange seeks to start and decodes whole lines as RawDoc until
// the read position reaches end or EOF. Empty lines are skipped.
// Malformed JSON is reported as verr.ErrMalformedRecord and stops
// iteration — the caller (the SPIMI worker) treats this as fatal to the
// batch.
func (r *Reader) IterDocsInRange(rng Range) iter.Seq2[RawDoc, error] {
	return func(yield func(RawDoc, error) bool) {
		f, err := os.Open(r.Path)
		if err != nil {
			yield(RawDoc{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err))
			return
		}
		defer f.Close()

		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			yield(RawDoc{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, err))
			return
		}

		br := bufio.NewReaderSize(f, 64*1024)
		pos := rng.Start

		for pos < rng.End {
			line, readErr := br.ReadString('\n')
			pos += int64(len(line))

			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				var doc RawDoc
				if jerr := json.Unmarshal([]byte(trimmed), &doc); jerr != nil {
					yield(RawDoc{}, fmt.Errorf("%w: %v", verr.ErrMalformedRecord, jerr))
					return
				}
				if !yield(doc, nil) {
					return
				}
			}

			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				yield(RawDoc{}, fmt.Errorf("%w: %v", verr.ErrInternalIO, readErr))
				return
			}
		}
	}
}
