package build

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/veridex/veridex/pkg/veridex/docstore"
	"github.com/veridex/veridex/pkg/veridex/verr"
)

// Meta is the index descriptor written last; its presence on disk
// signals that an index is ready to query.
type Meta struct {
	Format         string `json:"format"`
	N              int    `json:"N"`
	VocabSize      int    `json:"vocab_size"`
	PostingsPath   string `json:"postings_path"`
	TermsIndexPath string `json:"terms_index_path"`
	DocStorePath   string `json:"doc_store_path"`
	DocIndexPath   string `json:"doc_index_path"`
	DocIndexType   string `json:"doc_index_type"`
}

// termSpan is a term's (byte_offset, byte_length) into the postings
// file.
type termSpan struct {
	Offset int64
	Length int64
}

// Finalize runs the four-step finalizer over the coordinator's sorted
// block and partition paths, writing the final index files into
// outDir. minDF/maxDFRatio bound which terms survive into the postings
// file.
func Finalize(ctx context.Context, outDir string, blockPaths, docStorePaths []string, totalDocs, minDF int, maxDFRatio float64, keepBlocks bool) (Meta, error) {
	docStorePath := filepath.Join(outDir, "doc_store.jsonl")
	if err := concatPartitions(docStorePaths, docStorePath); err != nil {
		return Meta{}, err
	}

	docIndexPath := filepath.Join(outDir, "doc_store.sqlite")
	if err := buildDocOffsetIndex(ctx, docStorePath, docIndexPath); err != nil {
		return Meta{}, err
	}

	postingsPath := filepath.Join(outDir, "index.postings")
	termsIndexPath := filepath.Join(outDir, "index.terms.json")
	vocabSize, err := mergeBlocks(blockPaths, postingsPath, termsIndexPath, totalDocs, minDF, maxDFRatio)
	if err != nil {
		return Meta{}, err
	}

	meta := Meta{
		Format:         "block",
		N:              totalDocs,
		VocabSize:      vocabSize,
		PostingsPath:   postingsPath,
		TermsIndexPath: termsIndexPath,
		DocStorePath:   docStorePath,
		DocIndexPath:   docIndexPath,
		DocIndexType:   "sqlite",
	}

	if err := writeMeta(outDir, meta); err != nil {
		return Meta{}, err
	}

	if !keepBlocks {
		cleanup(blockPaths, docStorePaths)
	}

	return meta, nil
}

// concatPartitions performs a byte-exact concatenation of the sorted
// partition files into one doc_store.jsonl; no re-parsing.
func concatPartitions(parts []string, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer out.Close()

	for _, p := range parts {
		if err := appendFile(out, p); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(dst *os.File, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	return nil
}

// docStoreLine is the subset of a doc_store.jsonl line's fields needed
// to key the doc-offset index.
type docStoreLine struct {
	DocID  string `json:"doc_id"`
	DocUID string `json:"doc_uid"`
}

// buildDocOffsetIndex streams docStorePath, recording the byte offset
// preceding each line and inserting (doc_uid, offset) into the
// embedded doc-offset store, committing every docstore.CommitBatch
// entries. Non-parseable lines and lines missing a key are skipped. A
// key seen a second time is logged as a doc_uid collision.
func buildDocOffsetIndex(ctx context.Context, docStorePath, docIndexPath string) error {
	os.Remove(docIndexPath) // a stale index from a prior failed build must not leak into this one

	store, err := docstore.Open(ctx, docIndexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(docStorePath)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer f.Close()

	builder := store.NewBuilder(ctx)
	seen := make(map[string]int64)

	br := bufio.NewReaderSize(f, 64*1024)
	var offset int64
	for {
		lineStart := offset
		line, readErr := br.ReadString('\n')
		offset += int64(len(line))

		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			var rec docStoreLine
			if jerr := json.Unmarshal([]byte(trimmed), &rec); jerr == nil {
				key := rec.DocUID
				if key == "" {
					key = rec.DocID
				}
				if key != "" {
					if prev, dup := seen[key]; dup {
						log.Printf("WARN: doc_uid collision %q at doc store offsets %d and %d; the later offset wins", key, prev, lineStart)
					}
					seen[key] = lineStart
					if perr := builder.Put(key, lineStart); perr != nil {
						return perr
					}
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, readErr)
		}
	}

	return builder.Flush()
}

// mergeBlocks runs the counting pass followed by the k-way merge pass
// over the sorted block files, writing the retained postings and their
// terms-table spans. Returns the vocabulary size (retained term
// count).
func mergeBlocks(blockPaths []string, postingsPath, termsIndexPath string, n, minDF int, maxDFRatio float64) (int, error) {
	dfCounts, err := countDocFrequencies(blockPaths)
	if err != nil {
		return 0, err
	}

	maxDF := int(math.Floor(maxDFRatio * float64(n)))
	if maxDF < minDF {
		maxDF = minDF
	}

	out, err := os.Create(postingsPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	terms := make(map[string]termSpan)

	cursors := make([]*blockCursor, len(blockPaths))
	for i, p := range blockPaths {
		c, err := openBlockCursor(p)
		if err != nil {
			closeCursors(cursors)
			return 0, err
		}
		cursors[i] = c
	}
	defer closeCursors(cursors)

	h := &mergeHeap{}
	heap.Init(h)
	for i, c := range cursors {
		if err := pushNext(h, c, i); err != nil {
			return 0, err
		}
	}

	var offset int64
	var currentTerm string
	var haveCurrent bool
	var currentRetained bool
	var currentFirst bool

	closeCurrent := func() error {
		if !haveCurrent || !currentRetained {
			return nil
		}
		n2, err := bw.WriteString("]\n")
		if err != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
		}
		offset += int64(n2)
		span := terms[currentTerm]
		span.Length = offset - span.Offset
		terms[currentTerm] = span
		return nil
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)

		if !haveCurrent || item.term != currentTerm {
			if err := closeCurrent(); err != nil {
				return 0, err
			}
			currentTerm = item.term
			haveCurrent = true
			df := dfCounts[currentTerm]
			currentRetained = df >= minDF && df <= maxDF
			currentFirst = true
			if currentRetained {
				terms[currentTerm] = termSpan{Offset: offset}
				head := currentTerm + "\t["
				n2, err := bw.WriteString(head)
				if err != nil {
					return 0, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
				}
				offset += int64(n2)
			}
		}

		if currentRetained {
			for _, p := range item.postings {
				prefix := ""
				if !currentFirst {
					prefix = ","
				}
				currentFirst = false
				pb, merr := json.Marshal([2]any{p.DocUID, p.TF})
				if merr != nil {
					return 0, fmt.Errorf("%w: %v", verr.ErrInternalIO, merr)
				}
				n2, err := bw.WriteString(prefix + string(pb))
				if err != nil {
					return 0, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
				}
				offset += int64(n2)
			}
		}

		if err := pushNext(h, cursors[item.blockIndex], item.blockIndex); err != nil {
			return 0, err
		}
	}

	if err := closeCurrent(); err != nil {
		return 0, err
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	if err := writeTermsIndex(termsIndexPath, terms); err != nil {
		return 0, err
	}

	return len(terms), nil
}

func pushNext(h *mergeHeap, c *blockCursor, idx int) error {
	term, postings, ok, err := c.next()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	heap.Push(h, mergeItem{term: term, blockIndex: idx, postings: postings})
	return nil
}

func countDocFrequencies(blockPaths []string) (map[string]int, error) {
	dfCounts := make(map[string]int)
	for _, p := range blockPaths {
		c, err := openBlockCursor(p)
		if err != nil {
			return nil, err
		}
		for {
			term, postings, ok, err := c.next()
			if err != nil {
				c.close()
				return nil, err
			}
			if !ok {
				break
			}
			dfCounts[term] += len(postings)
		}
		c.close()
	}
	return dfCounts, nil
}

func writeTermsIndex(path string, terms map[string]termSpan) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(toOffsetLengthMap(terms)); err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	return nil
}

func toOffsetLengthMap(terms map[string]termSpan) map[string][2]int64 {
	out := make(map[string][2]int64, len(terms))
	for term, span := range terms {
		out[term] = [2]int64{span.Offset, span.Length}
	}
	return out
}

func writeMeta(outDir string, meta Meta) error {
	path := filepath.Join(outDir, "index.meta.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	return nil
}

func cleanup(blockPaths, docStorePaths []string) {
	dirs := make(map[string]struct{})
	for _, p := range blockPaths {
		os.Remove(p)
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for _, p := range docStorePaths {
		os.Remove(p)
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for d := range dirs {
		os.Remove(d) // ignored: fails silently if the directory still has entries
	}
}

func closeCursors(cursors []*blockCursor) {
	for _, c := range cursors {
		if c != nil {
			c.close()
		}
	}
}
