// Package query implements the ranked retrieval engine: it opens a
// finalized index directory and answers TF-IDF scored searches and
// document metadata lookups against it.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/veridex/veridex/pkg/veridex/build"
	"github.com/veridex/veridex/pkg/veridex/docstore"
	"github.com/veridex/veridex/pkg/veridex/spimi"
	"github.com/veridex/veridex/pkg/veridex/verr"
)

// defaultMetaCacheSize bounds the number of decoded doc-metadata
// lookups GetDocMeta keeps in memory.
const defaultMetaCacheSize = 10_000

type termSpan struct {
	Offset int64
	Length int64
}

// Result is one scored document returned by Search.
type Result struct {
	DocUID string
	Score  float64
}

// Engine is a query-time view over one finalized index directory.
// Postings and doc-store reads are positional (ReadAt) and never move a
// file offset, so separate Engine instances over the same directory do
// not interfere with each other.
type Engine struct {
	meta       build.Meta
	terms      map[string]termSpan
	postings   *os.File
	docStore   *os.File
	docOffsets *docstore.Store
	metaCache  *lru.Cache[string, map[string]any]
}

// Open constructs an Engine from a meta descriptor path, per the
// construction contract: rejects any format other than "block", loads
// the terms table fully into memory, and keeps the postings file, doc
// store, and doc-offset store open for the engine's lifetime.
func Open(ctx context.Context, metaPath string) (*Engine, error) {
	return OpenWithCacheSize(ctx, metaPath, defaultMetaCacheSize)
}

// OpenWithCacheSize is Open with an explicit GetDocMeta cache capacity.
func OpenWithCacheSize(ctx context.Context, metaPath string, cacheSize int) (*Engine, error) {
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}

	var meta build.Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}
	if meta.Format != "block" {
		return nil, fmt.Errorf("%w: unsupported index format %q", verr.ErrIndexNotReady, meta.Format)
	}

	terms, err := loadTermsIndex(meta.TermsIndexPath)
	if err != nil {
		return nil, err
	}

	postingsFile, err := os.Open(meta.PostingsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}

	docStoreFile, err := os.Open(meta.DocStorePath)
	if err != nil {
		postingsFile.Close()
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}

	docOffsets, err := docstore.Open(ctx, meta.DocIndexPath)
	if err != nil {
		postingsFile.Close()
		docStoreFile.Close()
		return nil, err
	}

	if cacheSize <= 0 {
		cacheSize = defaultMetaCacheSize
	}
	metaCache, _ := lru.New[string, map[string]any](cacheSize)

	return &Engine{
		meta:       meta,
		terms:      terms,
		postings:   postingsFile,
		docStore:   docStoreFile,
		docOffsets: docOffsets,
		metaCache:  metaCache,
	}, nil
}

func loadTermsIndex(path string) (map[string]termSpan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}
	var flat map[string][2]int64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrIndexNotReady, err)
	}
	terms := make(map[string]termSpan, len(flat))
	for term, span := range flat {
		terms[term] = termSpan{Offset: span[0], Length: span[1]}
	}
	return terms, nil
}

// N is the document count baked into the index's meta descriptor.
func (e *Engine) N() int { return e.meta.N }

// VocabSize is the retained vocabulary size.
func (e *Engine) VocabSize() int { return e.meta.VocabSize }

// Search scores queryTerms against the index and returns the top_k
// documents descending by score. A term appearing more than once in
// queryTerms contributes its postings multiple times — duplicate-term
// accumulation, not deduplication.
func (e *Engine) Search(queryTerms []string, topK int) ([]Result, error) {
	scores := make(map[string]float64)
	order := make([]string, 0)
	seen := make(map[string]struct{})

	for _, term := range queryTerms {
		span, ok := e.terms[term]
		if !ok {
			continue
		}

		postings, err := e.readPostings(span)
		if err != nil {
			return nil, err
		}

		df := len(postings)
		idf := math.Log((float64(e.meta.N)+1)/(float64(df)+1)) + 1

		for _, p := range postings {
			if _, ok := seen[p.DocUID]; !ok {
				seen[p.DocUID] = struct{}{}
				order = append(order, p.DocUID)
			}
			scores[p.DocUID] += p.TF * idf
		}
	}

	results := make([]Result, 0, len(order))
	for _, docUID := range order {
		results = append(results, Result{DocUID: docUID, Score: scores[docUID]})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK >= 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (e *Engine) readPostings(span termSpan) ([]spimi.Posting, error) {
	buf := make([]byte, span.Length)
	if _, err := e.postings.ReadAt(buf, span.Offset); err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	line := strings.TrimSuffix(string(buf), "\n")
	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return nil, fmt.Errorf("%w: postings line missing tab separator", verr.ErrMalformedRecord)
	}

	var postings []spimi.Posting
	if err := json.Unmarshal([]byte(line[tab+1:]), &postings); err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrMalformedRecord, err)
	}
	return postings, nil
}

// GetDocMeta resolves doc_uid to its metadata — title, url, snippet,
// doc_uid — via the doc-offset store and a seek into the doc store,
// caching decoded results. Returns an empty map on any failure: a
// missing doc_uid or a corrupt doc store line is not an engine error.
func (e *Engine) GetDocMeta(ctx context.Context, docUID string) map[string]any {
	if e.metaCache != nil {
		if cached, ok := e.metaCache.Get(docUID); ok {
			return cached
		}
	}

	meta := e.lookupDocMeta(ctx, docUID)
	if e.metaCache != nil {
		e.metaCache.Add(docUID, meta)
	}
	return meta
}

func (e *Engine) lookupDocMeta(ctx context.Context, docUID string) map[string]any {
	offset, ok, err := e.docOffsets.Lookup(ctx, docUID)
	if err != nil || !ok {
		return map[string]any{}
	}

	br := make([]byte, 0, 4096)
	line, err := readLineAt(e.docStore, offset, br)
	if err != nil {
		return map[string]any{}
	}

	var rec map[string]any
	if err := json.Unmarshal(line, &rec); err != nil {
		return map[string]any{}
	}
	delete(rec, "doc_id")
	return rec
}

// readLineAt reads one newline-terminated line starting at offset from
// f, growing buf as needed.
func readLineAt(f *os.File, offset int64, buf []byte) ([]byte, error) {
	const chunk = 4096
	line := buf[:0]
	pos := offset
	for {
		tmp := make([]byte, chunk)
		n, err := f.ReadAt(tmp, pos)
		if n > 0 {
			tmp = tmp[:n]
			if idx := strings.IndexByte(string(tmp), '\n'); idx >= 0 {
				line = append(line, tmp[:idx]...)
				return line, nil
			}
			line = append(line, tmp...)
			pos += int64(n)
		}
		if err != nil {
			if len(line) > 0 {
				return line, nil
			}
			return nil, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
		}
	}
}

// Close releases the engine's three open handles: the postings file,
// the doc store file, and the doc-offset store connection.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.postings.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.docStore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.docOffsets.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
