package query

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/veridex/veridex/pkg/veridex/docstore"
	"github.com/veridex/veridex/pkg/veridex/verr"
)

// writeIndex hand-assembles a minimal finalized index directory so the
// engine can be tested without running the full coordinator/finalizer
// pipeline.
func writeIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	postings := "cat\t[[\"en.wiki:1\",0.5],[\"en.wiki:2\",0.25]]\ndog\t[[\"en.wiki:2\",0.5]]\n"
	postingsPath := filepath.Join(dir, "index.postings")
	if err := os.WriteFile(postingsPath, []byte(postings), 0o644); err != nil {
		t.Fatalf("write postings: %v", err)
	}

	catOffset := int64(0)
	catLen := int64(len("cat\t[[\"en.wiki:1\",0.5],[\"en.wiki:2\",0.25]]\n"))
	dogOffset := catLen
	dogLen := int64(len(postings)) - catLen

	terms := map[string][2]int64{
		"cat": {catOffset, catLen},
		"dog": {dogOffset, dogLen},
	}
	termsPath := filepath.Join(dir, "index.terms.json")
	writeJSON(t, termsPath, terms)

	docStore := `{"doc_id":"1","doc_uid":"en.wiki:1","title":"Cats","url":"https://en.wiki/a","snippet":"about cats"}` + "\n" +
		`{"doc_id":"2","doc_uid":"en.wiki:2","title":"Cats and dogs","url":"https://en.wiki/b","snippet":"about both"}` + "\n"
	docStorePath := filepath.Join(dir, "doc_store.jsonl")
	if err := os.WriteFile(docStorePath, []byte(docStore), 0o644); err != nil {
		t.Fatalf("write doc store: %v", err)
	}

	docIndexPath := filepath.Join(dir, "doc_store.sqlite")
	ctx := context.Background()
	store, err := docstore.Open(ctx, docIndexPath)
	if err != nil {
		t.Fatalf("docstore.Open() error: %v", err)
	}
	b := store.NewBuilder(ctx)
	if err := b.Put("en.wiki:1", 0); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := b.Put("en.wiki:2", int64(len(`{"doc_id":"1","doc_uid":"en.wiki:1","title":"Cats","url":"https://en.wiki/a","snippet":"about cats"}`+"\n"))); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	store.Close()

	meta := map[string]any{
		"format":           "block",
		"N":                2,
		"vocab_size":       2,
		"postings_path":    postingsPath,
		"terms_index_path": termsPath,
		"doc_store_path":   docStorePath,
		"doc_index_path":   docIndexPath,
		"doc_index_type":   "sqlite",
	}
	metaPath := filepath.Join(dir, "index.meta.json")
	writeJSON(t, metaPath, meta)

	return metaPath
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(v); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestSearchScoresAndRanksDescending(t *testing.T) {
	metaPath := writeIndex(t)
	ctx := context.Background()

	engine, err := Open(ctx, metaPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer engine.Close()

	results, err := engine.Search([]string{"cat"}, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].DocUID != "en.wiki:1" {
		t.Fatalf("Search() top result = %q, want en.wiki:1 (higher tf)", results[0].DocUID)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("results not descending by score: %+v", results)
	}
}

func TestSearchDuplicateTermsAccumulate(t *testing.T) {
	metaPath := writeIndex(t)
	ctx := context.Background()

	engine, err := Open(ctx, metaPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer engine.Close()

	single, err := engine.Search([]string{"cat"}, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	double, err := engine.Search([]string{"cat", "cat"}, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if double[0].Score != 2*single[0].Score {
		t.Fatalf("duplicate-term score = %v, want %v (2x single)", double[0].Score, 2*single[0].Score)
	}
}

func TestSearchMissingTermYieldsEmptySilently(t *testing.T) {
	metaPath := writeIndex(t)
	ctx := context.Background()

	engine, err := Open(ctx, metaPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer engine.Close()

	results, err := engine.Search([]string{"nonexistent"}, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search() for missing term = %v, want empty", results)
	}
}

func TestGetDocMetaRemovesDocIDField(t *testing.T) {
	metaPath := writeIndex(t)
	ctx := context.Background()

	engine, err := Open(ctx, metaPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer engine.Close()

	meta := engine.GetDocMeta(ctx, "en.wiki:1")
	if _, ok := meta["doc_id"]; ok {
		t.Fatalf("GetDocMeta() leaked doc_id field: %v", meta)
	}
	if meta["title"] != "Cats" {
		t.Fatalf("GetDocMeta() title = %v, want Cats", meta["title"])
	}
}

func TestGetDocMetaMissingDocReturnsEmptyMap(t *testing.T) {
	metaPath := writeIndex(t)
	ctx := context.Background()

	engine, err := Open(ctx, metaPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer engine.Close()

	meta := engine.GetDocMeta(ctx, "nonexistent")
	if len(meta) != 0 {
		t.Fatalf("GetDocMeta() for missing doc = %v, want empty map", meta)
	}
}

func TestOpenRejectsNonBlockFormat(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "index.meta.json")
	writeJSON(t, metaPath, map[string]any{"format": "columnar"})

	_, err := Open(context.Background(), metaPath)
	if !errors.Is(err, verr.ErrIndexNotReady) {
		t.Fatalf("Open() with non-block format error = %v, want ErrIndexNotReady", err)
	}
}

func TestOpenMissingMetaIsIndexNotReady(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), filepath.Join(dir, "missing.json"))
	if !errors.Is(err, verr.ErrIndexNotReady) {
		t.Fatalf("Open() with missing meta error = %v, want ErrIndexNotReady", err)
	}
}
