package build

import (
	"container/heap"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/veridex/veridex/pkg/veridex/docstore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFinalizeAppliesDFBoundsAndWritesTermsIndex(t *testing.T) {
	outDir := t.TempDir()

	block0 := filepath.Join(outDir, "block_000000.jsonl")
	writeFile(t, block0, "cat\t[[\"en.wiki:1\",0.5]]\ndog\t[[\"en.wiki:2\",0.5]]\n")
	block1 := filepath.Join(outDir, "block_000001.jsonl")
	writeFile(t, block1, "cat\t[[\"en.wiki:3\",0.3]]\n")

	part0 := filepath.Join(outDir, "doc_store_000000.jsonl")
	writeFile(t, part0, `{"doc_id":"1","doc_uid":"en.wiki:1","title":"A","url":"u1","snippet":"a"}`+"\n"+
		`{"doc_id":"2","doc_uid":"en.wiki:2","title":"B","url":"u2","snippet":"b"}`+"\n")
	part1 := filepath.Join(outDir, "doc_store_000001.jsonl")
	writeFile(t, part1, `{"doc_id":"3","doc_uid":"en.wiki:3","title":"C","url":"u3","snippet":"c"}`+"\n")

	meta, err := Finalize(context.Background(), outDir,
		[]string{block0, block1}, []string{part0, part1}, 3, 2, 1.0, true)
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	if meta.Format != "block" {
		t.Fatalf("meta.Format = %q, want block", meta.Format)
	}
	if meta.N != 3 {
		t.Fatalf("meta.N = %d, want 3", meta.N)
	}
	// dog has df=1 < MIN_DF=2, so only "cat" (df=2) survives.
	if meta.VocabSize != 1 {
		t.Fatalf("meta.VocabSize = %d, want 1", meta.VocabSize)
	}

	raw, err := os.ReadFile(meta.TermsIndexPath)
	if err != nil {
		t.Fatalf("read terms index: %v", err)
	}
	var terms map[string][2]int64
	if err := json.Unmarshal(raw, &terms); err != nil {
		t.Fatalf("decode terms index: %v", err)
	}
	span, ok := terms["cat"]
	if !ok {
		t.Fatal("terms index missing retained term \"cat\"")
	}
	if _, ok := terms["dog"]; ok {
		t.Fatal("terms index retained \"dog\" despite df below MIN_DF")
	}

	postings, err := os.ReadFile(meta.PostingsPath)
	if err != nil {
		t.Fatalf("read postings: %v", err)
	}
	offset, length := span[0], span[1]
	line := string(postings[offset : offset+length])
	if !strings.HasPrefix(line, "cat\t[") || !strings.HasSuffix(line, "]\n") {
		t.Fatalf("postings span for \"cat\" = %q, want prefix cat\\t[ and suffix ]\\n", line)
	}
}

func TestConcatPartitionsIsByteExact(t *testing.T) {
	dir := t.TempDir()
	p0 := filepath.Join(dir, "p0.jsonl")
	writeFile(t, p0, "line-one\n")
	p1 := filepath.Join(dir, "p1.jsonl")
	writeFile(t, p1, "line-two\n")

	out := filepath.Join(dir, "doc_store.jsonl")
	if err := concatPartitions([]string{p0, p1}, out); err != nil {
		t.Fatalf("concatPartitions() error: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read concatenated file: %v", err)
	}
	want := "line-one\nline-two\n"
	if string(got) != want {
		t.Fatalf("concatPartitions() = %q, want %q", got, want)
	}
}

func TestBuildDocOffsetIndexSkipsUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	docStorePath := filepath.Join(dir, "doc_store.jsonl")
	writeFile(t, docStorePath,
		`{"doc_id":"1","doc_uid":"en.wiki:1"}`+"\n"+
			"not json\n"+
			`{"doc_id":"2","doc_uid":"en.wiki:2"}`+"\n")

	docIndexPath := filepath.Join(dir, "doc_store.sqlite")
	ctx := context.Background()
	if err := buildDocOffsetIndex(ctx, docStorePath, docIndexPath); err != nil {
		t.Fatalf("buildDocOffsetIndex() error: %v", err)
	}

	store, err := docstore.Open(ctx, docIndexPath)
	if err != nil {
		t.Fatalf("docstore.Open() error: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Lookup(ctx, "en.wiki:1")
	if err != nil || !ok {
		t.Fatalf("Lookup(en.wiki:1) = (_, %v, %v), want found", ok, err)
	}
	_, ok, err = store.Lookup(ctx, "en.wiki:2")
	if err != nil || !ok {
		t.Fatalf("Lookup(en.wiki:2) = (_, %v, %v), want found", ok, err)
	}
}

func TestCleanupRemovesBlockAndPartitionFiles(t *testing.T) {
	dir := t.TempDir()
	blockDir := filepath.Join(dir, "blocks")
	os.MkdirAll(blockDir, 0o755)
	block := filepath.Join(blockDir, "block_000000.jsonl")
	writeFile(t, block, "cat\t[]\n")
	partDir := filepath.Join(dir, "doc_store_parts")
	os.MkdirAll(partDir, 0o755)
	part := filepath.Join(partDir, "doc_store_000000.jsonl")
	writeFile(t, part, "{}\n")

	cleanup([]string{block}, []string{part})

	if _, err := os.Stat(block); !os.IsNotExist(err) {
		t.Fatalf("cleanup() did not remove block file, stat err = %v", err)
	}
	if _, err := os.Stat(part); !os.IsNotExist(err) {
		t.Fatalf("cleanup() did not remove partition file, stat err = %v", err)
	}
}

func TestMergeHeapOrdersByTermThenBlockIndex(t *testing.T) {
	if strings.Compare("a", "b") >= 0 {
		t.Fatal("sanity check on string ordering failed")
	}

	h := &mergeHeap{}
	heap.Init(h)
	heap.Push(h, mergeItem{term: "b", blockIndex: 0})
	heap.Push(h, mergeItem{term: "a", blockIndex: 1})
	heap.Push(h, mergeItem{term: "a", blockIndex: 0})

	want := []mergeItem{{term: "a", blockIndex: 0}, {term: "a", blockIndex: 1}, {term: "b", blockIndex: 0}}
	for i, w := range want {
		got := heap.Pop(h).(mergeItem)
		if got.term != w.term || got.blockIndex != w.blockIndex {
			t.Fatalf("pop %d = (%q, %d), want (%q, %d)", i, got.term, got.blockIndex, w.term, w.blockIndex)
		}
	}
}
