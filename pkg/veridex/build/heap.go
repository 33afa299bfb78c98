package build

import "container/heap"

// mergeItem is one (term, blockIndex) pair popped from the merge heap,
// carrying the postings line it came from.
type mergeItem struct {
	term       string
	blockIndex int
	postings   []rawPosting
}

// rawPosting is a (doc_uid, tf) pair as decoded from a block line,
// kept untyped relative to spimi.Posting so the finalizer can re-encode
// it without importing the spimi package's JSON tag machinery twice.
type rawPosting struct {
	DocUID string
	TF     float64
}

// mergeHeap is a min-heap of mergeItems ordered by term lexicographically,
// then by block index — the tie-break that gives stable left-to-right
// block ordering for equal terms.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].blockIndex < h[j].blockIndex
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(mergeItem))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*mergeHeap)(nil)
