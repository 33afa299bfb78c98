// Package spimi implements the per-batch SPIMI worker: it turns one
// byte-range batch of the corpus into a sorted block file and a
// metadata partition, the two transient inputs the finalizer merges.
package spimi

import "encoding/json"

// Posting is one term's occurrence weight in one document. It marshals
// as the two-element JSON tuple `[doc_uid, tf]` used by both block
// files and the final postings file.
type Posting struct {
	DocUID string
	TF     float64
}

func (p Posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.DocUID, p.TF})
}

func (p *Posting) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &p.DocUID); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &p.TF)
}

// docMetaLine is one line of a doc_store partition file.
type docMetaLine struct {
	DocID   string  `json:"doc_id"`
	DocUID  string  `json:"doc_uid"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet *string `json:"snippet"`
}

// Result is what a worker returns on batch completion.
type Result struct {
	BlockPath    string
	DocStorePath string
	DocsCount    int
}
