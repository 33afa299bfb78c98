package build

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/veridex/veridex/pkg/veridex/verr"
)

// blockCursor reads one sorted block file line by line, decoding each
// line's term and postings on demand.
type blockCursor struct {
	f  *os.File
	sc *bufio.Scanner
}

func openBlockCursor(path string) (*blockCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &blockCursor{f: f, sc: sc}, nil
}

// next returns the next (term, postings) pair, ok=false at EOF.
func (c *blockCursor) next() (term string, postings []rawPosting, ok bool, err error) {
	if !c.sc.Scan() {
		if serr := c.sc.Err(); serr != nil {
			return "", nil, false, fmt.Errorf("%w: %v", verr.ErrInternalIO, serr)
		}
		return "", nil, false, nil
	}

	line := c.sc.Text()
	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return "", nil, false, fmt.Errorf("%w: block line missing tab separator", verr.ErrMalformedRecord)
	}
	term = line[:tab]

	var tuples []([2]json.RawMessage)
	if err := json.Unmarshal([]byte(line[tab+1:]), &tuples); err != nil {
		return "", nil, false, fmt.Errorf("%w: %v", verr.ErrMalformedRecord, err)
	}

	postings = make([]rawPosting, len(tuples))
	for i, t := range tuples {
		var docUID string
		var tf float64
		if err := json.Unmarshal(t[0], &docUID); err != nil {
			return "", nil, false, fmt.Errorf("%w: %v", verr.ErrMalformedRecord, err)
		}
		if err := json.Unmarshal(t[1], &tf); err != nil {
			return "", nil, false, fmt.Errorf("%w: %v", verr.ErrMalformedRecord, err)
		}
		postings[i] = rawPosting{DocUID: docUID, TF: tf}
	}

	return term, postings, true, nil
}

func (c *blockCursor) close() error {
	return c.f.Close()
}
