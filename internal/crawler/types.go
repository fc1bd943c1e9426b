package crawler

import (
	"strconv"
	"strings"
)

// Cursor is the next catalog identifier to fetch.
type Cursor int64

// String renders the cursor as a decimal string.
func (c Cursor) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// IDRange is a contiguous, ascending slice of the identifier space: [Start, Start+Size).
type IDRange struct {
	Start Cursor
	Size  int
}

// RangeAt returns the batch that begins at cursor.
func RangeAt(cursor Cursor, size int) IDRange {
	return IDRange{Start: cursor, Size: size}
}

// End returns the exclusive upper bound of the range.
func (r IDRange) End() Cursor {
	return r.Start + Cursor(r.Size)
}

// Last returns the inclusive upper bound of the range.
func (r IDRange) Last() Cursor {
	return r.End() - 1
}

// IDs lists every identifier of the range in ascending order.
func (r IDRange) IDs() []Cursor {
	if r.Size <= 0 {
		return nil
	}
	ids := make([]Cursor, 0, r.Size)
	for id := r.Start; id < r.End(); id++ {
		ids = append(ids, id)
	}
	return ids
}

// Param joins the identifiers with commas, the form the catalog API expects.
func (r IDRange) Param() string {
	ids := r.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// UnknownName is used when an item carries no primary name.
const UnknownName = "N/A"

// Entity is one catalog item parsed from a batch response.
type Entity struct {
	ID       string
	Category string
	Name     string
	// Attributes holds the remaining item attributes; the crawler does not read them.
	Attributes map[string]string
}

// Progress is a point-in-time view of the crawl loop, served by the status endpoint.
type Progress struct {
	RunID           string `json:"run_id"`
	Cursor          Cursor `json:"cursor"`
	PersistedCursor Cursor `json:"persisted_cursor"`
	Batches         int64  `json:"batches"`
	Entities        int64  `json:"entities"`
	Published       int64  `json:"published"`
	PublishFailures int64  `json:"publish_failures"`
	FetchFailures   int64  `json:"fetch_failures"`
	StartedAt       string `json:"started_at"`
}
