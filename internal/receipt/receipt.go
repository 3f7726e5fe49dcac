package receipt

import (
	"time"

	"github.com/receiptradar/receiptradar/internal/extraction"
)

// Status tracks a receipt through its processing state machine. A receipt
// is created as StatusProcessing and moves exactly once to StatusCompleted
// or StatusError; both are terminal.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Receipt represents an uploaded receipt image and its derived data
type Receipt struct {
	ID            string                   `json:"id"`
	Filename      string                   `json:"filename"`
	UploadDate    time.Time                `json:"uploadDate"`
	ContentType   string                   `json:"contentType"`
	StoredPath    string                   `json:"storedPath,omitempty"`
	ExtractedData extraction.ExtractedData `json:"extractedData"`
	Status        Status                   `json:"status"`
}

// Clone returns a deep copy so callers can mutate freely without racing
// the store.
func (r *Receipt) Clone() *Receipt {
	c := *r
	if r.ExtractedData.Total != nil {
		total := *r.ExtractedData.Total
		c.ExtractedData.Total = &total
	}
	if r.ExtractedData.Items != nil {
		c.ExtractedData.Items = make([]extraction.LineItem, len(r.ExtractedData.Items))
		copy(c.ExtractedData.Items, r.ExtractedData.Items)
	}
	return &c
}
