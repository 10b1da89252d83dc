package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Batch groups the staged documents produced by one upload.
type Batch struct {
	ID             string               `json:"id"`
	State          constants.BatchState `json:"state"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	ExpirationDate time.Time            `json:"expirationDate"`
}

// Expired reports whether the batch is past its expiration at now.
func (b Batch) Expired(now time.Time) bool {
	return !b.ExpirationDate.After(now)
}

// StagedDocument is one extracted document awaiting review.
type StagedDocument struct {
	ID         string                  `json:"id"`
	BatchID    string                  `json:"batchId"`
	Filename   string                  `json:"filename"`
	FileType   string                  `json:"fileType"`
	Content    []byte                  `json:"-"`
	Layout     string                  `json:"layout"`
	Metadata   InvoiceMetadata         `json:"metadata"`
	State      constants.DocumentState `json:"state"`
	Comment    string                  `json:"comment,omitempty"`
	CostCenter string                  `json:"costCenter,omitempty"`
	Extracted  bool                    `json:"extracted"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// StagedSummary is the review view of a staged document.
type StagedSummary struct {
	FileID   string                  `json:"fileId"`
	Filename string                  `json:"filename"`
	State    constants.DocumentState `json:"state"`
	Metadata *InvoiceMetadata        `json:"metadata,omitempty"`
}

// Summary builds the review view of d.
func (d StagedDocument) Summary() StagedSummary {
	md := d.Metadata
	return StagedSummary{
		FileID:   d.ID,
		Filename: d.Filename,
		State:    d.State,
		Metadata: &md,
	}
}
