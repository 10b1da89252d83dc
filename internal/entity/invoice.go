package entity

import "time"

// Invoice is a committed, durable invoice.
type Invoice struct {
	ID        string          `json:"id"`
	Filename  string          `json:"fileName"`
	FileType  string          `json:"fileType"`
	Content   []byte          `json:"-"`
	Layout    string          `json:"layout"`
	Metadata  InvoiceMetadata `json:"invoiceMetadata"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CommitResult carries every outcome bucket of a commit.
type CommitResult struct {
	Saved           []Invoice        `json:"savedInvoices"`
	Duplicated      []Invoice        `json:"duplicatedInvoices"`
	NotFound        []string         `json:"notFoundBatchProcessFileIds"`
	SavedDocuments  []StagedDocument `json:"savedBatchProcessFiles"`
	FailedDocuments []StagedDocument `json:"failedBatchProcessFiles"`
}
