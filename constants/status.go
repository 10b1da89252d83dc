package constants

// BatchState is the lifecycle state of a batch (stored verbatim in the DB).
type BatchState string

const (
	BatchStateUploaded BatchState = "UPLOADED"
	BatchStateReview   BatchState = "REVIEW"
	BatchStateSaved    BatchState = "SAVED"
	BatchStateExpired  BatchState = "EXPIRED"
)

// DocumentState is the lifecycle state of a staged document.
type DocumentState string

const (
	DocumentStateUploaded DocumentState = "UPLOADED"
	DocumentStateReview   DocumentState = "REVIEW"
	DocumentStateEdited   DocumentState = "EDITED"
)

// AuditOperation names an audited action.
type AuditOperation string

const (
	AuditUpload         AuditOperation = "Upload"
	AuditSubmit         AuditOperation = "Submit"
	AuditDelete         AuditOperation = "Delete"
	AuditInvoiceUpdated AuditOperation = "Invoice Updated"
	AuditExport         AuditOperation = "Export"
	AuditLayoutCreated  AuditOperation = "Layout Created"
	AuditLayoutUpdated  AuditOperation = "Layout Updated"
)
