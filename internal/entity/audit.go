package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// AuditEvent is one persisted audit record.
type AuditEvent struct {
	ID        string                   `json:"id"`
	Operation constants.AuditOperation `json:"operation"`
	Username  string                   `json:"username"`
	FileName  string                   `json:"fileName"`
	Content   string                   `json:"fileContent,omitempty"`
	RequestID string                   `json:"requestId,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}
