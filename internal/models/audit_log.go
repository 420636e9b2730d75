// internal/models/audit_log.go
package models

import (
	"github.com/google/uuid"
)

// AuditLog is one mutating API call: who made it, against which marketplace
// resource, and how it ended. Sensitive body fields are scrubbed before the
// row is written.
type AuditLog struct {
	BaseModel
	ActorID    *uuid.UUID `json:"actor_id,omitempty" gorm:"type:uuid;index"`
	RequestID  string     `json:"request_id" gorm:"size:36;index"`
	Method     string     `json:"method" gorm:"size:10;not null"`
	Route      string     `json:"route" gorm:"size:150;not null;index"`
	Resource   string     `json:"resource" gorm:"size:50;not null;index:idx_audit_logs_resource"`
	ResourceID *uuid.UUID `json:"resource_id,omitempty" gorm:"type:uuid;index:idx_audit_logs_resource"`
	Payload    JSONB      `json:"payload,omitempty" gorm:"type:jsonb"`
	StatusCode int        `json:"status_code"`
	DurationMS int64      `json:"duration_ms"`
	ClientIP   string     `json:"client_ip" gorm:"size:45"`
	UserAgent  string     `json:"user_agent" gorm:"size:512"`
}

// Succeeded reports whether the audited call returned a 2xx status.
func (a *AuditLog) Succeeded() bool {
	return a.StatusCode >= 200 && a.StatusCode < 300
}
