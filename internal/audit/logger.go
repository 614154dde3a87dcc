package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/revision/internal/model"
	"github.com/emrgen/revision/internal/store"
)

// Logger writes audit entries on a best-effort path. A failed write is
// logged locally and dropped; it never fails the primary operation.
type Logger struct {
	store store.AuditStore
}

func NewLogger(auditStore store.AuditStore) *Logger {
	return &Logger{store: auditStore}
}

// Entry captures what a mutating operation wants recorded.
type Entry struct {
	TenantID  string
	VersionID string
	ActorID   string
	Action    model.AuditAction
	IPAddress string
	UserAgent string
	Details   map[string]any
	// PayloadTexts feed the sensitivity classifier.
	PayloadTexts []string
}

// Record persists the entry outside the caller's transaction. Errors
// are swallowed by design of the audit path.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	details := "{}"
	if entry.Details != nil {
		if data, err := json.Marshal(entry.Details); err == nil {
			details = string(data)
		}
	}

	row := &model.AuditLogEntry{
		ID:                 uuid.New().String(),
		TenantID:           entry.TenantID,
		VersionID:          entry.VersionID,
		ActorID:            entry.ActorID,
		Action:             entry.Action,
		IPAddress:          entry.IPAddress,
		UserAgent:          entry.UserAgent,
		Details:            details,
		DataClassification: Classify(entry.PayloadTexts...),
		CreatedAt:          time.Now(),
	}

	if err := l.store.CreateAuditEntry(ctx, row); err != nil {
		logrus.Errorf("audit write failed for action %s on version %s: %v", entry.Action, entry.VersionID, err)
	}
}
