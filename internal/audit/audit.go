// Package audit persists one record per chat pipeline run and ships batches
// of records to object storage for long-term retention.
package audit

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookwise/bookwise/internal/chat"
	"github.com/bookwise/bookwise/internal/observability"
)

// Recorder writes chat audit rows. Recording is best effort: a failed insert
// is logged and dropped, never surfaced to the chat caller.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecorder(db *sql.DB, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, entry chat.AuditEntry) {
	query := `
INSERT INTO chat_audit (audit_id, caller_id, mode, instruction, generated, sanitized, outcome, success)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		nullableText(entry.CallerID),
		string(entry.Mode),
		entry.Instruction,
		nullableText(entry.Generated),
		nullableText(entry.Sanitized),
		string(entry.Outcome),
		entry.Success,
	)
	if err != nil {
		r.logger.Error("audit record dropped", slog.String("error", err.Error()))
		return
	}
	observability.IncrementAuditRecords()
}

func nullableText(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
