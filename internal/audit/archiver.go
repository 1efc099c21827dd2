package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/storage"
)

// ArchivedRecord is the JSON shape of one audit row inside an archive batch.
type ArchivedRecord struct {
	AuditID     string    `json:"auditId"`
	CallerID    string    `json:"callerId,omitempty"`
	Mode        string    `json:"mode"`
	Instruction string    `json:"instruction"`
	Generated   string    `json:"generated,omitempty"`
	Sanitized   string    `json:"sanitized,omitempty"`
	Outcome     string    `json:"outcome"`
	Success     bool      `json:"success"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Archiver moves audit rows to object storage in batches. Each run uploads
// one JSON document per pipeline mode and stamps the rows archived inside a
// single transaction, so a failed upload leaves the rows eligible for the
// next run.
type Archiver struct {
	db        *sql.DB
	store     storage.ObjectStore
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewArchiver(db *sql.DB, store storage.ObjectStore, batchSize int, logger *slog.Logger) *Archiver {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Archiver{db: db, store: store, batchSize: batchSize, logger: logger, now: time.Now}
}

// ArchiveOnce archives up to one batch of pending rows and reports how many
// rows it shipped. A zero count with a nil error means nothing was pending.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	records, err := a.pendingRecords(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	archivedAt := a.now().UTC()
	for mode, batch := range groupByMode(records) {
		if err := a.upload(ctx, mode, archivedAt, batch); err != nil {
			return 0, err
		}
	}

	if err := a.markArchived(ctx, tx, records, archivedAt); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive transaction: %w", err)
	}

	observability.AddAuditArchived(len(records))
	a.logger.Info("audit batch archived", slog.Int("records", len(records)))
	return len(records), nil
}

// Run archives on a fixed interval until the context is canceled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("audit archival failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Archiver) pendingRecords(ctx context.Context, tx *sql.Tx) ([]ArchivedRecord, error) {
	query := `
SELECT audit_id, caller_id, mode, instruction, generated, sanitized, outcome, success, created_at
FROM chat_audit
WHERE archived_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, a.batchSize)
	if err != nil {
		return nil, fmt.Errorf("select pending audit rows: %w", err)
	}
	defer rows.Close()

	var records []ArchivedRecord
	for rows.Next() {
		var rec ArchivedRecord
		var callerID, generated, sanitized sql.NullString
		if err := rows.Scan(&rec.AuditID, &callerID, &rec.Mode, &rec.Instruction,
			&generated, &sanitized, &rec.Outcome, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		rec.CallerID = callerID.String
		rec.Generated = generated.String
		rec.Sanitized = sanitized.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (a *Archiver) upload(ctx context.Context, mode string, archivedAt time.Time, batch []ArchivedRecord) error {
	key, err := storage.BuildAuditArchivePath(mode, archivedAt, uuid.NewString())
	if err != nil {
		return err
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal audit batch: %w", err)
	}
	if _, err := a.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)),
		storage.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("upload audit batch: %w", err)
	}
	return nil
}

func (a *Archiver) markArchived(ctx context.Context, tx *sql.Tx, records []ArchivedRecord, archivedAt time.Time) error {
	placeholders := make([]string, len(records))
	args := make([]any, 0, len(records)+1)
	args = append(args, archivedAt)
	for i, rec := range records {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, rec.AuditID)
	}
	query := fmt.Sprintf("UPDATE chat_audit SET archived_at = $1 WHERE audit_id IN (%s)",
		strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark audit rows archived: %w", err)
	}
	return nil
}

func groupByMode(records []ArchivedRecord) map[string][]ArchivedRecord {
	grouped := make(map[string][]ArchivedRecord)
	for _, rec := range records {
		grouped[rec.Mode] = append(grouped[rec.Mode], rec)
	}
	return grouped
}
