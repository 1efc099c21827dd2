package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/bookwise/bookwise/internal/storage"
)

type fakeObjectStore struct {
	putKeys   []string
	putBodies [][]byte
	putErr    error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.putKeys = append(f.putKeys, key)
	f.putBodies = append(f.putBodies, data)
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func newArchiverMock(t *testing.T, store storage.ObjectStore, batchSize int) (sqlmock.Sqlmock, func(), *Archiver) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	archiver := NewArchiver(db, store, batchSize, slog.New(slog.NewTextHandler(io.Discard, nil)))
	archiver.now = func() time.Time {
		return time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
	}
	return mock, cleanup, archiver
}

func pendingColumns() []string {
	return []string{"audit_id", "caller_id", "mode", "instruction", "generated", "sanitized", "outcome", "success", "created_at"}
}

func TestArchiveOnceShipsBatch(t *testing.T) {
	store := &fakeObjectStore{}
	mock, cleanup, archiver := newArchiverMock(t, store, 500)
	defer cleanup()

	createdAt := time.Date(2025, time.March, 6, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE archived_at IS NULL")).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows(pendingColumns()).
			AddRow("a-1", "U1", "mixed", "add a book", "book.create({})", "book.create({})", "mutation_success", true, createdAt).
			AddRow("a-2", nil, "mixed", "list books", "book.findMany({})", "book.findMany({})", "read_success", true, createdAt))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chat_audit SET archived_at = $1 WHERE audit_id IN ($2, $3)")).
		WithArgs(sqlmock.AnyArg(), "a-1", "a-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := archiver.ArchiveOnce(context.Background())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 archived rows, got %d", count)
	}
	if len(store.putKeys) != 1 {
		t.Fatalf("expected one uploaded batch, got %d", len(store.putKeys))
	}
	if !strings.HasPrefix(store.putKeys[0], "chat-audit/mode=mixed/date=2025-03-07/batch-") {
		t.Fatalf("unexpected archive key %q", store.putKeys[0])
	}

	var batch []ArchivedRecord
	if err := json.Unmarshal(store.putBodies[0], &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch) != 2 || batch[0].AuditID != "a-1" || batch[1].Instruction != "list books" {
		t.Fatalf("unexpected batch %#v", batch)
	}
	if batch[1].CallerID != "" {
		t.Fatalf("expected empty caller for anonymous row, got %q", batch[1].CallerID)
	}
}

func TestArchiveOnceNothingPending(t *testing.T) {
	store := &fakeObjectStore{}
	mock, cleanup, archiver := newArchiverMock(t, store, 500)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE archived_at IS NULL")).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows(pendingColumns()))
	mock.ExpectRollback()

	count, err := archiver.ArchiveOnce(context.Background())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	if len(store.putKeys) != 0 {
		t.Fatal("nothing should be uploaded")
	}
}

func TestArchiveOnceUploadFailureLeavesRowsPending(t *testing.T) {
	store := &fakeObjectStore{putErr: errors.New("bucket unavailable")}
	mock, cleanup, archiver := newArchiverMock(t, store, 10)
	defer cleanup()

	createdAt := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE archived_at IS NULL")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(pendingColumns()).
			AddRow("a-1", "U1", "read_only", "list books", "book.findMany({})", "book.findMany({})", "read_success", true, createdAt))
	mock.ExpectRollback()

	if _, err := archiver.ArchiveOnce(context.Background()); err == nil {
		t.Fatal("expected upload error to surface")
	}
}

func TestArchiveBatchBody(t *testing.T) {
	rec := ArchivedRecord{
		AuditID:     "a-1",
		Mode:        "mixed",
		Instruction: "list books",
		Outcome:     "read_success",
		Success:     true,
		CreatedAt:   time.Date(2025, time.March, 6, 9, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal([]ArchivedRecord{rec})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(data, []byte("callerId")) {
		t.Fatal("empty caller must be omitted")
	}
	if !bytes.Contains(data, []byte(`"outcome":"read_success"`)) {
		t.Fatalf("unexpected body %s", data)
	}
}
