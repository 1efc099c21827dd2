package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/bookwise/bookwise/internal/chat"
)

func newSQLMock(t *testing.T) (sqlmock.Sqlmock, func(), *Recorder) {
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
	return mock, cleanup, NewRecorder(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecorderInsertsRow(t *testing.T) {
	mock, cleanup, recorder := newSQLMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_audit")).
		WithArgs(sqlmock.AnyArg(), "U1", "mixed", "add the book Foundation",
			`book.create({ data: { title: "Foundation" } })`,
			`book.create({ data: { title: "Foundation" } })`,
			"mutation_success", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder.Record(context.Background(), chat.AuditEntry{
		CallerID:    "U1",
		Mode:        chat.ModeMixed,
		Instruction: "add the book Foundation",
		Generated:   `book.create({ data: { title: "Foundation" } })`,
		Sanitized:   `book.create({ data: { title: "Foundation" } })`,
		Outcome:     chat.OutcomeMutationSuccess,
		Success:     true,
	})
}

func TestRecorderStoresEmptyFieldsAsNull(t *testing.T) {
	mock, cleanup, recorder := newSQLMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_audit")).
		WithArgs(sqlmock.AnyArg(), nil, "read_only", "delete all my fines",
			nil, nil, "unsafe_rejected", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder.Record(context.Background(), chat.AuditEntry{
		Mode:        chat.ModeReadOnly,
		Instruction: "delete all my fines",
		Outcome:     chat.OutcomeUnsafeRejected,
		Success:     false,
	})
}

func TestRecorderSwallowsInsertFailure(t *testing.T) {
	mock, cleanup, recorder := newSQLMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_audit")).
		WillReturnError(errors.New("connection reset"))

	// Must not panic or surface the error.
	recorder.Record(context.Background(), chat.AuditEntry{
		Mode:        chat.ModeMixed,
		Instruction: "list books",
		Outcome:     chat.OutcomeReadSuccess,
		Success:     true,
	})
}
