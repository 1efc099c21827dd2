package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bookwise/bookwise/internal/library"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping library db: %w", err)
	}
	return nil
}

const userColumns = "user_id, email, name, created_at"

func (r *Repository) CreateUser(ctx context.Context, in library.CreateUserInput) (library.User, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
INSERT INTO library_user (user_id, email, name)
VALUES ($1, $2, $3)
RETURNING created_at`

	user := library.User{ID: id, Email: in.Email, Name: in.Name}
	if err := r.db.QueryRowContext(ctx, query, id, in.Email, in.Name).Scan(&user.CreatedAt); err != nil {
		return library.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (library.User, error) {
	query := `
SELECT user_id, email, name, created_at
FROM library_user
WHERE user_id = $1`
	return r.scanUserRow(r.db.QueryRowContext(ctx, query, id), "get user")
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (library.User, error) {
	query := `
SELECT user_id, email, name, created_at
FROM library_user
WHERE email = $1`
	return r.scanUserRow(r.db.QueryRowContext(ctx, query, email), "get user by email")
}

func (r *Repository) scanUserRow(row *sql.Row, op string) (library.User, error) {
	var user library.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.User{}, library.ErrNotFound
		}
		return library.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (r *Repository) QueryUsers(ctx context.Context, filter library.UserFilter) ([]library.User, error) {
	where, args := buildUserWhere(filter)
	query := "\nSELECT " + userColumns + "\nFROM library_user" + where + "\nORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]library.User, 0)
	for rows.Next() {
		var user library.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

func (r *Repository) CountUsers(ctx context.Context, filter library.UserFilter) (int64, error) {
	where, args := buildUserWhere(filter)
	query := "\nSELECT COUNT(*)\nFROM library_user" + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// EnsureUser creates the user row for an authenticated caller on first
// contact. The bool reports whether a new row was inserted.
func (r *Repository) EnsureUser(ctx context.Context, in library.CreateUserInput) (library.User, bool, error) {
	existing, err := r.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, library.ErrNotFound) {
		return library.User{}, false, err
	}

	user, err := r.CreateUser(ctx, in)
	if err != nil {
		return library.User{}, false, err
	}
	return user, true, nil
}

func (r *Repository) ListRecentUsers(ctx context.Context, limit int) ([]library.User, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.QueryUsers(ctx, library.UserFilter{Limit: limit})
}

const bookColumns = "book_id, title, author, genre, published_year, available, borrower_id, borrow_date, due_date"

func (r *Repository) CreateBook(ctx context.Context, in library.CreateBookInput) (library.Book, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}

	query := `
INSERT INTO book (book_id, title, author, genre, published_year, available, borrower_id, borrow_date, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.db.ExecContext(ctx, query,
		id, in.Title, in.Author, in.Genre, in.PublishedYear, available, in.BorrowerID, in.BorrowDate, in.DueDate,
	); err != nil {
		return library.Book{}, fmt.Errorf("create book: %w", err)
	}
	return library.Book{
		ID:            id,
		Title:         in.Title,
		Author:        in.Author,
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
		Available:     available,
		BorrowerID:    in.BorrowerID,
		BorrowDate:    in.BorrowDate,
		DueDate:       in.DueDate,
	}, nil
}

func (r *Repository) CreateBooks(ctx context.Context, in []library.CreateBookInput) (int64, error) {
	created := int64(0)
	for _, input := range in {
		if _, err := r.CreateBook(ctx, input); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (r *Repository) GetBookByID(ctx context.Context, id string) (library.Book, error) {
	query := "\nSELECT " + bookColumns + "\nFROM book\nWHERE book_id = $1"

	var book library.Book
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID, &book.Title, &book.Author, &book.Genre, &book.PublishedYear,
		&book.Available, &book.BorrowerID, &book.BorrowDate, &book.DueDate,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Book{}, library.ErrNotFound
		}
		return library.Book{}, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (r *Repository) QueryBooks(ctx context.Context, filter library.BookFilter) ([]library.Book, error) {
	where, args := buildBookWhere(filter)
	query := "\nSELECT " + bookColumns + "\nFROM book" + where + "\nORDER BY " + bookOrderClause(filter.Sort)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	books := make([]library.Book, 0)
	for rows.Next() {
		var book library.Book
		if err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.Genre, &book.PublishedYear,
			&book.Available, &book.BorrowerID, &book.BorrowDate, &book.DueDate,
		); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book rows: %w", err)
	}
	return books, nil
}

func (r *Repository) CountBooks(ctx context.Context, filter library.BookFilter) (int64, error) {
	where, args := buildBookWhere(filter)
	query := "\nSELECT COUNT(*)\nFROM book" + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

const fineColumns = "fine_id, amount, reason, paid, user_id, created_at"

func (r *Repository) CreateFine(ctx context.Context, in library.CreateFineInput) (library.Fine, error) {
	if in.Amount <= 0 {
		return library.Fine{}, library.ErrInvalidAmount
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	paid := false
	if in.Paid != nil {
		paid = *in.Paid
	}

	query := `
INSERT INTO fine (fine_id, amount, reason, paid, user_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`

	fine := library.Fine{ID: id, Amount: in.Amount, Reason: in.Reason, Paid: paid, UserID: in.UserID}
	if err := r.db.QueryRowContext(ctx, query, id, in.Amount, in.Reason, paid, in.UserID).Scan(&fine.CreatedAt); err != nil {
		return library.Fine{}, fmt.Errorf("create fine: %w", err)
	}
	return fine, nil
}

func (r *Repository) GetFineByID(ctx context.Context, id string) (library.Fine, error) {
	query := "\nSELECT " + fineColumns + "\nFROM fine\nWHERE fine_id = $1"

	var fine library.Fine
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&fine.ID, &fine.Amount, &fine.Reason, &fine.Paid, &fine.UserID, &fine.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Fine{}, library.ErrNotFound
		}
		return library.Fine{}, fmt.Errorf("get fine: %w", err)
	}
	return fine, nil
}

func (r *Repository) QueryFines(ctx context.Context, filter library.FineFilter) ([]library.Fine, error) {
	where, args := buildFineWhere(filter)
	query := "\nSELECT " + fineColumns + "\nFROM fine" + where + "\nORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fines := make([]library.Fine, 0)
	for rows.Next() {
		var fine library.Fine
		if err := rows.Scan(&fine.ID, &fine.Amount, &fine.Reason, &fine.Paid, &fine.UserID, &fine.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fine row: %w", err)
		}
		fines = append(fines, fine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fine rows: %w", err)
	}
	return fines, nil
}

func (r *Repository) CountFines(ctx context.Context, filter library.FineFilter) (int64, error) {
	where, args := buildFineWhere(filter)
	query := "\nSELECT COUNT(*)\nFROM fine" + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count fines: %w", err)
	}
	return count, nil
}

func (r *Repository) SumFineAmounts(ctx context.Context, filter library.FineFilter) (float64, error) {
	where, args := buildFineWhere(filter)
	query := "\nSELECT COALESCE(SUM(amount), 0)\nFROM fine" + where

	var total float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum fine amounts: %w", err)
	}
	return total, nil
}

func (r *Repository) MarkFinePaid(ctx context.Context, id string) (library.Fine, error) {
	query := `
UPDATE fine
SET paid = TRUE
WHERE fine_id = $1
RETURNING fine_id, amount, reason, paid, user_id, created_at`

	var fine library.Fine
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&fine.ID, &fine.Amount, &fine.Reason, &fine.Paid, &fine.UserID, &fine.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Fine{}, library.ErrNotFound
		}
		return library.Fine{}, fmt.Errorf("mark fine paid: %w", err)
	}
	return fine, nil
}

func (r *Repository) ListRecentFines(ctx context.Context, limit int) ([]library.FineWithUser, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
SELECT f.fine_id, f.amount, f.reason, f.paid, f.user_id, f.created_at,
       u.user_id, u.email, u.name, u.created_at
FROM fine f
JOIN library_user u ON u.user_id = f.user_id
ORDER BY f.created_at DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent fines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fines := make([]library.FineWithUser, 0, limit)
	for rows.Next() {
		var entry library.FineWithUser
		if err := rows.Scan(
			&entry.Fine.ID, &entry.Fine.Amount, &entry.Fine.Reason, &entry.Fine.Paid, &entry.Fine.UserID, &entry.Fine.CreatedAt,
			&entry.User.ID, &entry.User.Email, &entry.User.Name, &entry.User.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recent fine row: %w", err)
		}
		fines = append(fines, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent fine rows: %w", err)
	}
	return fines, nil
}

func (r *Repository) Summary(ctx context.Context) (library.Summary, error) {
	query := `
SELECT
  (SELECT COUNT(*) FROM library_user),
  (SELECT COUNT(*) FROM book),
  (SELECT COUNT(*) FROM book WHERE available = FALSE),
  (SELECT COALESCE(SUM(amount), 0) FROM fine WHERE paid = FALSE)`

	var summary library.Summary
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&summary.Users, &summary.Books, &summary.Borrowed, &summary.UnpaidFineTotal,
	); err != nil {
		return library.Summary{}, fmt.Errorf("load summary: %w", err)
	}
	return summary, nil
}

type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *whereBuilder) addMatch(column string, match library.StringMatch) {
	switch {
	case match.Equals != nil:
		b.add(column, *match.Equals)
	case match.Contains != nil:
		b.args = append(b.args, *match.Contains)
		b.clauses = append(b.clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, len(b.args)))
	}
}

func (b *whereBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return "\nWHERE " + strings.Join(b.clauses, " AND ")
}

func buildUserWhere(filter library.UserFilter) (string, []any) {
	b := &whereBuilder{}
	if filter.ID != nil {
		b.add("user_id", *filter.ID)
	}
	if filter.Email != nil {
		b.add("email", *filter.Email)
	}
	b.addMatch("name", filter.Name)
	return b.where(), b.args
}

func buildBookWhere(filter library.BookFilter) (string, []any) {
	b := &whereBuilder{}
	if filter.ID != nil {
		b.add("book_id", *filter.ID)
	}
	b.addMatch("title", filter.Title)
	b.addMatch("author", filter.Author)
	b.addMatch("genre", filter.Genre)
	if filter.PublishedYear != nil {
		b.add("published_year", *filter.PublishedYear)
	}
	if filter.Available != nil {
		b.add("available", *filter.Available)
	}
	if filter.BorrowerID != nil {
		b.add("borrower_id", *filter.BorrowerID)
	}
	if filter.Search != "" {
		b.args = append(b.args, filter.Search)
		n := len(b.args)
		b.clauses = append(b.clauses, fmt.Sprintf("(title ILIKE '%%' || $%d || '%%' OR author ILIKE '%%' || $%d || '%%')", n, n))
	}
	return b.where(), b.args
}

func bookOrderClause(sort library.BookSort) string {
	switch sort {
	case library.BookSortTitleAsc:
		return "title ASC"
	case library.BookSortTitleDesc:
		return "title DESC"
	case library.BookSortAuthorAsc:
		return "author ASC"
	case library.BookSortAuthorDesc:
		return "author DESC"
	default:
		return "book_id DESC"
	}
}

func buildFineWhere(filter library.FineFilter) (string, []any) {
	b := &whereBuilder{}
	if filter.ID != nil {
		b.add("fine_id", *filter.ID)
	}
	if filter.UserID != nil {
		b.add("user_id", *filter.UserID)
	}
	if filter.Paid != nil {
		b.add("paid", *filter.Paid)
	}
	return b.where(), b.args
}
