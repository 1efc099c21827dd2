package library

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("library: not found")
	ErrInvalidAmount = errors.New("library: fine amount must be positive")
)

// Store is the persistence contract for the three library entities. The chat
// dispatch table and the REST handlers are both expressed against it.
type Store interface {
	HealthCheck(ctx context.Context) error

	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	QueryUsers(ctx context.Context, filter UserFilter) ([]User, error)
	CountUsers(ctx context.Context, filter UserFilter) (int64, error)
	EnsureUser(ctx context.Context, in CreateUserInput) (User, bool, error)
	ListRecentUsers(ctx context.Context, limit int) ([]User, error)

	CreateBook(ctx context.Context, in CreateBookInput) (Book, error)
	CreateBooks(ctx context.Context, in []CreateBookInput) (int64, error)
	GetBookByID(ctx context.Context, id string) (Book, error)
	QueryBooks(ctx context.Context, filter BookFilter) ([]Book, error)
	CountBooks(ctx context.Context, filter BookFilter) (int64, error)

	CreateFine(ctx context.Context, in CreateFineInput) (Fine, error)
	GetFineByID(ctx context.Context, id string) (Fine, error)
	QueryFines(ctx context.Context, filter FineFilter) ([]Fine, error)
	CountFines(ctx context.Context, filter FineFilter) (int64, error)
	SumFineAmounts(ctx context.Context, filter FineFilter) (float64, error)
	MarkFinePaid(ctx context.Context, id string) (Fine, error)
	ListRecentFines(ctx context.Context, limit int) ([]FineWithUser, error)

	Summary(ctx context.Context) (Summary, error)
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Genre         *string    `json:"genre,omitempty"`
	PublishedYear *int       `json:"publishedYear,omitempty"`
	Available     bool       `json:"available"`
	BorrowerID    *string    `json:"borrowerId,omitempty"`
	BorrowDate    *time.Time `json:"borrowDate,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

type Fine struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Reason    *string   `json:"reason,omitempty"`
	Paid      bool      `json:"paid"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type FineWithUser struct {
	Fine Fine `json:"fine"`
	User User `json:"user"`
}

type Summary struct {
	Users           int64   `json:"users"`
	Books           int64   `json:"books"`
	Borrowed        int64   `json:"borrowed"`
	UnpaidFineTotal float64 `json:"unpaidFineTotal"`
}

// StringMatch expresses either an exact or a substring (case-insensitive)
// filter on a text column. At most one side is set.
type StringMatch struct {
	Equals   *string
	Contains *string
}

func (m StringMatch) IsZero() bool {
	return m.Equals == nil && m.Contains == nil
}

func Equals(value string) StringMatch {
	return StringMatch{Equals: &value}
}

func Contains(value string) StringMatch {
	return StringMatch{Contains: &value}
}

type BookSort string

const (
	BookSortRecent     BookSort = "recent"
	BookSortTitleAsc   BookSort = "title_asc"
	BookSortTitleDesc  BookSort = "title_desc"
	BookSortAuthorAsc  BookSort = "author_asc"
	BookSortAuthorDesc BookSort = "author_desc"
)

type UserFilter struct {
	ID    *string
	Email *string
	Name  StringMatch
	Limit int
}

type BookFilter struct {
	ID            *string
	Title         StringMatch
	Author        StringMatch
	Genre         StringMatch
	PublishedYear *int
	Available     *bool
	BorrowerID    *string
	// Search matches title or author, substring, case-insensitive.
	Search string
	Sort   BookSort
	Limit  int
}

type FineFilter struct {
	ID     *string
	UserID *string
	Paid   *bool
	Limit  int
}

type CreateUserInput struct {
	ID    string
	Email string
	Name  *string
}

type CreateBookInput struct {
	ID            string
	Title         string
	Author        string
	Genre         *string
	PublishedYear *int
	Available     *bool
	BorrowerID    *string
	BorrowDate    *time.Time
	DueDate       *time.Time
}

type CreateFineInput struct {
	ID     string
	Amount float64
	Reason *string
	Paid   *bool
	UserID string
}
