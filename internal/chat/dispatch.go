package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bookwise/bookwise/internal/library"
)

// Dispatcher maps parsed calls onto typed library store operations. The set of
// entity/operation pairs is closed: anything outside the table is an error,
// and write operations are only reachable when the policy allows mutations.
// Generated code is never evaluated.
type Dispatcher struct {
	store  library.Store
	policy Policy
}

func NewDispatcher(store library.Store, policy Policy) *Dispatcher {
	return &Dispatcher{store: store, policy: policy}
}

// Dispatch executes one call on behalf of callerID. It returns the raw result
// value (an entity, a slice, a count object, or an aggregate object), a flag
// indicating whether the call mutated data, and any store error. A not-found
// single-record lookup returns a nil result rather than an error.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call, callerID string) (any, bool, error) {
	writeOp := call.Operation == "create" || call.Operation == "createMany"
	if writeOp && !d.policy.AllowMutations {
		return nil, false, fmt.Errorf("operation %q is not permitted", call.Operation)
	}

	switch call.Entity {
	case "user":
		res, err := d.dispatchUser(ctx, call)
		return res, writeOp, err
	case "book":
		res, err := d.dispatchBook(ctx, call)
		return res, writeOp, err
	case "fine":
		res, err := d.dispatchFine(ctx, call, callerID)
		return res, writeOp, err
	default:
		return nil, false, fmt.Errorf("unknown entity %q", call.Entity)
	}
}

func (d *Dispatcher) dispatchUser(ctx context.Context, call Call) (any, error) {
	switch call.Operation {
	case "findUnique":
		where, _ := childObject(call.Args, "where")
		if err := uniqueWhere("user", where); err != nil {
			return nil, err
		}
		if id, ok := stringField(where, "id"); ok {
			return notFoundToNil(d.store.GetUserByID(ctx, id))
		}
		if email, ok := stringField(where, "email"); ok {
			return notFoundToNil(d.store.GetUserByEmail(ctx, email))
		}
		return nil, errors.New("user.findUnique requires a string id or email")
	case "findFirst", "findMany":
		filter, err := d.userFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.runMany(func() (any, error) {
			users, err := d.store.QueryUsers(ctx, filter)
			return anySlice(users), err
		}, call.Operation == "findFirst", &filter.Limit)
	case "count":
		filter, err := d.userFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.store.CountUsers(ctx, filter)
	case "create":
		data, ok := childObject(call.Args, "data")
		if !ok {
			return nil, errors.New("user.create requires a data object")
		}
		in, err := userCreateInput(data)
		if err != nil {
			return nil, err
		}
		return d.store.CreateUser(ctx, in)
	case "createMany":
		items, err := dataList(call.Args)
		if err != nil {
			return nil, err
		}
		var created int64
		for _, item := range items {
			in, err := userCreateInput(item)
			if err != nil {
				return nil, err
			}
			if _, err := d.store.CreateUser(ctx, in); err != nil {
				return nil, err
			}
			created++
		}
		return countObject(created), nil
	default:
		return nil, fmt.Errorf("unsupported operation user.%s", call.Operation)
	}
}

func (d *Dispatcher) dispatchBook(ctx context.Context, call Call) (any, error) {
	switch call.Operation {
	case "findUnique":
		where, _ := childObject(call.Args, "where")
		if err := uniqueWhere("book", where); err != nil {
			return nil, err
		}
		if id, ok := stringField(where, "id"); ok {
			return notFoundToNil(d.store.GetBookByID(ctx, id))
		}
		return nil, errors.New("book.findUnique requires a string id")
	case "findFirst", "findMany":
		filter, err := d.bookFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.runMany(func() (any, error) {
			books, err := d.store.QueryBooks(ctx, filter)
			return anySlice(books), err
		}, call.Operation == "findFirst", &filter.Limit)
	case "count":
		filter, err := d.bookFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.store.CountBooks(ctx, filter)
	case "create":
		data, ok := childObject(call.Args, "data")
		if !ok {
			return nil, errors.New("book.create requires a data object")
		}
		in, err := bookCreateInput(data)
		if err != nil {
			return nil, err
		}
		return d.store.CreateBook(ctx, in)
	case "createMany":
		items, err := dataList(call.Args)
		if err != nil {
			return nil, err
		}
		inputs := make([]library.CreateBookInput, 0, len(items))
		for _, item := range items {
			in, err := bookCreateInput(item)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
		}
		created, err := d.store.CreateBooks(ctx, inputs)
		if err != nil {
			return nil, err
		}
		return countObject(created), nil
	default:
		return nil, fmt.Errorf("unsupported operation book.%s", call.Operation)
	}
}

func (d *Dispatcher) dispatchFine(ctx context.Context, call Call, callerID string) (any, error) {
	switch call.Operation {
	case "findUnique":
		where, _ := childObject(call.Args, "where")
		if err := uniqueWhere("fine", where); err != nil {
			return nil, err
		}
		if id, ok := stringField(where, "id"); ok {
			return notFoundToNil(d.store.GetFineByID(ctx, id))
		}
		return nil, errors.New("fine.findUnique requires a string id")
	case "findFirst", "findMany":
		filter, err := fineFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.runMany(func() (any, error) {
			fines, err := d.store.QueryFines(ctx, filter)
			return anySlice(fines), err
		}, call.Operation == "findFirst", &filter.Limit)
	case "count":
		filter, err := fineFilter(call.Args)
		if err != nil {
			return nil, err
		}
		return d.store.CountFines(ctx, filter)
	case "aggregate":
		sum, ok := childObject(call.Args, "_sum")
		if !ok {
			return nil, errors.New("fine.aggregate supports only the _sum form")
		}
		if wantsAmount, _ := boolField(sum, "amount"); !wantsAmount {
			return nil, errors.New("fine.aggregate supports only _sum on amount")
		}
		filter, err := fineFilter(call.Args)
		if err != nil {
			return nil, err
		}
		total, err := d.store.SumFineAmounts(ctx, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"_sum": map[string]any{"amount": total}}, nil
	case "create":
		data, ok := childObject(call.Args, "data")
		if !ok {
			return nil, errors.New("fine.create requires a data object")
		}
		in, err := fineCreateInput(data, callerID)
		if err != nil {
			return nil, err
		}
		return d.store.CreateFine(ctx, in)
	case "createMany":
		items, err := dataList(call.Args)
		if err != nil {
			return nil, err
		}
		var created int64
		for _, item := range items {
			in, err := fineCreateInput(item, callerID)
			if err != nil {
				return nil, err
			}
			if _, err := d.store.CreateFine(ctx, in); err != nil {
				return nil, err
			}
			created++
		}
		return countObject(created), nil
	default:
		return nil, fmt.Errorf("unsupported operation fine.%s", call.Operation)
	}
}

// uniqueWhere rejects findUnique lookups whose where clause names any field
// that is not declared unique in the schema registry.
func uniqueWhere(entity string, where map[string]any) error {
	allowed := strings.Join(uniqueFieldNames(entity), " or ")
	if len(where) == 0 {
		return fmt.Errorf("%s.findUnique requires a unique field (%s)", entity, allowed)
	}
	for key := range where {
		if !isUniqueField(entity, key) {
			return fmt.Errorf("%s.findUnique requires a unique field (%s), got %q", entity, allowed, key)
		}
	}
	return nil
}

// runMany applies the policy result cap, executes the query, and reduces
// findFirst to its first row (nil when the set is empty).
func (d *Dispatcher) runMany(query func() (any, error), first bool, limit *int) (any, error) {
	if first {
		*limit = 1
	} else if d.policy.MaxResults > 0 && (*limit <= 0 || *limit > d.policy.MaxResults) {
		*limit = d.policy.MaxResults
	}
	rows, err := query()
	if err != nil {
		return nil, err
	}
	items := rows.([]any)
	if first {
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}
	return items, nil
}

func (d *Dispatcher) userFilter(args map[string]any) (library.UserFilter, error) {
	var filter library.UserFilter
	where, _ := childObject(args, "where")
	for key, raw := range where {
		switch key {
		case "id":
			s, ok := asString(raw)
			if !ok {
				return filter, fmt.Errorf("user filter field %q must be a string", key)
			}
			filter.ID = &s
		case "email":
			s, ok := asString(raw)
			if !ok {
				return filter, fmt.Errorf("user filter field %q must be a string", key)
			}
			filter.Email = &s
		case "name":
			match, err := stringMatch(raw)
			if err != nil {
				return filter, fmt.Errorf("user filter field name: %w", err)
			}
			filter.Name = match
		default:
			return filter, fmt.Errorf("unsupported user filter field %q", key)
		}
	}
	filter.Limit = takeLimit(args)
	return filter, nil
}

func (d *Dispatcher) bookFilter(args map[string]any) (library.BookFilter, error) {
	var filter library.BookFilter
	where, _ := childObject(args, "where")
	if err := applyBookWhere(&filter, where); err != nil {
		return filter, err
	}
	filter.Limit = takeLimit(args)
	filter.Sort = bookSort(args)
	return filter, nil
}

func applyBookWhere(filter *library.BookFilter, where map[string]any) error {
	for key, raw := range where {
		switch key {
		case "id":
			s, ok := asString(raw)
			if !ok {
				return fmt.Errorf("book filter field %q must be a string", key)
			}
			filter.ID = &s
		case "title":
			match, err := stringMatch(raw)
			if err != nil {
				return fmt.Errorf("book filter field title: %w", err)
			}
			filter.Title = match
		case "author":
			match, err := stringMatch(raw)
			if err != nil {
				return fmt.Errorf("book filter field author: %w", err)
			}
			filter.Author = match
		case "genre":
			match, err := stringMatch(raw)
			if err != nil {
				return fmt.Errorf("book filter field genre: %w", err)
			}
			filter.Genre = match
		case "publishedYear":
			year, ok := asInt(raw)
			if !ok {
				return errors.New("book filter field publishedYear must be an integer")
			}
			filter.PublishedYear = &year
		case "available":
			b, ok := raw.(bool)
			if !ok {
				return errors.New("book filter field available must be a boolean")
			}
			filter.Available = &b
		case "borrowerId":
			s, ok := asString(raw)
			if !ok {
				return fmt.Errorf("book filter field %q must be a string", key)
			}
			filter.BorrowerID = &s
		case "OR":
			needle, err := searchNeedle(raw)
			if err != nil {
				return err
			}
			filter.Search = needle
		default:
			return fmt.Errorf("unsupported book filter field %q", key)
		}
	}
	return nil
}

// searchNeedle folds the title-or-author OR clause the provider emits for
// free-text search into a single needle.
func searchNeedle(raw any) (string, error) {
	branches, ok := raw.([]any)
	if !ok || len(branches) == 0 {
		return "", errors.New("book OR filter must be a non-empty array")
	}
	var needle string
	for _, branch := range branches {
		obj, ok := branch.(map[string]any)
		if !ok {
			return "", errors.New("book OR branch must be an object")
		}
		for key, value := range obj {
			if key != "title" && key != "author" {
				return "", fmt.Errorf("book OR filter supports only title/author, got %q", key)
			}
			match, err := stringMatch(value)
			if err != nil {
				return "", err
			}
			switch {
			case match.Contains != nil:
				needle = *match.Contains
			case match.Equals != nil:
				needle = *match.Equals
			}
		}
	}
	if needle == "" {
		return "", errors.New("book OR filter carries no search text")
	}
	return needle, nil
}

func fineFilter(args map[string]any) (library.FineFilter, error) {
	var filter library.FineFilter
	where, _ := childObject(args, "where")
	for key, raw := range where {
		switch key {
		case "id":
			s, ok := asString(raw)
			if !ok {
				return filter, fmt.Errorf("fine filter field %q must be a string", key)
			}
			filter.ID = &s
		case "userId":
			s, ok := asString(raw)
			if !ok {
				return filter, fmt.Errorf("fine filter field %q must be a string", key)
			}
			filter.UserID = &s
		case "paid":
			b, ok := raw.(bool)
			if !ok {
				return filter, errors.New("fine filter field paid must be a boolean")
			}
			filter.Paid = &b
		default:
			return filter, fmt.Errorf("unsupported fine filter field %q", key)
		}
	}
	filter.Limit = takeLimit(args)
	return filter, nil
}

func userCreateInput(data map[string]any) (library.CreateUserInput, error) {
	var in library.CreateUserInput
	email, ok := stringField(data, "email")
	if !ok {
		return in, errors.New("user.create requires an email")
	}
	in.Email = email
	if name, ok := stringField(data, "name"); ok {
		in.Name = &name
	}
	return in, nil
}

func bookCreateInput(data map[string]any) (library.CreateBookInput, error) {
	var in library.CreateBookInput
	title, ok := stringField(data, "title")
	if !ok {
		return in, errors.New("book.create requires a title")
	}
	author, ok := stringField(data, "author")
	if !ok {
		return in, errors.New("book.create requires an author")
	}
	in.Title = title
	in.Author = author
	if genre, ok := stringField(data, "genre"); ok {
		in.Genre = &genre
	}
	if rawYear, ok := data["publishedYear"]; ok {
		year, ok := asInt(rawYear)
		if !ok {
			return in, errors.New("book.create publishedYear must be an integer")
		}
		in.PublishedYear = &year
	}
	if rawAvailable, ok := data["available"]; ok {
		b, ok := rawAvailable.(bool)
		if !ok {
			return in, errors.New("book.create available must be a boolean")
		}
		in.Available = &b
	}
	if borrower, ok := stringField(data, "borrowerId"); ok {
		in.BorrowerID = &borrower
	}
	return in, nil
}

func fineCreateInput(data map[string]any, callerID string) (library.CreateFineInput, error) {
	var in library.CreateFineInput
	rawAmount, ok := data["amount"]
	if !ok {
		return in, errors.New("fine.create requires an amount")
	}
	amount, ok := asNumber(rawAmount)
	if !ok {
		return in, errors.New("fine.create amount must be a number")
	}
	in.Amount = amount
	if reason, ok := stringField(data, "reason"); ok {
		in.Reason = &reason
	}
	if rawPaid, ok := data["paid"]; ok {
		b, ok := rawPaid.(bool)
		if !ok {
			return in, errors.New("fine.create paid must be a boolean")
		}
		in.Paid = &b
	}
	// Fines always belong to the resolved caller; a generated userId is only
	// trusted when no caller was resolved.
	if callerID != "" {
		in.UserID = callerID
	} else if userID, ok := stringField(data, "userId"); ok {
		in.UserID = userID
	} else {
		return in, errors.New("fine.create requires a userId")
	}
	return in, nil
}

func dataList(args map[string]any) ([]map[string]any, error) {
	raw, ok := args["data"]
	if !ok {
		return nil, errors.New("createMany requires a data array")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New("createMany data must be an array")
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("createMany data entries must be objects")
		}
		out = append(out, obj)
	}
	return out, nil
}

func stringMatch(raw any) (library.StringMatch, error) {
	if s, ok := asString(raw); ok {
		return library.Equals(s), nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return library.StringMatch{}, errors.New("expected a string or a match object")
	}
	if s, ok := stringField(obj, "contains"); ok {
		return library.Contains(s), nil
	}
	if s, ok := stringField(obj, "equals"); ok {
		return library.Equals(s), nil
	}
	return library.StringMatch{}, errors.New("match object must set contains or equals")
}

func bookSort(args map[string]any) library.BookSort {
	orderBy, ok := childObject(args, "orderBy")
	if !ok {
		return ""
	}
	if dir, ok := stringField(orderBy, "title"); ok {
		if dir == "desc" {
			return library.BookSortTitleDesc
		}
		return library.BookSortTitleAsc
	}
	if dir, ok := stringField(orderBy, "author"); ok {
		if dir == "desc" {
			return library.BookSortAuthorDesc
		}
		return library.BookSortAuthorAsc
	}
	return ""
}

func takeLimit(args map[string]any) int {
	if raw, ok := args["take"]; ok {
		if n, ok := asInt(raw); ok && n > 0 {
			return n
		}
	}
	return 0
}

func childObject(args map[string]any, key string) (map[string]any, bool) {
	if args == nil {
		return nil, false
	}
	obj, ok := args[key].(map[string]any)
	return obj, ok
}

func stringField(obj map[string]any, key string) (string, bool) {
	if obj == nil {
		return "", false
	}
	return asString(obj[key])
}

func boolField(obj map[string]any, key string) (bool, bool) {
	if obj == nil {
		return false, false
	}
	b, ok := obj[key].(bool)
	return b, ok
}

func asString(raw any) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

func asNumber(raw any) (float64, bool) {
	n, ok := raw.(float64)
	return n, ok
}

func asInt(raw any) (int, bool) {
	n, ok := raw.(float64)
	if !ok || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

func anySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func notFoundToNil[T any](value T, err error) (any, error) {
	if errors.Is(err, library.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func countObject(n int64) map[string]any {
	return map[string]any{"count": n}
}
