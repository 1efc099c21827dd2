package chat

import (
	"reflect"
	"testing"
)

func TestParseCall(t *testing.T) {
	cases := []struct {
		name string
		code string
		want Call
	}{
		{
			name: "empty args",
			code: `book.findMany()`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{}},
		},
		{
			name: "empty object",
			code: `book.findMany({})`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{}},
		},
		{
			name: "double quoted where",
			code: `book.findMany({ where: { title: "Dune" } })`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{
				"where": map[string]any{"title": "Dune"},
			}},
		},
		{
			name: "single quotes and numbers",
			code: `book.findFirst({ where: { publishedYear: 1965 }, take: 3 })`,
			want: Call{Entity: "book", Operation: "findFirst", Args: map[string]any{
				"where": map[string]any{"publishedYear": float64(1965)},
				"take":  float64(3),
			}},
		},
		{
			name: "nested match object",
			code: `book.findMany({ where: { title: { contains: 'dune', mode: 'insensitive' } } })`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{
				"where": map[string]any{
					"title": map[string]any{"contains": "dune", "mode": "insensitive"},
				},
			}},
		},
		{
			name: "aggregate with booleans",
			code: `fine.aggregate({ _sum: { amount: true }, where: { userId: "U1", paid: false } })`,
			want: Call{Entity: "fine", Operation: "aggregate", Args: map[string]any{
				"_sum":  map[string]any{"amount": true},
				"where": map[string]any{"userId": "U1", "paid": false},
			}},
		},
		{
			name: "array of data with trailing comma",
			code: `book.createMany({ data: [ { title: "A", author: "B" }, { title: "C", author: "D" }, ] })`,
			want: Call{Entity: "book", Operation: "createMany", Args: map[string]any{
				"data": []any{
					map[string]any{"title": "A", "author": "B"},
					map[string]any{"title": "C", "author": "D"},
				},
			}},
		},
		{
			name: "new Date wrapper",
			code: `book.create({ data: { title: "A", author: "B", dueDate: new Date("2024-06-01") } })`,
			want: Call{Entity: "book", Operation: "create", Args: map[string]any{
				"data": map[string]any{"title": "A", "author": "B", "dueDate": "2024-06-01"},
			}},
		},
		{
			name: "null literal",
			code: `book.findMany({ where: { borrowerId: null } })`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{
				"where": map[string]any{"borrowerId": nil},
			}},
		},
		{
			name: "entity case folded",
			code: `Book.findMany({})`,
			want: Call{Entity: "book", Operation: "findMany", Args: map[string]any{}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCall(tc.code)
			if err != nil {
				t.Fatalf("ParseCall(%q): %v", tc.code, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseCall(%q) = %#v, want %#v", tc.code, got, tc.want)
			}
		})
	}
}

func TestParseCallErrors(t *testing.T) {
	cases := []string{
		"",
		"false",
		"book",
		"book.findMany",
		"book.findMany({",
		"book.findMany({}) extra",
		`book.findMany("title")`,
		`book.findMany({ where: })`,
		`const x = await book.findMany({})`,
	}
	for _, code := range cases {
		if _, err := ParseCall(code); err == nil {
			t.Errorf("expected error for %q", code)
		}
	}
}
