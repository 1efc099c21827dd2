package chat

import (
	"fmt"
	"strings"
)

// fieldSpec describes one column of an entity as the dispatch table accepts
// it. The prompt schema text and the unique-lookup validation are both derived
// from this registry, so the schema described to the provider cannot drift
// from the shapes dispatch actually accepts.
type fieldSpec struct {
	name     string
	typ      string
	unique   bool
	optional bool
	note     string
}

type entitySpec struct {
	model  string
	entity string
	fields []fieldSpec
}

var entitySpecs = []entitySpec{
	{
		model:  "User",
		entity: "user",
		fields: []fieldSpec{
			{name: "id", typ: "String", unique: true},
			{name: "email", typ: "String", unique: true},
			{name: "name", typ: "String", optional: true},
			{name: "createdAt", typ: "DateTime"},
		},
	},
	{
		model:  "Book",
		entity: "book",
		fields: []fieldSpec{
			{name: "id", typ: "String", unique: true},
			{name: "title", typ: "String"},
			{name: "author", typ: "String"},
			{name: "genre", typ: "String", optional: true},
			{name: "publishedYear", typ: "Int", optional: true},
			{name: "available", typ: "Boolean", note: "default true"},
			{name: "borrowerId", typ: "String", optional: true},
			{name: "borrowDate", typ: "DateTime", optional: true},
			{name: "dueDate", typ: "DateTime", optional: true},
		},
	},
	{
		model:  "Fine",
		entity: "fine",
		fields: []fieldSpec{
			{name: "id", typ: "String", unique: true},
			{name: "amount", typ: "Float"},
			{name: "reason", typ: "String", optional: true},
			{name: "paid", typ: "Boolean", note: "default false"},
			{name: "userId", typ: "String", note: "required"},
			{name: "createdAt", typ: "DateTime"},
		},
	},
}

// SchemaText renders the model descriptions embedded in every generation
// prompt.
func SchemaText() string {
	var sb strings.Builder
	sb.WriteString("Available models:\n")
	for _, spec := range entitySpecs {
		fmt.Fprintf(&sb, "\nmodel %s {\n", spec.model)
		nameWidth := 0
		for _, f := range spec.fields {
			if len(f.name) > nameWidth {
				nameWidth = len(f.name)
			}
		}
		for _, f := range spec.fields {
			typ := f.typ
			if f.optional {
				typ += "?"
			}
			line := fmt.Sprintf("  %-*s %-9s", nameWidth, f.name, typ)
			switch {
			case f.unique:
				line += " (unique)"
			case f.note != "":
				line += " (" + f.note + ")"
			}
			sb.WriteString(strings.TrimRight(line, " "))
			sb.WriteString("\n")
		}
		sb.WriteString("}\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// uniqueFieldNames lists the declared-unique columns of an entity; findUnique
// dispatch accepts only these.
func uniqueFieldNames(entity string) []string {
	for _, spec := range entitySpecs {
		if spec.entity != entity {
			continue
		}
		var names []string
		for _, f := range spec.fields {
			if f.unique {
				names = append(names, f.name)
			}
		}
		return names
	}
	return nil
}

func isUniqueField(entity, field string) bool {
	for _, name := range uniqueFieldNames(entity) {
		if name == field {
			return true
		}
	}
	return false
}
