package chat

import (
	"fmt"
	"strings"
)

const refusalRule = "If this instruction cannot be converted into such a query, return only `false` and nothing else."

// BuildQueryPrompt renders the synthesis prompt for one instruction. The
// variant depends on the classified intent and the active policy: creation
// instructions under a mutation-allowing policy get the create-rules prompt,
// everything else gets the read prompt, and a read-only policy additionally
// forbids write operations outright.
func BuildQueryPrompt(instruction, callerID string, mutation bool, policy Policy) string {
	var sb strings.Builder
	sb.WriteString("You are a database query expert for a library system.\n\n")

	if mutation && policy.AllowMutations {
		sb.WriteString("Convert the following instruction into a single query call to CREATE new records.\n")
		sb.WriteString("Only return the code for the call, no explanation, no markdown, no comments.\n\n")
		sb.WriteString("Rules to follow:\n")
		sb.WriteString("- Use `create` for single record creation.\n")
		sb.WriteString("- Use `createMany` for multiple records.\n")
		sb.WriteString("- Extract all relevant fields from the instruction.\n")
		sb.WriteString("- For dates, use `new Date(\"...\")` with an ISO date string.\n")
		sb.WriteString("- Always return a complete call like `book.create({ data: { ... } })`.\n")
		sb.WriteString("- For book creation, set `available` to true by default.\n")
		sb.WriteString("- For fine creation, set `paid` to false by default.\n")
		if callerID != "" {
			fmt.Fprintf(&sb, "- When creating a fine, always associate it with the current user ID: %q\n", callerID)
		}
	} else {
		sb.WriteString("Convert the following instruction into a single query call for READING data only.\n")
		sb.WriteString("Only return the code for the call, no explanation, no markdown, no comments.\n\n")
		sb.WriteString("Rules to follow:\n")
		if !policy.AllowMutations {
			sb.WriteString("- ONLY use read operations: `findUnique`, `findFirst`, `findMany`, `count`, or `aggregate`.\n")
			sb.WriteString("- NEVER use write operations like `create`, `update`, `delete`, `upsert`.\n")
		}
		sb.WriteString("- Use `findUnique` only if the field being queried is unique (like `id` or `email`).\n")
		sb.WriteString("- Use `findFirst` or `findMany` if the field is not unique (like `title`, `author`, `genre`).\n")
		sb.WriteString("- Use `count` only when the instruction asks for the number of matching records.\n")
		sb.WriteString("- Use `aggregate({ _sum: { amount: true }, where: { ... } })` when the instruction asks for a total amount of fines or money, filtered by the current user's ID, and restricted to unpaid fines when the total fine is asked.\n")
		sb.WriteString("- Always return a complete call like `book.findMany({ ... })`.\n")
	}

	fmt.Fprintf(&sb, "\nInstruction: %q\n", instruction)
	if callerID != "" {
		fmt.Fprintf(&sb, "\nIf the instruction concerns the user's own fines, borrowed books, or other user-specific information, use this user ID in the query: %q\n", callerID)
	}
	sb.WriteString("\n")
	sb.WriteString(SchemaText())
	sb.WriteString("\n\n")
	sb.WriteString(refusalRule)
	if !policy.AllowMutations {
		sb.WriteString("\nAlso return only `false` if the instruction appears to request a data modification operation.")
	}
	return sb.String()
}

// BuildRephrasePrompt asks for a polite could-not-translate reply.
func BuildRephrasePrompt(instruction string, policy Policy) string {
	if policy.AllowMutations {
		return fmt.Sprintf(`You're a helpful assistant. The following user instruction could not be converted into a database query.
Return a short, polite Markdown message asking the user to rephrase or clarify their request.

Instruction: %q`, instruction)
	}
	return fmt.Sprintf(`You're a helpful assistant. The following user instruction could not be converted into a read-only database query.
Return a short, polite Markdown message explaining that this system only supports data retrieval operations, not data modification.

Instruction: %q`, instruction)
}

// BuildNoResultPrompt asks for a nothing-found reply with remediation hints.
func BuildNoResultPrompt(query string) string {
	return fmt.Sprintf(`You're a helpful assistant.

The following database query was executed, but it returned no results.
Write a clear and friendly Markdown message to inform the user that nothing was found.

Include:
- A sentence indicating that the requested record (like a Book or User) was not found.
- A few helpful suggestions: try different casing, double-check spelling, broaden the search if it is too specific.

Query: `+"`%s`", query)
}

// BuildCreationPrompt asks for a confirmation message describing the created
// records.
func BuildCreationPrompt(data string) string {
	return fmt.Sprintf(`You're a helpful assistant.

The following data was successfully created in the database.
Write a clear and friendly Markdown message to inform the user that the operation was successful.
Include the details of what was created in a readable format.

Data: %s`, data)
}

// BuildFormatPrompt asks for a human-readable rewrite of a raw result set.
func BuildFormatPrompt(data string) string {
	return fmt.Sprintf("You're a helpful assistant. Convert the following data into a clear, user-friendly Markdown message. Use **bold**, bullet points, and `code` where appropriate:\n\n%s", data)
}
