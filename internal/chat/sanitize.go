package chat

import (
	"regexp"
	"strings"
)

// FalseToken is the provider's explicit "not translatable" signal.
const FalseToken = "false"

var (
	fencePattern      = regexp.MustCompile("(?s)```(?:typescript|ts|js|javascript)?\\s*(.*?)```")
	callPrefixPattern = regexp.MustCompile(`^(?:db|prisma)\.`)
	writeOpPattern    = regexp.MustCompile(`(?i)\.(create|createMany|update|updateMany|delete|deleteMany|upsert)\s*\(`)
)

// Sanitize normalizes raw provider output into a bare call expression: the
// innermost fenced block is extracted if present, surrounding whitespace and a
// trailing semicolon are dropped, and a leading db. / prisma. handle prefix is
// stripped. Sanitize is idempotent.
func Sanitize(raw string) string {
	code := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(code); m != nil {
		code = strings.TrimSpace(m[1])
	}
	code = strings.TrimSuffix(code, ";")
	code = strings.TrimSpace(code)
	code = callPrefixPattern.ReplaceAllString(code, "")
	return code
}

// ContainsWriteOperation reports whether the sanitized expression invokes any
// write-operation name. In read-only mode this is the authoritative rejection,
// applied regardless of what the classifier or the prompt said.
func ContainsWriteOperation(code string) bool {
	return writeOpPattern.MatchString(code)
}

// IsNotTranslatable reports whether the sanitized expression is the literal
// refusal token.
func IsNotTranslatable(code string) bool {
	return code == FalseToken
}
