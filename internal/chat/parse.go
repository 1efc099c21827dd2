package chat

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Call is a parsed, not-yet-dispatched expression of the form
// entity.operation({ ... }).
type Call struct {
	Entity    string
	Operation string
	Args      map[string]any
}

// ParseCall decomposes a sanitized expression into its entity, operation and
// argument object. The argument object is JavaScript-flavored rather than
// strict JSON: unquoted keys, single quotes, trailing commas, new Date(...)
// wrappers. Anything that does not fit the single-call shape is an error.
func ParseCall(code string) (Call, error) {
	p := &callParser{input: code}
	p.skipSpace()

	entity, err := p.identifier()
	if err != nil {
		return Call{}, fmt.Errorf("parse call: %w", err)
	}
	if !p.consume('.') {
		return Call{}, fmt.Errorf("parse call: expected '.' after entity %q", entity)
	}
	operation, err := p.identifier()
	if err != nil {
		return Call{}, fmt.Errorf("parse call: %w", err)
	}
	if !p.consume('(') {
		return Call{}, fmt.Errorf("parse call: expected '(' after %s.%s", entity, operation)
	}

	args := map[string]any{}
	p.skipSpace()
	if p.peek() == '{' {
		value, err := p.value()
		if err != nil {
			return Call{}, fmt.Errorf("parse call: %w", err)
		}
		obj, ok := value.(map[string]any)
		if !ok {
			return Call{}, fmt.Errorf("parse call: argument is not an object")
		}
		args = obj
	}
	if !p.consume(')') {
		return Call{}, fmt.Errorf("parse call: expected ')' to close %s.%s", entity, operation)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Call{}, fmt.Errorf("parse call: trailing input after call expression")
	}

	return Call{Entity: strings.ToLower(entity), Operation: operation, Args: args}, nil
}

type callParser struct {
	input string
	pos   int
}

func (p *callParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *callParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *callParser) consume(c byte) bool {
	p.skipSpace()
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *callParser) identifier() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '$' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d", start)
	}
	return p.input[start:p.pos], nil
}

func (p *callParser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"' || c == '\'':
		return p.quotedString(c)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.bareword()
	}
}

func (p *callParser) object() (map[string]any, error) {
	p.pos++ // '{'
	obj := map[string]any{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		var key string
		if c := p.peek(); c == '"' || c == '\'' {
			s, err := p.quotedString(c)
			if err != nil {
				return nil, err
			}
			key = s
		} else {
			ident, err := p.identifier()
			if err != nil {
				return nil, fmt.Errorf("expected object key: %w", err)
			}
			key = ident
		}
		if !p.consume(':') {
			return nil, fmt.Errorf("expected ':' after key %q", key)
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		obj[key] = value

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, fmt.Errorf("expected ',' or '}' after value for key %q", key)
		}
	}
}

func (p *callParser) array() ([]any, error) {
	p.pos++ // '['
	var items []any
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return items, nil
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, value)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return items, nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' in array")
		}
	}
}

func (p *callParser) quotedString(quote byte) (string, error) {
	p.skipSpace()
	if p.peek() != quote {
		return "", fmt.Errorf("expected quote at offset %d", p.pos)
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.input) {
				return "", fmt.Errorf("unterminated escape in string")
			}
			next := p.input[p.pos+1]
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(next)
			}
			p.pos += 2
		case quote:
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

func (p *callParser) number() (float64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return n, nil
}

// bareword handles true/false/null/undefined and the new Date(...) wrapper
// the provider sometimes emits for date fields.
func (p *callParser) bareword() (any, error) {
	ident, err := p.identifier()
	if err != nil {
		return nil, fmt.Errorf("expected value: %w", err)
	}
	switch ident {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "undefined":
		return nil, nil
	case "new":
		inner, err := p.identifier()
		if err != nil || inner != "Date" {
			return nil, fmt.Errorf("unsupported constructor after 'new'")
		}
		if !p.consume('(') {
			return nil, fmt.Errorf("expected '(' after new Date")
		}
		p.skipSpace()
		var arg string
		if c := p.peek(); c == '"' || c == '\'' {
			arg, err = p.quotedString(c)
			if err != nil {
				return nil, err
			}
		}
		if !p.consume(')') {
			return nil, fmt.Errorf("expected ')' to close new Date")
		}
		return arg, nil
	default:
		return nil, fmt.Errorf("unsupported bareword %q", ident)
	}
}
