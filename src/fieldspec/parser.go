package fieldspec

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yugabyte/yb-tokenizer/src/errs"
)

// parser is a hand-written recursive descent parser for
//
//	list   := '[' ws ( string ws ( ',' ws string ws )* ( ',' ws )? )? ']'
//	string := '"' chars '"' | "'" chars "'"
//
// String bodies use the usual backslash escapes. Raw newlines inside a string
// and implicit concatenation of adjacent strings are rejected.
type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errs.NewInvalidFieldSpecError(p.pos, format, args...)
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseList() ([]string, error) {
	if p.eof() || p.peek() != '[' {
		return nil, p.errorf("expected '[' at start of field list")
	}
	p.pos++
	var names []string
	expectValue := true
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated list, expected ']'")
		}
		c := p.peek()
		switch {
		case c == ']':
			p.pos++
			p.skipSpace()
			if !p.eof() {
				return nil, p.errorf("unexpected %q after end of list", p.src[p.pos:])
			}
			return names, nil
		case c == ',':
			if expectValue {
				return nil, p.errorf("unexpected ','")
			}
			p.pos++
			expectValue = true
		case c == '"' || c == '\'':
			if !expectValue {
				return nil, p.errorf("expected ',' or ']' between elements")
			}
			s, err := p.parseString()
			if err != nil {
				return nil, err
			}
			names = append(names, s)
			expectValue = false
		default:
			return nil, p.errorf("list elements must be quoted strings, found %q", p.literalAt())
		}
	}
}

// literalAt returns the token starting at the current position, for messages.
func (p *parser) literalAt() string {
	end := strings.IndexAny(p.src[p.pos:], ",] \t\r\n")
	if end < 0 {
		return p.src[p.pos:]
	}
	if end == 0 {
		end = 1
	}
	return p.src[p.pos : p.pos+end]
}

func (p *parser) parseString() (string, error) {
	quote := p.peek()
	start := p.pos
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			p.pos = start
			return "", p.errorf("unterminated string literal")
		}
		c := p.peek()
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\n', '\r':
			return "", p.errorf("newline in string literal")
		case '\\':
			if err := p.parseEscape(&sb); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) parseEscape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.eof() {
		return p.errorf("unterminated escape sequence")
	}
	c := p.peek()
	p.pos++
	switch c {
	case '\n':
		// line continuation
	case '\r':
		if !p.eof() && p.peek() == '\n' {
			p.pos++
		}
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case '0', '1', '2', '3', '4', '5', '6', '7':
		end := p.pos
		for end < len(p.src) && end-p.pos < 2 && p.src[end] >= '0' && p.src[end] <= '7' {
			end++
		}
		v, _ := strconv.ParseUint(string(c)+p.src[p.pos:end], 8, 32)
		p.pos = end
		sb.WriteRune(rune(v))
	case 'x':
		return p.parseHexEscape(sb, 2)
	case 'u':
		return p.parseHexEscape(sb, 4)
	case 'U':
		return p.parseHexEscape(sb, 8)
	default:
		p.pos -= 2
		return p.errorf("unsupported escape sequence \\%c", c)
	}
	return nil
}

func (p *parser) parseHexEscape(sb *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated \\%c escape", p.src[p.pos-1])
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid \\%c escape %q", p.src[p.pos-1], p.src[p.pos:p.pos+digits])
	}
	r := rune(v)
	if !utf8.ValidRune(r) {
		return p.errorf("escape %q is not a valid code point", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	sb.WriteRune(r)
	return nil
}
