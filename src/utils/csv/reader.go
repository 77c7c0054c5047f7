package csv

import (
	"errors"
	"fmt"
	"io"
)

const (
	defaultChunkSize     = 64 * 1024
	defaultMaxRecordSize = 64 * 1024 * 1024
)

var (
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
	ErrRecordTooLarge    = errors.New("record exceeds maximum size")
)

// Reader splits delimited text into raw records. A record ends at a newline
// that is outside of a quoted field, so one record may span multiple lines.
// The returned record is the exact input text, line terminator included.
// Blank lines are skipped.
//
// When Comma is set, a quote only opens a quoted field at the start of a
// field, as in RFC 4180; otherwise any quote does.
type Reader struct {
	QuoteChar     byte
	EscapeChar    byte
	Comma         byte
	MaxRecordSize int

	r         io.Reader
	chunk     []byte
	buf       []byte // unconsumed input
	scanPos   int    // how much of buf has been scanned for the current record
	inQuote   bool
	midField  bool
	eof       bool
	bytesRead int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		QuoteChar:     '"',
		EscapeChar:    '"',
		MaxRecordSize: defaultMaxRecordSize,
		r:             r,
		chunk:         make([]byte, defaultChunkSize),
	}
}

// BytesRead is the number of input bytes consumed by the records returned so far,
// skipped blank lines included.
func (r *Reader) BytesRead() int64 {
	return r.bytesRead
}

func (r *Reader) Read() (string, error) {
	for {
		if end, ok := r.scan(); ok {
			record := r.consume(end)
			if isBlank(record) {
				continue
			}
			return record, nil
		}
		if r.eof {
			if len(r.buf) == 0 {
				return "", io.EOF
			}
			if r.inQuote {
				return "", ErrUnterminatedQuote
			}
			// Last record without a trailing newline.
			record := r.consume(len(r.buf))
			if isBlank(record) {
				return "", io.EOF
			}
			return record, nil
		}
		if r.MaxRecordSize > 0 && len(r.buf) > r.MaxRecordSize {
			return "", fmt.Errorf("%w: more than %d bytes without a record boundary", ErrRecordTooLarge, r.MaxRecordSize)
		}
		if err := r.fill(); err != nil {
			return "", err
		}
	}
}

func (r *Reader) fill() error {
	n, err := r.r.Read(r.chunk)
	r.buf = append(r.buf, r.chunk[:n]...)
	if err == io.EOF {
		r.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (r *Reader) consume(end int) string {
	record := string(r.buf[:end])
	r.buf = r.buf[end:]
	if len(r.buf) == 0 {
		r.buf = r.buf[:0:0]
	}
	r.scanPos = 0
	r.inQuote = false
	r.midField = false
	r.bytesRead += int64(end)
	return record
}

// scan continues from where the previous call stopped and returns the end of
// the current record if its terminating newline is in the buffer.
func (r *Reader) scan() (int, bool) {
	buf := r.buf
	for r.scanPos < len(buf) {
		c := buf[r.scanPos]
		if r.inQuote {
			if r.EscapeChar != r.QuoteChar && c == r.EscapeChar {
				if r.scanPos+1 >= len(buf) {
					return 0, false // need the escaped byte
				}
				r.scanPos += 2
				continue
			}
			if c == r.QuoteChar {
				// With QuoteChar == EscapeChar a doubled quote toggles twice and
				// leaves us inside the field.
				r.inQuote = false
			}
			r.scanPos++
			continue
		}
		switch {
		case c == r.QuoteChar && (r.Comma == 0 || !r.midField):
			r.inQuote = true
			r.midField = true
		case c == '\n':
			return r.scanPos + 1, true
		case r.Comma != 0 && c == r.Comma:
			r.midField = false
		default:
			r.midField = true
		}
		r.scanPos++
	}
	return 0, false
}

func isBlank(record string) bool {
	return record == "\n" || record == "\r\n" || record == "\r"
}

// TrimLineTerminator removes a trailing "\n" or "\r\n".
func TrimLineTerminator(record string) string {
	n := len(record)
	if n > 0 && record[n-1] == '\n' {
		n--
		if n > 0 && record[n-1] == '\r' {
			n--
		}
	}
	return record[:n]
}

// LineTerminator returns the terminator that ends record, or "" if it has none.
func LineTerminator(record string) string {
	switch {
	case len(record) >= 2 && record[len(record)-2:] == "\r\n":
		return "\r\n"
	case len(record) >= 1 && record[len(record)-1] == '\n':
		return "\n"
	}
	return ""
}
