// Package csvio holds the CSV plumbing shared by the source readers: header
// lookup with required-column checks, tolerant count parsing, and decoding of
// the Latin-1 family encodings some statistics offices publish in.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrSchema marks a file whose header lacks a required column. It is
	// fatal for the whole source.
	ErrSchema = errors.New("unexpected csv schema")
	// ErrBadCount marks a numeric cell that cannot be used as a count.
	ErrBadCount = errors.New("invalid count")
)

const utf8BOM = "\uFEFF"

// NewReader returns a csv.Reader configured for the loosely formatted files
// published by reporting agencies: variable field counts and stray quotes
// are tolerated.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

// DecodeLatin3 wraps r so ISO-8859-3 bytes are transcoded to UTF-8.
func DecodeLatin3(r io.Reader) io.Reader {
	return charmap.ISO8859_3.NewDecoder().Reader(r)
}

// Header maps column names to their index.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader indexes cols. Surrounding whitespace and a UTF-8 byte order mark
// on the first column are dropped.
func NewHeader(cols []string) Header {
	h := Header{names: make([]string, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		h.names[i] = c
		if _, dup := h.index[c]; !dup {
			h.index[c] = i
		}
	}
	return h
}

// ReadHeader consumes the first record of cr as a header.
func ReadHeader(cr *csv.Reader) (Header, error) {
	cols, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Header{}, fmt.Errorf("%w: empty file", ErrSchema)
	}
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return NewHeader(cols), nil
}

// Names returns the column names in file order.
func (h Header) Names() []string { return h.names }

// Index returns the position of name.
func (h Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Require returns ErrSchema listing every missing column.
func (h Header) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h.index[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the trimmed value of column name in row, or "" when the row is short.
func (h Header) Get(row []string, name string) string {
	i, ok := h.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseCount parses a non-negative integer count. Thousands separators are
// not accepted; an empty cell is an error.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadCount)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCount, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %d", ErrBadCount, v)
	}
	return v, nil
}

// ParseFloat parses a decimal value, dropping ',' thousands separators.
func ParseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadCount)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCount, s)
	}
	return v, nil
}
