// Package results reads and writes the delimited numeric artifacts that
// optimization engines leave behind, and rewrites them into the
// canonical complex-literal convention ("0.5+0.25j").
package results

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ImaginaryToken is the canonical imaginary-unit suffix.
const ImaginaryToken = "j"

// foreignTokens are imaginary-unit suffixes rewritten to ImaginaryToken.
var foreignTokens = []string{"im"}

// FormatComplex renders c in the canonical form, e.g. "0.5+0.25j".
func FormatComplex(c complex128) string {
	re := strconv.FormatFloat(real(c), 'g', -1, 64)
	im := strconv.FormatFloat(imag(c), 'g', -1, 64)
	if !strings.HasPrefix(im, "-") && !strings.HasPrefix(im, "+") {
		im = "+" + im
	}
	return re + im + ImaginaryToken
}

// ParseComplex accepts canonical literals, foreign-token literals such as
// "0.5 + 0.25im", and plain reals.
func ParseComplex(s string) (complex128, error) {
	t := normalizeLiteral(strings.TrimSpace(s))
	if strings.HasSuffix(t, ImaginaryToken) {
		t = strings.TrimSuffix(t, ImaginaryToken) + "i"
	}
	c, err := strconv.ParseComplex(t, 128)
	if err != nil {
		return 0, fmt.Errorf("parse complex %q: %w", s, err)
	}
	return c, nil
}

// Normalize rewrites foreign imaginary-unit tokens to the canonical one
// and strips incidental spaces. It is idempotent.
func Normalize(data []byte) []byte {
	out := data
	for _, tok := range foreignTokens {
		out = bytes.ReplaceAll(out, []byte(tok), []byte(ImaginaryToken))
	}
	out = bytes.ReplaceAll(out, []byte(" "), nil)
	return bytes.ReplaceAll(out, []byte("\r"), nil)
}

func normalizeLiteral(s string) string {
	return string(Normalize([]byte(s)))
}

// Codec encodes and decodes rows of complex values as delimited text
// with no header row.
type Codec struct {
	Delimiter rune
}

// DefaultCodec is tab-delimited, matching what the engines write.
var DefaultCodec = Codec{Delimiter: '\t'}

// Encode writes rows in canonical form.
func (c Codec) Encode(w io.Writer, rows [][]complex128) error {
	cw := csv.NewWriter(w)
	cw.Comma = c.delimiter()
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = FormatComplex(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeBytes is Encode into a fresh buffer.
func (c Codec) EncodeBytes(rows [][]complex128) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads rows, accepting both canonical and foreign literals. Rows
// may have different lengths; blank lines are skipped.
func (c Codec) Decode(r io.Reader) ([][]complex128, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(Normalize(data)))
	cr.Comma = c.delimiter()
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	rows := make([][]complex128, 0, len(records))
	for i, record := range records {
		row := make([]complex128, len(record))
		for j, field := range record {
			if row[j], err = ParseComplex(field); err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeBytes is Decode from a byte slice.
func (c Codec) DecodeBytes(data []byte) ([][]complex128, error) {
	return c.Decode(bytes.NewReader(data))
}

func (c Codec) delimiter() rune {
	if c.Delimiter == 0 {
		return DefaultCodec.Delimiter
	}
	return c.Delimiter
}
