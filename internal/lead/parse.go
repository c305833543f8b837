package lead

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/hpungsan/leadscan/internal/errors"
)

// Column positions within a data row.
const (
	colName = iota
	colPhone
	colPostalCode
	colDelivery
	colSize
	colCity
	colSubmittedAt
)

// ParseRow turns one raw data row into a Lead.
// The row must carry at least ColumnCount fields and its timestamp field must
// match TimestampLayout; anything else is a PARSE_ERROR.
func ParseRow(row []string) (Lead, error) {
	return parseRow(0, row)
}

func parseRow(line int, row []string) (Lead, error) {
	if len(row) < ColumnCount {
		return Lead{}, errors.NewParseError(line, fmt.Sprintf("expected at least %d columns, got %d", ColumnCount, len(row)))
	}

	raw := row[colSubmittedAt]
	submittedAt, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return Lead{}, errors.NewParseError(line, fmt.Sprintf("invalid timestamp %q (want YYYY-MM-DD HH:MM:SS)", raw))
	}

	return Lead{
		Name:        row[colName],
		Phone:       row[colPhone],
		PostalCode:  row[colPostalCode],
		Delivery:    row[colDelivery],
		Size:        row[colSize],
		City:        row[colCity],
		SubmittedAt: submittedAt,
	}, nil
}

// Reader reads leads from CSV input. The first record is the header and is
// kept aside rather than parsed.
type Reader struct {
	csv    *csv.Reader
	header []string
	read   bool
	rows   int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	// Short rows must reach ParseRow so they fail with a parse error, not a framing error.
	cr.FieldsPerRecord = -1
	// A stray quote inside an unquoted field (6" pipe) is kept as text.
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Header returns the header row, reading it first if needed.
// An empty input has no header and yields nil.
func (r *Reader) Header() ([]string, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r.header, nil
}

// Rows returns the number of data rows parsed so far.
func (r *Reader) Rows() int {
	return r.rows
}

// Next returns the next lead, or io.EOF when the input is exhausted.
func (r *Reader) Next() (Lead, error) {
	if err := r.readHeader(); err != nil {
		return Lead{}, err
	}

	record, err := r.csv.Read()
	if err == io.EOF {
		return Lead{}, io.EOF
	}
	if err != nil {
		return Lead{}, csvError(err)
	}

	line, _ := r.csv.FieldPos(0)
	l, err := parseRow(line, record)
	if err != nil {
		return Lead{}, err
	}
	r.rows++
	return l, nil
}

func (r *Reader) readHeader() error {
	if r.read {
		return nil
	}
	r.read = true

	record, err := r.csv.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return csvError(err)
	}
	r.header = append([]string(nil), record...)
	return nil
}

// csvError maps a CSV framing error to a parse error carrying its line.
func csvError(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.NewParseError(pe.Line, pe.Err.Error())
	}
	return errors.NewInternal(err)
}

// ReadAll reads every lead from r. It stops at the first malformed row and
// returns no leads in that case.
func ReadAll(r io.Reader) ([]Lead, error) {
	reader := NewReader(r)
	var leads []Lead
	for {
		l, err := reader.Next()
		if err == io.EOF {
			return leads, nil
		}
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
}
