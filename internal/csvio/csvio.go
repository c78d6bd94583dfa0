// Package csvio reads and writes annotation tables as comma-separated values.
//
// Files are always written with the header name,click_x,click_y. When reading, columns
// are matched by name, so files using the legacy name,click_y,click_x order load the same.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lewtec/apontador/internal/domain"
)

const (
	ColumnName = "name"
	ColumnX    = "click_x"
	ColumnY    = "click_y"
)

// Header is the canonical column order
var Header = []string{ColumnName, ColumnX, ColumnY}

// Encode writes annotations in the canonical column order
func Encode(w io.Writer, annotations []domain.Annotation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, ann := range annotations {
		row := []string{ann.ItemID, strconv.Itoa(ann.X), strconv.Itoa(ann.Y)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads records from a CSV table. Rows that can't be converted are returned
// as MalformedRecordError values and are not part of the records. The error return is
// reserved for problems with the table as a whole, such as a missing column.
func Decode(r io.Reader) ([]domain.Record, []*domain.MalformedRecordError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("while reading csv header: empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("while reading csv header: %w", err)
	}
	columns, err := locateColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var records []domain.Record
	var malformed []*domain.MalformedRecordError
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed = append(malformed, &domain.MalformedRecordError{Line: parseErr.StartLine, Reason: parseErr.Err.Error()})
				continue
			}
			return records, malformed, fmt.Errorf("while reading csv: %w", err)
		}
		if isBlank(row) {
			continue
		}
		line, _ := cr.FieldPos(0)
		record, recErr := parseRow(row, columns, line)
		if recErr != nil {
			malformed = append(malformed, recErr)
			continue
		}
		records = append(records, record)
	}
	return records, malformed, nil
}

type columnIndexes struct {
	name, x, y int
}

func locateColumns(header []string) (columnIndexes, error) {
	idx := columnIndexes{name: -1, x: -1, y: -1}
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch col {
		case ColumnName:
			idx.name = i
		case ColumnX:
			idx.x = i
		case ColumnY:
			idx.y = i
		}
	}
	var missing []string
	if idx.name < 0 {
		missing = append(missing, ColumnName)
	}
	if idx.x < 0 {
		missing = append(missing, ColumnX)
	}
	if idx.y < 0 {
		missing = append(missing, ColumnY)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("csv header is missing column(s) %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(row []string, columns columnIndexes, line int) (domain.Record, *domain.MalformedRecordError) {
	name := field(row, columns.name)
	if name == "" {
		return domain.Record{}, &domain.MalformedRecordError{Line: line, Column: ColumnName, Reason: "missing value"}
	}
	x, err := parseCoordinate(field(row, columns.x))
	if err != nil {
		return domain.Record{}, &domain.MalformedRecordError{Line: line, Column: ColumnX, Reason: err.Error()}
	}
	y, err := parseCoordinate(field(row, columns.y))
	if err != nil {
		return domain.Record{}, &domain.MalformedRecordError{Line: line, Column: ColumnY, Reason: err.Error()}
	}
	return domain.Record{ItemID: name, X: x, Y: y}, nil
}

// parseCoordinate accepts integers and integral floats such as "20.0"
func parseCoordinate(value string) (int, error) {
	if value == "" {
		return 0, errors.New("missing value")
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("'%s' is not an integer", value)
		}
		if f > math.MaxInt32 || f < math.MinInt32 {
			return 0, fmt.Errorf("'%s' is out of range", value)
		}
		v = int(f)
	}
	if v < 0 {
		return 0, fmt.Errorf("'%s' is negative", value)
	}
	return v, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
