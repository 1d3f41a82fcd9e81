package chatdet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// Row is one record of a tabular source.
type Row interface {
	Get(field string) (string, bool)
}

// RowSource yields rows until it returns io.EOF.
type RowSource interface {
	Next() (Row, error)
}

// rowField fetches a required field, numbering rows from 1 for errors.
func rowField(row Row, n int64, field string) (string, error) {
	v, ok := row.Get(field)
	if !ok {
		return "", &MalformedError{Source: "row", Offset: n, Reason: fmt.Sprintf("missing field %q", field)}
	}
	return v, nil
}

// eachRow calls fn with the text and label of every row in src.
func eachRow(src RowSource, textField, labelField string, fn func(text, label string) error) error {
	for n := int64(1); ; n++ {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		text, err := rowField(row, n, textField)
		if err != nil {
			return err
		}
		label, err := rowField(row, n, labelField)
		if err != nil {
			return err
		}
		if err := fn(text, label); err != nil {
			return err
		}
	}
}

type mapRow map[string]string

func (r mapRow) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// CSVRows reads a CSV stream whose first record names the columns.
type CSVRows struct {
	rdr    *csv.Reader
	header map[string]int
}

func NewCSVRows(r io.Reader) (*CSVRows, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	head, err := rdr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedError{Source: "row", Offset: 0, Reason: "missing header"}
	} else if err != nil {
		return nil, err
	}

	header := make(map[string]int, len(head))
	for i, name := range head {
		header[strings.TrimSpace(name)] = i
	}
	return &CSVRows{rdr: rdr, header: header}, nil
}

func (c *CSVRows) Next() (Row, error) {
	rec, err := c.rdr.Read()
	if err != nil {
		return nil, err
	}
	return csvRow{header: c.header, rec: rec}, nil
}

type csvRow struct {
	header map[string]int
	rec    []string
}

func (r csvRow) Get(field string) (string, bool) {
	i, ok := r.header[field]
	if !ok || i >= len(r.rec) {
		return "", false
	}
	return r.rec[i], true
}

// JSONLRows reads one JSON object per line. Blank lines are skipped.
type JSONLRows struct {
	scan *bufio.Scanner
	line int64
}

func NewJSONLRows(r io.Reader) *JSONLRows {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &JSONLRows{scan: scan}
}

func (j *JSONLRows) Next() (Row, error) {
	for j.scan.Scan() {
		j.line++
		line := j.scan.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, &MalformedError{Source: "row", Offset: j.line, Reason: "invalid JSON"}
		}
		return jsonRow(gjson.ParseBytes(line)), nil
	}
	if err := j.scan.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

type jsonRow gjson.Result

func (r jsonRow) Get(field string) (string, bool) {
	v := gjson.Result(r).Get(gjson.Escape(field))
	if !v.Exists() {
		return "", false
	}
	return v.String(), true
}

// SliceRows is an in-memory RowSource.
type SliceRows struct {
	rows []map[string]string
	pos  int
}

func NewSliceRows(rows []map[string]string) *SliceRows {
	return &SliceRows{rows: rows}
}

func (s *SliceRows) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return mapRow(row), nil
}
