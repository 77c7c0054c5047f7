/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package tokenizer

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-tokenizer/src/dialect"
	"github.com/yugabyte/yb-tokenizer/src/errorpolicy"
	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/fieldspec"
	"github.com/yugabyte/yb-tokenizer/src/utils/csv"
)

type Direction int

const (
	ENCODE Direction = iota
	DECODE
)

func (d Direction) String() string {
	if d == DECODE {
		return "decode"
	}
	return "encode"
}

const cancellationCheckInterval = 1000

// Record is one data row, keyed by the header's column names in row order.
type Record struct {
	header []string
	values []string
}

func (r *Record) Get(column string) (string, bool) {
	for i, name := range r.header {
		if name == column {
			return r.values[i], true
		}
	}
	return "", false
}

func (r *Record) Values() []string {
	return r.values
}

type Stats struct {
	Header            []string
	MaskedColumns     []string
	MissingFields     []string
	RowsRead          int64
	RowsWritten       int64
	RowsSkipped       int64
	ValuesTransformed int64
	BytesRead         int64
	ColumnCounts      map[string]int64
}

type Transformer struct {
	dialect   dialect.Dialect
	spec      fieldspec.FieldSpec
	codec     Codec
	policy    errorpolicy.ErrorPolicy
	direction Direction
}

func NewTransformer(d dialect.Dialect, spec fieldspec.FieldSpec, codec Codec, policy errorpolicy.ErrorPolicy, direction Direction) *Transformer {
	return &Transformer{
		dialect:   d,
		spec:      spec,
		codec:     codec,
		policy:    policy,
		direction: direction,
	}
}

// Transform copies the dataset read from r to w one record at a time. The
// header line is copied byte for byte. In every data row, the non-empty values
// of the columns named in the field spec are encoded (or decoded) and all other
// values are written unchanged. Rows are written with the dialect's delimiter
// and line terminator as soon as they are read.
func (t *Transformer) Transform(ctx context.Context, r io.Reader, w io.Writer) (*Stats, error) {
	recordReader := csv.NewReader(r)
	if t.dialect.Delimiter < utf8.RuneSelf {
		recordReader.Comma = byte(t.dialect.Delimiter)
	}
	rawHeader, err := recordReader.Read()
	if err == io.EOF {
		return nil, errs.NewDialectDetectionError("dataset is empty")
	}
	if err != nil {
		return nil, readError(1, err)
	}
	header, err := t.parseRecord(rawHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: record 1: %v", errs.ErrMalformedRow, err)
	}
	if _, err := io.WriteString(w, rawHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	stats := &Stats{
		Header:        header,
		MissingFields: t.spec.Missing(header),
		ColumnCounts:  map[string]int64{},
	}
	var targets []int
	for i, name := range header {
		if t.spec.Contains(name) {
			targets = append(targets, i)
			stats.MaskedColumns = append(stats.MaskedColumns, name)
		}
	}
	if len(stats.MissingFields) > 0 {
		log.Warnf("fields not present in header, nothing to %s for them: %v", t.direction, stats.MissingFields)
	}
	log.Infof("columns to %s: %v", t.direction, stats.MaskedColumns)

	writer := stdcsv.NewWriter(w)
	writer.Comma = t.dialect.Delimiter
	writer.UseCRLF = t.dialect.UseCRLF()

	recordNum := int64(1) // the header
	for {
		raw, err := recordReader.Read()
		if err == io.EOF {
			break
		}
		recordNum++
		if err != nil {
			return stats, readError(recordNum, err)
		}
		stats.RowsRead++
		if stats.RowsRead%cancellationCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		fields, err := t.parseRecord(raw)
		if err != nil {
			return stats, fmt.Errorf("%w: record %d: %v", errs.ErrMalformedRow, recordNum, err)
		}
		if len(fields) != len(header) {
			rowErr := errs.NewMalformedRowError(recordNum, len(header), len(fields))
			if t.policy == errorpolicy.AbortErrorPolicy {
				return stats, rowErr
			}
			log.Warnf("skipping row: %v", rowErr)
			stats.RowsSkipped++
			continue
		}
		record := &Record{header: header, values: fields}
		if err := t.transformRecord(record, recordNum, targets, stats); err != nil {
			return stats, err
		}
		if err := writer.Write(record.Values()); err != nil {
			return stats, fmt.Errorf("write record %d: %w", recordNum, err)
		}
		stats.RowsWritten++
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}
	stats.BytesRead = recordReader.BytesRead()
	return stats, nil
}

func readError(recordNum int64, err error) error {
	if errors.Is(err, csv.ErrUnterminatedQuote) || errors.Is(err, csv.ErrRecordTooLarge) {
		return fmt.Errorf("%w: record %d: %v", errs.ErrMalformedRow, recordNum, err)
	}
	return fmt.Errorf("read record %d: %w", recordNum, err)
}

// parseRecord splits one raw record into its field values.
func (t *Transformer) parseRecord(raw string) ([]string, error) {
	fr := stdcsv.NewReader(strings.NewReader(raw))
	fr.Comma = t.dialect.Delimiter
	fr.FieldsPerRecord = -1
	fr.LazyQuotes = true
	fields, err := fr.Read()
	if err != nil {
		return nil, err
	}
	if _, err := fr.Read(); err != io.EOF {
		return nil, fmt.Errorf("record does not end at a line boundary")
	}
	return fields, nil
}

func (t *Transformer) transformRecord(record *Record, recordNum int64, targets []int, stats *Stats) error {
	for _, i := range targets {
		value := record.values[i]
		if value == "" {
			continue
		}
		column := record.header[i]
		if t.direction == DECODE {
			decoded, err := t.codec.Decode(value)
			if err != nil {
				return errs.NewInvalidTokenError(recordNum, column, err)
			}
			record.values[i] = decoded
		} else {
			record.values[i] = t.codec.Encode(value)
		}
		stats.ValuesTransformed++
		stats.ColumnCounts[column]++
	}
	return nil
}
