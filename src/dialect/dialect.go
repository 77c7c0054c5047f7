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
package dialect

import (
	"bufio"
	"bytes"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/utils/csv"
)

const (
	MULTI_LINE_MODE = "multi-line"
	FIRST_LINE_MODE = "first-line"

	DEFAULT_SAMPLE_LINES = 10
	DEFAULT_SAMPLE_BYTES = 1024 * 1024
)

// Candidate delimiters, highest priority first.
var DefaultCandidates = []rune{',', ';', '\t', '|'}

// Dialect describes how the rows of a delimited dataset are encoded.
type Dialect struct {
	Delimiter      rune
	QuoteChar      byte
	LineTerminator string
}

func (d Dialect) String() string {
	return fmt.Sprintf("delimiter=%q quote=%q terminator=%q", d.Delimiter, d.QuoteChar, d.LineTerminator)
}

func (d Dialect) UseCRLF() bool {
	return d.LineTerminator == "\r\n"
}

type Options struct {
	Mode        string
	SampleLines int
	Candidates  []rune
}

func DefaultOptions() Options {
	return Options{
		Mode:        MULTI_LINE_MODE,
		SampleLines: DEFAULT_SAMPLE_LINES,
		Candidates:  DefaultCandidates,
	}
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = MULTI_LINE_MODE
	}
	if o.SampleLines <= 0 {
		o.SampleLines = DEFAULT_SAMPLE_LINES
	}
	if len(o.Candidates) == 0 {
		o.Candidates = DefaultCandidates
	}
	return o
}

func (o Options) Validate() error {
	if !lo.Contains([]string{"", MULTI_LINE_MODE, FIRST_LINE_MODE}, o.Mode) {
		return goerrors.Errorf("invalid sniff mode: %s. Valid modes = %v", o.Mode, []string{MULTI_LINE_MODE, FIRST_LINE_MODE})
	}
	for _, c := range o.Candidates {
		if c == '"' || c == '\r' || c == '\n' || c == 0xFFFD || c == 0 {
			return goerrors.Errorf("invalid delimiter candidate %q", c)
		}
	}
	if len(lo.Uniq(o.Candidates)) != len(o.Candidates) {
		return goerrors.Errorf("duplicate delimiter candidates in %q", string(o.Candidates))
	}
	return nil
}

// ParseCandidates turns a config value such as ",;\t|" or "comma,tab" into
// an ordered candidate list.
func ParseCandidates(s string) ([]rune, error) {
	if s == "" {
		return DefaultCandidates, nil
	}
	names := map[string]rune{"comma": ',', "semicolon": ';', "tab": '\t', "pipe": '|', "colon": ':', "space": ' '}
	var result []rune
	if strings.Contains(s, ",") && len([]rune(s)) > 1 {
		for _, part := range strings.Split(s, ",") {
			r, ok := names[strings.ToLower(strings.TrimSpace(part))]
			if !ok {
				return nil, goerrors.Errorf("unknown delimiter name %q", part)
			}
			result = append(result, r)
		}
	} else {
		result = []rune(strings.ReplaceAll(s, `\t`, "\t"))
	}
	opts := Options{Candidates: result}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// Sample returns up to maxBytes from the start of r without consuming them,
// and whether that is the whole input. r must have a buffer of at least maxBytes.
func Sample(r *bufio.Reader, maxBytes int) ([]byte, bool, error) {
	if maxBytes > r.Size() {
		maxBytes = r.Size()
	}
	sample, err := r.Peek(maxBytes)
	switch {
	case err == nil:
		return sample, false, nil
	case errors.Is(err, io.EOF):
		return sample, true, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return sample, false, nil
	default:
		return nil, false, fmt.Errorf("read sample: %w", err)
	}
}

// Detect infers the dialect from a sample taken from the start of a dataset.
// complete reports whether the sample holds the entire dataset; when it does
// not, a trailing partial line is ignored.
func Detect(sample []byte, complete bool, opts Options) (Dialect, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return Dialect{}, err
	}
	if !complete {
		if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
			sample = sample[:i+1]
		}
	}
	records, err := sampleRecords(sample, opts.SampleLines)
	if err != nil {
		return Dialect{}, err
	}
	if len(records) == 0 {
		return Dialect{}, errs.NewDialectDetectionError("dataset is empty")
	}

	var delimiter rune
	switch opts.Mode {
	case FIRST_LINE_MODE:
		delimiter, err = detectFromFirstLine(records[0], opts.Candidates)
	default:
		delimiter, err = detectFromRecords(sample, len(records), opts.Candidates)
	}
	if err != nil {
		return Dialect{}, err
	}
	terminator := csv.LineTerminator(records[0])
	if terminator == "" {
		terminator = "\n"
	}
	d := Dialect{Delimiter: delimiter, QuoteChar: '"', LineTerminator: terminator}
	log.Infof("detected dialect: %s (mode=%s, sampled records=%d)", d, opts.Mode, len(records))
	return d, nil
}

// sampleRecords returns the first n raw records of the sample.
func sampleRecords(sample []byte, n int) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(sample))
	var records []string
	for len(records) < n {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if errors.Is(err, csv.ErrUnterminatedQuote) {
			if len(records) == 0 {
				// The first record does not fit in the sample; sniff what we have.
				records = append(records, string(sample))
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sample records: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

type candidateScore struct {
	delimiter   rune
	fields      int
	agreeing    int
	consistency float64
}

func detectFromRecords(sample []byte, numRecords int, candidates []rune) (rune, error) {
	var best *candidateScore
	for _, c := range candidates {
		score := scoreCandidate(sample, numRecords, c)
		log.Debugf("delimiter %q: fields=%d agreeing=%d consistency=%.2f", c, score.fields, score.agreeing, score.consistency)
		if score.fields <= 1 || score.agreeing < 2 {
			continue
		}
		// Candidates are in priority order, so only a strictly better score wins.
		if best == nil || score.consistency > best.consistency {
			s := score
			best = &s
		}
	}
	if best == nil {
		return 0, errs.NewDialectDetectionError("no delimiter among %q gives a consistent column count over %d sampled record(s)",
			string(candidates), numRecords)
	}
	return best.delimiter, nil
}

func scoreCandidate(sample []byte, numRecords int, delimiter rune) candidateScore {
	r := stdcsv.NewReader(bytes.NewReader(sample))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	counts := map[int]int{}
	total := 0
	for total < numRecords {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return candidateScore{delimiter: delimiter}
		}
		counts[len(fields)]++
		total++
	}
	score := candidateScore{delimiter: delimiter}
	for fields, n := range counts {
		if n > score.agreeing || (n == score.agreeing && fields > score.fields) {
			score.fields = fields
			score.agreeing = n
		}
	}
	if total > 0 {
		score.consistency = float64(score.agreeing) / float64(total)
	}
	return score
}

func detectFromFirstLine(record string, candidates []rune) (rune, error) {
	var best rune
	bestCount := 0
	for _, c := range candidates {
		n := countOutsideQuotes(record, c)
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	if bestCount == 0 {
		return 0, errs.NewDialectDetectionError("first line contains none of the delimiters %q", string(candidates))
	}
	return best, nil
}

func countOutsideQuotes(s string, delimiter rune) int {
	inQuote := false
	n := 0
	for _, c := range s {
		switch {
		case c == '"':
			inQuote = !inQuote
		case c == delimiter && !inQuote:
			n++
		}
	}
	return n
}
