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
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OUTCOME_SUCCEEDED = "succeeded"
	OUTCOME_FAILED    = "failed"

	ROWS_READ    = "read"
	ROWS_WRITTEN = "written"
)

var (
	// Invocations of the pipeline by outcome
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yb_tokenizer_invocations_total",
			Help: "Total pipeline invocations",
		},
		[]string{"outcome", "direction"},
	)

	// Data rows read and written
	rowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yb_tokenizer_rows_total",
			Help: "Total data rows read and written",
		},
		[]string{"rows", "direction"},
	)

	encodedValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yb_tokenizer_encoded_values_total",
			Help: "Total field values encoded or decoded",
		},
		[]string{"direction"},
	)

	skippedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yb_tokenizer_skipped_rows_total",
			Help: "Total malformed rows dropped by the SkipAndLog policy",
		},
		[]string{"direction"},
	)

	outputBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yb_tokenizer_output_bytes_total",
			Help: "Total bytes of stored output datasets",
		},
		[]string{"direction"},
	)
)

// RecordInvocation records the outcome of one pipeline invocation.
func RecordInvocation(direction string, succeeded bool) {
	outcome := OUTCOME_FAILED
	if succeeded {
		outcome = OUTCOME_SUCCEEDED
	}
	invocationsTotal.WithLabelValues(outcome, direction).Inc()
}

// RecordTransform records the row and value counts of a transform, whether or
// not its output was stored.
func RecordTransform(direction string, rowsRead, rowsWritten, rowsSkipped, values int64) {
	rowsTotal.WithLabelValues(ROWS_READ, direction).Add(float64(rowsRead))
	rowsTotal.WithLabelValues(ROWS_WRITTEN, direction).Add(float64(rowsWritten))
	skippedRowsTotal.WithLabelValues(direction).Add(float64(rowsSkipped))
	encodedValuesTotal.WithLabelValues(direction).Add(float64(values))
}

func RecordOutput(direction string, bytes int64) {
	outputBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}
