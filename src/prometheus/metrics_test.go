package prometheus

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransform(t *testing.T) {
	before := testutil.ToFloat64(rowsTotal.WithLabelValues(ROWS_READ, "encode"))
	skippedBefore := testutil.ToFloat64(skippedRowsTotal.WithLabelValues("encode"))
	RecordTransform("encode", 10, 8, 2, 16)
	assert.Equal(t, before+10, testutil.ToFloat64(rowsTotal.WithLabelValues(ROWS_READ, "encode")))
	assert.Equal(t, skippedBefore+2, testutil.ToFloat64(skippedRowsTotal.WithLabelValues("encode")))
}

func TestRecordInvocation(t *testing.T) {
	before := testutil.ToFloat64(invocationsTotal.WithLabelValues(OUTCOME_FAILED, "decode"))
	RecordInvocation("decode", false)
	assert.Equal(t, before+1, testutil.ToFloat64(invocationsTotal.WithLabelValues(OUTCOME_FAILED, "decode")))
}

func TestMetricsServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	RecordOutput("encode", 42)
	addr, err := StartMetricsServer(ctx, "0")
	require.NoError(t, err)

	port := addr.(*net.TCPAddr).Port
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "yb_tokenizer_output_bytes_total")
}
