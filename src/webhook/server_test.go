package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *datastore.BlobStore) {
	store := datastore.NewBlobStore(memblob.OpenBucket(nil))
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "b", "meta/x_pii_fields.json", strings.NewReader("['email']")))
	require.NoError(t, store.Store(ctx, "b", "raw/x.csv", strings.NewReader("id,email\n1,a@x.com\n")))
	require.NoError(t, store.Store(ctx, "b", "meta/bad_pii_fields.json", strings.NewReader("email")))
	p := pipeline.New(store, pipeline.Config{SpoolDir: t.TempDir()})
	return NewServer(p, 2), store
}

type eventsResponse struct {
	Invocations []invocationResponse `json:"invocations"`
}

func post(t *testing.T, s *Server, body string) (int, eventsResponse) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	s.Handler().ServeHTTP(w, req)
	var resp eventsResponse
	if w.Code != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostS3Event(t *testing.T) {
	s, _ := newTestServer(t)
	code, resp := post(t, s, `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{"key":"meta/x_pii_fields.json"}}}]}`)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Invocations, 1)
	inv := resp.Invocations[0]
	assert.Equal(t, "tokenized/x_tokenized.csv", inv.OutputKey)
	assert.EqualValues(t, 1, inv.RowsWritten)
	assert.EqualValues(t, 1, inv.Values)
	assert.NotEmpty(t, inv.InvocationID)
	assert.Empty(t, inv.Error)
}

func TestPostFailures(t *testing.T) {
	s, store := newTestServer(t)

	code, resp := post(t, s, `{"container":"b","key":"meta/bad_pii_fields.json"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, resp.Invocations, 1)
	assert.Equal(t, errs.STEP_PARSE_FIELD_SPEC, resp.Invocations[0].FailedStep)

	code, _ = post(t, s, `{"container":"b","key":"meta/missing_pii_fields.json"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = post(t, s, `[{"container":"b","key":"meta/x_pii_fields.json"},{"container":"b","key":"meta/missing_pii_fields.json"}]`)
	assert.Equal(t, http.StatusNotFound, code)
	require.Len(t, resp.Invocations, 2)
	assert.Empty(t, resp.Invocations[0].Error)
	assert.NotEmpty(t, resp.Invocations[1].Error)

	_, err := store.Fetch(context.Background(), "b", "tokenized/bad_tokenized.csv")
	assert.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestPostInvalidDocument(t *testing.T) {
	s, _ := newTestServer(t)
	code, _ := post(t, s, `{"hello": "world"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = post(t, s, ``)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPostNothingToDo(t *testing.T) {
	s, _ := newTestServer(t)
	code, resp := post(t, s, `{"Records":[{"eventName":"ObjectRemoved:Delete","s3":{"bucket":{"name":"b"},"object":{"key":"meta/x_pii_fields.json"}}}]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Invocations)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errs.NewMalformedRowError(2, 3, 2)))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errs.NewDialectDetectionError("dataset is empty")))
	assert.Equal(t, http.StatusNotFound, StatusFor(errs.NewObjectNotFoundError("b", "k", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("network down")))
}
