package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/dialect"
	"github.com/yugabyte/yb-tokenizer/src/errorpolicy"
	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
)

const bucket = "pii-bucket"

// recordingStore counts Store calls on top of an in-memory bucket.
type recordingStore struct {
	*datastore.BlobStore
	mu       sync.Mutex
	stored   []string
	storeErr error
}

func newRecordingStore(t *testing.T) *recordingStore {
	s := &recordingStore{BlobStore: datastore.NewBlobStore(memblob.OpenBucket(nil))}
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *recordingStore) Store(ctx context.Context, container, key string, body io.Reader) error {
	s.mu.Lock()
	s.stored = append(s.stored, key)
	s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	return s.BlobStore.Store(ctx, container, key, body)
}

func (s *recordingStore) put(t *testing.T, key, data string) {
	require.NoError(t, s.BlobStore.Store(context.Background(), bucket, key, strings.NewReader(data)))
}

func (s *recordingStore) get(t *testing.T, key string) string {
	r, err := s.Fetch(context.Background(), bucket, key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func (s *recordingStore) has(key string) bool {
	r, err := s.Fetch(context.Background(), bucket, key)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

func newPipeline(t *testing.T, store datastore.ObjectStore, cfg Config) *Pipeline {
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = t.TempDir()
	}
	return New(store, cfg)
}

var customersEvent = trigger.Event{Container: bucket, Key: "metadata/customers_pii_fields.json"}

func TestRunTokenizesDataset(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "metadata/customers_pii_fields.json", "\ufeff['email', \"ssn\"]\n")
	store.put(t, "raw/customers.csv", "\ufeffid,email,ssn\r\n1,alice@example.com,123-45-6789\r\n2,,\r\n")

	spoolDir := t.TempDir()
	p := newPipeline(t, store, Config{SpoolDir: spoolDir})
	res, err := p.Run(context.Background(), customersEvent)
	require.NoError(t, err)

	assert.Equal(t, "id,email,ssn\r\n1,YWxpY2VAZXhhbXBsZS5jb20=,MTIzLTQ1LTY3ODk=\r\n2,,\r\n", store.get(t, "tokenized/customers_tokenized.csv"))
	assert.Equal(t, []string{"tokenized/customers_tokenized.csv"}, store.stored)
	assert.Equal(t, "raw/customers.csv", res.InputKey)
	assert.Equal(t, "tokenized/customers_tokenized.csv", res.OutputKey)
	assert.Equal(t, ',', res.Dialect.Delimiter)
	assert.True(t, res.Dialect.UseCRLF())
	assert.EqualValues(t, 2, res.Stats.RowsWritten)
	assert.EqualValues(t, 2, res.Stats.ValuesTransformed)
	assert.EqualValues(t, len("id,email,ssn\r\n1,YWxpY2VAZXhhbXBsZS5jb20=,MTIzLTQ1LTY3ODk=\r\n2,,\r\n"), res.OutputBytes)
	assert.NotEmpty(t, res.InvocationID)

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spool file is removed")
}

func TestRunSemicolonDataset(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "customers_pii_fields.json", `["email"]`)
	store.put(t, "raw/customers.csv", "id;email\n1;a@x.com\n2;b@x.com\n")

	_, err := newPipeline(t, store, Config{}).Run(context.Background(), trigger.Event{Container: bucket, Key: "customers_pii_fields.json"})
	require.NoError(t, err)
	assert.Equal(t, "id;email\n1;YUB4LmNvbQ==\n2;YkB4LmNvbQ==\n", store.get(t, "tokenized/customers_tokenized.csv"))
}

func TestRunEmptyFieldListCopiesDataset(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "metadata/customers_pii_fields.json", "[]")
	store.put(t, "raw/customers.csv", "id,email\n1,a@x.com\n")

	_, err := newPipeline(t, store, Config{}).Run(context.Background(), customersEvent)
	require.NoError(t, err)
	assert.Equal(t, "id,email\n1,a@x.com\n", store.get(t, "tokenized/customers_tokenized.csv"))
}

func TestRunTokenizeThenDetokenize(t *testing.T) {
	store := newRecordingStore(t)
	raw := "id,email,note\n1,alice@example.com,\"line one\nline two\"\n2,bob@example.com,\n"
	store.put(t, "metadata/customers_pii_fields.json", "['email', 'note']")
	store.put(t, "raw/customers.csv", raw)

	_, err := newPipeline(t, store, Config{}).Run(context.Background(), customersEvent)
	require.NoError(t, err)
	res, err := newPipeline(t, store, Config{Direction: tokenizer.DECODE}).Run(context.Background(), customersEvent)
	require.NoError(t, err)
	assert.Equal(t, "tokenized/customers_tokenized.csv", res.InputKey)
	assert.Equal(t, "detokenized/customers.csv", res.OutputKey)
	assert.Equal(t, raw, store.get(t, "detokenized/customers.csv"))
}

func TestRunFailuresStoreNothing(t *testing.T) {
	cases := []struct {
		name     string
		event    trigger.Event
		metadata string
		raw      string
		step     string
		kind     error
	}{
		{"bad metadata key", trigger.Event{Container: bucket, Key: "metadata/customers.json"}, "", "", errs.STEP_RESOLVE_KEYS, errs.ErrInvalidMetadataPath},
		{"missing metadata", customersEvent, "", "id,email\n1,x\n", errs.STEP_FETCH_METADATA, errs.ErrObjectNotFound},
		{"not a list", customersEvent, "not a list", "id,email\n1,x\n", errs.STEP_PARSE_FIELD_SPEC, errs.ErrInvalidFieldSpec},
		{"code in metadata", customersEvent, "__import__('os').system('id')", "id,email\n1,x\n", errs.STEP_PARSE_FIELD_SPEC, errs.ErrInvalidFieldSpec},
		{"missing raw dataset", customersEvent, "['email']", "", errs.STEP_FETCH_RAW, errs.ErrObjectNotFound},
		{"single line without delimiter", customersEvent, "['email']", "justoneheader\n", errs.STEP_DETECT_DIALECT, errs.ErrDialectDetectionFailed},
		{"empty dataset", customersEvent, "['email']", "\ufeff", errs.STEP_DETECT_DIALECT, errs.ErrDialectDetectionFailed},
		{"short row", customersEvent, "['email']", "id,email,ssn\n1,a,b\n2,c\n3,d,e\n", errs.STEP_TRANSFORM, errs.ErrMalformedRow},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := newRecordingStore(t)
			if c.metadata != "" {
				store.put(t, "metadata/customers_pii_fields.json", c.metadata)
			}
			if c.raw != "" {
				store.put(t, "raw/customers.csv", c.raw)
			}
			res, err := newPipeline(t, store, Config{}).Run(context.Background(), c.event)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, c.kind), err)
			var pErr *errs.PipelineError
			require.True(t, errors.As(err, &pErr))
			assert.Equal(t, c.step, pErr.FailedStep())
			assert.Empty(t, store.stored)
			assert.False(t, store.has("tokenized/customers_tokenized.csv"))
		})
	}
}

func TestRunShortRowSkipped(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "metadata/customers_pii_fields.json", "['email']")
	store.put(t, "raw/customers.csv", "id,email,ssn\n1,a,b\n2,c\n3,d,e\n")

	res, err := newPipeline(t, store, Config{ErrorPolicy: errorpolicy.SkipAndLogErrorPolicy}).Run(context.Background(), customersEvent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Stats.RowsSkipped)
	assert.Equal(t, "id,email,ssn\n1,YQ==,b\n3,ZA==,e\n", store.get(t, "tokenized/customers_tokenized.csv"))
}

func TestRunStoreFailure(t *testing.T) {
	store := newRecordingStore(t)
	store.storeErr = errors.New("access denied")
	store.put(t, "metadata/customers_pii_fields.json", "['email']")
	store.put(t, "raw/customers.csv", "id,email\n1,a\n")

	_, err := newPipeline(t, store, Config{}).Run(context.Background(), customersEvent)
	var pErr *errs.PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, errs.STEP_STORE_OUTPUT, pErr.FailedStep())
	assert.Equal(t, []string{errs.STEP_RESOLVE_KEYS, errs.STEP_FETCH_METADATA, errs.STEP_PARSE_FIELD_SPEC,
		errs.STEP_FETCH_RAW, errs.STEP_DETECT_DIALECT, errs.STEP_TRANSFORM}, pErr.Steps())
	assert.False(t, errs.IsUserError(err))
}

func TestRunFirstLineMode(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "metadata/customers_pii_fields.json", "['email']")
	store.put(t, "raw/customers.csv", "id|email\n")

	cfg := Config{Dialect: dialect.Options{Mode: dialect.FIRST_LINE_MODE}}
	_, err := newPipeline(t, store, cfg).Run(context.Background(), customersEvent)
	require.NoError(t, err)
	assert.Equal(t, "id|email\n", store.get(t, "tokenized/customers_tokenized.csv"))
}

func TestRunCanceled(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "metadata/customers_pii_fields.json", "['email']")
	store.put(t, "raw/customers.csv", "id,email\n1,a\n2,b\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t, store, Config{}).Run(ctx, customersEvent)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.stored)
}

func TestRunAll(t *testing.T) {
	store := newRecordingStore(t)
	for _, name := range []string{"a", "b", "c"} {
		store.put(t, "meta/"+name+"_pii_fields.json", "['v']")
		store.put(t, "raw/"+name+".csv", "k,v\n1,"+name+"\n")
	}
	events := []trigger.Event{
		{Container: bucket, Key: "meta/a_pii_fields.json"},
		{Container: bucket, Key: "meta/missing_pii_fields.json"},
		{Container: bucket, Key: "meta/b_pii_fields.json"},
		{Container: bucket, Key: "meta/c_pii_fields.json"},
	}
	results, err := newPipeline(t, store, Config{}).RunAll(context.Background(), events, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrObjectNotFound))
	require.Len(t, results, 4)
	assert.Nil(t, results[1])
	for _, i := range []int{0, 2, 3} {
		require.NotNil(t, results[i])
		assert.Equal(t, events[i], results[i].Event)
	}
	assert.Equal(t, "k,v\n1,Yg==\n", store.get(t, "tokenized/b_tokenized.csv"))
	assert.Len(t, store.stored, 3)
}

func TestRunEach(t *testing.T) {
	store := newRecordingStore(t)
	store.put(t, "meta/a_pii_fields.json", "['v']")
	store.put(t, "raw/a.csv", "k,v\n1,a\n")
	events := []trigger.Event{
		{Container: bucket, Key: "meta/a.json"},
		{Container: bucket, Key: "meta/a_pii_fields.json"},
	}
	outcomes := newPipeline(t, store, Config{}).RunEach(context.Background(), events, 0)
	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, errs.ErrInvalidMetadataPath)
	assert.Nil(t, outcomes[0].Result)
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, events[1], outcomes[1].Event)
	assert.Equal(t, "tokenized/a_tokenized.csv", outcomes[1].Result.OutputKey)
}
