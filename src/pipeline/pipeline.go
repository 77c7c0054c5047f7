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
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/dialect"
	"github.com/yugabyte/yb-tokenizer/src/errorpolicy"
	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/fieldspec"
	"github.com/yugabyte/yb-tokenizer/src/objectkey"
	"github.com/yugabyte/yb-tokenizer/src/prometheus"
	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
)

const (
	MAX_METADATA_SIZE     = 1024 * 1024
	DEFAULT_PARALLEL_JOBS = 4
)

type Config struct {
	Keys        objectkey.Options
	Dialect     dialect.Options
	Codec       tokenizer.Codec
	ErrorPolicy errorpolicy.ErrorPolicy
	Direction   tokenizer.Direction
	// Directory for the spool files, the OS temp dir when empty.
	SpoolDir string
}

type Pipeline struct {
	store datastore.ObjectStore
	cfg   Config
}

type Result struct {
	InvocationID string
	Event        trigger.Event
	Keys         *objectkey.Keys
	// InputKey and OutputKey depend on the direction.
	InputKey    string
	OutputKey   string
	Fields      fieldspec.FieldSpec
	Dialect     dialect.Dialect
	Stats       *tokenizer.Stats
	OutputBytes int64
	Duration    time.Duration
}

func New(store datastore.ObjectStore, cfg Config) *Pipeline {
	if cfg.Codec == nil {
		cfg.Codec, _ = tokenizer.NewCodec(tokenizer.DEFAULT_CODEC)
	}
	return &Pipeline{store: store, cfg: cfg}
}

// invocation tracks the steps of one Run.
type invocation struct {
	id     string
	steps  []string
	logger *log.Entry
}

func (inv *invocation) fail(step string, err error) error {
	inv.logger.Errorf("step %s failed: %v", step, err)
	return errs.NewPipelineError(inv.id, inv.steps, step, err)
}

func (inv *invocation) done(step string) {
	inv.logger.Debugf("step %s done", step)
	inv.steps = append(inv.steps, step)
}

/*
Run processes the dataset announced by event:

	resolve keys -> fetch metadata -> parse field spec -> fetch raw dataset ->
	detect dialect -> transform into a spool file -> store the output once

The first failing step aborts the run with a *errs.PipelineError and nothing
is stored.
*/
func (p *Pipeline) Run(ctx context.Context, event trigger.Event) (*Result, error) {
	start := time.Now()
	inv := &invocation{id: uuid.New().String()}
	inv.logger = log.WithField("invocation", inv.id)
	direction := p.cfg.Direction.String()
	inv.logger.Infof("%s %s", direction, event)

	res, err := p.run(ctx, inv, event)
	prometheus.RecordInvocation(direction, err == nil)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	inv.logger.Infof("stored %s/%s: rows written=%d skipped=%d values %sd=%d in %s",
		event.Container, res.OutputKey, res.Stats.RowsWritten, res.Stats.RowsSkipped, direction, res.Stats.ValuesTransformed, res.Duration)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, inv *invocation, event trigger.Event) (*Result, error) {
	keys, err := objectkey.Resolve(event.Container, event.Key, p.cfg.Keys)
	if err != nil {
		return nil, inv.fail(errs.STEP_RESOLVE_KEYS, err)
	}
	res := &Result{InvocationID: inv.id, Event: event, Keys: keys, InputKey: keys.RawKey, OutputKey: keys.OutputKey}
	if p.cfg.Direction == tokenizer.DECODE {
		res.InputKey, res.OutputKey = keys.OutputKey, keys.RestoredKey
	}
	inv.logger.Infof("resolved %s", keys)
	inv.done(errs.STEP_RESOLVE_KEYS)

	metadata, err := p.fetchMetadata(ctx, keys)
	if err != nil {
		return nil, inv.fail(errs.STEP_FETCH_METADATA, err)
	}
	inv.done(errs.STEP_FETCH_METADATA)

	res.Fields, err = fieldspec.Parse(metadata)
	if err != nil {
		return nil, inv.fail(errs.STEP_PARSE_FIELD_SPEC, err)
	}
	if res.Fields.IsEmpty() {
		inv.logger.Warnf("no fields listed in %s, the dataset is copied unchanged", keys.MetadataKey)
	}
	inv.done(errs.STEP_PARSE_FIELD_SPEC)

	input, err := p.store.Fetch(ctx, keys.Container, res.InputKey)
	if err != nil {
		return nil, inv.fail(errs.STEP_FETCH_RAW, err)
	}
	defer input.Close()
	inv.done(errs.STEP_FETCH_RAW)

	// Strip a leading BOM; later invalid UTF-8 becomes U+FFFD.
	decoded := transform.NewReader(input, unicode.UTF8BOM.NewDecoder())
	br := bufio.NewReaderSize(decoded, dialect.DEFAULT_SAMPLE_BYTES)
	sample, complete, err := dialect.Sample(br, dialect.DEFAULT_SAMPLE_BYTES)
	if err != nil {
		return nil, inv.fail(errs.STEP_DETECT_DIALECT, fmt.Errorf("read %s: %w", res.InputKey, err))
	}
	res.Dialect, err = dialect.Detect(sample, complete, p.cfg.Dialect)
	if err != nil {
		return nil, inv.fail(errs.STEP_DETECT_DIALECT, err)
	}
	inv.done(errs.STEP_DETECT_DIALECT)

	spool, err := os.CreateTemp(p.cfg.SpoolDir, "yb-tokenizer-*.spool")
	if err != nil {
		return nil, inv.fail(errs.STEP_TRANSFORM, fmt.Errorf("create spool file: %w", err))
	}
	defer func() {
		spool.Close()
		if err := os.Remove(spool.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			inv.logger.Warnf("remove spool file %s: %v", spool.Name(), err)
		}
	}()

	tr := tokenizer.NewTransformer(res.Dialect, res.Fields, p.cfg.Codec, p.cfg.ErrorPolicy, p.cfg.Direction)
	res.Stats, err = tr.Transform(ctx, br, spool)
	if res.Stats != nil {
		prometheus.RecordTransform(p.cfg.Direction.String(), res.Stats.RowsRead, res.Stats.RowsWritten, res.Stats.RowsSkipped, res.Stats.ValuesTransformed)
	}
	if err != nil {
		return nil, inv.fail(errs.STEP_TRANSFORM, err)
	}
	inv.done(errs.STEP_TRANSFORM)

	if err := ctx.Err(); err != nil {
		return nil, inv.fail(errs.STEP_STORE_OUTPUT, err)
	}
	res.OutputBytes, err = spool.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = spool.Seek(0, io.SeekStart)
	}
	if err != nil {
		return nil, inv.fail(errs.STEP_STORE_OUTPUT, fmt.Errorf("rewind spool file: %w", err))
	}
	if err := p.store.Store(ctx, keys.Container, res.OutputKey, spool); err != nil {
		return nil, inv.fail(errs.STEP_STORE_OUTPUT, err)
	}
	prometheus.RecordOutput(p.cfg.Direction.String(), res.OutputBytes)
	inv.done(errs.STEP_STORE_OUTPUT)
	return res, nil
}

func (p *Pipeline) fetchMetadata(ctx context.Context, keys *objectkey.Keys) ([]byte, error) {
	r, err := p.store.Fetch(ctx, keys.Container, keys.MetadataKey)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, MAX_METADATA_SIZE+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", keys.MetadataKey, err)
	}
	if len(data) > MAX_METADATA_SIZE {
		return nil, errs.NewInvalidFieldSpecError(0, "metadata object is larger than %d bytes", MAX_METADATA_SIZE)
	}
	return data, nil
}

// Outcome is the result of one invocation of RunEach.
type Outcome struct {
	Event  trigger.Event
	Result *Result
	Err    error
}

// RunEach runs one invocation per event with at most parallelism running at a
// time. Invocations are independent: a failure does not stop the others.
// outcomes[i] belongs to events[i].
func (p *Pipeline) RunEach(ctx context.Context, events []trigger.Event, parallelism int) []Outcome {
	if parallelism <= 0 {
		parallelism = DEFAULT_PARALLEL_JOBS
	}
	outcomes := make([]Outcome, len(events))
	workers := pool.New().WithMaxGoroutines(parallelism)
	for i, event := range events {
		i, event := i, event
		workers.Go(func() {
			res, err := p.Run(ctx, event)
			outcomes[i] = Outcome{Event: event, Result: res, Err: err}
		})
	}
	workers.Wait()
	return outcomes
}

// RunAll is RunEach returning results[i] for events[i], nil when that
// invocation failed, and the errors of all failed invocations joined.
func (p *Pipeline) RunAll(ctx context.Context, events []trigger.Event, parallelism int) ([]*Result, error) {
	outcomes := p.RunEach(ctx, events, parallelism)
	results := make([]*Result, len(outcomes))
	var errList []error
	for i, o := range outcomes {
		results[i] = o.Result
		if o.Err != nil {
			errList = append(errList, o.Err)
		}
	}
	return results, errors.Join(errList...)
}
