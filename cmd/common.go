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
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-tokenizer/src/config"
	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/dialect"
	"github.com/yugabyte/yb-tokenizer/src/errorpolicy"
	"github.com/yugabyte/yb-tokenizer/src/errs"
	"github.com/yugabyte/yb-tokenizer/src/objectkey"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
	"github.com/yugabyte/yb-tokenizer/src/prometheus"
	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/utils"
	"github.com/yugabyte/yb-tokenizer/src/utils/jsonfile"
)

var (
	storeConfig    datastore.Config
	keyOptions     objectkey.Options
	dialectOptions dialect.Options
	delimiters     string
	codecName      string
	onMalformedRow string
	spoolDir       string
	parallelJobs   int
	metricsPort    string
	reportFile     string
)

func registerStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&storeConfig.Type, "store-type", datastore.S3_STORE,
		fmt.Sprintf("type of the object store holding the datasets, one of %v", datastore.StoreTypes()))
	cmd.Flags().StringVar(&storeConfig.URL, "store-url", "",
		"root directory for the local store, or a gocloud bucket URL (mem://, file:///...) for the blob store")
	cmd.Flags().StringVar(&storeConfig.AzureAccountURL, "azure-account-url", "",
		"account URL of the Azure storage account, e.g. https://<account>.blob.core.windows.net")
	cmd.Flags().StringVar(&storeConfig.AWSRegion, "aws-region", "",
		"AWS region of the S3 buckets (default from the AWS shared config / environment)")
}

func registerNamingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keyOptions.MetadataSuffix, "metadata-suffix", objectkey.DEFAULT_METADATA_SUFFIX,
		"suffix that marks the field metadata object of a dataset")
	cmd.Flags().StringVar(&keyOptions.Extension, "extension", objectkey.DEFAULT_EXTENSION,
		"file extension of the raw and tokenized datasets")
	cmd.Flags().StringVar(&keyOptions.RawPrefix, "raw-prefix", objectkey.DEFAULT_RAW_PREFIX,
		"key prefix of the raw datasets")
	cmd.Flags().StringVar(&keyOptions.OutputPrefix, "output-prefix", objectkey.DEFAULT_OUTPUT_PREFIX,
		"key prefix of the tokenized datasets")
	cmd.Flags().StringVar(&keyOptions.RestoredPrefix, "restored-prefix", objectkey.DEFAULT_RESTORED_PREFIX,
		"key prefix of the datasets restored by detokenize")
}

func registerTransformFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dialectOptions.Mode, "sniff-mode", dialect.MULTI_LINE_MODE,
		fmt.Sprintf("how the delimiter is detected, one of [%s, %s]", dialect.MULTI_LINE_MODE, dialect.FIRST_LINE_MODE))
	cmd.Flags().IntVar(&dialectOptions.SampleLines, "sample-lines", dialect.DEFAULT_SAMPLE_LINES,
		"number of records sampled to detect the delimiter in multi-line mode")
	cmd.Flags().StringVar(&delimiters, "delimiters", "",
		`candidate delimiters in priority order, as characters (";|") or names ("comma,tab") (default ",;\t|")`)
	cmd.Flags().StringVar(&codecName, "codec", tokenizer.DEFAULT_CODEC,
		fmt.Sprintf("token encoding, one of %v", tokenizer.CodecNames()))
	cmd.Flags().StringVar(&onMalformedRow, "on-malformed-row", errorpolicy.AbortErrorPolicyName,
		fmt.Sprintf("what to do with a row whose field count differs from the header, one of [%s, %s]",
			errorpolicy.AbortErrorPolicyName, errorpolicy.SkipAndLogErrorPolicyName))
	cmd.Flags().StringVar(&spoolDir, "spool-dir", "",
		"directory for the temporary output files (default the OS temp directory)")
}

func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&parallelJobs, "parallel-jobs", pipeline.DEFAULT_PARALLEL_JOBS,
		"number of invocations to run at the same time")
	cmd.Flags().StringVar(&metricsPort, "metrics-port", "",
		"serve prometheus metrics on this port (disabled when empty)")
}

func registerPipelineFlags(cmd *cobra.Command) {
	registerStoreFlags(cmd)
	registerNamingFlags(cmd)
	registerTransformFlags(cmd)
	registerRunFlags(cmd)
}

func buildPipelineConfig(direction tokenizer.Direction) (pipeline.Config, error) {
	var cfg pipeline.Config
	candidates, err := dialect.ParseCandidates(delimiters)
	if err != nil {
		return cfg, err
	}
	dialectOptions.Candidates = candidates
	if err := dialectOptions.Validate(); err != nil {
		return cfg, err
	}
	codec, err := tokenizer.NewCodec(codecName)
	if err != nil {
		return cfg, err
	}
	policy, err := errorpolicy.NewErrorPolicy(onMalformedRow)
	if err != nil {
		return cfg, err
	}
	if parallelJobs <= 0 {
		return cfg, fmt.Errorf("invalid --parallel-jobs %d: must be greater than 0", parallelJobs)
	}
	if spoolDir != "" && !utils.FileOrFolderExists(spoolDir) {
		return cfg, fmt.Errorf("spool directory %q does not exist", spoolDir)
	}
	cfg = pipeline.Config{
		Keys:        keyOptions,
		Dialect:     dialectOptions,
		Codec:       codec,
		ErrorPolicy: policy,
		Direction:   direction,
		SpoolDir:    spoolDir,
	}
	if config.IsLogLevelDebugOrBelow() {
		log.Debugf("pipeline config:\n%s", utils.Sdump(cfg))
	}
	return cfg, nil
}

func newPipeline(ctx context.Context, direction tokenizer.Direction) (*pipeline.Pipeline, error) {
	cfg, err := buildPipelineConfig(direction)
	if err != nil {
		return nil, err
	}
	if err := datastore.ValidateType(storeConfig.Type); err != nil {
		return nil, err
	}
	store, err := datastore.NewObjectStore(ctx, storeConfig)
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", storeConfig.Type, err)
	}
	log.Infof("using %s store", storeConfig.Type)
	return pipeline.New(store, cfg), nil
}

func startMetricsServerIfRequested(ctx context.Context) error {
	if metricsPort == "" {
		return nil
	}
	addr, err := prometheus.StartMetricsServer(ctx, metricsPort)
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	utils.PrintAndLog("serving metrics at http://%s/metrics", addr)
	return nil
}

type invocationReport struct {
	InvocationID      string    `json:"invocation_id,omitempty"`
	Direction         string    `json:"direction"`
	Container         string    `json:"container"`
	MetadataKey       string    `json:"metadata_key"`
	InputKey          string    `json:"input_key,omitempty"`
	OutputKey         string    `json:"output_key,omitempty"`
	Dialect           string    `json:"dialect,omitempty"`
	Fields            []string  `json:"fields,omitempty"`
	MissingFields     []string  `json:"missing_fields,omitempty"`
	RowsRead          int64     `json:"rows_read"`
	RowsWritten       int64     `json:"rows_written"`
	RowsSkipped       int64     `json:"rows_skipped"`
	ValuesTransformed int64     `json:"values_transformed"`
	OutputBytes       int64     `json:"output_bytes"`
	DurationMillis    int64     `json:"duration_ms"`
	FailedStep        string    `json:"failed_step,omitempty"`
	Error             string    `json:"error,omitempty"`
	FinishedAt        time.Time `json:"finished_at"`
}

// RunReport is the content of --report-file. Runs append to it.
type RunReport struct {
	Invocations []invocationReport `json:"invocations"`
}

func newInvocationReport(direction tokenizer.Direction, o pipeline.Outcome) invocationReport {
	r := invocationReport{
		Direction:   direction.String(),
		Container:   o.Event.Container,
		MetadataKey: o.Event.Key,
		FinishedAt:  time.Now().UTC(),
	}
	if res := o.Result; res != nil {
		r.InvocationID = res.InvocationID
		r.InputKey = res.InputKey
		r.OutputKey = res.OutputKey
		r.Dialect = res.Dialect.String()
		r.Fields = res.Fields.Names()
		r.OutputBytes = res.OutputBytes
		r.DurationMillis = res.Duration.Milliseconds()
		if s := res.Stats; s != nil {
			r.MissingFields = s.MissingFields
			r.RowsRead = s.RowsRead
			r.RowsWritten = s.RowsWritten
			r.RowsSkipped = s.RowsSkipped
			r.ValuesTransformed = s.ValuesTransformed
		}
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
		var perr *errs.PipelineError
		if errors.As(o.Err, &perr) {
			r.InvocationID = perr.InvocationID()
			r.FailedStep = perr.FailedStep()
		}
	}
	return r
}

func appendToReport(path string, reports []invocationReport) error {
	if path == "" {
		return nil
	}
	err := jsonfile.NewJsonFile[RunReport](path).Update(func(r *RunReport) {
		r.Invocations = append(r.Invocations, reports...)
	})
	if err != nil {
		return fmt.Errorf("update report file %q: %w", path, err)
	}
	return nil
}

// reportOutcomes prints one line per invocation and returns an error if any failed.
func reportOutcomes(cmd *cobra.Command, direction tokenizer.Direction, outcomes []pipeline.Outcome) error {
	reports := make([]invocationReport, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		reports = append(reports, newInvocationReport(direction, o))
		if o.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.RedString("FAILED"), o.Event, o.Err)
			continue
		}
		res := o.Result
		utils.PrintSuccess("%sd %s/%s -> %s/%s: %d rows, %d values, %s",
			direction, res.Keys.Container, res.InputKey, res.Keys.Container, res.OutputKey,
			res.Stats.RowsWritten, res.Stats.ValuesTransformed, utils.HumanBytes(res.OutputBytes))
		if len(res.Stats.MissingFields) > 0 {
			utils.PrintAndLog("fields not in the header of %s: [%s]", res.InputKey, strings.Join(res.Stats.MissingFields, ", "))
		}
		if res.Stats.RowsSkipped > 0 {
			utils.PrintAndLog("skipped %d malformed rows of %s", res.Stats.RowsSkipped, res.InputKey)
		}
	}
	if err := appendToReport(reportFile, reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d invocations failed", failed, len(outcomes))
	}
	return nil
}
