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
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
	"github.com/yugabyte/yb-tokenizer/src/utils"
)

var (
	container   string
	metadataKey string
	eventFile   string
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize",
	Short: "Tokenize the datasets whose field metadata objects are given",
	Long: `Tokenize the dataset of one metadata object (--container and --metadata-key), or of every
metadata object named by a trigger document (--event-file). A trigger document is an S3 event
notification, an EventBridge "Object Created" event, or {"container": ..., "key": ...} objects.`,
	Example: `  yb-tokenizer tokenize --container pii-bucket --metadata-key uploads/customers_pii_fields.json
  yb-tokenizer tokenize --store-type local --store-url /data --event-file events.json`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, tokenizer.ENCODE)
	},
}

func init() {
	rootCmd.AddCommand(tokenizeCmd)
	registerOnceFlags(tokenizeCmd)
}

func registerOnceFlags(cmd *cobra.Command) {
	registerPipelineFlags(cmd)
	cmd.Flags().StringVar(&container, "container", "",
		"container (bucket) holding the metadata object")
	cmd.Flags().StringVar(&metadataKey, "metadata-key", "",
		"key of the metadata object")
	cmd.Flags().StringVar(&eventFile, "event-file", "",
		fmt.Sprintf("file with a trigger document, %q for stdin", utils.STDIN))
	cmd.Flags().StringVar(&reportFile, "report-file", "",
		"JSON file the outcome of every invocation is appended to")
	cmd.MarkFlagsMutuallyExclusive("metadata-key", "event-file")
}

func eventsFromFlags() ([]trigger.Event, error) {
	switch {
	case eventFile != "":
		data, err := utils.ReadInput(eventFile)
		if err != nil {
			return nil, err
		}
		events, err := trigger.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", eventFile, err)
		}
		return events, nil
	case container != "" && metadataKey != "":
		return []trigger.Event{{Container: container, Key: metadataKey}}, nil
	case metadataKey != "":
		return nil, fmt.Errorf("--container is required with --metadata-key")
	default:
		return nil, fmt.Errorf("one of --metadata-key or --event-file is required")
	}
}

func runOnce(cmd *cobra.Command, direction tokenizer.Direction) error {
	ctx := cmd.Context()
	events, err := eventsFromFlags()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		utils.PrintAndLog("no object created events to %s", direction)
		return nil
	}
	if err := startMetricsServerIfRequested(ctx); err != nil {
		return err
	}
	p, err := newPipeline(ctx, direction)
	if err != nil {
		return err
	}
	log.Infof("running %d invocations with %d parallel jobs", len(events), parallelJobs)
	outcomes := p.RunEach(ctx, events, parallelJobs)
	return reportOutcomes(cmd, direction, outcomes)
}
