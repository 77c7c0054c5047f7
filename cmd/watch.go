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
	"time"

	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/utils"
	"github.com/yugabyte/yb-tokenizer/src/watcher"
)

var (
	watchDir        string
	debounce        time.Duration
	processExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tokenize the datasets of a local directory as their field metadata files appear",
	Long: `Watch --watch-dir recursively. When a "*_pii_fields.json" file is created or written and then
stays unchanged for --debounce, the dataset it belongs to is tokenized. Keys are relative to
--watch-dir, e.g. <watch-dir>/raw/X.csv and <watch-dir>/tokenized/X_tokenized.csv.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if watchDir == "" {
			return fmt.Errorf("--watch-dir is required")
		}
		if !utils.FileOrFolderExists(watchDir) {
			return fmt.Errorf("watch directory %q does not exist", watchDir)
		}
		store, err := datastore.NewLocalStore(watchDir)
		if err != nil {
			return err
		}
		cfg, err := buildPipelineConfig(tokenizer.ENCODE)
		if err != nil {
			return err
		}
		if err := startMetricsServerIfRequested(ctx); err != nil {
			return err
		}
		w := watcher.New(store, pipeline.New(store, cfg), watcher.Options{
			Keys:            cfg.Keys,
			Debounce:        debounce,
			Parallelism:     parallelJobs,
			ProcessExisting: processExisting,
		})
		utils.PrintAndLog("watching %s, press Ctrl-C to stop", store.Root())
		return w.Watch(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	registerNamingFlags(watchCmd)
	registerTransformFlags(watchCmd)
	registerRunFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchDir, "watch-dir", "",
		"directory to watch; it is the root of the local store")
	watchCmd.Flags().DurationVar(&debounce, "debounce", watcher.DEFAULT_DEBOUNCE,
		"how long a metadata file must stay unchanged before it is processed")
	watchCmd.Flags().BoolVar(&processExisting, "process-existing", false,
		"also process the metadata files present when watching starts")
}
