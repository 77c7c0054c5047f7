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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-tokenizer/src/config"
	"github.com/yugabyte/yb-tokenizer/src/utils"
)

var (
	cfgFile string
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "yb-tokenizer",
	Short: "A CLI to mask the sensitive fields of delimited datasets when their field metadata arrives",
	Long: `A CLI to mask the sensitive fields of delimited datasets.

When a metadata object "<prefix>/X_pii_fields.json" listing the sensitive field names of dataset X
becomes available, yb-tokenizer reads "raw/X.csv" from the same container, replaces every non-empty
value of the listed columns with its base64 encoding and writes "tokenized/X_tokenized.csv".
The encoding is reversible by anyone; it is tokenization, not encryption.`,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		overrides, err := initConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.ApplyLogLevel(); err != nil {
			return err
		}
		InitLogging(logDir, cmd.Name())
		for _, o := range overrides {
			log.Infof("flag %q set from config key %q: %q", o.FlagName, o.ConfigKey, o.Value)
		}
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.ErrExit("%w", err)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	registerCommonGlobalFlags(rootCmd)
}

func registerCommonGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&cfgFile, "config-file", "c", "",
		"path of the config file (default $YB_TOKENIZER_CONFIG_FILE or ~/yb-tokenizer-config.yaml)")

	cmd.PersistentFlags().StringVarP(&config.LogLevel, "log-level", "l", config.INFO,
		"log level, one of trace, debug, info, warn, error, fatal, panic")

	cmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"directory for the log files (logs go to stderr when not set)")
}
