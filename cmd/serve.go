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
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-tokenizer/src/tokenizer"
	"github.com/yugabyte/yb-tokenizer/src/webhook"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP endpoint that tokenizes the datasets of posted object created events",
	Long: `Serve POST /events. The body is a trigger document: an S3 event notification, an EventBridge
"Object Created" event, or {"container": ..., "key": ...} objects. Every event is one invocation;
the response lists the outcome of each. GET /healthz and GET /metrics are served as well.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := startMetricsServerIfRequested(ctx); err != nil {
			return err
		}
		p, err := newPipeline(ctx, tokenizer.ENCODE)
		if err != nil {
			return err
		}
		return webhook.NewServer(p, parallelJobs).ListenAndServe(ctx, listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	registerPipelineFlags(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", ":8080",
		"address to listen for events on")
}
