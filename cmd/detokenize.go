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
)

var detokenizeCmd = &cobra.Command{
	Use:   "detokenize",
	Short: "Restore the tokenized datasets of the given field metadata objects",
	Long: `Decode the masked fields of "<output-prefix>X_tokenized.<ext>" back to their original values and
write "<restored-prefix>X.<ext>". The metadata object and the codec must be the ones the dataset
was tokenized with.`,
	Example: `  yb-tokenizer detokenize --container pii-bucket --metadata-key uploads/customers_pii_fields.json`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, tokenizer.DECODE)
	},
}

func init() {
	rootCmd.AddCommand(detokenizeCmd)
	registerOnceFlags(detokenizeCmd)
}
