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
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yugabyte/yb-tokenizer/src/utils"
)

const (
	CONFIG_FILE_ENV_VAR = "YB_TOKENIZER_CONFIG_FILE"
	DEFAULT_CONFIG_NAME = "yb-tokenizer-config"
	ENV_PREFIX          = "YB_TOKENIZER"
	DOT_ENV_FILE        = ".env"
	CONFIG_FILE_FLAG    = "config-file"
)

// Keys that may appear at the top level of the config file. They apply to every
// command that has a flag of the same name.
var allowedGlobalConfigKeys = mapset.NewThreadUnsafeSet[string](
	"log-level", "log-dir",
	"store-type", "store-url", "azure-account-url", "aws-region",
	"metadata-suffix", "extension", "raw-prefix", "output-prefix", "restored-prefix",
	"sniff-mode", "sample-lines", "delimiters", "codec", "on-malformed-row",
	"spool-dir", "parallel-jobs", "metrics-port",
)

var allowedPipelineConfigKeys = mapset.NewThreadUnsafeSet[string](
	"store-type", "store-url", "azure-account-url", "aws-region",
	"metadata-suffix", "extension", "raw-prefix", "output-prefix", "restored-prefix",
	"sniff-mode", "sample-lines", "delimiters", "codec", "on-malformed-row",
	"spool-dir", "parallel-jobs", "metrics-port",
)

var allowedTokenizeConfigKeys = allowedPipelineConfigKeys.Union(mapset.NewThreadUnsafeSet[string](
	"container", "metadata-key", "event-file", "report-file",
))

var allowedDetokenizeConfigKeys = allowedTokenizeConfigKeys.Clone()

var allowedServeConfigKeys = allowedPipelineConfigKeys.Union(mapset.NewThreadUnsafeSet[string](
	"listen-addr",
))

// watch always reads from the local store rooted at the watched directory.
var allowedWatchConfigKeys = mapset.NewThreadUnsafeSet[string](
	"metadata-suffix", "extension", "raw-prefix", "output-prefix", "restored-prefix",
	"sniff-mode", "sample-lines", "delimiters", "codec", "on-malformed-row",
	"spool-dir", "parallel-jobs", "metrics-port",
	"watch-dir", "debounce", "process-existing",
)

var allowedConfigSections = map[string]mapset.Set[string]{
	"tokenize":   allowedTokenizeConfigKeys,
	"detokenize": allowedDetokenizeConfigKeys,
	"serve":      allowedServeConfigKeys,
	"watch":      allowedWatchConfigKeys,
}

// ConfigFlagOverride represents a CLI flag whose value was taken from the config
// file or the environment rather than from the command line.
type ConfigFlagOverride struct {
	FlagName  string
	ConfigKey string
	Value     string
}

/*
initConfig initializes the configuration for the given Cobra command.

	 1. Loads a .env file from the working directory, if there is one, without
	    overriding variables that are already set.
	 2. Picks the config file: --config-file, then $YB_TOKENIZER_CONFIG_FILE, then
	    ~/yb-tokenizer-config.yaml.
	 3. Validates the config file for allowed global keys, sections and section keys.
	 4. Binds the values to the flags the user did not set on the command line.

	This gives CLI > environment > config file > flag default precedence.
*/
func initConfig(cmd *cobra.Command) ([]ConfigFlagOverride, error) {
	if utils.FileOrFolderExists(DOT_ENV_FILE) {
		if err := godotenv.Load(DOT_ENV_FILE); err != nil {
			return nil, fmt.Errorf("load %s: %w", DOT_ENV_FILE, err)
		}
	}

	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound || cfgFile != "" || os.Getenv(CONFIG_FILE_ENV_VAR) != "" {
			// An explicitly named config file has to exist.
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	err = validateConfigFile(v)
	if err != nil {
		return nil, err
	}

	overrides, err := bindCobraFlagsToViper(cmd, v)
	if err != nil {
		return nil, fmt.Errorf("failed to bind cobra flags to viper: %w", err)
	}
	return overrides, nil
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	switch {
	case configFile != "":
		v.SetConfigFile(configFile)
	case os.Getenv(CONFIG_FILE_ENV_VAR) != "":
		v.SetConfigFile(os.Getenv(CONFIG_FILE_ENV_VAR))
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(home)
		v.SetConfigName(DEFAULT_CONFIG_NAME)
		v.SetConfigType("yaml")
	}
	return v, nil
}

/*
validateConfigFile checks that every global key, section and section key of the
loaded config file is known. All problems are printed before the error is returned
so that the user can fix them in one go.
*/
func validateConfigFile(v *viper.Viper) error {
	invalidGlobalKeys := mapset.NewThreadUnsafeSet[string]()
	invalidSectionKeys := make(map[string]mapset.Set[string])
	invalidSections := mapset.NewThreadUnsafeSet[string]()

	for _, key := range v.AllKeys() {
		parts := strings.Split(key, ".")
		if len(parts) == 1 {
			if !allowedGlobalConfigKeys.Contains(key) {
				invalidGlobalKeys.Add(key)
			}
			continue
		}
		// "a.b.c" -> section: "a", nestedKey: "b.c"
		section := parts[0]
		nestedKey := strings.Join(parts[1:], ".")
		allowedKeys, ok := allowedConfigSections[section]
		if !ok {
			invalidSections.Add(section)
			continue
		}
		if !allowedKeys.Contains(nestedKey) {
			if _, exists := invalidSectionKeys[section]; !exists {
				invalidSectionKeys[section] = mapset.NewThreadUnsafeSet[string]()
			}
			invalidSectionKeys[section].Add(nestedKey)
		}
	}

	if invalidGlobalKeys.Cardinality() == 0 && len(invalidSectionKeys) == 0 && invalidSections.Cardinality() == 0 {
		return nil
	}
	if invalidGlobalKeys.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid global config keys:"), strings.Join(invalidGlobalKeys.ToSlice(), ", "))
	}
	for section, keys := range invalidSectionKeys {
		fmt.Printf("%s [%s]\n", color.RedString(fmt.Sprintf("Invalid keys in section '%s':", section)), strings.Join(keys.ToSlice(), ", "))
	}
	if invalidSections.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid sections:"), strings.Join(invalidSections.ToSlice(), ", "))
	}
	return fmt.Errorf("found invalid configurations in config file: %s", v.ConfigFileUsed())
}

/*
bindCobraFlagsToViper sets every flag that was not given on the command line from
"<command>.<flag>" if present, else from the global "<flag>". Both lookups also
consult the environment, e.g. YB_TOKENIZER_TOKENIZE_CONTAINER and YB_TOKENIZER_CONTAINER.
*/
func bindCobraFlagsToViper(cmd *cobra.Command, v *viper.Viper) ([]ConfigFlagOverride, error) {
	var bindErr error
	var overrides []ConfigFlagOverride

	subCmdPath := strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()))
	configKeyPrefix := strings.ReplaceAll(subCmdPath, " ", "-")

	set := func(f *pflag.Flag, key string) {
		val := v.GetString(key)
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			bindErr = fmt.Errorf("config key %q: %w", key, err)
			return
		}
		overrides = append(overrides, ConfigFlagOverride{FlagName: f.Name, ConfigKey: key, Value: val})
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || f.Name == CONFIG_FILE_FLAG || f.Name == "help" {
			return
		}
		switch {
		case configKeyPrefix != "" && v.IsSet(configKeyPrefix+"."+f.Name):
			set(f, configKeyPrefix+"."+f.Name)
		case v.IsSet(f.Name):
			set(f, f.Name)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return overrides, nil
}
