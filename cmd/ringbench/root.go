// Copyright 2023-2024 Andrew Sokolov
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ringbench",
	Short: "ringbench samples a key set through every ring algorithm in this module and reports the resulting distribution.",

	Example: `# Compare how 100k keys spread across a 5-node cluster under every algorithm
> ringbench --nodes=./nodes.yaml --keys=100000`,

	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		nodesPath := vpr.GetString("nodes")
		numKeys := vpr.GetInt("keys")

		nodes, err := LoadNodes(nodesPath)
		if err != nil {
			return err
		}

		log.Info().Int("nodes", len(nodes)).Int("keys", numKeys).Msg("starting benchmark")

		reports, err := runAll(ctx, nodes, numKeys)
		if err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}

		printReports(reports, nodes, numKeys)
		return nil
	},
}

var vpr *viper.Viper

func init() {
	rootCmd.PersistentFlags().String("nodes", "./nodes.yaml", "Path to a YAML file listing node names and weights.")
	rootCmd.PersistentFlags().Int("keys", 100_000, "Number of synthetic keys to sample.")

	vpr = viper.New()
	if err := vpr.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Sprintf("error binding flags: %s", err.Error()))
	}
}

// Execute runs the root command and returns the process exit code: 0 on
// success, 1 on failure. This is called by main.main().
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("ringbench failed")
		return 1
	}
	return 0
}
