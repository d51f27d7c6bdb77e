// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/phumiphatauk/tinystore/pkg/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tinystore",
	Short: "TinyStore - a self-hosted S3-compatible object store",
	Long: `TinyStore is a single-node object storage server exposing an
S3-compatible HTTP API. Objects live on the local filesystem (or in
memory for testing) and requests are authenticated with AWS Signature
Version 4.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
