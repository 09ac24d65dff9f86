package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	strict  bool
	envFile string
)

type envConfig struct {
	DataDir string `env:"DATA_DIR" envDefault:"data"`
}

var rootCmd = &cobra.Command{
	Use:               "recordsctl",
	Short:             "Inspect and export the support chat record store",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnv,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "record store directory, $DATA_DIR when not set")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", true, "fail on corrupt record files instead of treating them as empty")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadEnv applies the dotenv file and DATA_DIR. An explicit --data-dir wins.
func loadEnv(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	if cmd.Flags().Changed("data-dir") {
		return nil
	}
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	dataDir = cfg.DataDir
	return nil
}
