package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fekuna/omnipos-catalog-sync/config"
)

var rootCmd = &cobra.Command{
	Use:   "catalogsync",
	Short: "Mirror the remote product catalog into the storefront database",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load() // Load .env file if it exists
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	return config.LoadEnv()
}
