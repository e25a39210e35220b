package main

import (
	"fmt"
	"path/filepath"

	"github.com/metalagman/stagehand/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:   "stagehand",
		Short: "stagehand is an agent workflow orchestration runtime",
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", filepath.Join(".stagehand", "config.json"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(debug)
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(processesCmd())
	rootCmd.AddCommand(breakpointsCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(uiCmd())
	rootCmd.AddCommand(pruneCmd())
	return rootCmd.Execute()
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = filepath.Join(".stagehand", "config.json")
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
}
