package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/hpgen/internal/config"
)

var (
	configPath  string
	configForce bool
)

func init() {
	configCmd.PersistentFlags().StringVar(&configPath, "path", "", "Profile path (default: user config directory)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Replace an existing profile")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the generation profile",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default generation profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path, err := config.Init(configPath, configForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective generation profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		profile, err := config.LoadProfile(configPath)
		if err != nil {
			return err
		}
		data, err := profile.Effective().Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
