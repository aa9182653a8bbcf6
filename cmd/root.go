package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/config"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/logger"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "go-vmdk-inspect",
	Short: "A CLI tool for inspecting VMDK disk metadata",
	Long: `go-vmdk-inspect reads the metadata of VMware VMDK virtual disks
without touching the grain data: the binary sparse extent header, the
embedded or standalone text descriptor, the extent list and the disk
database, plus snapshot parent chains across descriptor files.

It never writes to the disks it inspects.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CLI flags can override config settings
		if cmd.Flags().Changed("debug") {
			config.Instance.Debug, _ = cmd.Flags().GetBool("debug")
		}

		if cmd.Flags().Changed("log-format") {
			config.Instance.LogFormat, _ = cmd.Flags().GetString("log-format")
		}

		if cmd.Flags().Changed("output") {
			config.Instance.Output.Format, _ = cmd.Flags().GetString("output")
		}

		if cmd.Flags().Changed("strict") {
			config.Instance.Output.Strict, _ = cmd.Flags().GetBool("strict")
		}

		// If config file was explicitly specified via flag, reinitialize
		if cmd.Flags().Changed("config") && cfgFile != "" {
			// Only log an error, don't exit, as the config may still be usable
			if err := config.Initialize(cfgFile); err != nil {
				logger.LogError("Error loading config file", err, map[string]interface{}{
					"config_file": cfgFile,
				})
			}
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")

	// Debug flag
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Log format flag
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")

	// Output format flag, shared by all inspection commands
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text, json or yaml")

	// Strict flag
	rootCmd.PersistentFlags().Bool("strict", false, "Treat unrecognized files as errors")

	// Bind flags to viper settings
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("output.strict", rootCmd.PersistentFlags().Lookup("strict"))

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("go-vmdk-inspect v0.1.0")
	},
}
