// Package cli provides the command-line interface for batect
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/exustash/batect/pkg/types"
)

var (
	cfgFile  string
	logLevel string
	version  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "batect",
	Short: "The build and testing environments as code tool",
	Long: `batect runs your development and testing tasks inside containers.

Each task's containers, networks and health-checked dependencies are created
on demand and torn down again when the task finishes, so every run starts
from a clean, reproducible environment.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("batect v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI and returns the process exit code. Task exit codes
// pass through unchanged; usage and configuration problems map onto the
// reserved configuration error code.
func Execute(v string) int {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		printError(err.Error())
		return types.ExitCodeConfigError
	}
	return 0
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "batect.yml", "configuration file to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	// Read in environment variables: BATECT_CONFIG, BATECT_LOG_LEVEL and
	// friends override defaults but not explicit flags.
	viper.SetEnvPrefix("BATECT")
	viper.AutomaticEnv()

	if !rootCmd.PersistentFlags().Changed("config") {
		if fromEnv := viper.GetString("config"); fromEnv != "" {
			cfgFile = fromEnv
		}
	}
	if !rootCmd.PersistentFlags().Changed("log-level") {
		if fromEnv := viper.GetString("log_level"); fromEnv != "" {
			logLevel = fromEnv
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("batect v%s\n", version)
		},
	}
}

// exitCodeError carries a process exit code through cobra's error path.
// The run command prints its own diagnostics, so the error itself is silent.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// Helper functions

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[batect]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[batect]"), message)
}
