// Command perceptron trains a one-vs-rest perceptron ensemble on IDX image
// files and reports its accuracy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/perceptron/config"
	"github.com/YuminosukeSato/perceptron/pkg/log"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	settings   = config.New()
	configPath string
)

var rootCommand = &cobra.Command{
	Use:           "perceptron",
	Short:         "Train and evaluate one-vs-rest perceptron classifiers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the version of perceptron",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (yaml, toml or json)")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	_ = settings.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(trainCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.GetLogger().Error("perceptron failed", err)
		os.Exit(1)
	}
}
