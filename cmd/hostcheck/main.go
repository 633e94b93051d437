package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd wires the cobra tree to v. Flags, HOSTCHECK_* environment
// variables and the optional YAML file all land in the same keys.
func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hostcheck",
		Short:         "Check that a WordPress install is still hosted at its configured domain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v.SetEnvPrefix("HOSTCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", "", "path to a config yaml")
	rootCmd.PersistentFlags().String("log-level", "", "error, warn, info or debug")
	rootCmd.PersistentFlags().String("log-format", "", "text, json or color")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newHostCheckCmd(v))
	return rootCmd
}

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
		return
	}
	exitHandler.Exit(0)
}

// stdout is where log lines, including the summary, are written.
var stdout io.Writer = os.Stdout
