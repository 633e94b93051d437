package main

import (
	"fmt"
	"io"

	hostcheck "github.com/danielbachhuber/host-check-command"
	"github.com/danielbachhuber/host-check-command/cmd/hostcheck/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHostCheckCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host-check",
		Short: "Check that the WordPress install at --path is still hosted here",
		Long: `Loads just enough of the WordPress install at --path to find its public
upload directory, writes a marker file there and fetches it through the site URL.
When the marker comes back, wp-login.php is fetched and classified.

The final two log lines are "Summary: <path>, <status>, <version>" and
"Details: <json>". Every status is a successful run; only marker write or
delete failures and an unrecognizable wp-config.php exit non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHostCheck(cmd, v, stdout)
		},
	}

	flags := cmd.Flags()
	flags.String("path", "", "path to the WordPress install")
	flags.String("url", "", "override the site URL")
	flags.String("ca-bundle", "", "PEM CA bundle tried before SSL_CERT_FILE and the system bundles")
	flags.String("ca-archive", "", "zip archive to extract the CA bundle from")
	flags.String("timeout", "", "HTTP timeout per request (default 10s)")
	flags.String("db-timeout", "", "database connect and query timeout (default 10s)")
	_ = cmd.MarkFlagRequired("path")

	_ = v.BindPFlag("path", flags.Lookup("path"))
	_ = v.BindPFlag("url", flags.Lookup("url"))
	_ = v.BindPFlag("client.ca_bundle", flags.Lookup("ca-bundle"))
	_ = v.BindPFlag("client.ca_archive", flags.Lookup("ca-archive"))
	_ = v.BindPFlag("client.timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("db.timeout", flags.Lookup("db-timeout"))
	return cmd
}

func runHostCheck(cmd *cobra.Command, v *viper.Viper, w io.Writer) error {
	var doc config.ConfigDoc
	if path := v.GetString("config"); path != "" {
		if err := doc.Load(path); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	doc.ApplyOverrides(v)
	if err := doc.SetupLogging(w); err != nil {
		return err
	}
	opts, err := doc.Options()
	if err != nil {
		return err
	}

	if _, err := hostcheck.Check(cmd.Context(), v.GetString("path"), opts); err != nil {
		return err
	}
	return nil
}
