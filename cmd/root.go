// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	datastoreEngineFlag = "datastore-engine"
	datastoreURIFlag    = "datastore-uri"
	datastoreNameFlag   = "datastore-name"
	logFormatFlag       = "log-format"
	logLevelFlag        = "log-level"
)

// NewRootCommand enables all children commands to read flags from CLI flags
// or environment variables prefixed with PULP (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetEnvPrefix("PULP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "pulpquery",
		Short: "Query which content units are associated with a repository",
		Long:  "pulpquery resolves repo-unit association queries against a document store where associations and unit payloads live in separate collections.",
	}

	flags := cmd.PersistentFlags()
	flags.String(datastoreEngineFlag, "memory", "datastore engine ('memory' or 'mongodb')")
	flags.String(datastoreURIFlag, "mongodb://localhost:27017", "datastore connection URI (mongodb engine)")
	flags.String(datastoreNameFlag, "pulp_database", "database name (mongodb engine)")
	flags.String(logFormatFlag, "text", "log output format ('text' or 'json')")
	flags.String(logLevelFlag, "info", "log level (none, debug, info, warn, error, panic, fatal)")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}
