package cli

import (
	"fmt"

	"github.com/platinummonkey/dockgen/pkg/config"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the dockgen command tree
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &rootOptions{}
	a := &app{deps: deps, opts: opts}

	root := &cobra.Command{
		Use:   "dockgen",
		Short: "Generate Go code from a disposable database",
		Long: `dockgen starts a database in a Docker container, applies the versioned
SQL migrations, generates Go row types from the resulting schema and
removes the container again, whatever the outcome.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(deps.Out)
	root.SetErr(deps.Err)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		fmt.Sprintf("config file (default is %s when present)", config.DefaultConfigFile))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newGenerateCommand(a),
		newMigrateCommand(a),
		newCodegenCommand(a),
		newResolveHostCommand(a),
		newConfigCommand(a),
	)
	return root
}

// addRunFlags registers the per-run overrides
func addRunFlags(cmd *cobra.Command, opts *rootOptions) {
	cmd.Flags().StringVar(&opts.containerName, "container-name", "",
		"container name; an empty value picks a random one for isolated concurrent runs")
	cmd.Flags().StringVar(&opts.hostOverride, "host-override", "",
		"database host to use instead of the one derived from the Docker endpoint")
}
