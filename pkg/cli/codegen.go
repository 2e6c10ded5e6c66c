package cli

import (
	"fmt"

	"github.com/platinummonkey/dockgen/pkg/codegen"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// newCodegenCommand is the child side of the subprocess generator. It reads
// its own YAML config and never touches the dockgen configuration.
func newCodegenCommand(a *app) *cobra.Command {
	var configPath, resultPath string

	cmd := &cobra.Command{
		Use:   "codegen",
		Short: "Generate code from a running database",
		Long: `codegen introspects an already migrated database and writes Go row types.
dockgen runs it as a child process when generation.generator_command is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := observability.InfoLevel
			if a.opts.verbose {
				level = observability.DebugLevel
			}
			log := observability.NewLogger(level, observability.FormatText, cmd.ErrOrStderr())

			cfg, err := codegen.LoadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := observability.SignalContext(cmd.Context(), log)
			defer cancel()

			generator := codegen.NewSchemaGenerator(
				codegen.WithLogger(log),
				codegen.WithMetrics(observability.NewMetrics(prometheus.NewRegistry())),
			)
			result, err := generator.Generate(ctx, *cfg)
			if err != nil {
				return err
			}

			if resultPath == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %d table(s) into %d file(s)\n", result.Tables, len(result.Files))
				return nil
			}
			return codegen.WriteResult(resultPath, result)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "generator config file")
	cmd.Flags().StringVar(&resultPath, "result", "", "file the generation result is written to")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
