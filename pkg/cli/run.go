package cli

import (
	"fmt"

	"github.com/platinummonkey/dockgen/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Migrate a fresh database and generate code from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, a, pipeline.ModeGenerate)
		},
	}
	addRunFlags(cmd, a.opts)
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the migrations to a fresh database to verify them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, a, pipeline.ModeMigrate)
		},
	}
	addRunFlags(cmd, a.opts)
	return cmd
}

func runPipeline(cmd *cobra.Command, a *app, mode pipeline.Mode) error {
	if err := a.load(cmd); err != nil {
		return err
	}
	defer a.close()

	report, err := a.run(cmd.Context(), mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if m := report.Migration; m != nil {
		fmt.Fprintf(out, "Applied %d migration(s), schema version %s\n", len(m.Applied), displayVersion(m.TargetVersion))
	}
	if g := report.Generation; g != nil {
		fmt.Fprintf(out, "Generated %d table(s) into %d file(s) under %s\n", g.Tables, len(g.Files), a.cfg.Generation.OutputDir)
	}
	return nil
}

func displayVersion(v string) string {
	if v == "" {
		return "<empty>"
	}
	return v
}
