package cli

import (
	"fmt"

	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/spf13/cobra"
)

func newResolveHostCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-host",
		Short: "Print the host the database container would be reached on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			defer a.close()

			resolver := environment.HostResolver{Override: a.cfg.Database.HostOverride}
			if resolver.Override != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resolver.Override)
				return nil
			}

			manager, err := a.deps.NewManager(cmd.Context(), a.log, a.metrics)
			if err != nil {
				return err
			}
			defer manager.Close()

			host, err := resolver.Resolve(manager.DaemonHost())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), host)
			return nil
		},
	}
	addRunFlags(cmd, a.opts)
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			defer a.close()

			cfg := a.cfg
			if !showSecrets {
				cfg = cfg.Redacted()
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print passwords instead of masking them")
	return cmd
}
