package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doridoridoriand/fastping/internal/config"
	"github.com/doridoridoriand/fastping/internal/registry"
)

func newTargetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "targets",
		Aliases: []string{"target"},
		Short:   "Inspect or edit the target store without starting the monitor",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored target",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := openRegistry(cmd)
				if err != nil {
					return err
				}
				for _, t := range reg.Targets() {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <target>...",
			Short: "Append targets to the store",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := openRegistry(cmd)
				if err != nil {
					return err
				}
				for _, t := range args {
					added, err := reg.Add(t)
					if err != nil {
						return err
					}
					if added {
						fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", strings.TrimSpace(t))
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "already present: %s\n", strings.TrimSpace(t))
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "remove <target>...",
			Aliases: []string{"rm"},
			Short:   "Delete targets from the store",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := openRegistry(cmd)
				if err != nil {
					return err
				}
				for _, t := range args {
					removed, err := reg.Remove(t)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", strings.TrimSpace(t))
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "not present: %s\n", strings.TrimSpace(t))
					}
				}
				return nil
			},
		},
	)
	return cmd
}

func openRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return registry.Open(cfg.Store, registry.DefaultTargets)
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return writeConfig(cmd, cfg)
		},
	})
	return cmd
}

func writeConfig(cmd *cobra.Command, cfg *config.Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
