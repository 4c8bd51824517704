package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the sdra configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings with masked credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := serviceOptions()
		if err != nil {
			return err
		}
		cfg, err := wiring.ResolveConfig(opts)
		if err != nil {
			return MapError(err)
		}
		fmt.Fprint(cmd.OutOrStdout(), cfg.Summary())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .sdra/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getWorkspaceRoot()
		if err != nil {
			return err
		}
		path := configPath
		if path == "" {
			path = config.Path(root)
		}

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return NewCLIError(fmt.Sprintf("%s already exists", path), "Use --force to overwrite it", nil)
		}

		cfg := config.Default()
		cfg.Panel = append([]string(nil), config.DefaultPanel...)
		if err := config.Save(path, &cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	RootCmd.AddCommand(configCmd)
}
