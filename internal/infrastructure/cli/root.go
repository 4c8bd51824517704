package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose       bool
	configPath    string
	workspaceRoot string

	logger = slog.Default()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "sdra",
	Version: Version,
	Short:   "Multi-model security design review",
	Long: `sdra reviews a folder of design documents with a panel of language models.
It extracts the design text, asks every model for a threat model and a risk
rating, merges their answers with an arbitration model, refines the result
and writes a final security design review report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), verbose)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output, including every model call")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <workspace>/.sdra/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace", "", "Workspace root holding .sdra/ and .env (default current directory)")
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func getWorkspaceRoot() (string, error) {
	if workspaceRoot != "" {
		return workspaceRoot, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return cwd, nil
}

// serviceOptions returns the wiring options shared by every command.
func serviceOptions() (wiring.Options, error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return wiring.Options{}, err
	}
	return wiring.Options{
		Root:       root,
		ConfigPath: configPath,
		Logger:     logger,
	}, nil
}
