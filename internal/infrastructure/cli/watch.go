package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/watch"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
)

var (
	watchReview   bool
	watchDebounce time.Duration
	watchInclude  []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Re-parse, or re-review, a design folder whenever it changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := folderArg(cmd, args)
		if err != nil {
			return MapError(err)
		}

		filter := watch.DesignFilter()
		filter.Include = watchInclude
		fw, err := watch.NewFolderWatcher(folder, watch.Options{
			Debounce: watchDebounce,
			Filter:   filter,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		mode := "parse"
		if watchReview {
			mode = "review"
		}
		fmt.Fprintf(out, "Watching %s for changes (%s on change, Ctrl+C to stop)\n", folder, mode)

		errCh := make(chan error, 1)
		go func() { errCh <- fw.Run(ctx) }()

		for {
			select {
			case <-ctx.Done():
				return <-errCh
			case err := <-errCh:
				return err
			case b := <-fw.Batches():
				fmt.Fprintf(out, "\nChange detected at %s: %s\n", b.At.Format("15:04:05"), strings.Join(baseNames(b.Paths), ", "))
				if err := rerun(ctx, out, folder); err != nil {
					fmt.Fprintf(out, "%s failed: %v\n", mode, MapError(err))
				}
			}
		}
	},
}

func rerun(ctx context.Context, out io.Writer, folder string) error {
	if watchReview {
		session, ws, err := runReview(ctx, folder, reviewOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Review %s complete, report in %s\n", session.ID, ws.Config.ArtifactsDir)
		return nil
	}

	opts, err := serviceOptions()
	if err != nil {
		return err
	}
	cfg, err := wiring.ResolveConfig(opts)
	if err != nil {
		return err
	}
	parser, err := wiring.BuildParser(cfg, opts)
	if err != nil {
		return err
	}
	text, err := parser.ParseFolder(ctx, folder)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Parsed %d characters\n", len(text))
	return nil
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = p[strings.LastIndexAny(p, `/\`)+1:]
	}
	return names
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	watchCmd.Flags().BoolVar(&watchReview, "review", false, "Run a full review on each change instead of parsing")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is handled")
	watchCmd.Flags().StringSliceVar(&watchInclude, "include", nil, "Only react to these file patterns, e.g. *.pdf")
	RootCmd.AddCommand(watchCmd)
}
