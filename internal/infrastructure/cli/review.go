package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/sse"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/tui"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

var (
	reviewModel       string
	reviewPanel       []string
	reviewRounds      int
	reviewTUI         bool
	reviewNoArtifacts bool
	reviewDryRun      bool
	reviewEventsAddr  string
)

var reviewCmd = &cobra.Command{
	Use:   "review [folder]",
	Short: "Run a full security design review over a folder",
	Long: `Review parses the folder, builds a STRIDE threat model and a DREAD risk
rating with every panel model, merges and refines each phase with the
arbitration model and writes the final report to the artifacts directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := folderArg(cmd, args)
		if err != nil {
			return MapError(err)
		}
		session, ws, err := runReview(cmd.Context(), folder, reviewOptions{
			Flags: &config.Config{
				ArbitrationModel: reviewModel,
				Panel:            reviewPanel,
				MaxRounds:        reviewRounds,
			},
			DryRun:      reviewDryRun,
			NoArtifacts: reviewNoArtifacts,
			TUI:         reviewTUI,
			EventsAddr:  reviewEventsAddr,
		})
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, session.FinalReport)
		if !reviewNoArtifacts {
			fmt.Fprintf(out, "\nArtifacts written to %s (session %s)\n", ws.Config.ArtifactsDir, session.ID)
		}
		return nil
	},
}

type reviewOptions struct {
	Flags       *config.Config
	DryRun      bool
	NoArtifacts bool
	TUI         bool
	// EventsAddr serves progress events over SSE at /events while the
	// review runs.
	EventsAddr string
}

// runReview wires the services for one review and runs it, behind the
// progress display when requested.
func runReview(ctx context.Context, folder string, ro reviewOptions) (*review.Session, *wiring.Workspace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := serviceOptions()
	if err != nil {
		return nil, nil, err
	}
	opts.Flags = ro.Flags
	opts.DryRun = ro.DryRun
	opts.NoArtifacts = ro.NoArtifacts

	var (
		progress *observability.ChannelObserver
		local    observability.Observer
	)
	if ro.TUI {
		progress = observability.NewChannelObserver(256)
		local = progress
	} else {
		local = observability.NewSlogObserver(logger)
	}
	opts.Observer = local

	if ro.EventsAddr != "" {
		broker := sse.NewBroker()
		stop, err := serveEvents(ro.EventsAddr, broker)
		if err != nil {
			return nil, nil, err
		}
		defer stop()
		opts.Observer = observability.NewMultiObserver(local, broker)
	}

	services, err := wiring.BuildAppServices(opts)
	if err != nil {
		return nil, nil, err
	}

	var session *review.Session
	work := func(ctx context.Context) error {
		var err error
		session, err = services.Review.Review(ctx, folder)
		return err
	}

	if progress != nil {
		err = tui.Run(ctx, progress, work)
	} else {
		err = work(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := services.NotifyCompleted(ctx, session); err != nil {
		logger.Warn("review notification failed", "error", err)
	}
	return session, services.Workspace, nil
}

// serveEvents starts an HTTP server for broker and returns its shutdown.
func serveEvents(addr string, broker *sse.Broker) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/events", broker)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("event stream stopped", "error", err)
		}
	}()
	logger.Info("streaming review events", "url", "http://"+ln.Addr().String()+"/events")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// Open streams never finish on their own.
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
		}
	}, nil
}

func init() {
	reviewCmd.Flags().StringVar(&reviewModel, "model", "", "Arbitration model (default arbitration_model)")
	reviewCmd.Flags().StringSliceVar(&reviewPanel, "panel", nil, "Panel models, e.g. openai:gpt-4o-mini,anthropic:claude-3-5-sonnet-latest")
	reviewCmd.Flags().IntVar(&reviewRounds, "rounds", 0, "Maximum refinement rounds per phase (default max_rounds)")
	reviewCmd.Flags().BoolVar(&reviewTUI, "tui", false, "Show live progress in an interactive view")
	reviewCmd.Flags().BoolVar(&reviewNoArtifacts, "no-artifacts", false, "Do not write intermediate outputs or the report to disk")
	reviewCmd.Flags().BoolVar(&reviewDryRun, "dry-run", false, "Use scripted models instead of calling any provider")
	reviewCmd.Flags().StringVar(&reviewEventsAddr, "events-addr", "", "Serve progress events over SSE at http://<addr>/events")
	RootCmd.AddCommand(reviewCmd)
}
