package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/playperu/cluegame/internal/client"
	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		name    string
		apiURL  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "play",
		Short:         "Play today's movie clue game in the terminal.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if apiURL == "" {
				apiURL = cfg.APIBaseURL
			}

			api, err := client.New(apiURL, nil)
			if err != nil {
				return err
			}

			level := slog.LevelError
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			engine := cluegame.NewEngine(api, api, api,
				cluegame.WithMatcher(cluegame.NewMatcher(cfg.MatchThreshold)),
				cluegame.WithResolver(cluegame.Resolver{OffsetMinutes: cfg.TZOffsetMinutes}),
				cluegame.WithLogger(logger),
			)
			g := &game{
				engine:   engine,
				in:       newLines(cmd.Context(), stdin),
				out:      stdout,
				interval: cfg.BoundaryCheckInterval,
			}
			return g.play(cmd.Context(), name)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&name, "name", "n", "", "participant name (prompted when empty)")
	fs.StringVar(&apiURL, "api", "", "collaborator API base URL (env: API_BASE_URL)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}
