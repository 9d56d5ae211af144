package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pitchside/internal/boardsim"
)

// Default configuration constants.
const (
	defaultGestures   = 200
	defaultTimeout    = 30 * time.Second
	defaultSaveWait   = 5 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func newRootCmd() *cobra.Command {
	config := &boardsim.Config{}
	var runTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "board-sim",
		Short: "Drive a pitchside service with synthetic gestures",
		Long: `board-sim plays random drags, clicks, arrows, undos and cancels against the
boards of a running pitchside service. Drags routinely leave the board far
outside its edges. After every gesture the board is fetched and checked:
markers and arrows must stay on the pitch, home markers in the bottom half and
away markers in the top half. Each board is finally saved and the save is
replayed with the same Idempotency-Key, which must be reported as a duplicate.`,
		Example: `  board-sim
  board-sim --gestures 1000 --workers 4 --sketch
  board-sim --url http://localhost:8080 --match 1 --match 3 --seed 42`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := boardsim.SetupLogging(config.LogFile, config.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()

			_, err = boardsim.Run(ctx, config)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.StringSliceVar(&config.Matches, "match", nil, "Match id to drive (repeatable; default every open match)")
	f.IntVar(&config.Gestures, "gestures", defaultGestures, "Gestures per board")
	f.IntVar(&config.Workers, "workers", runtime.NumCPU(), "Boards driven concurrently")
	f.DurationVar(&config.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&config.SaveWait, "save-wait", defaultSaveWait, "How long a save request waits for completion")
	f.BoolVar(&config.Sketch, "sketch", false, "Also drive the sketch board of each match")
	f.Uint64Var(&config.Seed, "seed", 0, "Gesture generator seed (default random)")
	f.StringVar(&config.LogFile, "log", "", "Log file for run output (default: board_sim_TIMESTAMP.log)")
	f.BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "Upper bound for the whole run")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
