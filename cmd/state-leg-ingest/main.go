// state-leg-ingest refreshes the per-state legislator rosters from the OpenStates bulk CSV exports.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"rep-lookup/internal/dataset"
	"rep-lookup/internal/logger"
	"rep-lookup/internal/openstates"
	"rep-lookup/internal/version"
)

type options struct {
	out       string
	base      string
	states    []string
	workers   int
	interval  time.Duration
	timeout   time.Duration
	userAgent string
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:           "state-leg-ingest",
		Short:         "Download OpenStates rosters and write data/state-legislators/<st>.json",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.out, "out", envOr("STATE_DATA_BASE", filepath.Join("data", "state-legislators")), "output directory")
	f.StringVar(&o.base, "base", envOr("OPENSTATES_BASE", openstates.DefaultBase), "OpenStates CSV base URL or directory")
	f.StringSliceVar(&o.states, "states", nil, "jurisdictions to fetch (default: 50 states and dc)")
	f.IntVar(&o.workers, "workers", 2, "concurrent downloads")
	f.DurationVar(&o.interval, "interval", 100*time.Millisecond, "minimum spacing between downloads")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "per-request timeout")
	f.StringVar(&o.userAgent, "user-agent", "rep-lookup-ingest/"+version.Commit, "User-Agent sent upstream")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, o options) error {
	l := logger.Setup()
	states := o.states
	if len(states) == 0 {
		states = openstates.Jurisdictions
	}
	if o.workers < 1 {
		o.workers = 1
	}
	src := dataset.NewLocator(o.base)
	src.UserAgent = o.userAgent
	src.Client.Timeout = o.timeout
	lim := rate.NewLimiter(rate.Every(o.interval), 1)

	l.Info("ingest_start", "states", len(states), "workers", o.workers, "base", o.base, "out", o.out)
	start := time.Now()

	jobs := make(chan string)
	var (
		mu     sync.Mutex
		failed []string
		wg     sync.WaitGroup
	)
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				if err := ingestOne(ctx, lim, src, o.out, st); err != nil {
					l.Error("ingest_state_error", "state", st, "err", err)
					mu.Lock()
					failed = append(failed, st)
					mu.Unlock()
				}
			}
		}()
	}
feed:
	for _, st := range states {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- strings.ToLower(strings.TrimSpace(st)):
		}
	}
	close(jobs)
	wg.Wait()

	l.Info("ingest_done", "states", len(states), "failed", len(failed), "duration_ms", time.Since(start).Milliseconds())
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed states: %s", strings.Join(failed, ","))
	}
	return nil
}

func ingestOne(ctx context.Context, lim *rate.Limiter, src dataset.Source, out, st string) error {
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	sum, doc, err := openstates.Fetch(ctx, src, st)
	if errors.Is(err, dataset.ErrNotFound) {
		return fmt.Errorf("no export for %s: %w", st, err)
	}
	if err != nil {
		return err
	}
	path, err := openstates.WriteFile(out, st, doc)
	if err != nil {
		return err
	}
	logger.L().Info("ingest_state_ok", "state", st, "upper", sum.Upper, "lower", sum.Lower, "path", path)
	return nil
}
