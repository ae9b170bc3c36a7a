package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/razvandimescu/peekwiki/internal/logger"
	"github.com/razvandimescu/peekwiki/internal/viewstate"
)

const shutdownTimeout = 5 * time.Second

var (
	// Build info (set via ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags
	configPath     = flag.String("config", "", "Path to a YAML config file")
	listenAddr     = flag.String("listen", "", "Address to serve on (overrides config)")
	attachmentsDir = flag.String("attachments", "", "Attachments directory (overrides config)")
	stateBackend   = flag.String("state", "", "View-state backend: memory, redis or sqlite (overrides config)")
	logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	showVersion    = flag.Bool("version", false, "Show version information")
)

// flagOverrides are command-line values that replace config file values
// when set.
type flagOverrides struct {
	listen      string
	contentDir  string
	attachments string
	state       string
	logLevel    string
}

func (o flagOverrides) apply(cfg Config) Config {
	if o.listen != "" {
		cfg.Listen = o.listen
	}
	if o.contentDir != "" {
		cfg.ContentDir = o.contentDir
	}
	if o.attachments != "" {
		cfg.AttachmentsDir = o.attachments
	}
	if o.state != "" {
		cfg.State.Backend = o.state
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: peekwiki [options] [content-dir]")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("peekwiki %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "peekwiki: %v\n", err)
		os.Exit(1)
	}
	cfg = flagOverrides{
		listen:      *listenAddr,
		contentDir:  flag.Arg(0),
		attachments: *attachmentsDir,
		state:       *stateBackend,
		logLevel:    *logLevel,
	}.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "peekwiki: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("peekwiki stopped", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg Config, log *logger.Logger) error {
	store, err := viewstate.Open(ctx, cfg.stateOptions())
	if err != nil {
		return fmt.Errorf("open view state: %w", err)
	}
	defer store.Close()

	a, err := newApp(cfg, log, store)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      a.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("serving wiki",
			"url", "http://"+cfg.Listen,
			"content", a.pages.root,
			"attachments", a.attachments,
			"state", cfg.State.Backend,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return a.watcher.run(gctx)
	})
	if sweeper, ok := store.(viewstate.Sweeper); ok {
		g.Go(func() error {
			sweepLoop(gctx, sweeper, sweepInterval(cfg.State.TTL), log)
			return nil
		})
	}
	return g.Wait()
}

// sweepInterval runs sweeps twice per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// sweepLoop removes expired view state until ctx is cancelled.
func sweepLoop(ctx context.Context, s viewstate.Sweeper, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Warnw("view state sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debugw("swept expired view state", "removed", n)
			}
		}
	}
}
