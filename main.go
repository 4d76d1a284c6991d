package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"mcap-navigator/config"
	"mcap-navigator/scan"
	"mcap-navigator/server"
	"mcap-navigator/session"
	"mcap-navigator/upload"
	"mcap-navigator/watch"
)

var (
	version   = "0.1.0" // Default version
	buildDate = "unknown"
	gitCommit = "unknown"
)

// newLogger builds the process logger: JSON lines by default, a console
// writer when pretty output was asked for.
func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openStore picks the bbolt store when a state file is configured.
func openStore(cfg config.Config) (session.Store, error) {
	if cfg.StateDB == "" {
		return session.NewMemoryStore(), nil
	}
	return session.OpenBoltStore(cfg.StateDB)
}

func main() {
	fs := config.NewFlagSet(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if showVersion, _ := fs.GetBool("version"); showVersion {
		fmt.Printf("mcap-navigator version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		return
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	log := newLogger(cfg, os.Stderr)
	log.Info().Str("version", version).Str("root", cfg.Root).Msg("starting")

	if info, err := os.Stat(cfg.Root); err != nil || !info.IsDir() {
		log.Warn().Str("root", cfg.Root).Msg("root is not a readable directory, the tree will be empty")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StateDB).Msg("cannot open session store")
	}
	defer store.Close()

	var opts []server.Option

	if cfg.Watch {
		w, err := watch.New(cfg.Root, watch.DefaultDebounce, log)
		if err != nil {
			log.Error().Err(err).Msg("watching disabled")
		} else {
			defer w.Close()
			opts = append(opts, server.WithNotifier(w))
		}
	}

	if cfg.Write {
		finalizer := upload.Finalizer{
			Guard:     scan.Guard{Root: cfg.Root, Strict: cfg.StrictSymlinks},
			Extension: cfg.Extension,
		}
		u, err := upload.New(cfg.UploadDir, finalizer, log)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("cannot set up uploads")
		}
		opts = append(opts, server.WithUploader(u))
		log.Info().Str("staging", cfg.UploadDir).Msg("write mode enabled")
	}

	srv, err := server.New(cfg, log, store, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Listen()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down, waiting for in-progress uploads")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("bye")
}
