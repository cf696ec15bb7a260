package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/thereayou/talk-signaling/pkg/signaling"
)

var (
	flagServer  string
	flagToken   string
	flagBackend string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callctl",
	Short: "Join calls and inspect rooms on a talk signaling server",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "s", envOr("TALK_SERVER", "http://localhost:8080"), "server base URL")
	pf.StringVarP(&flagToken, "token", "t", os.Getenv("TALK_TOKEN"), "bearer token; empty joins as a guest")
	pf.StringVar(&flagBackend, "backend", signaling.BackendInternal, "signaling backend")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(joinCmd, peersCmd, roomsCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func clientConfig() signaling.Config {
	return signaling.Config{
		Backend:   flagBackend,
		BaseURL:   flagServer,
		AuthToken: flagToken,
		Logger:    newLogger(),
	}
}

func newAPI() *signaling.API {
	return signaling.NewAPI(flagServer, flagToken, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
