package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
	"github.com/jason-riddle/dkr-go/cmd/dkr/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	client *dkr.Client
	logger *slog.Logger
	out    io.Writer
	output string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}

	rootCmd := &cobra.Command{
		Use:   "dkr",
		Short: "Command-line client for the DKR document library",
		Long: `dkr talks to a DKR backend: upload and browse documents,
ask questions against the library and keep a local conversation history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text, json or yaml")

	rootCmd.AddCommand(
		newVersionCmd(a),
		newHealthCmd(a),
		newStatusCmd(a),
		newDocsCmd(a),
		newQueryCmd(a),
		newAskCmd(a),
		newCategoriesCmd(a),
		newLibraryCmd(a),
		newStatsCmd(a),
		newTokenCmd(a),
		newHistoryCmd(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, stderr io.Writer) error {
	switch a.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format: %s (want text, json or yaml)", a.output)
	}
	if _, ok := cmd.Annotations[skipConfig]; ok {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.client = dkr.NewClient(cfg.BaseURL,
		dkr.WithOrigin(cfg.Origin),
		dkr.WithTimeout(cfg.Timeout),
		dkr.WithCredentials(cfg.Credentials()),
		dkr.WithHeader("User-Agent", "dkr-go/"+version),
		dkr.WithLogger(logger),
	)
	return nil
}

// describe renders err for the terminal, naming which side failed.
func describe(err error) string {
	e, ok := dkr.AsError(err)
	if !ok {
		return err.Error()
	}

	switch e := e.(type) {
	case *dkr.ServerError:
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Detail())
	case *dkr.NetworkError:
		if e.Timeout {
			return fmt.Sprintf("%s: request timed out", e.Op)
		}
		if errors.Is(e, context.Canceled) {
			return fmt.Sprintf("%s: canceled", e.Op)
		}
		return fmt.Sprintf("%s: cannot reach the DKR backend: %v", e.Op, e.Err)
	default:
		return err.Error()
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version info",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    buildDate,
			}
			return a.print(info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "dkr %s (%s, %s)\n", version, commit, buildDate)
				return err
			})
		},
	}
}
