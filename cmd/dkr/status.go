package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jason-riddle/dkr-go"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(health, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s (%s %s)\n", health.Status, health.Service, health.Version)
				return err
			})
		},
	}
}

// statusOutput is the combined view printed by dkr status.
type statusOutput struct {
	BaseURL    string         `json:"base_url"`
	Health     *dkr.Health    `json:"health"`
	Documents  int            `json:"documents"`
	Categories []dkr.Category `json:"categories"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend health, document and category counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := statusOutput{BaseURL: a.client.BaseURL()}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				health, err := a.client.Health(ctx)
				out.Health = health
				return err
			})
			g.Go(func() error {
				docs, err := a.client.ListDocuments(ctx, nil)
				out.Documents = len(docs)
				return err
			})
			g.Go(func() error {
				categories, err := a.client.ListCategories(ctx)
				out.Categories = categories
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			return a.print(out, func(w io.Writer) error {
				fmt.Fprintf(w, "Backend:    %s\n", out.BaseURL)
				fmt.Fprintf(w, "Status:     %s (%s %s)\n", out.Health.Status, out.Health.Service, out.Health.Version)
				fmt.Fprintf(w, "Documents:  %d\n", out.Documents)
				_, err := fmt.Fprintf(w, "Categories: %d\n", len(out.Categories))
				return err
			})
		},
	}
}
